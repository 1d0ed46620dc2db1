// Package jobs provides the in-memory registry of submitted enrichment
// batches with global identifier deduplication.
package jobs

import (
	"sync"
)

// Store maps job IDs to the identifier lists accepted for them. An
// identifier is accepted at most once across all jobs for the lifetime
// of the process; later submissions drop it silently. There is no
// removal or expiry, matching the single-read lifecycle of a job.
type Store struct {
	mu   sync.RWMutex
	jobs map[string][]int
	seen map[int]struct{}
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string][]int),
		seen: make(map[int]struct{}),
	}
}

// Add registers values under jobID, skipping every identifier any prior
// Add call has already claimed. It returns the identifiers actually
// stored for this job, in submission order. Re-adding to an existing
// job appends.
func (s *Store) Add(jobID string, values []int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	accepted := make([]int, 0, len(values))
	for _, v := range values {
		if _, dup := s.seen[v]; dup {
			continue
		}
		s.seen[v] = struct{}{}
		accepted = append(accepted, v)
	}
	s.jobs[jobID] = append(s.jobs[jobID], accepted...)
	return accepted
}

// Get returns the identifiers stored for jobID and whether the job is
// known. The returned slice is a copy.
func (s *Store) Get(jobID string) ([]int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, ok := s.jobs[jobID]
	if !ok {
		return nil, false
	}
	out := make([]int, len(ids))
	copy(out, ids)
	return out, true
}

// Seen reports whether an identifier has been claimed by any job.
func (s *Store) Seen(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id]
	return ok
}
