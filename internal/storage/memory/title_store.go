// Package memory provides in-memory persistence for tests and local
// development.
package memory

import (
	"context"
	"sync"

	"github.com/asibalo/netflix-critic/internal/critic"
)

// TitleStore is a map-backed critic.TitleStore with the same
// conflict-ignore semantics as the Postgres gateway: first write per
// unique key wins, later duplicates are dropped silently.
type TitleStore struct {
	mu           sync.RWMutex
	titles       map[int]critic.Title
	availability map[availabilityKey]critic.Availability
	ratings      map[ratingKey]critic.Rating
}

type availabilityKey struct {
	netflixID int
	country   string
}

type ratingKey struct {
	netflixID int
	vendor    string
}

// NewTitleStore constructs an empty TitleStore.
func NewTitleStore() *TitleStore {
	return &TitleStore{
		titles:       make(map[int]critic.Title),
		availability: make(map[availabilityKey]critic.Availability),
		ratings:      make(map[ratingKey]critic.Rating),
	}
}

// SaveBatch applies the batch. An empty batch is a no-op.
func (s *TitleStore) SaveBatch(_ context.Context, batch critic.EnrichmentBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range batch.Titles {
		if _, ok := s.titles[t.NetflixID]; !ok {
			s.titles[t.NetflixID] = t
		}
	}
	for _, a := range batch.Availability {
		key := availabilityKey{netflixID: a.NetflixID, country: a.Country}
		if _, ok := s.availability[key]; !ok {
			s.availability[key] = a
		}
	}
	for _, r := range batch.Ratings {
		key := ratingKey{netflixID: r.NetflixID, vendor: r.Vendor}
		if _, ok := s.ratings[key]; !ok {
			s.ratings[key] = r
		}
	}
	return nil
}

// GetTitle returns the stored title joined with its "Google users"
// rating when one exists.
func (s *TitleStore) GetTitle(_ context.Context, netflixID int) (critic.StoredTitle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.titles[netflixID]
	if !ok {
		return critic.StoredTitle{}, critic.ErrTitleNotFound
	}
	out := critic.StoredTitle{
		NetflixID:   t.NetflixID,
		Title:       t.Title,
		ContentType: t.ContentType,
		ReleaseYear: t.ReleaseYear,
		Runtime:     t.Runtime,
	}
	if r, ok := s.ratings[ratingKey{netflixID: netflixID, vendor: "Google users"}]; ok {
		rating := r.Rating
		out.GoogleUsersRating = &rating
	}
	return out, nil
}

// Availability returns the stored availability row for one identifier
// and country, if any. Exposed for tests.
func (s *TitleStore) Availability(netflixID int, country string) (critic.Availability, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.availability[availabilityKey{netflixID: netflixID, country: country}]
	return a, ok
}

// Counts reports how many rows of each kind are stored. Exposed for
// tests.
func (s *TitleStore) Counts() (titles, availability, ratings int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.titles), len(s.availability), len(s.ratings)
}
