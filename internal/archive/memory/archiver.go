// Package memory stores archived pages in-memory for development and
// tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Archiver stores artifacts in-memory and returns pseudo URIs.
type Archiver struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates a new in-memory archiver.
func New() *Archiver {
	return &Archiver{data: make(map[string][]byte)}
}

// PutObject persists the content and returns a memory:// URI.
func (a *Archiver) PutObject(_ context.Context, path string, _ string, data []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[path] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", path), nil
}

// Get returns the stored content for path. Exposed for tests.
func (a *Archiver) Get(path string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.data[path]
	return data, ok
}

// Len reports how many objects are stored. Exposed for tests.
func (a *Archiver) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.data)
}
