// Package media re-hosts scraped thumbnails into the system's own object
// store. Re-hosting is best-effort: on any failure the original remote URL
// is kept so a video write never fails on its thumbnail.
package media

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ObjectStore is the external object storage collaborator.
type ObjectStore interface {
	// Put stores data under key and returns the public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Hosts reports whether url is already served by this store.
	Hosts(url string) bool
}

// MemoryObjectStore is an in-memory ObjectStore for tests and dev mode.
type MemoryObjectStore struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryObjectStore creates an object store serving from baseURL.
func NewMemoryObjectStore(baseURL string) *MemoryObjectStore {
	return &MemoryObjectStore{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		objects: make(map[string][]byte),
	}
}

func (s *MemoryObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return fmt.Sprintf("%s/%s", s.baseURL, key), nil
}

func (s *MemoryObjectStore) Hosts(url string) bool {
	return strings.HasPrefix(url, s.baseURL+"/")
}

// Len returns the number of stored objects.
func (s *MemoryObjectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
