package catalog

import (
	"sync/atomic"
	"time"
)

// Store holds the current Catalog. Readers never block; a reload swaps the
// pointer.
type Store struct {
	current atomic.Pointer[Catalog]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current catalog, or nil if none has been loaded.
func (s *Store) Get() *Catalog {
	return s.current.Load()
}

// Set replaces the current catalog.
func (s *Store) Set(c *Catalog) {
	s.current.Store(c)
}

// AgeSeconds returns seconds since the current catalog was loaded, or -1 if
// none is loaded.
func (s *Store) AgeSeconds() float64 {
	c := s.current.Load()
	if c == nil {
		return -1
	}
	return time.Since(c.LoadedAt).Seconds()
}
