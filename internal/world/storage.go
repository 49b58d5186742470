// Package world owns the loaded chunks of a world and the host-side bookkeeping
// that decides which chunks are loaded.
package world

import (
	"fmt"
	"sync"

	"github.com/OCharnyshevich/chunkforge/pkg/world/chunk"
	"github.com/OCharnyshevich/chunkforge/pkg/world/coordmap"
)

// Coord is a chunk coordinate.
type Coord struct {
	X, Z int
}

// Storage maps chunk coordinates to chunks and tracks the loaded rectangle.
// It adds no locking of its own around chunk operations; the coordinate map is
// safe for concurrent use.
type Storage struct {
	chunks *coordmap.Map[*chunk.Chunk]

	boundsMu  sync.RWMutex
	southWest Coord
	northEast Coord
}

// NewStorage creates an empty Storage.
func NewStorage() *Storage {
	return &Storage{chunks: coordmap.New[*chunk.Chunk]()}
}

// Get returns the chunk at (x, z), or nil and false when none is loaded.
func (s *Storage) Get(x, z int) (*chunk.Chunk, bool) {
	return s.chunks.Get(x, z)
}

// Set stores c at (x, z).
func (s *Storage) Set(x, z int, c *chunk.Chunk) error {
	if err := s.chunks.Set(x, z, c); err != nil {
		return fmt.Errorf("store chunk (%d,%d): %w", x, z, err)
	}
	return nil
}

// LoadOrStore stores c at (x, z) unless a chunk is already there, and returns the
// chunk that ends up stored.
func (s *Storage) LoadOrStore(x, z int, c *chunk.Chunk) (*chunk.Chunk, bool, error) {
	actual, loaded, err := s.chunks.LoadOrStore(x, z, c)
	if err != nil {
		return nil, false, fmt.Errorf("store chunk (%d,%d): %w", x, z, err)
	}
	return actual, loaded, nil
}

// Remove deletes and returns the chunk at (x, z).
func (s *Storage) Remove(x, z int) (*chunk.Chunk, bool) {
	return s.chunks.Remove(x, z)
}

// ContainsKey reports whether a chunk is loaded at (x, z).
func (s *Storage) ContainsKey(x, z int) bool {
	return s.chunks.ContainsKey(x, z)
}

// Count returns the number of loaded chunks.
func (s *Storage) Count() int {
	return s.chunks.Len()
}

// Values returns a point-in-time snapshot of the loaded chunks.
func (s *Storage) Values() []*chunk.Chunk {
	return s.chunks.Values()
}

// SouthWest returns the minimum corner of the loaded rectangle.
func (s *Storage) SouthWest() Coord {
	s.boundsMu.RLock()
	defer s.boundsMu.RUnlock()
	return s.southWest
}

// NorthEast returns the maximum corner of the loaded rectangle.
func (s *Storage) NorthEast() Coord {
	s.boundsMu.RLock()
	defer s.boundsMu.RUnlock()
	return s.northEast
}

// SetBounds records the loaded rectangle. Keeping chunks inside it is the
// caller's job.
func (s *Storage) SetBounds(sw, ne Coord) {
	s.boundsMu.Lock()
	s.southWest, s.northEast = sw, ne
	s.boundsMu.Unlock()
}

// InBounds reports whether (x, z) lies inside the loaded rectangle, inclusive.
func (s *Storage) InBounds(x, z int) bool {
	s.boundsMu.RLock()
	defer s.boundsMu.RUnlock()
	return x >= s.southWest.X && x <= s.northEast.X && z >= s.southWest.Z && z <= s.northEast.Z
}
