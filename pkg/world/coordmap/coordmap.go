// Package coordmap maps integer (x, z) chunk coordinates to values through a single
// 64-bit composite key.
package coordmap

import (
	"errors"
	"sync"
)

const (
	// RowSize is the stride between consecutive z rows in the composite key.
	RowSize int64 = 1<<31 - 1

	// MaxCoord is the largest absolute x or z for which Key stays injective.
	MaxCoord = int((RowSize - 1) / 2)
)

// ErrOutOfRange is returned by Set when a coordinate lies outside ±MaxCoord.
var ErrOutOfRange = errors.New("coordinate out of range")

// Key returns the composite key x + z*RowSize.
// Injective as long as both coordinates satisfy InRange.
func Key(x, z int) int64 {
	return int64(x) + int64(z)*RowSize
}

// Coords inverts Key for keys produced from in-range coordinates.
func Coords(key int64) (x, z int) {
	rx := key % RowSize
	switch {
	case rx > int64(MaxCoord):
		rx -= RowSize
	case rx < -int64(MaxCoord):
		rx += RowSize
	}
	return int(rx), int((key - rx) / RowSize)
}

// InRange reports whether (x, z) can be stored without key collisions.
func InRange(x, z int) bool {
	return x >= -MaxCoord && x <= MaxCoord && z >= -MaxCoord && z <= MaxCoord
}

// Map is a concurrent map keyed by chunk coordinates. Every method is atomic on its
// own; LoadOrStore is the only compound operation.
type Map[T any] struct {
	mu sync.RWMutex
	m  map[int64]T
}

// New creates an empty Map.
func New[T any]() *Map[T] {
	return &Map[T]{m: make(map[int64]T)}
}

// Get returns the value stored at (x, z). A miss returns the zero value and false.
func (m *Map[T]) Get(x, z int) (T, bool) {
	var zero T
	if !InRange(x, z) {
		return zero, false
	}
	m.mu.RLock()
	v, ok := m.m[Key(x, z)]
	m.mu.RUnlock()
	return v, ok
}

// Set stores v at (x, z), replacing any previous value.
func (m *Map[T]) Set(x, z int, v T) error {
	if !InRange(x, z) {
		return ErrOutOfRange
	}
	m.mu.Lock()
	m.m[Key(x, z)] = v
	m.mu.Unlock()
	return nil
}

// LoadOrStore returns the existing value at (x, z) if present. Otherwise it stores v
// and returns it with loaded == false.
func (m *Map[T]) LoadOrStore(x, z int, v T) (actual T, loaded bool, err error) {
	if !InRange(x, z) {
		return actual, false, ErrOutOfRange
	}
	k := Key(x, z)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.m[k]; ok {
		return existing, true, nil
	}
	m.m[k] = v
	return v, false, nil
}

// ContainsKey reports whether a value is stored at (x, z).
func (m *Map[T]) ContainsKey(x, z int) bool {
	_, ok := m.Get(x, z)
	return ok
}

// Remove deletes and returns the value at (x, z).
func (m *Map[T]) Remove(x, z int) (T, bool) {
	var zero T
	if !InRange(x, z) {
		return zero, false
	}
	k := Key(x, z)

	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[k]
	if !ok {
		return zero, false
	}
	delete(m.m, k)
	return v, true
}

// Len returns the number of stored values.
func (m *Map[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.m)
}

// Values returns a point-in-time copy of all stored values in no particular order.
func (m *Map[T]) Values() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]T, 0, len(m.m))
	for _, v := range m.m {
		out = append(out, v)
	}
	return out
}

// Range calls fn for each entry of a snapshot taken before the first call. fn may
// mutate the map. Iteration stops when fn returns false.
func (m *Map[T]) Range(fn func(x, z int, v T) bool) {
	type entry struct {
		key int64
		v   T
	}
	m.mu.RLock()
	snap := make([]entry, 0, len(m.m))
	for k, v := range m.m {
		snap = append(snap, entry{k, v})
	}
	m.mu.RUnlock()

	for _, e := range snap {
		x, z := Coords(e.key)
		if !fn(x, z, e.v) {
			return
		}
	}
}
