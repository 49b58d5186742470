package world

import (
	"errors"
	"sync"
	"testing"

	"github.com/OCharnyshevich/chunkforge/pkg/world/chunk"
	"github.com/OCharnyshevich/chunkforge/pkg/world/coordmap"
)

func TestStorageRoundTrip(t *testing.T) {
	s := NewStorage()
	c := chunk.New(4, 9, chunk.DefaultDimensions)
	if err := s.Set(4, 9, c); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := s.Get(4, 9)
	if !ok || got != c {
		t.Errorf("Get(4,9) = (%p, %v), want (%p, true)", got, ok, c)
	}
	if !s.ContainsKey(4, 9) {
		t.Error("ContainsKey(4,9) = false")
	}
	if s.Count() != 1 {
		t.Errorf("Count = %d, want 1", s.Count())
	}
}

func TestStorageNegativeCoordinates(t *testing.T) {
	s := NewStorage()
	_ = s.Set(-1, -1, chunk.New(-1, -1, chunk.DefaultDimensions))
	if !s.ContainsKey(-1, -1) {
		t.Fatal("ContainsKey(-1,-1) = false, want true")
	}
}

func TestStorageRemove(t *testing.T) {
	s := NewStorage()
	c := chunk.New(0, 1, chunk.DefaultDimensions)
	_ = s.Set(0, 1, c)

	got, ok := s.Remove(0, 1)
	if !ok || got != c {
		t.Errorf("Remove = (%p, %v), want (%p, true)", got, ok, c)
	}
	if s.ContainsKey(0, 1) {
		t.Error("ContainsKey after Remove = true")
	}
	if got, ok := s.Get(0, 1); ok || got != nil {
		t.Errorf("Get after Remove = (%p, %v), want (nil, false)", got, ok)
	}
}

func TestStorageSetOutOfRange(t *testing.T) {
	s := NewStorage()
	err := s.Set(coordmap.MaxCoord+1, 0, chunk.New(0, 0, chunk.DefaultDimensions))
	if !errors.Is(err, coordmap.ErrOutOfRange) {
		t.Errorf("Set out of range error = %v, want ErrOutOfRange", err)
	}
}

func TestStorageValuesWhileMutating(t *testing.T) {
	s := NewStorage()
	for i := 0; i < 64; i++ {
		_ = s.Set(i, 0, chunk.New(i, 0, chunk.DefaultDimensions))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 64; i++ {
			s.Remove(i, 0)
			_ = s.Set(i, 1, chunk.New(i, 1, chunk.DefaultDimensions))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 64; i++ {
			for _, c := range s.Values() {
				if c == nil {
					t.Error("Values returned a nil chunk")
					return
				}
			}
		}
	}()
	wg.Wait()

	if s.Count() != 64 {
		t.Errorf("Count = %d, want 64", s.Count())
	}
}

func TestStorageBounds(t *testing.T) {
	s := NewStorage()
	s.SetBounds(Coord{-2, -3}, Coord{2, 3})
	if s.SouthWest() != (Coord{-2, -3}) || s.NorthEast() != (Coord{2, 3}) {
		t.Errorf("bounds = %v..%v", s.SouthWest(), s.NorthEast())
	}
	tests := []struct {
		x, z int
		want bool
	}{
		{0, 0, true},
		{-2, -3, true},
		{2, 3, true},
		{3, 0, false},
		{0, -4, false},
	}
	for _, tt := range tests {
		if got := s.InBounds(tt.x, tt.z); got != tt.want {
			t.Errorf("InBounds(%d,%d) = %v, want %v", tt.x, tt.z, got, tt.want)
		}
	}
}
