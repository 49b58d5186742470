package world

import (
	"testing"

	"github.com/OCharnyshevich/chunkforge/pkg/world/chunk"
)

func TestEnsureRadius(t *testing.T) {
	m := NewManager(NewStorage(), chunk.DefaultDimensions, nil)

	added, evicted, err := m.EnsureRadius(0, 0, 2)
	if err != nil {
		t.Fatalf("EnsureRadius: %v", err)
	}
	// Radius 2 → 5×5 = 25 chunks.
	if added != 25 || evicted != 0 {
		t.Errorf("EnsureRadius(0,0,2) = (%d, %d), want (25, 0)", added, evicted)
	}
	for cx := -2; cx <= 2; cx++ {
		for cz := -2; cz <= 2; cz++ {
			c, ok := m.Storage().Get(cx, cz)
			if !ok {
				t.Fatalf("chunk (%d,%d) not loaded", cx, cz)
			}
			if x, z := c.Position(); x != cx || z != cz {
				t.Errorf("chunk at (%d,%d) reports position (%d,%d)", cx, cz, x, z)
			}
		}
	}

	// Repeating is a no-op.
	added, evicted, _ = m.EnsureRadius(0, 0, 2)
	if added != 0 || evicted != 0 {
		t.Errorf("repeat EnsureRadius = (%d, %d), want (0, 0)", added, evicted)
	}
}

func TestEnsureRadiusMovesWindow(t *testing.T) {
	m := NewManager(NewStorage(), chunk.DefaultDimensions, nil)
	_, _, _ = m.EnsureRadius(0, 0, 1)
	keep, _ := m.Storage().Get(1, 1)

	added, evicted, err := m.EnsureRadius(1, 1, 1)
	if err != nil {
		t.Fatalf("EnsureRadius: %v", err)
	}
	// 3×3 windows offset by one on both axes share a 2×2 overlap.
	if added != 5 || evicted != 5 {
		t.Errorf("EnsureRadius(1,1,1) = (%d, %d), want (5, 5)", added, evicted)
	}
	if m.Storage().Count() != 9 {
		t.Errorf("Count = %d, want 9", m.Storage().Count())
	}
	if got, _ := m.Storage().Get(1, 1); got != keep {
		t.Error("overlapping chunk was replaced")
	}
	if m.Storage().ContainsKey(-1, -1) {
		t.Error("chunk outside the window was not evicted")
	}
	if sw, ne := m.Storage().SouthWest(), m.Storage().NorthEast(); sw != (Coord{0, 0}) || ne != (Coord{2, 2}) {
		t.Errorf("bounds = %v..%v, want {0 0}..{2 2}", sw, ne)
	}
}

func TestManagerBlockEdits(t *testing.T) {
	m := NewManager(NewStorage(), chunk.DefaultDimensions, nil)
	_, _, _ = m.EnsureRadius(0, 0, 1)

	c, _ := m.Storage().Get(-1, 0)
	c.MarkGenerated()

	if !m.SetBlock(-1, 10, 5, chunk.Stone) {
		t.Fatal("SetBlock(-1,10,5) reported chunk not loaded")
	}
	if got := c.Block(15, 10, 5).Type; got != chunk.Stone {
		t.Errorf("chunk(-1,0) local (15,10,5) = %v, want stone", got)
	}
	if !c.Dirty() {
		t.Error("edit did not mark chunk dirty")
	}
	if b, ok := m.GetBlock(-1, 10, 5); !ok || b.Type != chunk.Stone {
		t.Errorf("GetBlock(-1,10,5) = (%v, %v), want (stone, true)", b.Type, ok)
	}

	if m.SetBlock(100, 0, 0, chunk.Stone) {
		t.Error("SetBlock on unloaded chunk returned true")
	}
	if m.SetBlock(0, 128, 0, chunk.Stone) {
		t.Error("SetBlock above the chunk returned true")
	}
	if _, ok := m.GetBlock(0, 0, 100); ok {
		t.Error("GetBlock on unloaded chunk reported loaded")
	}
}

func TestFloorDivMod(t *testing.T) {
	tests := []struct {
		a, size, q, r int
	}{
		{0, 16, 0, 0},
		{15, 16, 0, 15},
		{16, 16, 1, 0},
		{-1, 16, -1, 15},
		{-16, 16, -1, 0},
		{-17, 16, -2, 15},
	}
	for _, tt := range tests {
		q, r := floorDivMod(tt.a, tt.size)
		if q != tt.q || r != tt.r {
			t.Errorf("floorDivMod(%d,%d) = (%d,%d), want (%d,%d)", tt.a, tt.size, q, r, tt.q, tt.r)
		}
	}
}
