package world

import (
	"io"
	"log/slog"

	"github.com/OCharnyshevich/chunkforge/pkg/world/chunk"
)

// Manager decides which chunks are loaded. It inserts empty chunks around a centre,
// evicts chunks that fall outside the loaded rectangle, and routes block edits
// addressed in world coordinates to the owning chunk.
type Manager struct {
	storage *Storage
	dims    chunk.Dimensions
	log     *slog.Logger
}

// NewManager creates a Manager over storage for chunks of the given dimensions.
func NewManager(storage *Storage, dims chunk.Dimensions, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{storage: storage, dims: dims, log: log.With("component", "world")}
}

// Storage returns the managed storage.
func (m *Manager) Storage() *Storage { return m.storage }

// EnsureRadius loads every chunk in the square of the given radius around
// (cx, cz), sets the loaded rectangle to that square, and evicts everything
// outside it. It returns how many chunks were added and evicted.
func (m *Manager) EnsureRadius(cx, cz, radius int) (added, evicted int, err error) {
	sw := Coord{X: cx - radius, Z: cz - radius}
	ne := Coord{X: cx + radius, Z: cz + radius}
	m.storage.SetBounds(sw, ne)

	for x := sw.X; x <= ne.X; x++ {
		for z := sw.Z; z <= ne.Z; z++ {
			if m.storage.ContainsKey(x, z) {
				continue
			}
			_, loaded, err := m.storage.LoadOrStore(x, z, chunk.New(x, z, m.dims))
			if err != nil {
				return added, evicted, err
			}
			if !loaded {
				added++
			}
		}
	}

	evicted = m.Evict()
	if added > 0 || evicted > 0 {
		m.log.Debug("loaded radius", "center", Coord{cx, cz}, "radius", radius, "added", added, "evicted", evicted)
	}
	return added, evicted, nil
}

// Evict removes every chunk outside the loaded rectangle and returns the count.
func (m *Manager) Evict() int {
	evicted := 0
	for _, c := range m.storage.Values() {
		x, z := c.Position()
		if m.storage.InBounds(x, z) {
			continue
		}
		if _, ok := m.storage.Remove(x, z); ok {
			evicted++
		}
	}
	return evicted
}

// GetBlock returns the block at world coordinates and whether its chunk is loaded.
func (m *Manager) GetBlock(wx, y, wz int) (chunk.Block, bool) {
	c, lx, lz, ok := m.locate(wx, wz)
	if !ok {
		return chunk.Block{}, false
	}
	return c.Block(lx, y, lz), true
}

// SetBlock edits the block at world coordinates. Edits to a generated chunk mark it
// dirty. It returns false when the owning chunk is not loaded.
func (m *Manager) SetBlock(wx, y, wz int, t chunk.BlockType) bool {
	c, lx, lz, ok := m.locate(wx, wz)
	if !ok || y < 0 || y >= m.dims.Height {
		return false
	}
	c.SetBlock(lx, y, lz, t)
	return true
}

func (m *Manager) locate(wx, wz int) (c *chunk.Chunk, lx, lz int, ok bool) {
	cx, lx := floorDivMod(wx, m.dims.Width)
	cz, lz := floorDivMod(wz, m.dims.Length)
	c, ok = m.storage.Get(cx, cz)
	return c, lx, lz, ok
}

// floorDivMod divides rounding toward negative infinity, so world coordinate -1
// lands in chunk -1 at local offset size-1.
func floorDivMod(a, size int) (q, r int) {
	q, r = a/size, a%size
	if r < 0 {
		q--
		r += size
	}
	return q, r
}
