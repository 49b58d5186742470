package gen

import "github.com/OCharnyshevich/chunkforge/pkg/world/chunk"

// Strategy fills a chunk's block array with base terrain, column by column.
// Implementations must update the chunk's solid/empty offsets for every column they
// fill and must be safe to call from several goroutines on different chunks.
type Strategy interface {
	GenerateChunk(c *chunk.Chunk)
	HeightAt(worldX, worldZ int) int
}

// Terrain guards a Strategy so a chunk is generated at most once.
type Terrain struct {
	strategy Strategy
}

// NewTerrain wraps s.
func NewTerrain(s Strategy) *Terrain {
	return &Terrain{strategy: s}
}

// Strategy returns the wrapped strategy.
func (t *Terrain) Strategy() Strategy { return t.strategy }

// Generate fills c and marks it generated. It is a no-op returning false when c is
// already generated. The generated flag flips only after the fill completes.
//
// Callers must not run Generate on the same chunk from two goroutines at once; the
// builder guarantees this through the chunk's generation claim.
func (t *Terrain) Generate(c *chunk.Chunk) bool {
	if c.Generated() {
		return false
	}
	t.strategy.GenerateChunk(c)
	c.MarkGenerated()
	return true
}
