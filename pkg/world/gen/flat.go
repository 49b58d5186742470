package gen

import "github.com/OCharnyshevich/chunkforge/pkg/world/chunk"

// FlatGenerator generates a flat world: dirt from y=0 with a single grass cap, so a
// height of 5 gives dirt at y=0..3 and grass at y=4.
type FlatGenerator struct {
	Height int
}

// NewFlatGenerator creates a FlatGenerator with the given terrain height.
func NewFlatGenerator(height int) *FlatGenerator {
	return &FlatGenerator{Height: height}
}

func (g *FlatGenerator) GenerateChunk(c *chunk.Chunk) {
	dims := c.Dims()
	h := min(max(g.Height, 0), dims.Height)

	for x := 0; x < dims.Width; x++ {
		for z := 0; z < dims.Length; z++ {
			if h > 0 {
				c.FillColumn(x, z, 0, h-1, chunk.Dirt)
				c.SetBlock(x, h-1, z, chunk.Grass)
			}
			c.TrackColumn(h)
		}
	}
}

func (g *FlatGenerator) HeightAt(_, _ int) int {
	return g.Height
}
