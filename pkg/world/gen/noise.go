package gen

import (
	"github.com/ojrac/opensimplex-go"

	"github.com/OCharnyshevich/chunkforge/pkg/world/chunk"
)

const (
	defaultSeaLevel   = 62
	defaultBaseHeight = 64.0
	defaultAmplitude  = 14.0
	soilDepth         = 3
)

// NoiseGenerator produces rolling terrain from seeded simplex noise: a bedrock floor,
// stone body, a few layers of dirt, and a grass cap. Columns below sea level are
// capped with dirt and flooded with water.
type NoiseGenerator struct {
	SeaLevel   int
	BaseHeight float64
	Amplitude  float64

	terrain opensimplex.Noise
	detail  opensimplex.Noise
}

// NewNoiseGenerator creates a NoiseGenerator from a seed.
func NewNoiseGenerator(seed int64) *NoiseGenerator {
	return &NoiseGenerator{
		SeaLevel:   defaultSeaLevel,
		BaseHeight: defaultBaseHeight,
		Amplitude:  defaultAmplitude,
		terrain:    opensimplex.New(seed),
		detail:     opensimplex.New(seed + 1),
	}
}

func (g *NoiseGenerator) GenerateChunk(c *chunk.Chunk) {
	dims := c.Dims()
	ox, oz := c.WorldOrigin()

	for x := 0; x < dims.Width; x++ {
		for z := 0; z < dims.Length; z++ {
			h := min(g.HeightAt(ox+x, oz+z), dims.Height)
			g.fillColumn(c, x, z, h)
			c.TrackColumn(h)
		}
	}
}

// HeightAt returns the number of solid blocks in the column at a world coordinate.
func (g *NoiseGenerator) HeightAt(worldX, worldZ int) int {
	base := octaveNoise(g.terrain, float64(worldX)/128.0, float64(worldZ)/128.0, 6, 0.5)
	detail := octaveNoise(g.detail, float64(worldX)/32.0, float64(worldZ)/32.0, 3, 0.5)

	h := int(g.BaseHeight + base*g.Amplitude + detail*4.0)
	return max(h, 1)
}

// fillColumn lays out one column of height h (h >= 1).
func (g *NoiseGenerator) fillColumn(c *chunk.Chunk, x, z, h int) {
	c.SetBlock(x, 0, z, chunk.Bedrock)

	soil := max(h-1-soilDepth, 1)
	c.FillColumn(x, z, 1, soil, chunk.Stone)
	c.FillColumn(x, z, soil, h-1, chunk.Dirt)

	if h > 1 {
		top := chunk.Grass
		if h-1 < g.SeaLevel {
			top = chunk.Dirt
		}
		c.SetBlock(x, h-1, z, top)
	}

	if h < g.SeaLevel {
		c.FillColumn(x, z, h, g.SeaLevel, chunk.Water)
	}
}

// octaveNoise sums octaves of n with doubling frequency, normalised to [-1, 1].
func octaveNoise(n opensimplex.Noise, x, z float64, octaves int, persistence float64) float64 {
	var total, maxAmp float64
	amp, freq := 1.0, 1.0
	for i := 0; i < octaves; i++ {
		total += n.Eval2(x*freq, z*freq) * amp
		maxAmp += amp
		amp *= persistence
		freq *= 2
	}
	return total / maxAmp
}
