package gen

import (
	"github.com/aquilax/go-perlin"

	"github.com/OCharnyshevich/chunkforge/pkg/world/chunk"
)

// BiomeMap selects a biome per column from temperature/rainfall noise fields and
// delegates to it.
type BiomeMap struct {
	temp *perlin.Perlin
	rain *perlin.Perlin

	tundra     Biome
	rainForest Biome
	desert     Biome
	plains     Biome
}

// NewBiomeMap creates a BiomeMap from a seed.
func NewBiomeMap(seed int64) *BiomeMap {
	return &BiomeMap{
		temp:       perlin.NewPerlin(2, 2, 3, seed+100),
		rain:       perlin.NewPerlin(2, 2, 3, seed+200),
		tundra:     NewAntarcticTundra(),
		rainForest: NewRainForest(seed),
		desert:     NewDesert(),
		plains:     Plains{},
	}
}

func (m *BiomeMap) Name() string { return "auto" }

func (m *BiomeMap) ApplyBiome(c *chunk.Chunk, groundLevel, groundOffset, worldX, worldZ int) {
	m.BiomeAt(worldX, worldZ).ApplyBiome(c, groundLevel, groundOffset, worldX, worldZ)
}

// BiomeAt returns the biome at the given world block coordinates.
func (m *BiomeMap) BiomeAt(worldX, worldZ int) Biome {
	x := float64(worldX) / 512.0
	z := float64(worldZ) / 512.0
	temp := m.temp.Noise2D(x, z)*0.8 + 0.75
	rain := m.rain.Noise2D(x+100, z+100)*0.5 + 0.5

	switch selectBiome(temp, rain) {
	case biomeTundra:
		return m.tundra
	case biomeRainForest:
		return m.rainForest
	case biomeDesert:
		return m.desert
	default:
		return m.plains
	}
}

type biomeKind uint8

const (
	biomePlains biomeKind = iota
	biomeTundra
	biomeRainForest
	biomeDesert
)

// selectBiome maps temperature and rainfall to a biome.
//
//	Temp\Rain     | Dry (<0.3) | Medium     | Wet (>0.6)
//	Cold <0.3     | Tundra     | Tundra     | Tundra
//	Mild 0.3-0.9  | Plains     | Plains     | RainForest
//	Hot  >0.9     | Desert     | Desert     | RainForest
func selectBiome(temp, rain float64) biomeKind {
	switch {
	case temp < 0.3:
		return biomeTundra
	case rain > 0.6:
		return biomeRainForest
	case temp > 0.9:
		return biomeDesert
	default:
		return biomePlains
	}
}
