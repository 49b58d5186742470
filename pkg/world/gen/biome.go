package gen

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/OCharnyshevich/chunkforge/pkg/world/chunk"
)

// Biome dresses the surface of already generated terrain.
//
// ApplyBiome receives one column: groundLevel is the y of its topmost solid block,
// groundOffset the flattened index of its y=0 block. Implementations may raise the
// chunk's highest solid offset but never lower it.
type Biome interface {
	Name() string
	ApplyBiome(c *chunk.Chunk, groundLevel, groundOffset, worldX, worldZ int)
}

// ApplyChunk runs b over every column of c that has solid ground. Each column is
// scanned downward from the chunk's highest solid offset for its first solid block.
// c must already be generated.
func ApplyChunk(b Biome, c *chunk.Chunk) {
	if b == nil {
		return
	}
	dims := c.Dims()
	ox, oz := c.WorldOrigin()
	top := min(int(c.HighestSolidBlockOffset()), dims.Height-1)

	for x := 0; x < dims.Width; x++ {
		for z := 0; z < dims.Length; z++ {
			base := dims.ColumnOffset(x, z)
			for y := top; y >= 0; y-- {
				if c.BlockAt(base + y).Type.Solid() {
					b.ApplyBiome(c, y, base, ox+x, oz+z)
					break
				}
			}
		}
	}
}

// replaceDown overwrites up to depth solid blocks from groundLevel downward with t.
// It stops at the column bottom or the first non-solid block.
func replaceDown(c *chunk.Chunk, groundLevel, groundOffset, depth int, t chunk.BlockType) {
	for y := groundLevel; y >= 0 && depth > 0; y-- {
		if !c.BlockAt(groundOffset + y).Type.Solid() {
			return
		}
		c.SetBlockAt(groundOffset+y, t)
		depth--
	}
}

// stackUp places up to depth blocks of t above groundLevel and returns the new
// exclusive top of the column.
func stackUp(c *chunk.Chunk, groundLevel, groundOffset, depth int, t chunk.BlockType) int {
	height := c.Dims().Height
	y := groundLevel + 1
	for ; y < height && depth > 0; y++ {
		c.SetBlockAt(groundOffset+y, t)
		depth--
	}
	c.RaiseHighestSolid(y)
	return y
}

// AntarcticTundra covers the ground in a deep snow layer.
type AntarcticTundra struct {
	SnowDepth int
}

// NewAntarcticTundra returns a tundra with a snow depth of 5.
func NewAntarcticTundra() *AntarcticTundra { return &AntarcticTundra{SnowDepth: 5} }

func (b *AntarcticTundra) Name() string { return "tundra" }

func (b *AntarcticTundra) ApplyBiome(c *chunk.Chunk, groundLevel, groundOffset, _, _ int) {
	replaceDown(c, groundLevel, groundOffset, b.SnowDepth, chunk.Snow)
}

// RainForest grows grass on the surface and a sparse leaf canopy above it.
type RainForest struct {
	GrassDepth   int
	CanopyHeight int
	// CanopyEvery is the mean number of columns per canopy column. Zero disables it.
	CanopyEvery uint64
	Seed        int64
}

// NewRainForest returns a rain forest with a single grass layer and low canopy.
func NewRainForest(seed int64) *RainForest {
	return &RainForest{GrassDepth: 1, CanopyHeight: 3, CanopyEvery: 23, Seed: seed}
}

func (b *RainForest) Name() string { return "rainforest" }

func (b *RainForest) ApplyBiome(c *chunk.Chunk, groundLevel, groundOffset, worldX, worldZ int) {
	replaceDown(c, groundLevel, groundOffset, b.GrassDepth, chunk.Grass)
	if b.CanopyEvery == 0 || columnHash(b.Seed, worldX, worldZ)%b.CanopyEvery != 0 {
		return
	}
	stackUp(c, groundLevel, groundOffset, b.CanopyHeight, chunk.Leaves)
}

// Desert turns the surface to sand and piles more sand on top of it.
type Desert struct {
	SandDepth int
}

// NewDesert returns a desert that adds one sand layer.
func NewDesert() *Desert { return &Desert{SandDepth: 1} }

func (b *Desert) Name() string { return "desert" }

func (b *Desert) ApplyBiome(c *chunk.Chunk, groundLevel, groundOffset, _, _ int) {
	if c.BlockAt(groundOffset+groundLevel).Type == chunk.Grass {
		c.SetBlockAt(groundOffset+groundLevel, chunk.Sand)
	}
	stackUp(c, groundLevel, groundOffset, b.SandDepth, chunk.Sand)
}

// Plains leaves the terrain as generated.
type Plains struct{}

func (Plains) Name() string { return "plains" }

func (Plains) ApplyBiome(*chunk.Chunk, int, int, int, int) {}

// columnHash is a deterministic per-column hash used for sparse decorations.
func columnHash(seed int64, x, z int) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(seed))
	binary.LittleEndian.PutUint64(buf[8:], uint64(int64(x)))
	binary.LittleEndian.PutUint64(buf[16:], uint64(int64(z)))
	return xxhash.Sum64(buf[:])
}

// ParseBiome maps a configuration name to a Biome. "none" returns nil.
func ParseBiome(name string, seed int64) (Biome, error) {
	switch name {
	case "tundra":
		return NewAntarcticTundra(), nil
	case "rainforest":
		return NewRainForest(seed), nil
	case "desert":
		return NewDesert(), nil
	case "plains":
		return Plains{}, nil
	case "auto":
		return NewBiomeMap(seed), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown biome %q", name)
	}
}
