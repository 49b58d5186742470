package gen

import (
	"reflect"
	"testing"

	"github.com/OCharnyshevich/chunkforge/pkg/world/chunk"
)

func generateFlat(t *testing.T, height int) *chunk.Chunk {
	t.Helper()
	c := chunk.New(0, 0, chunk.DefaultDimensions)
	if !NewTerrain(NewFlatGenerator(height)).Generate(c) {
		t.Fatal("Generate on a fresh chunk returned false")
	}
	return c
}

func TestFlatGeneratorLayers(t *testing.T) {
	c := generateFlat(t, 5)
	dims := c.Dims()

	for x := 0; x < dims.Width; x++ {
		for z := 0; z < dims.Length; z++ {
			for y := 0; y < 8; y++ {
				want := chunk.None
				switch {
				case y < 4:
					want = chunk.Dirt
				case y == 4:
					want = chunk.Grass
				}
				if got := c.Block(x, y, z).Type; got != want {
					t.Fatalf("block (%d,%d,%d) = %v, want %v", x, y, z, got, want)
				}
			}
		}
	}

	if got := c.HighestSolidBlockOffset(); got != 5 {
		t.Errorf("HighestSolidBlockOffset = %d, want 5", got)
	}
	if got := c.LowestEmptyBlockOffset(); got != 1 {
		t.Errorf("LowestEmptyBlockOffset = %d, want 1", got)
	}
	if !c.Generated() {
		t.Error("Generated = false after Generate")
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	terrain := NewTerrain(NewFlatGenerator(5))
	c := chunk.New(0, 0, chunk.DefaultDimensions)
	terrain.Generate(c)
	once := c.Blocks()

	// A second pass with a different strategy must not touch the chunk.
	if NewTerrain(NewFlatGenerator(9)).Generate(c) {
		t.Error("second Generate returned true")
	}
	if terrain.Generate(c) {
		t.Error("repeat Generate returned true")
	}
	if !reflect.DeepEqual(once, c.Blocks()) {
		t.Error("blocks changed after a repeated Generate")
	}
	if !c.Generated() {
		t.Error("Generated = false after repeated Generate")
	}
}

func TestFlatGeneratorClampsHeight(t *testing.T) {
	dims := chunk.Dimensions{Width: 2, Height: 4, Length: 2}
	c := chunk.New(0, 0, dims)
	NewTerrain(NewFlatGenerator(10)).Generate(c)
	if got := c.Block(0, 3, 0).Type; got != chunk.Grass {
		t.Errorf("top block = %v, want grass", got)
	}
	if got := c.HighestSolidBlockOffset(); got != 4 {
		t.Errorf("HighestSolidBlockOffset = %d, want 4", got)
	}
}

func TestNoiseGeneratorDeterministic(t *testing.T) {
	a := chunk.New(1, -2, chunk.DefaultDimensions)
	b := chunk.New(1, -2, chunk.DefaultDimensions)
	NewTerrain(NewNoiseGenerator(42)).Generate(a)
	NewTerrain(NewNoiseGenerator(42)).Generate(b)

	if !reflect.DeepEqual(a.Blocks(), b.Blocks()) {
		t.Fatal("same seed produced different terrain")
	}
}

func TestNoiseGeneratorDifferentSeeds(t *testing.T) {
	a := chunk.New(0, 0, chunk.DefaultDimensions)
	b := chunk.New(0, 0, chunk.DefaultDimensions)
	NewTerrain(NewNoiseGenerator(1)).Generate(a)
	NewTerrain(NewNoiseGenerator(2)).Generate(b)

	if reflect.DeepEqual(a.Blocks(), b.Blocks()) {
		t.Error("different seeds should produce different terrain")
	}
}

func TestNoiseGeneratorColumns(t *testing.T) {
	g := NewNoiseGenerator(12345)
	c := chunk.New(-1, 3, chunk.DefaultDimensions)
	NewTerrain(g).Generate(c)
	ox, oz := c.WorldOrigin()

	highest := 0
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			if got := c.Block(x, 0, z).Type; got != chunk.Bedrock {
				t.Fatalf("floor at (%d,%d) = %v, want bedrock", x, z, got)
			}
			h := g.HeightAt(ox+x, oz+z)
			if h < 1 || h > 128 {
				t.Fatalf("HeightAt = %d out of range", h)
			}
			highest = max(highest, h)
			if got := c.Block(x, h, z).Type; got.Solid() {
				t.Errorf("block above column top (%d,%d,%d) = %v, want non-solid", x, h, z, got)
			}
		}
	}
	if got := int(c.HighestSolidBlockOffset()); got != highest {
		t.Errorf("HighestSolidBlockOffset = %d, want %d", got, highest)
	}
	if got := c.LowestEmptyBlockOffset(); got != 1 {
		t.Errorf("LowestEmptyBlockOffset = %d, want 1", got)
	}
}
