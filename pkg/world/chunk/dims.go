package chunk

import "fmt"

// Dimensions is the size of a chunk in blocks.
type Dimensions struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
	Length int `yaml:"length" json:"length"`
}

// DefaultDimensions is a 16×128×16 column.
var DefaultDimensions = Dimensions{Width: 16, Height: 128, Length: 16}

// maxAxis bounds every axis because the solid/empty offsets are bytes.
const maxAxis = 255

// Validate checks that every axis is in [1, 255].
func (d Dimensions) Validate() error {
	for _, a := range []struct {
		name string
		v    int
	}{{"width", d.Width}, {"height", d.Height}, {"length", d.Length}} {
		if a.v < 1 || a.v > maxAxis {
			return fmt.Errorf("chunk %s %d out of range [1,%d]", a.name, a.v, maxAxis)
		}
	}
	return nil
}

// Volume is the number of blocks in a chunk.
func (d Dimensions) Volume() int {
	return d.Width * d.Height * d.Length
}

// FlattenOffset is the stride of one x step in the block array.
func (d Dimensions) FlattenOffset() int {
	return d.Length * d.Height
}

// Index flattens local coordinates into the block array.
//
// Layout: offset = x*FlattenOffset + z*Height + y. Columns are contiguous, so a
// column scan is a linear walk from ColumnOffset.
func (d Dimensions) Index(x, y, z int) int {
	return x*d.FlattenOffset() + z*d.Height + y
}

// ColumnOffset returns the index of block (x, 0, z).
func (d Dimensions) ColumnOffset(x, z int) int {
	return x*d.FlattenOffset() + z*d.Height
}

// Contains reports whether local coordinates fall inside the chunk.
func (d Dimensions) Contains(x, y, z int) bool {
	return x >= 0 && x < d.Width && y >= 0 && y < d.Height && z >= 0 && z < d.Length
}
