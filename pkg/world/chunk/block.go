package chunk

import "fmt"

// BlockType identifies the material of a block.
type BlockType uint8

const (
	None BlockType = iota
	Dirt
	Grass
	Stone
	Sand
	Snow
	Water
	Bedrock
	Leaves
)

var blockNames = [...]string{
	None:    "none",
	Dirt:    "dirt",
	Grass:   "grass",
	Stone:   "stone",
	Sand:    "sand",
	Snow:    "snow",
	Water:   "water",
	Bedrock: "bedrock",
	Leaves:  "leaves",
}

func (t BlockType) String() string {
	if int(t) < len(blockNames) {
		return blockNames[t]
	}
	return fmt.Sprintf("BlockType(%d)", uint8(t))
}

// Solid reports whether the block occupies its cell for terrain purposes.
// Water is present but not solid.
func (t BlockType) Solid() bool {
	return t != None && t != Water
}

// Block is a single voxel, stored by value.
type Block struct {
	Type BlockType
}

// Exists reports whether the block is anything other than None.
func (b Block) Exists() bool {
	return b.Type != None
}
