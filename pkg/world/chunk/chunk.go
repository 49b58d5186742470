// Package chunk holds the per-cell voxel volume and its generation/build state.
package chunk

import (
	"sync"
	"sync/atomic"
)

// Chunk is a fixed-size column of blocks at a chunk coordinate.
//
// Block contents and the solid/empty offsets are guarded by mu. The four state flags
// are atomic so the scanner and the worker owning the chunk can flip them without
// taking the block lock.
type Chunk struct {
	x, z int
	dims Dimensions

	mu      sync.RWMutex
	blocks  []Block
	highest uint8
	lowest  uint8

	generated           atomic.Bool
	dirty               atomic.Bool
	queuedForGeneration atomic.Bool
	queuedForBuilding   atomic.Bool
}

// New creates an empty, ungenerated chunk at chunk coordinate (x, z). dims should
// pass Validate; a height above 255 is clamped to 255 in the byte offsets.
func New(x, z int, dims Dimensions) *Chunk {
	return &Chunk{
		x:      x,
		z:      z,
		dims:   dims,
		blocks: make([]Block, dims.Volume()),
		lowest: uint8(min(max(dims.Height, 0), maxAxis)),
	}
}

// Position returns the chunk coordinate.
func (c *Chunk) Position() (x, z int) { return c.x, c.z }

// WorldOrigin returns the world block coordinate of local (0, 0).
func (c *Chunk) WorldOrigin() (wx, wz int) { return c.x * c.dims.Width, c.z * c.dims.Length }

// Dims returns the chunk dimensions.
func (c *Chunk) Dims() Dimensions { return c.dims }

// Block returns the block at local coordinates. Out-of-range reads return None.
func (c *Chunk) Block(x, y, z int) Block {
	if !c.dims.Contains(x, y, z) {
		return Block{}
	}
	return c.BlockAt(c.dims.Index(x, y, z))
}

// BlockAt returns the block at a flattened offset.
func (c *Chunk) BlockAt(offset int) Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[offset]
}

// SetBlock writes the block at local coordinates. Writes to a generated chunk that
// change its contents mark it dirty. Out-of-range writes are ignored.
func (c *Chunk) SetBlock(x, y, z int, t BlockType) {
	if !c.dims.Contains(x, y, z) {
		return
	}
	c.SetBlockAt(c.dims.Index(x, y, z), t)
}

// SetBlockAt writes the block at a flattened offset.
func (c *Chunk) SetBlockAt(offset int, t BlockType) {
	c.mu.Lock()
	changed := c.blocks[offset].Type != t
	c.blocks[offset].Type = t
	c.mu.Unlock()

	if changed && c.generated.Load() {
		c.dirty.Store(true)
	}
}

// FillColumn sets blocks [y0, y1) of column (x, z) to t.
func (c *Chunk) FillColumn(x, z, y0, y1 int, t BlockType) {
	y0 = max(y0, 0)
	y1 = min(y1, c.dims.Height)
	if y0 >= y1 || x < 0 || x >= c.dims.Width || z < 0 || z >= c.dims.Length {
		return
	}
	base := c.dims.ColumnOffset(x, z)

	c.mu.Lock()
	for y := y0; y < y1; y++ {
		c.blocks[base+y].Type = t
	}
	c.mu.Unlock()

	if c.generated.Load() {
		c.dirty.Store(true)
	}
}

// Blocks returns a copy of the block array.
func (c *Chunk) Blocks() []Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// HighestSolidBlockOffset is the exclusive upper bound of solid terrain.
func (c *Chunk) HighestSolidBlockOffset() uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.highest
}

// LowestEmptyBlockOffset is the lower bound of empty space.
func (c *Chunk) LowestEmptyBlockOffset() uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lowest
}

// RaiseHighestSolid moves the solid upper bound up to h. It never lowers it.
func (c *Chunk) RaiseHighestSolid(h int) {
	h = min(h, c.dims.Height, maxAxis)
	c.mu.Lock()
	if h > int(c.highest) {
		c.highest = uint8(h)
	}
	c.mu.Unlock()
}

// LowerLowestEmpty moves the empty lower bound down to y. It never raises it.
func (c *Chunk) LowerLowestEmpty(y int) {
	y = max(y, 0)
	c.mu.Lock()
	if y < int(c.lowest) {
		c.lowest = uint8(y)
	}
	c.mu.Unlock()
}

// TrackColumn records a column whose solid run ends (exclusive) at top.
// Filled columns keep their floor block at y=0, so empty space starts at y=1 at the
// lowest; an unfilled column is empty from the floor up.
func (c *Chunk) TrackColumn(top int) {
	c.RaiseHighestSolid(top)
	if top > 0 {
		c.LowerLowestEmpty(1)
	} else {
		c.LowerLowestEmpty(0)
	}
}

// Generated reports whether terrain generation has completed.
func (c *Chunk) Generated() bool { return c.generated.Load() }

// Dirty reports whether the rendered representation is stale.
func (c *Chunk) Dirty() bool { return c.dirty.Load() }

// QueuedForGeneration reports whether a generation request is outstanding.
func (c *Chunk) QueuedForGeneration() bool { return c.queuedForGeneration.Load() }

// QueuedForBuilding reports whether a build request is outstanding.
func (c *Chunk) QueuedForBuilding() bool { return c.queuedForBuilding.Load() }

// MarkGenerated flips the generated flag. Call only after the block fill is complete.
func (c *Chunk) MarkGenerated() { c.generated.Store(true) }

// MarkDirty flags the chunk for rebuilding.
func (c *Chunk) MarkDirty() { c.dirty.Store(true) }

// ClearDirty clears the dirty flag and reports whether it was set.
func (c *Chunk) ClearDirty() bool { return c.dirty.Swap(false) }

// TryQueueForGeneration claims the chunk for one generation pass. It fails if the
// chunk is already generated or already queued.
func (c *Chunk) TryQueueForGeneration() bool {
	if c.generated.Load() {
		return false
	}
	return c.queuedForGeneration.CompareAndSwap(false, true)
}

// TryQueueForBuilding claims the chunk for one build pass. It fails unless the chunk
// is generated, dirty, and not already queued. It also fails while a generation claim
// is held: the terrain is marked generated before the biome pass runs, and the blocks
// are still being written until FinishGeneration.
func (c *Chunk) TryQueueForBuilding() bool {
	if !c.generated.Load() || !c.dirty.Load() || c.queuedForGeneration.Load() {
		return false
	}
	return c.queuedForBuilding.CompareAndSwap(false, true)
}

// FinishGeneration releases the generation claim and flags the new terrain for its
// first build.
func (c *Chunk) FinishGeneration() {
	if c.generated.Load() {
		c.dirty.Store(true)
	}
	c.queuedForGeneration.Store(false)
}

// ReleaseGeneration drops the generation claim without touching any other flag.
func (c *Chunk) ReleaseGeneration() { c.queuedForGeneration.Store(false) }

// FinishBuilding releases the build claim.
func (c *Chunk) FinishBuilding() { c.queuedForBuilding.Store(false) }

// ReleaseClaims clears both queued flags without touching generated or dirty.
func (c *Chunk) ReleaseClaims() {
	c.queuedForGeneration.Store(false)
	c.queuedForBuilding.Store(false)
}

// State is a point-in-time copy of a chunk's flags and offsets.
type State struct {
	X, Z                    int
	Generated               bool
	Dirty                   bool
	QueuedForGeneration     bool
	QueuedForBuilding       bool
	HighestSolidBlockOffset uint8
	LowestEmptyBlockOffset  uint8
}

// State returns a snapshot of the chunk's state.
func (c *Chunk) State() State {
	c.mu.RLock()
	hi, lo := c.highest, c.lowest
	c.mu.RUnlock()
	return State{
		X:                       c.x,
		Z:                       c.z,
		Generated:               c.generated.Load(),
		Dirty:                   c.dirty.Load(),
		QueuedForGeneration:     c.queuedForGeneration.Load(),
		QueuedForBuilding:       c.queuedForBuilding.Load(),
		HighestSolidBlockOffset: hi,
		LowestEmptyBlockOffset:  lo,
	}
}
