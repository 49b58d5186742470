// Package builder schedules terrain generation and mesh rebuilds for the chunks in
// a world's storage.
//
// Each scheduling tick scans storage once. A chunk that is not generated is claimed
// for generation, a generated dirty chunk is claimed for building, and every claim
// turns into exactly one WorkItem. Claims are released when the work finishes, so a
// chunk is never queued twice for the same stage. Two strategies drain the work:
// QueuedBuilder on the calling goroutine, TaskedBuilder on a bounded worker pool.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/OCharnyshevich/chunkforge/internal/world"
	"github.com/OCharnyshevich/chunkforge/pkg/world/chunk"
	"github.com/OCharnyshevich/chunkforge/pkg/world/gen"
)

// ErrClosed is returned by QueueChunks after Close.
var ErrClosed = errors.New("builder closed")

// Builder is a chunk scheduling strategy.
type Builder interface {
	// QueueChunks runs one scheduling tick.
	QueueChunks(ctx context.Context) error
	Stats() Stats
	Failures() []*ChunkError
	Requeue(x, z int) bool
	Close() error
}

// Config selects and sizes a strategy.
type Config struct {
	Strategy  string
	Workers   int
	QueueSize int
}

// Deps are the collaborators a builder drives. Storage and Terrain are required.
type Deps struct {
	Storage  *world.Storage
	Terrain  *gen.Terrain
	Biome    gen.Biome
	Mesher   Mesher
	Recorder Recorder
	Log      *slog.Logger
}

// Stats are cumulative counters since the builder was created.
type Stats struct {
	Queued    uint64
	Generated uint64
	Built     uint64
	Failed    uint64
}

// New creates the builder named by cfg.Strategy. A tasked builder's workers run
// until ctx is cancelled or the builder is closed.
func New(ctx context.Context, cfg Config, d Deps) (Builder, error) {
	switch cfg.Strategy {
	case "queued", "":
		return NewQueued(d)
	case "tasked":
		b, err := NewTasked(d, cfg.Workers, cfg.QueueSize)
		if err != nil {
			return nil, err
		}
		b.Start(ctx)
		return b, nil
	default:
		return nil, fmt.Errorf("unknown builder strategy %q", cfg.Strategy)
	}
}

// core holds the scanning and processing logic shared by both strategies.
type core struct {
	storage  *world.Storage
	terrain  *gen.Terrain
	biome    gen.Biome
	mesher   Mesher
	recorder Recorder
	log      *slog.Logger
	run      string

	queued    atomic.Uint64
	generated atomic.Uint64
	built     atomic.Uint64
	failed    atomic.Uint64

	failMu   sync.Mutex
	failures []*ChunkError
}

func newCore(d Deps, strategy string) (*core, error) {
	if d.Storage == nil {
		return nil, errors.New("builder: nil storage")
	}
	if d.Terrain == nil {
		return nil, errors.New("builder: nil terrain")
	}
	if d.Mesher == nil {
		d.Mesher = NopMesher{}
	}
	if d.Log == nil {
		d.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	run := uuid.NewString()
	return &core{
		storage:  d.Storage,
		terrain:  d.Terrain,
		biome:    d.Biome,
		mesher:   d.Mesher,
		recorder: d.Recorder,
		log:      d.Log.With("component", "builder", "strategy", strategy, "run", run),
		run:      run,
	}, nil
}

// scan claims every chunk that needs work and hands the item to emit. It stops early
// when emit returns false; emit owns the claim of the item it rejected.
func (c *core) scan(emit func(WorkItem) bool) int {
	n := 0
	for _, ch := range c.storage.Values() {
		if ch.TryQueueForGeneration() {
			if !emit(WorkItem{Kind: Generate, Chunk: ch}) {
				break
			}
			n++
		}
		if ch.TryQueueForBuilding() {
			if !emit(WorkItem{Kind: Build, Chunk: ch}) {
				break
			}
			n++
		}
	}
	c.queued.Add(uint64(n))
	return n
}

// release drops the claim behind an item that will not be processed.
func release(item WorkItem) {
	switch item.Kind {
	case Generate:
		item.Chunk.ReleaseGeneration()
	case Build:
		item.Chunk.FinishBuilding()
	}
}

// process runs one item. Failures, including panics in generators, biomes, and
// meshers, come back as *ChunkError and leave the chunk's claim in place so it is
// not picked up again until Requeue.
func (c *core) process(ctx context.Context, item WorkItem) (err error) {
	if err := ctx.Err(); err != nil {
		release(item)
		return err
	}

	x, z := item.Chunk.Position()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			err = c.fail(&ChunkError{X: x, Z: z, Kind: item.Kind, Err: err})
		}
		c.record(item.Kind, x, z, start, err)
	}()

	switch item.Kind {
	case Generate:
		return c.generate(item.Chunk)
	case Build:
		return c.build(ctx, item.Chunk)
	default:
		return fmt.Errorf("unknown work kind %d", item.Kind)
	}
}

func (c *core) generate(ch *chunk.Chunk) error {
	if c.terrain.Generate(ch) {
		gen.ApplyChunk(c.biome, ch)
	}
	ch.FinishGeneration()
	c.generated.Add(1)
	return nil
}

func (c *core) build(ctx context.Context, ch *chunk.Chunk) error {
	// Cleared before meshing so edits made during the build re-dirty the chunk.
	ch.ClearDirty()
	meshed := false
	defer func() {
		// Covers returned errors and panics alike.
		if !meshed {
			ch.MarkDirty()
		}
	}()
	if err := c.mesher.BuildMesh(ctx, ch); err != nil {
		return err
	}
	meshed = true
	ch.FinishBuilding()
	c.built.Add(1)
	return nil
}

func (c *core) fail(e *ChunkError) error {
	c.failed.Add(1)
	c.failMu.Lock()
	c.failures = append(c.failures, e)
	c.failMu.Unlock()
	c.log.Error("chunk work failed", "kind", e.Kind, "x", e.X, "z", e.Z, "error", e.Err)
	return e
}

func (c *core) record(kind WorkKind, x, z int, start time.Time, err error) {
	if c.recorder == nil {
		return
	}
	e := Event{
		Run:      c.run,
		At:       start.UTC(),
		Kind:     kind.String(),
		X:        x,
		Z:        z,
		Duration: time.Since(start),
	}
	if err != nil {
		e.Err = err.Error()
	}
	c.recorder.Record(e)
}

// Stats returns the cumulative counters.
func (c *core) Stats() Stats {
	return Stats{
		Queued:    c.queued.Load(),
		Generated: c.generated.Load(),
		Built:     c.built.Load(),
		Failed:    c.failed.Load(),
	}
}

// Failures returns the failed items that have not been requeued, oldest first.
func (c *core) Failures() []*ChunkError {
	c.failMu.Lock()
	defer c.failMu.Unlock()
	out := make([]*ChunkError, len(c.failures))
	copy(out, c.failures)
	return out
}

// Requeue forgets the failures recorded for (x, z) and drops the claims they hold,
// so the next tick schedules the chunk again. It returns false when no failure is
// recorded for a loaded chunk at (x, z).
func (c *core) Requeue(x, z int) bool {
	ch, ok := c.storage.Get(x, z)
	if !ok {
		return false
	}

	c.failMu.Lock()
	var dropped []*ChunkError
	kept := c.failures[:0]
	for _, f := range c.failures {
		if f.X == x && f.Z == z {
			dropped = append(dropped, f)
			continue
		}
		kept = append(kept, f)
	}
	clear(c.failures[len(kept):])
	c.failures = kept
	c.failMu.Unlock()

	for _, f := range dropped {
		release(WorkItem{Kind: f.Kind, Chunk: ch})
		switch {
		case f.Kind == Build:
			ch.MarkDirty()
		case f.Kind == Generate && ch.Generated():
			// Terrain landed but a later step failed; the chunk still needs a build.
			ch.MarkDirty()
		}
	}
	return len(dropped) > 0
}

// Run returns the identifier attached to this builder's events.
func (c *core) Run() string { return c.run }
