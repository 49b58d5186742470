package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/OCharnyshevich/chunkforge/pkg/world/chunk"
)

// WorkKind tags a WorkItem with the pipeline stage it needs.
type WorkKind uint8

const (
	Generate WorkKind = iota + 1
	Build
)

func (k WorkKind) String() string {
	switch k {
	case Generate:
		return "generate"
	case Build:
		return "build"
	default:
		return fmt.Sprintf("WorkKind(%d)", uint8(k))
	}
}

// WorkItem is one unit of scheduled work for one chunk.
type WorkItem struct {
	Kind  WorkKind
	Chunk *chunk.Chunk
}

// Mesher turns a dirty chunk's blocks into renderable geometry. Mesh construction
// lives with the renderer; the builder only schedules it.
type Mesher interface {
	BuildMesh(ctx context.Context, c *chunk.Chunk) error
}

// NopMesher accepts every build without doing anything.
type NopMesher struct{}

func (NopMesher) BuildMesh(context.Context, *chunk.Chunk) error { return nil }

// MesherFunc adapts a function to Mesher.
type MesherFunc func(ctx context.Context, c *chunk.Chunk) error

func (f MesherFunc) BuildMesh(ctx context.Context, c *chunk.Chunk) error { return f(ctx, c) }

// Event describes one processed work item.
type Event struct {
	Run      string        `json:"run"`
	At       time.Time     `json:"at"`
	Kind     string        `json:"kind"`
	X        int           `json:"x"`
	Z        int           `json:"z"`
	Duration time.Duration `json:"duration_ns"`
	Err      string        `json:"err,omitempty"`
}

// Recorder receives an Event for every processed work item. Record is called from
// worker goroutines and must be safe for concurrent use.
type Recorder interface {
	Record(Event)
}

// MultiRecorder fans an event out to several recorders.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(e Event) {
	for _, r := range m {
		if r != nil {
			r.Record(e)
		}
	}
}

// ChunkError reports a failed work item.
type ChunkError struct {
	X, Z int
	Kind WorkKind
	Err  error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("%s chunk (%d,%d): %v", e.Kind, e.X, e.Z, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }
