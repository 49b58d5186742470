package builder

import (
	"context"
	"errors"
	"sync"
)

// QueuedBuilder drains its work on the goroutine that calls QueueChunks. Each tick
// processes exactly as many items as were pending right after the scan.
type QueuedBuilder struct {
	*core

	mu         sync.Mutex
	generation []WorkItem
	build      []WorkItem
	takeBuild  bool
}

// NewQueued creates a QueuedBuilder.
func NewQueued(d Deps) (*QueuedBuilder, error) {
	c, err := newCore(d, "queued")
	if err != nil {
		return nil, err
	}
	return &QueuedBuilder{core: c}, nil
}

// QueueChunks scans storage, then processes the pending items synchronously. Item
// failures do not stop the drain; they are joined into the returned error.
func (b *QueuedBuilder) QueueChunks(ctx context.Context) error {
	b.scan(func(item WorkItem) bool {
		b.enqueue(item)
		return true
	})

	gen, build := b.Pending()
	var errs []error
	for i := gen + build; i > 0; i-- {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := b.Process(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Process takes one item from either queue and runs it. When both queues hold
// items it alternates between them. It returns nil when both are empty.
func (b *QueuedBuilder) Process(ctx context.Context) error {
	item, ok := b.take()
	if !ok {
		return nil
	}
	return b.process(ctx, item)
}

// Pending returns the number of queued generation and build items.
func (b *QueuedBuilder) Pending() (generation, build int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.generation), len(b.build)
}

// Close is a no-op; a QueuedBuilder owns no goroutines.
func (b *QueuedBuilder) Close() error { return nil }

func (b *QueuedBuilder) enqueue(item WorkItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch item.Kind {
	case Generate:
		b.generation = append(b.generation, item)
	case Build:
		b.build = append(b.build, item)
	}
}

func (b *QueuedBuilder) take() (WorkItem, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	useBuild := len(b.build) > 0 && (b.takeBuild || len(b.generation) == 0)
	switch {
	case useBuild:
		item := b.build[0]
		b.build[0] = WorkItem{}
		b.build = b.build[1:]
		b.takeBuild = false
		return item, true
	case len(b.generation) > 0:
		item := b.generation[0]
		b.generation[0] = WorkItem{}
		b.generation = b.generation[1:]
		b.takeBuild = true
		return item, true
	default:
		return WorkItem{}, false
	}
}
