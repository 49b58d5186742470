package builder

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

const defaultQueueSize = 256

// TaskedBuilder hands work to a fixed pool of worker goroutines through one bounded
// channel of tagged items. A full channel blocks QueueChunks, which is the
// backpressure between scanning and processing.
type TaskedBuilder struct {
	*core

	workers int
	items   chan WorkItem
	group   errgroup.Group
	// inflight counts items sent to the channel and not yet processed.
	inflight sync.WaitGroup

	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	closeOnce sync.Once
}

// NewTasked creates a TaskedBuilder. workers <= 0 uses one worker per CPU;
// queueSize <= 0 uses a default buffer.
func NewTasked(d Deps, workers, queueSize int) (*TaskedBuilder, error) {
	c, err := newCore(d, "tasked")
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = max(runtime.NumCPU(), 1)
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &TaskedBuilder{
		core:    c,
		workers: workers,
		items:   make(chan WorkItem, queueSize),
	}, nil
}

// Start launches the workers. ctx is handed to every processed item; once it is
// cancelled, remaining items are released unprocessed. Start is idempotent.
func (b *TaskedBuilder) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		for i := 0; i < b.workers; i++ {
			b.group.Go(func() error {
				return b.worker(ctx)
			})
		}
		b.log.Info("builder workers started", "workers", b.workers, "queueSize", cap(b.items))
	})
}

// worker processes items until the channel is closed. Items received after ctx is
// done are released, and the worker then reports how many it dropped.
func (b *TaskedBuilder) worker(ctx context.Context) error {
	released := 0
	for item := range b.items {
		err := b.process(ctx, item)
		var cerr *ChunkError
		if err != nil && !errors.As(err, &cerr) {
			released++
		}
		b.inflight.Done()
	}
	if released > 0 {
		return fmt.Errorf("worker released %d items unprocessed: %w", released, context.Cause(ctx))
	}
	return nil
}

// QueueChunks scans storage and sends one item per claimed chunk to the workers. It
// blocks while the channel is full and returns ctx.Err() if ctx ends first; chunks
// not yet sent keep no claim and are picked up by a later tick.
func (b *TaskedBuilder) QueueChunks(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	var err error
	b.scan(func(item WorkItem) bool {
		b.inflight.Add(1)
		select {
		case b.items <- item:
			return true
		case <-ctx.Done():
			b.inflight.Done()
			release(item)
			err = ctx.Err()
			return false
		}
	})
	if err != nil {
		return fmt.Errorf("queue chunks: %w", err)
	}
	return nil
}

// Wait blocks until every item sent so far has been processed.
func (b *TaskedBuilder) Wait() {
	b.inflight.Wait()
}

// Close stops intake, lets the workers drain the channel, and waits for them. It
// returns the first worker error, which wraps the context's cause when a cancelled
// context left items unprocessed.
func (b *TaskedBuilder) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.items)
		b.mu.Unlock()

		// Workers that were never started would leave items stranded.
		b.Start(context.Background())
		err = b.group.Wait()
		b.log.Info("builder workers stopped", "stats", b.Stats())
	})
	return err
}
