package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCharnyshevich/chunkforge/internal/builder"
	"github.com/OCharnyshevich/chunkforge/internal/world"
	"github.com/OCharnyshevich/chunkforge/pkg/world/chunk"
	"github.com/OCharnyshevich/chunkforge/pkg/world/gen"
)

func sampleEvents() []builder.Event {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []builder.Event{
		{Run: "r1", At: at, Kind: "generate", X: 0, Z: 0, Duration: 3 * time.Millisecond},
		{Run: "r1", At: at, Kind: "generate", X: -1, Z: 2, Duration: time.Millisecond},
		{Run: "r1", At: at, Kind: "build", X: -1, Z: 2, Duration: 2 * time.Millisecond, Err: "build chunk (-1,2): boom"},
	}
}

func TestZstdWriterReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events", "build.jsonl.zst")
	w, err := NewZstdWriter(path, nil)
	if err != nil {
		t.Fatalf("NewZstdWriter: %v", err)
	}
	want := sampleEvents()
	for _, e := range want {
		w.Record(e)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := w.Write(want[0]); !errors.Is(err, os.ErrClosed) {
		t.Errorf("Write after Close = %v, want os.ErrClosed", err)
	}

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("ReadAll returned %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestZstdWriterAppendsFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.jsonl.zst")
	events := sampleEvents()

	for i := 0; i < 2; i++ {
		w, err := NewZstdWriter(path, nil)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := w.Write(events[i]); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 || got[0].X != 0 || got[1].X != -1 {
		t.Errorf("ReadAll = %+v", got)
	}
}

func TestNewZstdWriterEmptyPath(t *testing.T) {
	if _, err := NewZstdWriter("", nil); err == nil {
		t.Error("NewZstdWriter(\"\") returned no error")
	}
}

func TestSQLiteIndexQueries(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"), 0, nil)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()

	for _, e := range sampleEvents() {
		idx.Record(e)
	}
	if err := idx.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	tests := []struct {
		kind string
		want int
	}{
		{"", 3},
		{"generate", 2},
		{"build", 1},
		{"mesh", 0},
	}
	for _, tt := range tests {
		got, err := idx.Count(ctx, tt.kind)
		if err != nil {
			t.Fatalf("Count(%q): %v", tt.kind, err)
		}
		if got != tt.want {
			t.Errorf("Count(%q) = %d, want %d", tt.kind, got, tt.want)
		}
	}

	failures, err := idx.Failures(ctx)
	if err != nil {
		t.Fatalf("Failures: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("len(Failures) = %d, want 1", len(failures))
	}
	want := sampleEvents()[2]
	if failures[0] != want {
		t.Errorf("failure = %+v, want %+v", failures[0], want)
	}
	if idx.Dropped() != 0 {
		t.Errorf("Dropped = %d, want 0", idx.Dropped())
	}
}

func TestSQLiteIndexRecordAfterClose(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"), 1, nil)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Must not panic on the closed channel.
	idx.Record(sampleEvents()[0])
	if err := idx.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestRecordersFollowABuilder(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	m := world.NewManager(world.NewStorage(), chunk.DefaultDimensions, nil)
	if _, _, err := m.EnsureRadius(0, 0, 1); err != nil {
		t.Fatalf("EnsureRadius: %v", err)
	}

	w, err := NewZstdWriter(filepath.Join(dir, "build.jsonl.zst"), nil)
	if err != nil {
		t.Fatalf("NewZstdWriter: %v", err)
	}
	idx, err := OpenSQLite(filepath.Join(dir, "index.sqlite"), 0, nil)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()

	b, err := builder.NewQueued(builder.Deps{
		Storage:  m.Storage(),
		Terrain:  gen.NewTerrain(gen.NewFlatGenerator(4)),
		Recorder: builder.MultiRecorder{w, idx},
	})
	if err != nil {
		t.Fatalf("NewQueued: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := b.QueueChunks(ctx); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close journal: %v", err)
	}
	if err := idx.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	events, err := ReadAll(w.Path())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 18 {
		t.Errorf("journal holds %d events, want 18", len(events))
	}
	for _, e := range events {
		if e.Run != b.Run() {
			t.Fatalf("event run = %q, want %q", e.Run, b.Run())
		}
	}
	if n, _ := idx.Count(ctx, "build"); n != 9 {
		t.Errorf("indexed builds = %d, want 9", n)
	}
}
