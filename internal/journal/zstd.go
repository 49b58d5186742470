// Package journal persists builder events: a zstd-compressed JSONL log that is the
// source of truth, and an optional sqlite index for queries.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/OCharnyshevich/chunkforge/internal/builder"
)

// ZstdWriter appends one JSON line per event to a zstd stream. Each Record flushes
// the line buffer so a crash loses at most the encoder's current block.
type ZstdWriter struct {
	path string
	log  *slog.Logger

	mu     sync.Mutex
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
	closed bool
	errs   int
}

// NewZstdWriter creates path (and its directory) and starts a new zstd stream in it.
// An existing file is appended to as an additional zstd frame.
func NewZstdWriter(path string, log *slog.Logger) (*ZstdWriter, error) {
	if path == "" {
		return nil, errors.New("journal: empty path")
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	return &ZstdWriter{
		path: path,
		log:  log.With("component", "journal", "path", path),
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

// Write appends one event.
func (w *ZstdWriter) Write(e builder.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return os.ErrClosed
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Record implements builder.Recorder. Write errors are logged, not returned; the
// first one at warn level and the rest at debug.
func (w *ZstdWriter) Record(e builder.Event) {
	if err := w.Write(e); err != nil {
		w.mu.Lock()
		w.errs++
		n := w.errs
		w.mu.Unlock()
		if n == 1 {
			w.log.Warn("journal write failed", "error", err)
		} else {
			w.log.Debug("journal write failed", "error", err, "failures", n)
		}
	}
}

// Path returns the journal file.
func (w *ZstdWriter) Path() string { return w.path }

// Close flushes and closes the stream. It is safe to call more than once.
func (w *ZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	flushErr := w.w.Flush()
	encErr := w.enc.Close()
	fileErr := w.f.Close()
	return errors.Join(flushErr, encErr, fileErr)
}

// ReadAll decodes every event in a journal file.
func ReadAll(path string) ([]builder.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	var events []builder.Event
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e builder.Event
		if err := json.Unmarshal(line, &e); err != nil {
			return events, fmt.Errorf("decode event %d: %w", len(events)+1, err)
		}
		events = append(events, e)
	}
	if err := sc.Err(); err != nil {
		return events, fmt.Errorf("read journal: %w", err)
	}
	return events, nil
}
