package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/OCharnyshevich/chunkforge/internal/builder"
)

const defaultIndexBuffer = 4096

// SQLiteIndex stores events in a sqlite table for ad hoc queries. All writes go
// through one goroutine; Record never blocks and drops events when the buffer is
// full, since the JSONL journal is the complete record.
type SQLiteIndex struct {
	db  *sql.DB
	log *slog.Logger

	ch      chan builder.Event
	wg      sync.WaitGroup
	once    sync.Once
	closeMu sync.RWMutex
	closed  bool

	accepted  atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
	written   atomic.Uint64
}

// OpenSQLite opens (or creates) the index at path. buffer <= 0 uses a default.
func OpenSQLite(path string, buffer int, log *slog.Logger) (*SQLiteIndex, error) {
	if path == "" {
		return nil, errors.New("journal: empty index path")
	}
	if buffer <= 0 {
		buffer = defaultIndexBuffer
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("index pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("index schema: %w", err)
	}

	s := &SQLiteIndex{
		db:  db,
		log: log.With("component", "index", "path", path),
		ch:  make(chan builder.Event, buffer),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run TEXT NOT NULL,
			at TEXT NOT NULL,
			kind TEXT NOT NULL,
			x INTEGER NOT NULL,
			z INTEGER NOT NULL,
			duration_ns INTEGER NOT NULL,
			err TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);`,
		`CREATE INDEX IF NOT EXISTS idx_events_pos ON events(x, z);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Record implements builder.Recorder.
func (s *SQLiteIndex) Record(e builder.Event) {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- e:
		s.accepted.Add(1)
	default:
		if s.dropped.Add(1) == 1 {
			s.log.Warn("index falling behind, dropping events")
		}
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

func (s *SQLiteIndex) loop() {
	insert, err := s.db.Prepare(`INSERT INTO events(run,at,kind,x,z,duration_ns,err) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		s.log.Error("prepare insert", "error", err)
		for range s.ch {
			s.dropped.Add(1)
			s.processed.Add(1)
		}
		return
	}
	defer insert.Close()

	for e := range s.ch {
		var errText sql.NullString
		if e.Err != "" {
			errText = sql.NullString{String: e.Err, Valid: true}
		}
		_, err := insert.Exec(e.Run, e.At.UTC().Format(time.RFC3339Nano), e.Kind, e.X, e.Z, int64(e.Duration), errText)
		if err != nil {
			s.log.Debug("insert event", "error", err)
			s.dropped.Add(1)
		} else {
			s.written.Add(1)
		}
		s.processed.Add(1)
	}
}

// Count returns the number of indexed events of kind, or of every kind when kind
// is empty.
func (s *SQLiteIndex) Count(ctx context.Context, kind string) (int, error) {
	var n int
	var err error
	if kind == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE kind = ?`, kind).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Failures returns the indexed failed events in insertion order.
func (s *SQLiteIndex) Failures(ctx context.Context) ([]builder.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run, at, kind, x, z, duration_ns, err FROM events WHERE err IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var out []builder.Event
	for rows.Next() {
		var (
			e   builder.Event
			at  string
			dur int64
		)
		if err := rows.Scan(&e.Run, &at, &e.Kind, &e.X, &e.Z, &dur, &e.Err); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		e.Duration = time.Duration(dur)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Flush blocks until every event accepted so far has been written or dropped.
// It polls, so it belongs in tests and shutdown paths.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	target := s.accepted.Load()
	t := time.NewTicker(5 * time.Millisecond)
	defer t.Stop()
	for s.processed.Load() < target {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// Close stops intake, writes the buffered events, and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closeMu.Lock()
		s.closed = true
		close(s.ch)
		s.closeMu.Unlock()

		s.wg.Wait()
		s.log.Debug("index closed", "written", s.written.Load(), "dropped", s.dropped.Load())
		err = s.db.Close()
	})
	return err
}
