package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCharnyshevich/chunkforge/internal/config"
	"github.com/OCharnyshevich/chunkforge/internal/journal"
)

func TestRunWritesJournal(t *testing.T) {
	for _, strategy := range []string{"queued", "tasked"} {
		t.Run(strategy, func(t *testing.T) {
			dir := t.TempDir()
			cfg := config.DefaultConfig()
			cfg.Radius = 1
			cfg.Generator = "flat"
			cfg.Biome = "desert"
			cfg.Builder.Strategy = strategy
			cfg.Builder.Workers = 2
			cfg.TickInterval = time.Millisecond
			cfg.Ticks = 3
			cfg.Journal.Path = filepath.Join(dir, "build.jsonl.zst")
			cfg.Journal.IndexPath = filepath.Join(dir, "index.sqlite")

			log := slog.New(slog.NewTextHandler(io.Discard, nil))
			if err := run(context.Background(), cfg, log); err != nil {
				t.Fatalf("run: %v", err)
			}

			events, err := journal.ReadAll(cfg.Journal.Path)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			var gens, builds int
			for _, e := range events {
				switch e.Kind {
				case "generate":
					gens++
				case "build":
					builds++
				}
			}
			// The tasked builder may finish generation and building within any of
			// the three ticks, but never does either twice.
			if gens != 9 {
				t.Errorf("generate events = %d, want 9", gens)
			}
			if builds > 9 {
				t.Errorf("build events = %d, want at most 9", builds)
			}
		})
	}
}

func TestLoadConfigFlagsWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunkd.yaml")
	if err := os.WriteFile(path, []byte("seed: 3\nradius: 7\ngenerator: flat\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Radius = 1
	if err := loadConfig(context.Background(), cfg, path, "", map[string]bool{"radius": true}); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Radius != 1 || cfg.Seed != 3 || cfg.Generator != "flat" {
		t.Errorf("cfg = radius %d seed %d generator %q", cfg.Radius, cfg.Seed, cfg.Generator)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Builder.Strategy = "greedy"
	if err := loadConfig(context.Background(), cfg, "", "", nil); err == nil {
		t.Error("loadConfig accepted an unknown strategy")
	}
}
