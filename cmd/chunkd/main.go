package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/OCharnyshevich/chunkforge/internal/builder"
	"github.com/OCharnyshevich/chunkforge/internal/config"
	"github.com/OCharnyshevich/chunkforge/internal/journal"
	"github.com/OCharnyshevich/chunkforge/internal/world"
	"github.com/OCharnyshevich/chunkforge/pkg/world/gen"
)

func main() {
	cfg := config.DefaultConfig()

	configPath := flag.String("config", "", "YAML config file")
	configSrc := flag.String("config-src", "", "fetch the config file from a go-getter source (URL, s3::, git::)")
	dumpConfig := flag.String("dump-config", "", "write the effective config to this path and exit")
	flag.StringVar(&cfg.Builder.Strategy, "strategy", cfg.Builder.Strategy, "builder strategy: queued or tasked")
	flag.IntVar(&cfg.Builder.Workers, "workers", cfg.Builder.Workers, "tasked builder workers (0 = one per CPU)")
	flag.IntVar(&cfg.Radius, "radius", cfg.Radius, "loaded radius around the origin, in chunks")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "world seed")
	flag.StringVar(&cfg.Generator, "generator", cfg.Generator, "terrain generator: flat or noise")
	flag.IntVar(&cfg.Ticks, "ticks", cfg.Ticks, "stop after this many ticks (0 = run until interrupted)")
	flag.Parse()

	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := loadConfig(ctx, cfg, *configPath, *configSrc, explicit); err != nil {
		fmt.Fprintln(os.Stderr, "chunkd:", err)
		os.Exit(2)
	}

	log, err := cfg.Log.NewLogger(os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "chunkd:", err)
		os.Exit(2)
	}

	if *dumpConfig != "" {
		if err := cfg.Save(*dumpConfig); err != nil {
			log.Error("dump config", "error", err)
			os.Exit(1)
		}
		log.Info("config written", "path", *dumpConfig)
		return
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error("chunkd error", "error", err)
		os.Exit(1)
	}
}

// loadConfig fetches and loads the config file, if any, under the explicit flags,
// then validates the result.
func loadConfig(ctx context.Context, cfg *config.Config, path, src string, explicit map[string]bool) error {
	if src != "" {
		fetched, err := config.Fetch(ctx, src, filepath.Join(os.TempDir(), "chunkd-config"))
		if err != nil {
			return err
		}
		path = fetched
	}
	if path != "" {
		fromFile, err := config.Load(path)
		if err != nil {
			return err
		}
		config.Merge(cfg, fromFile, explicit)
	}
	return cfg.Validate()
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	storage := world.NewStorage()
	mgr := world.NewManager(storage, cfg.Chunk, log)
	if _, _, err := mgr.EnsureRadius(0, 0, cfg.Radius); err != nil {
		return fmt.Errorf("load world: %w", err)
	}

	var strategy gen.Strategy
	switch cfg.Generator {
	case "flat":
		strategy = gen.NewFlatGenerator(cfg.FlatHeight)
	default:
		strategy = gen.NewNoiseGenerator(cfg.Seed)
	}
	biome, err := gen.ParseBiome(cfg.Biome, cfg.Seed)
	if err != nil {
		return err
	}

	var recorders builder.MultiRecorder
	if cfg.Journal.Path != "" {
		w, err := journal.NewZstdWriter(cfg.Journal.Path, log)
		if err != nil {
			return err
		}
		defer w.Close()
		recorders = append(recorders, w)
	}
	var index *journal.SQLiteIndex
	if cfg.Journal.IndexPath != "" {
		index, err = journal.OpenSQLite(cfg.Journal.IndexPath, 0, log)
		if err != nil {
			return err
		}
		defer index.Close()
		recorders = append(recorders, index)
	}

	deps := builder.Deps{
		Storage: storage,
		Terrain: gen.NewTerrain(strategy),
		Biome:   biome,
		Log:     log,
	}
	if len(recorders) > 0 {
		deps.Recorder = recorders
	}
	b, err := builder.New(ctx, builder.Config{
		Strategy:  cfg.Builder.Strategy,
		Workers:   cfg.Builder.Workers,
		QueueSize: cfg.Builder.QueueSize,
	}, deps)
	if err != nil {
		return err
	}

	log.Info("chunkd started",
		"chunks", storage.Count(),
		"generator", cfg.Generator,
		"biome", cfg.Biome,
		"strategy", cfg.Builder.Strategy,
		"seed", cfg.Seed,
	)

	start := time.Now()
	ticks := tickLoop(ctx, cfg, b, log)

	if err := b.Close(); err != nil {
		log.Warn("builder close", "error", err)
	}
	st := b.Stats()
	log.Info("chunkd stopped",
		"ticks", ticks,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"queued", st.Queued,
		"generated", st.Generated,
		"built", st.Built,
		"failed", st.Failed,
	)
	for _, f := range b.Failures() {
		log.Warn("unresolved chunk failure", "kind", f.Kind, "x", f.X, "z", f.Z, "error", f.Err)
	}
	if index != nil {
		// The signal context may already be done.
		qctx, qcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer qcancel()
		if err := index.Flush(qctx); err == nil {
			if n, err := index.Count(qctx, ""); err == nil {
				log.Info("index summary", "events", n, "dropped", index.Dropped())
			}
		}
	}
	return nil
}

func tickLoop(ctx context.Context, cfg *config.Config, b builder.Builder, log *slog.Logger) int {
	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return tick
		case <-ticker.C:
		}

		tick++
		if err := b.QueueChunks(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return tick
			}
			log.Warn("tick finished with errors", "tick", tick, "error", err)
		}
		log.Debug("tick", "tick", tick, "stats", b.Stats())

		if cfg.Ticks > 0 && tick >= cfg.Ticks {
			return tick
		}
	}
}
