// Package config holds the chunkd configuration: defaults, YAML files validated
// against an embedded JSON schema, remote sources, and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/OCharnyshevich/chunkforge/pkg/world/chunk"
	"github.com/OCharnyshevich/chunkforge/pkg/world/gen"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds the chunkd configuration.
type Config struct {
	Seed       int64            `yaml:"seed" json:"seed"`
	Chunk      chunk.Dimensions `yaml:"chunk" json:"chunk"`
	Radius     int              `yaml:"radius" json:"radius"`       // loaded square around the origin, in chunks
	Generator  string           `yaml:"generator" json:"generator"` // "flat" or "noise"
	FlatHeight int              `yaml:"flat_height" json:"flat_height"`
	Biome      string           `yaml:"biome" json:"biome"` // see gen.ParseBiome

	Builder Builder `yaml:"builder" json:"builder"`

	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval"`
	Ticks        int           `yaml:"ticks" json:"ticks"` // 0 runs until interrupted

	Journal Journal `yaml:"journal" json:"journal"`
	Log     Log     `yaml:"log" json:"log"`
}

// Builder selects the scheduling strategy.
type Builder struct {
	Strategy  string `yaml:"strategy" json:"strategy"` // "queued" or "tasked"
	Workers   int    `yaml:"workers" json:"workers"`   // 0 = one per CPU
	QueueSize int    `yaml:"queue_size" json:"queue_size"`
}

// Journal configures event sinks. Empty paths disable the sink.
type Journal struct {
	Path      string `yaml:"path" json:"path"`
	IndexPath string `yaml:"index_path" json:"index_path"`
}

// Log configures the root logger.
type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // "text" or "json"
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Chunk:        chunk.DefaultDimensions,
		Radius:       4,
		Generator:    "noise",
		FlatHeight:   5,
		Biome:        "auto",
		Builder:      Builder{Strategy: "queued", QueueSize: 256},
		TickInterval: 50 * time.Millisecond,
		Log:          Log{Level: "info", Format: "text"},
	}
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["seed"] {
		cfg.Seed = fromFile.Seed
	}
	if !explicitFlags["radius"] {
		cfg.Radius = fromFile.Radius
	}
	if !explicitFlags["generator"] {
		cfg.Generator = fromFile.Generator
	}
	if !explicitFlags["strategy"] {
		cfg.Builder.Strategy = fromFile.Builder.Strategy
	}
	if !explicitFlags["workers"] {
		cfg.Builder.Workers = fromFile.Builder.Workers
	}
	if !explicitFlags["ticks"] {
		cfg.Ticks = fromFile.Ticks
	}
	// No flags for these.
	cfg.Chunk = fromFile.Chunk
	cfg.FlatHeight = fromFile.FlatHeight
	cfg.Biome = fromFile.Biome
	cfg.Builder.QueueSize = fromFile.Builder.QueueSize
	cfg.TickInterval = fromFile.TickInterval
	cfg.Journal = fromFile.Journal
	cfg.Log = fromFile.Log
}

// Validate reports every semantic problem in cfg. Each error wraps ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if err := c.Chunk.Validate(); err != nil {
		bad("chunk: %v", err)
	}
	if c.Radius < 0 {
		bad("radius %d is negative", c.Radius)
	}
	switch c.Generator {
	case "flat":
		if c.FlatHeight < 1 || c.FlatHeight > c.Chunk.Height {
			bad("flat_height %d outside 1..%d", c.FlatHeight, c.Chunk.Height)
		}
	case "noise":
	default:
		bad("unknown generator %q", c.Generator)
	}
	if _, err := gen.ParseBiome(c.Biome, c.Seed); err != nil {
		bad("%v", err)
	}
	switch c.Builder.Strategy {
	case "queued", "tasked":
	default:
		bad("unknown builder strategy %q", c.Builder.Strategy)
	}
	if c.Builder.Workers < 0 {
		bad("workers %d is negative", c.Builder.Workers)
	}
	if c.Builder.QueueSize < 0 {
		bad("queue_size %d is negative", c.Builder.QueueSize)
	}
	if c.TickInterval <= 0 {
		bad("tick_interval must be positive, got %s", c.TickInterval)
	}
	if c.Ticks < 0 {
		bad("ticks %d is negative", c.Ticks)
	}
	if _, err := c.Log.level(); err != nil {
		bad("log level: %v", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		bad("unknown log format %q", c.Log.Format)
	}
	return errors.Join(errs...)
}

func (l Log) level() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(l.Level))
	return lvl, err
}

// NewLogger builds the root logger described by l.
func (l Log) NewLogger(w io.Writer) (*slog.Logger, error) {
	lvl, err := l.level()
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch l.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", l.Format)
	}
}
