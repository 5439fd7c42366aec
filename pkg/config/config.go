// Package config holds the runtime configuration of a scheduler.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/fabric/pkg/errors"
)

// SchemaMajor is the configuration schema major version this build reads.
const SchemaMajor = "v1"

// FeatureInlineDelivery makes the scheduler deliver every commit on the
// committing goroutine, bypassing its dispatcher.
const FeatureInlineDelivery = "inlineDelivery"

const (
	defaultMaxCommitRetries    = 3
	defaultTraceCapacity       = 240
	defaultSlowCommitThreshold = 16 * time.Millisecond
)

// Config is the runtime configuration consumed by the scheduler.
type Config struct {
	Version   string          `yaml:"version,omitempty"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Features  map[string]bool `yaml:"features,omitempty"`
}

// SchedulerConfig tunes the commit pipeline.
type SchedulerConfig struct {
	// MaxCommitRetries bounds how often a stale commit is recomputed
	// against the fresh root before the failure is surfaced.
	MaxCommitRetries int `yaml:"maxCommitRetries,omitempty"`
	// TraceCapacity is the number of commit samples kept in memory. Zero
	// selects the trace buffer's own default.
	TraceCapacity int `yaml:"traceCapacity,omitempty"`
	// SlowCommitThreshold marks commits that took longer as slow.
	SlowCommitThreshold time.Duration `yaml:"slowCommitThreshold,omitempty"`
	// TraceStore is an optional path of a bbolt file receiving every
	// commit sample.
	TraceStore string `yaml:"traceStore,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Version: SchemaMajor + ".0.0",
		Scheduler: SchedulerConfig{
			MaxCommitRetries:    defaultMaxCommitRetries,
			TraceCapacity:       defaultTraceCapacity,
			SlowCommitThreshold: defaultSlowCommitThreshold,
		},
	}
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.FabricError{Op: "config.Load", Kind: errors.KindConfig, Err: err}
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document over the defaults and validates the result.
// Keys the document sets, zero values included, override the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &errors.FabricError{Op: "config.Parse", Kind: errors.KindConfig, Err: err}
	}
	cfg.Version = strings.TrimSpace(cfg.Version)
	if cfg.Version == "" {
		cfg.Version = SchemaMajor + ".0.0"
	}
	if err := cfg.Validate(); err != nil {
		return nil, &errors.FabricError{Op: "config.Parse", Kind: errors.KindConfig, Err: err}
	}
	return cfg, nil
}

// Validate checks the schema version and numeric bounds.
func (c *Config) Validate() error {
	if !semver.IsValid(c.Version) {
		return fmt.Errorf("version %q is not a semantic version", c.Version)
	}
	if major := semver.Major(c.Version); major != SchemaMajor {
		return fmt.Errorf("version %s has major %s, want %s", c.Version, major, SchemaMajor)
	}
	if c.Scheduler.MaxCommitRetries < 0 {
		return fmt.Errorf("scheduler.maxCommitRetries must not be negative (got %d)", c.Scheduler.MaxCommitRetries)
	}
	if c.Scheduler.TraceCapacity < 0 {
		return fmt.Errorf("scheduler.traceCapacity must not be negative (got %d)", c.Scheduler.TraceCapacity)
	}
	if c.Scheduler.SlowCommitThreshold < 0 {
		return fmt.Errorf("scheduler.slowCommitThreshold must not be negative (got %s)", c.Scheduler.SlowCommitThreshold)
	}
	return nil
}

// Feature reports whether the named feature flag is enabled.
func (c *Config) Feature(name string) bool {
	if c == nil {
		return false
	}
	return c.Features[name]
}
