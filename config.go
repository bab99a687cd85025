package fossilize

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config describes tunables for the recorder, database backends and CLI
// tool. It is loaded from a YAML file and then overlaid with a plain map
// (typically env-var derived) via mapstructure, the same two-step "parse
// then decode loosely-typed overrides" shape used by the pack's config
// loaders. The recorder, the db backends and the CLI tool do not read a
// Config; its values take effect only where a caller applies them.
type Config struct {
	// LogLevel controls the default Logger verbosity.
	LogLevel LogLevel `yaml:"log_level" mapstructure:"log_level"`

	// FlushIntervalMillis is how long the recorder worker waits for more queued
	// work before flushing its side databases, in milliseconds.
	FlushIntervalMillis int `yaml:"flush_interval_millis" mapstructure:"flush_interval_millis"`

	// CompressionFormat is the default FOZ payload compression new
	// entries are written with.
	CompressionFormat CompressionFormat `yaml:"compression_format" mapstructure:"compression_format"`

	// ComputeChecksums is the CRC-32 setting for FOZ writes. db.Foz
	// computes a CRC-32 on every write whatever this holds.
	ComputeChecksums bool `yaml:"compute_checksums" mapstructure:"compute_checksums"`

	// ConcurrentShardPrefix is the base path new shards are named after
	// for the Concurrent database backend (e.g. "cache" yields
	// "cache.0.foz", "cache.1.foz", ...).
	ConcurrentShardPrefix string `yaml:"concurrent_shard_prefix" mapstructure:"concurrent_shard_prefix"`
}

// DefaultConfig returns the baseline configuration used when no file is
// supplied.
func DefaultConfig() Config {
	return Config{
		LogLevel:              DefaultLogLevel,
		FlushIntervalMillis:   1000,
		CompressionFormat:     CompressionDeflate,
		ComputeChecksums:      true,
		ConcurrentShardPrefix: "cache",
	}
}

// LoadConfig reads a YAML config file from path, falling back to
// DefaultConfig for any field the file omits.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("fossilize: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("fossilize: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyOverrides decodes a loosely-typed override map (as assembled from
// environment variables by a caller) onto cfg, converting types as needed.
func ApplyOverrides(cfg *Config, overrides map[string]any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return fmt.Errorf("fossilize: build config decoder: %w", err)
	}
	if err := dec.Decode(overrides); err != nil {
		return fmt.Errorf("fossilize: apply config overrides: %w", err)
	}
	return nil
}
