package fossilize

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: 2\ncompute_checksums: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != 2 {
		t.Fatalf("LogLevel = %v, want 2 from the file", cfg.LogLevel)
	}
	if cfg.ComputeChecksums {
		t.Fatal("compute_checksums: false in the file should override the default")
	}
	// Fields absent from the file keep DefaultConfig's values.
	if cfg.ConcurrentShardPrefix != "cache" {
		t.Fatalf("ConcurrentShardPrefix = %q, want default %q", cfg.ConcurrentShardPrefix, "cache")
	}
}

func TestLoadConfigMissingFileReturnsError(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("expected an error reading a nonexistent config file")
	}
}

func TestApplyOverridesDecodesWeaklyTypedValues(t *testing.T) {
	cfg := DefaultConfig()
	// Environment-variable-derived overrides arrive as strings; mapstructure's
	// WeaklyTypedInput should coerce them onto the typed Config fields.
	overrides := map[string]any{
		"flush_interval_millis": "2500",
		"compute_checksums":     "false",
	}
	if err := ApplyOverrides(&cfg, overrides); err != nil {
		t.Fatal(err)
	}
	if cfg.FlushIntervalMillis != 2500 {
		t.Fatalf("FlushIntervalMillis = %d, want 2500", cfg.FlushIntervalMillis)
	}
	if cfg.ComputeChecksums {
		t.Fatal("compute_checksums override should have been applied")
	}
}
