// Package config loads the runtime environment configuration that governs
// lifecycle behavior across processes, most importantly whether the
// environment permits container reuse.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	units "github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is looked up in the user's home directory.
const ConfigFileName = ".vessel.yaml"

// Config is the runtime environment configuration. File values are overridden
// by VESSEL_* environment variables.
type Config struct {
	// ReuseEnabled permits adoption of already-running containers by
	// fingerprint. Off by default: reuse deliberately leaves containers
	// running after the process exits.
	ReuseEnabled bool `yaml:"reuse_enabled"`

	// LogLevel sets the process log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// DefaultShmSize is a human-readable size ("64mb") applied to specs that
	// do not set one. Empty keeps the engine default.
	DefaultShmSize string `yaml:"default_shm_size"`
}

// Load reads the configuration from ~/.vessel.yaml (path overridable via
// VESSEL_CONFIG) and applies environment overrides. A missing file yields the
// defaults, not an error.
func Load() (*Config, error) {
	cfg := &Config{LogLevel: "info"}

	path := os.Getenv("VESSEL_CONFIG")
	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ConfigFileName)
		}
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("VESSEL_REUSE_ENABLE"); v != "" {
		cfg.ReuseEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("VESSEL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("VESSEL_DEFAULT_SHM_SIZE"); v != "" {
		cfg.DefaultShmSize = v
	}

	if cfg.DefaultShmSize != "" {
		if _, err := units.RAMInBytes(cfg.DefaultShmSize); err != nil {
			return nil, fmt.Errorf("invalid default_shm_size %q: %w", cfg.DefaultShmSize, err)
		}
	}
	return cfg, nil
}

// ShmSizeBytes returns DefaultShmSize in bytes, or 0 when unset.
func (c *Config) ShmSizeBytes() int64 {
	if c.DefaultShmSize == "" {
		return 0
	}
	n, err := units.RAMInBytes(c.DefaultShmSize)
	if err != nil {
		return 0
	}
	return n
}
