// Package config loads the YAML configuration for the buffer pool tools.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	bufferpool "github.com/sushant-115/gojodb-bufferpool/core/write_engine/buffer_pool"
	flushmanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/flush_manager"
	pagemanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/page_manager"
	"github.com/sushant-115/gojodb-bufferpool/pkg/logger"
	"github.com/sushant-115/gojodb-bufferpool/pkg/telemetry"
	"gopkg.in/yaml.v3"
)

const (
	StoreKindDisk   = "disk"
	StoreKindMemory = "memory"

	minPageSize = 64
)

type Config struct {
	Logger     logger.Config    `yaml:"logger"`
	Telemetry  telemetry.Config `yaml:"telemetry"`
	BufferPool BufferPoolConfig `yaml:"buffer_pool"`
	Store      StoreConfig      `yaml:"store"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
}

type BufferPoolConfig struct {
	PoolSize int `yaml:"pool_size"`
	// Replacer is "lru" or "clock".
	Replacer string `yaml:"replacer"`
	// DetectDeadlocks turns on lock-order and timeout checks on the pool latch.
	DetectDeadlocks bool `yaml:"detect_deadlocks"`
}

type StoreConfig struct {
	// Kind is "disk" or "memory".
	Kind     string `yaml:"kind"`
	Path     string `yaml:"path"`
	PageSize int    `yaml:"page_size"`
	DirectIO bool   `yaml:"direct_io"`
}

type SnapshotConfig struct {
	Dir string `yaml:"dir"`
	// RateBytesPerSec caps snapshot copy throughput; 0 means unlimited.
	RateBytesPerSec int64 `yaml:"rate_bytes_per_sec"`
	Verify          bool  `yaml:"verify"`
}

// Default returns a configuration that runs an in-memory pool with console logs.
func Default() *Config {
	return &Config{
		Logger: logger.Config{
			Level:      "info",
			Format:     "console",
			OutputFile: "stderr",
		},
		Telemetry: telemetry.Config{
			Enabled:          false,
			ServiceName:      "gojodb-bufferpool",
			PrometheusPort:   9464,
			TraceSampleRatio: 1.0,
		},
		BufferPool: BufferPoolConfig{
			PoolSize: 64,
			Replacer: bufferpool.ReplacerLRU,
		},
		Store: StoreConfig{
			Kind:     StoreKindMemory,
			PageSize: pagemanager.PageSize,
		},
		Snapshot: SnapshotConfig{
			Dir:             "snapshots",
			RateBytesPerSec: 64 << 20,
			Verify:          true,
		},
	}
}

// Load reads path on top of Default and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default. Unknown keys are rejected.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	if c.BufferPool.PoolSize < 1 {
		return fmt.Errorf("%w: buffer_pool.pool_size must be at least 1, got %d", flushmanager.ErrInvalidArgument, c.BufferPool.PoolSize)
	}
	if _, err := bufferpool.ReplacerByName(c.BufferPool.Replacer); err != nil {
		return fmt.Errorf("buffer_pool.replacer: %w", err)
	}
	if c.Store.PageSize < minPageSize {
		return fmt.Errorf("%w: store.page_size must be at least %d, got %d", flushmanager.ErrInvalidArgument, minPageSize, c.Store.PageSize)
	}
	switch strings.ToLower(c.Store.Kind) {
	case StoreKindMemory:
		if c.Store.DirectIO {
			return fmt.Errorf("%w: store.direct_io needs a disk store", flushmanager.ErrInvalidArgument)
		}
	case StoreKindDisk:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store.path is required for a disk store", flushmanager.ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: store.kind must be %q or %q, got %q", flushmanager.ErrInvalidArgument, StoreKindDisk, StoreKindMemory, c.Store.Kind)
	}
	if c.Snapshot.RateBytesPerSec < 0 {
		return fmt.Errorf("%w: snapshot.rate_bytes_per_sec cannot be negative", flushmanager.ErrInvalidArgument)
	}
	return nil
}
