// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads layout tuning configuration.
//
// The tuning file is YAML, loaded from a single explicit path — no
// fallbacks or automatic discovery, so configuration stays
// deterministic and auditable. It holds the estimation targets, the
// default compression method per backend, and the Zarr write fan-out.
//
// Per-dataset overrides live in a separate JSONC file (JSON with //
// comments and trailing commas), keyed by in-container location, and
// are applied on top of an already-built configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chunkforge/chunkforge/lib/compression"
	"github.com/chunkforge/chunkforge/lib/shapeplan"
)

// Config is the layout tuning configuration.
type Config struct {
	// ChunkTargetBytes is the on-disk chunk size target for
	// estimation. Default 10 MB.
	ChunkTargetBytes int64 `yaml:"chunk_target_bytes"`

	// BufferTargetBytes is the in-memory staging size target.
	// Default 500 MB.
	BufferTargetBytes int64 `yaml:"buffer_target_bytes"`

	// HDF5 tunes the HDF5-kind backend.
	HDF5 BackendConfig `yaml:"hdf5"`

	// Zarr tunes the Zarr-kind backend.
	Zarr ZarrConfig `yaml:"zarr"`
}

// BackendConfig holds per-backend tuning shared by both kinds.
type BackendConfig struct {
	// DefaultCompression is the method assigned to discovered
	// datasets. Must resolve in the backend's catalog.
	DefaultCompression string `yaml:"default_compression"`
}

// ZarrConfig extends BackendConfig with the write fan-out directive.
type ZarrConfig struct {
	BackendConfig `yaml:",inline"`

	// NumberOfJobs is the requested parallel write fan-out. Zero
	// means the default (all CPUs but one); negative values count
	// back from all CPUs.
	NumberOfJobs int `yaml:"number_of_jobs"`
}

// Default returns the baseline configuration. The tuning file is
// optional, unlike most deployments' service configs: estimation has
// usable built-in targets.
func Default() *Config {
	return &Config{
		ChunkTargetBytes:  shapeplan.DefaultChunkTargetBytes,
		BufferTargetBytes: shapeplan.DefaultBufferTargetBytes,
		HDF5: BackendConfig{
			DefaultCompression: compression.MethodGenericLossless,
		},
		Zarr: ZarrConfig{
			BackendConfig: BackendConfig{
				DefaultCompression: compression.MethodGenericLossless,
			},
		},
	}
}

// Load reads and validates a tuning file. Fields absent from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

// Validate checks target sanity and that the default methods resolve
// in their backend catalogs.
func (c *Config) Validate() error {
	if c.ChunkTargetBytes <= 0 {
		return fmt.Errorf("chunk_target_bytes must be positive, got %d", c.ChunkTargetBytes)
	}
	if c.BufferTargetBytes < c.ChunkTargetBytes {
		return fmt.Errorf("buffer_target_bytes %d is smaller than chunk_target_bytes %d",
			c.BufferTargetBytes, c.ChunkTargetBytes)
	}
	if _, err := compression.Default(compression.KindHDF5).Resolve(c.HDF5.DefaultCompression); err != nil {
		return fmt.Errorf("hdf5.default_compression: %w", err)
	}
	if _, err := compression.Default(compression.KindZarr).Resolve(c.Zarr.DefaultCompression); err != nil {
		return fmt.Errorf("zarr.default_compression: %w", err)
	}
	return nil
}

// DefaultCompression returns the configured method for a kind.
func (c *Config) DefaultCompression(kind compression.BackendKind) string {
	if kind == compression.KindZarr {
		return c.Zarr.DefaultCompression
	}
	return c.HDF5.DefaultCompression
}
