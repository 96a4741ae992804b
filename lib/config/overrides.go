// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/chunkforge/chunkforge/lib/layout"
	"github.com/chunkforge/chunkforge/lib/shapeplan"
)

// DatasetOverride is one per-location edit from an override file.
// Nil/empty fields leave the built descriptor's value in place.
type DatasetOverride struct {
	ChunkShape         []int64        `json:"chunk_shape,omitempty"`
	BufferShape        []int64        `json:"buffer_shape,omitempty"`
	CompressionMethod  string         `json:"compression_method,omitempty"`
	CompressionOptions map[string]any `json:"compression_options,omitempty"`
}

// LoadOverrides parses a JSONC override file: a map from in-container
// location to DatasetOverride. Comments and trailing commas are
// allowed so operators can annotate their layout decisions in place.
func LoadOverrides(path string) (map[string]DatasetOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading overrides %s: %w", path, err)
	}

	overrides := map[string]DatasetOverride{}
	if err := json.Unmarshal(jsonc.ToJSON(data), &overrides); err != nil {
		return nil, fmt.Errorf("parsing overrides %s: %w", path, err)
	}
	return overrides, nil
}

// ApplyOverrides edits a built configuration in place. Every override
// location must exist in the configuration; each edit goes through
// the descriptor builders, so all shape and compression validation
// applies and a failed override leaves the configuration unchanged at
// that location.
func ApplyOverrides(configuration *layout.Configuration, overrides map[string]DatasetOverride) error {
	for location, override := range overrides {
		d, ok := configuration.Get(location)
		if !ok {
			return fmt.Errorf("override location %q not in configuration (known: %s)",
				location, strings.Join(configuration.Locations(), ", "))
		}

		var err error
		if override.ChunkShape != nil || override.BufferShape != nil {
			chunk := shapeplan.Shape(override.ChunkShape)
			if chunk == nil {
				chunk = d.ChunkShape()
			}
			buffer := shapeplan.Shape(override.BufferShape)
			if buffer == nil {
				buffer = d.BufferShape()
			}
			d, err = d.WithShapes(chunk, buffer)
			if err != nil {
				return fmt.Errorf("override for %s: %w", location, err)
			}
		}
		if override.CompressionMethod != "" {
			d, err = d.WithCompression(override.CompressionMethod, override.CompressionOptions)
			if err != nil {
				return fmt.Errorf("override for %s: %w", location, err)
			}
		}

		if err := configuration.Set(location, d); err != nil {
			return err
		}
	}
	return nil
}
