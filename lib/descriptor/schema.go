// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"github.com/chunkforge/chunkforge/lib/compression"
)

// FieldSchema returns a JSON-Schema-shaped description of the valid
// descriptor field set for a backend kind, for configuration UIs.
// Identity fields are marked readOnly; the compression method is an
// enum of the kind's resolvable catalog names, so the schema differs
// between kinds.
//
// The codec-override field is deliberately absent: it accepts any
// instantiated codec value and has no JSON equivalent, so generation
// omits it rather than erroring.
func FieldSchema(kind compression.BackendKind) map[string]any {
	shape := map[string]any{
		"type":     "array",
		"items":    map[string]any{"type": "integer", "minimum": 1},
		"minItems": 1,
	}
	frozenShape := map[string]any{
		"type":     "array",
		"items":    map[string]any{"type": "integer", "minimum": 0},
		"readOnly": true,
	}

	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"title":   kind.String() + " dataset descriptor",
		"type":    "object",
		"properties": map[string]any{
			"object_id": map[string]any{"type": "string", "readOnly": true},
			"location":  map[string]any{"type": "string", "readOnly": true},
			"dataset_name": map[string]any{
				"type":     "string",
				"enum":     []any{NameData, NameTimestamps},
				"readOnly": true,
			},
			"dtype":        map[string]any{"type": "string", "readOnly": true},
			"full_shape":   frozenShape,
			"chunk_shape":  shape,
			"buffer_shape": shape,
			"compression_method": map[string]any{
				"type": "string",
				"enum": namesAsAny(compression.Default(kind).Names()),
			},
			"compression_options": map[string]any{"type": "object"},
		},
		"required": []any{
			"object_id", "location", "dataset_name", "dtype",
			"full_shape", "chunk_shape", "buffer_shape",
		},
		"additionalProperties": false,
	}
}

func namesAsAny(names []string) []any {
	out := make([]any, len(names))
	for i, name := range names {
		out[i] = name
	}
	return out
}
