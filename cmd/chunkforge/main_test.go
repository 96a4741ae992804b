// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chunkforge/chunkforge/lib/compression"
	"github.com/chunkforge/chunkforge/lib/dtype"
	"github.com/chunkforge/chunkforge/lib/graph"
	"github.com/chunkforge/chunkforge/lib/layout"
	"github.com/chunkforge/chunkforge/lib/shapeplan"
)

func TestParseBackendFlag(t *testing.T) {
	tests := []struct {
		input string
		want  compression.BackendKind
		ok    bool
	}{
		{"hdf5", compression.KindHDF5, true},
		{"zarr", compression.KindZarr, true},
		{"n5", 0, false},
		{"", 0, false},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			kind, err := parseBackendFlag(test.input)
			if test.ok && err != nil {
				t.Fatalf("parseBackendFlag(%q) failed: %v", test.input, err)
			}
			if !test.ok && err == nil {
				t.Fatalf("parseBackendFlag(%q) should fail", test.input)
			}
			if test.ok && kind != test.want {
				t.Errorf("parseBackendFlag(%q) = %v, want %v", test.input, kind, test.want)
			}
		})
	}
}

func TestRunVersion(t *testing.T) {
	if err := runVersion(nil); err != nil {
		t.Errorf("runVersion failed: %v", err)
	}
	if err := runVersion([]string{"--full"}); err != nil {
		t.Errorf("runVersion --full failed: %v", err)
	}
}

func TestRunInspectRoundTrip(t *testing.T) {
	root := &graph.StaticNode{
		NodeID: "file-1",
		NodeChilds: []*graph.StaticNode{{
			NodeID:   "series-es",
			NodeName: "Series",
			NodeArrays: []*graph.StaticArray{{
				ArrayName:  "data",
				ArrayShape: shapeplan.Shape{100_000, 4},
				ArrayDtype: dtype.Float64Type,
			}},
		}},
	}
	configuration, err := layout.FromObjectGraph(root, compression.KindZarr)
	if err != nil {
		t.Fatalf("FromObjectGraph failed: %v", err)
	}
	snapshot, err := configuration.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "layout.snapshot")
	if err := os.WriteFile(path, snapshot, 0o600); err != nil {
		t.Fatalf("writing snapshot: %v", err)
	}

	if err := runInspect([]string{path}); err != nil {
		t.Errorf("runInspect failed: %v", err)
	}
	if err := runInspect([]string{"--io", path}); err != nil {
		t.Errorf("runInspect --io failed: %v", err)
	}

	overrides := filepath.Join(t.TempDir(), "overrides.jsonc")
	content := `{
	// smaller chunks for this retry
	"Series/data": {"compression_method": "lz4"},
}`
	if err := os.WriteFile(overrides, []byte(content), 0o600); err != nil {
		t.Fatalf("writing overrides: %v", err)
	}
	if err := runInspect([]string{"--overrides", overrides, path}); err != nil {
		t.Errorf("runInspect --overrides failed: %v", err)
	}
}

func TestRunInspectRejectsCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.snapshot")
	if err := os.WriteFile(path, []byte("not a snapshot"), 0o600); err != nil {
		t.Fatalf("writing snapshot: %v", err)
	}
	if err := runInspect([]string{path}); err == nil {
		t.Error("runInspect should fail on a corrupt snapshot")
	}
}
