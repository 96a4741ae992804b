// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"errors"
	"reflect"
	"testing"

	"github.com/chunkforge/chunkforge/lib/compression"
	"github.com/chunkforge/chunkforge/lib/dtype"
	"github.com/chunkforge/chunkforge/lib/shapeplan"
)

func defaultsDescriptor(t *testing.T) *Descriptor {
	t.Helper()
	d, err := FromDefaults(compression.KindHDF5, "obj-1",
		"acquisition/Series/data", NameData,
		shapeplan.Shape{1_000_000, 4}, dtype.Float64Type)
	if err != nil {
		t.Fatalf("FromDefaults failed: %v", err)
	}
	return d
}

func TestFromDefaultsInvariants(t *testing.T) {
	d := defaultsDescriptor(t)

	full, chunk, buffer := d.FullShape(), d.ChunkShape(), d.BufferShape()
	for axis := range full {
		if chunk[axis] < 1 || chunk[axis] > buffer[axis] || buffer[axis] > full[axis] {
			t.Errorf("axis %d: want 1 <= chunk %d <= buffer %d <= full %d",
				axis, chunk[axis], buffer[axis], full[axis])
		}
		if buffer[axis] != full[axis] && buffer[axis]%chunk[axis] != 0 {
			t.Errorf("axis %d: buffer %d not a multiple of chunk %d", axis, buffer[axis], chunk[axis])
		}
	}
	if d.CompressionMethod() != compression.MethodGenericLossless {
		t.Errorf("default compression = %q", d.CompressionMethod())
	}
}

func TestFromDefaultsIdempotent(t *testing.T) {
	a := defaultsDescriptor(t)
	b := defaultsDescriptor(t)
	if !reflect.DeepEqual(a, b) {
		t.Error("identical inputs must yield identical descriptors")
	}
}

func TestNewValidatesLocationSuffix(t *testing.T) {
	_, err := New(Params{
		ObjectID:          "obj-1",
		Location:          "acquisition/Series/data",
		DatasetName:       NameTimestamps,
		Dtype:             dtype.Float64Type,
		FullShape:         shapeplan.Shape{100},
		Kind:              compression.KindHDF5,
		ChunkShape:        shapeplan.Shape{10},
		BufferShape:       shapeplan.Shape{100},
		CompressionMethod: compression.MethodNone,
	})
	if err == nil {
		t.Fatal("location not ending in the dataset name should fail")
	}
}

func TestNewRejectsUnknownDatasetName(t *testing.T) {
	_, err := New(Params{
		ObjectID:          "obj-1",
		Location:          "acquisition/Series/samples",
		DatasetName:       "samples",
		Dtype:             dtype.Float64Type,
		FullShape:         shapeplan.Shape{100},
		Kind:              compression.KindHDF5,
		ChunkShape:        shapeplan.Shape{10},
		BufferShape:       shapeplan.Shape{100},
		CompressionMethod: compression.MethodNone,
	})
	if err == nil {
		t.Fatal("dataset name outside the closed set should fail")
	}
}

func TestNewRejectsUnknownCompressionMethod(t *testing.T) {
	_, err := New(Params{
		ObjectID:          "obj-1",
		Location:          "acquisition/Series/data",
		DatasetName:       NameData,
		Dtype:             dtype.Float64Type,
		FullShape:         shapeplan.Shape{10, 10},
		Kind:              compression.KindHDF5,
		ChunkShape:        shapeplan.Shape{10, 10},
		BufferShape:       shapeplan.Shape{10, 10},
		CompressionMethod: "not-a-codec",
	})
	var unknown *compression.UnknownCompressionMethodError
	if !errors.As(err, &unknown) {
		t.Fatalf("want UnknownCompressionMethodError, got %v", err)
	}
	if len(unknown.Valid) == 0 {
		t.Error("error should list the valid method names")
	}
}

func TestShapeMismatchNamesAxis(t *testing.T) {
	_, err := New(Params{
		ObjectID:          "obj-1",
		Location:          "acquisition/Series/data",
		DatasetName:       NameData,
		Dtype:             dtype.Float64Type,
		FullShape:         shapeplan.Shape{1000, 8},
		Kind:              compression.KindHDF5,
		ChunkShape:        shapeplan.Shape{100, 8},
		BufferShape:       shapeplan.Shape{50, 8}, // chunk > buffer on axis 0
		CompressionMethod: compression.MethodNone,
	})
	var mismatch *ShapeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("want ShapeMismatchError, got %v", err)
	}
	if mismatch.Axis != 0 {
		t.Errorf("Axis = %d, want 0", mismatch.Axis)
	}
	if mismatch.InnerField != "chunk_shape" || mismatch.OuterField != "buffer_shape" {
		t.Errorf("conflicting fields = %q vs %q", mismatch.InnerField, mismatch.OuterField)
	}
}

func TestBufferMultipleRule(t *testing.T) {
	params := Params{
		ObjectID:          "obj-1",
		Location:          "acquisition/Series/data",
		DatasetName:       NameData,
		Dtype:             dtype.Float64Type,
		FullShape:         shapeplan.Shape{1000},
		Kind:              compression.KindZarr,
		ChunkShape:        shapeplan.Shape{64},
		BufferShape:       shapeplan.Shape{100}, // not a multiple of 64, not full
		CompressionMethod: compression.MethodNone,
	}
	if _, err := New(params); err == nil {
		t.Fatal("buffer that is neither full nor a chunk multiple should fail")
	}

	// The same buffer is fine when it equals the full extent.
	params.BufferShape = shapeplan.Shape{1000}
	if _, err := New(params); err != nil {
		t.Fatalf("whole-array buffer should pass: %v", err)
	}
}

func TestWithChunkShapeRejectionLeavesPriorState(t *testing.T) {
	d := defaultsDescriptor(t)
	prior := d.ChunkShape()

	oversized := d.BufferShape()
	oversized[0] *= 2 // larger than buffer on axis 0
	_, err := d.WithChunkShape(oversized)
	var mismatch *ShapeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("want ShapeMismatchError, got %v", err)
	}
	if !d.ChunkShape().Equal(prior) {
		t.Error("failed mutation must leave the prior chunk shape observable")
	}
}

func TestWithShapesAtomicSwap(t *testing.T) {
	d := defaultsDescriptor(t)

	chunk := shapeplan.Shape{500_000, 4}
	buffer := shapeplan.Shape{1_000_000, 4}
	updated, err := d.WithShapes(chunk, buffer)
	if err != nil {
		t.Fatalf("WithShapes failed: %v", err)
	}
	if !updated.ChunkShape().Equal(chunk) || !updated.BufferShape().Equal(buffer) {
		t.Error("WithShapes did not apply both shapes")
	}
	// The original is untouched: descriptors are values.
	if updated.ChunkShape().Equal(d.ChunkShape()) {
		t.Error("builder must return a new instance, not mutate the receiver")
	}
}

func TestWithCompressionValidatesName(t *testing.T) {
	d := defaultsDescriptor(t)
	if _, err := d.WithCompression("zstd", map[string]any{"level": 5}); err != nil {
		t.Fatalf("zstd should resolve for the HDF5 kind: %v", err)
	}
	if _, err := d.WithCompression("snappy", nil); err == nil {
		t.Error("snappy is Zarr-only and should not resolve for the HDF5 kind")
	}
	if d.CompressionMethod() != compression.MethodGenericLossless {
		t.Error("failed mutation must not change the method")
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	d := defaultsDescriptor(t)
	shape := d.ChunkShape()
	shape[0] = 1
	if d.ChunkShape()[0] == 1 {
		t.Error("ChunkShape must return a copy")
	}
}

func TestByteFootprints(t *testing.T) {
	d := defaultsDescriptor(t)
	if d.FullBytes() != 1_000_000*4*8 {
		t.Errorf("FullBytes = %d", d.FullBytes())
	}
	if d.ChunkBytes() < shapeplan.DefaultChunkTargetBytes {
		t.Errorf("ChunkBytes = %d, below the default target", d.ChunkBytes())
	}
	if d.BufferBytes() > d.FullBytes() {
		t.Errorf("BufferBytes %d exceeds FullBytes %d", d.BufferBytes(), d.FullBytes())
	}
}

func TestEmptyArrayPassesThrough(t *testing.T) {
	d, err := FromDefaults(compression.KindZarr, "obj-2",
		"acquisition/Empty/timestamps", NameTimestamps,
		shapeplan.Shape{0}, dtype.Float64Type)
	if err != nil {
		t.Fatalf("FromDefaults on an empty array failed: %v", err)
	}
	if !d.ChunkShape().Equal(shapeplan.Shape{0}) || !d.BufferShape().Equal(shapeplan.Shape{0}) {
		t.Errorf("empty array shapes should pass through: chunk %v buffer %v",
			d.ChunkShape(), d.BufferShape())
	}
}

func TestFieldSchemaPerKind(t *testing.T) {
	for _, kind := range []compression.BackendKind{compression.KindHDF5, compression.KindZarr} {
		t.Run(kind.String(), func(t *testing.T) {
			schema := FieldSchema(kind)
			properties := schema["properties"].(map[string]any)

			if _, ok := properties["codec_override"]; ok {
				t.Error("codec override has no JSON equivalent and must be omitted")
			}
			method := properties["compression_method"].(map[string]any)
			enum := method["enum"].([]any)
			want := compression.Default(kind).Names()
			if len(enum) != len(want) {
				t.Errorf("method enum has %d entries, catalog has %d", len(enum), len(want))
			}
		})
	}

	// The two kinds expose different method sets, so the schemas differ.
	hdf5Enum := FieldSchema(compression.KindHDF5)["properties"].(map[string]any)["compression_method"].(map[string]any)["enum"].([]any)
	zarrEnum := FieldSchema(compression.KindZarr)["properties"].(map[string]any)["compression_method"].(map[string]any)["enum"].([]any)
	if reflect.DeepEqual(hdf5Enum, zarrEnum) {
		t.Error("per-kind schemas should differ in their method enums")
	}
}
