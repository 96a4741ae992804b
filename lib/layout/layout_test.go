// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"errors"
	"strings"
	"testing"

	"github.com/chunkforge/chunkforge/lib/compression"
	"github.com/chunkforge/chunkforge/lib/descriptor"
	"github.com/chunkforge/chunkforge/lib/dtype"
	"github.com/chunkforge/chunkforge/lib/shapeplan"
)

// withCPUs pins the CPU count seen by job validation for the duration
// of a test.
func withCPUs(t *testing.T, cpus int) {
	t.Helper()
	previous := availableCPUs
	availableCPUs = func() int { return cpus }
	t.Cleanup(func() { availableCPUs = previous })
}

func seriesDescriptor(t *testing.T, kind compression.BackendKind) *descriptor.Descriptor {
	t.Helper()
	d, err := descriptor.FromDefaults(kind, "series-es",
		"acquisition/ElectricalSeries/data", descriptor.NameData,
		shapeplan.Shape{100_000, 8}, dtype.Float32Type)
	if err != nil {
		t.Fatalf("FromDefaults failed: %v", err)
	}
	return d
}

func TestSetRejectsLocationMismatch(t *testing.T) {
	configuration := New(compression.KindHDF5)
	d := seriesDescriptor(t, compression.KindHDF5)

	if err := configuration.Set("acquisition/Other/data", d); err == nil {
		t.Fatal("location key differing from the descriptor's location should fail")
	}
}

func TestSetRejectsCrossBackendDescriptor(t *testing.T) {
	configuration := New(compression.KindHDF5)
	d := seriesDescriptor(t, compression.KindZarr)

	err := configuration.Set(d.Location(), d)
	var mismatch *BackendCompressionMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("want BackendCompressionMismatchError, got %v", err)
	}
	if mismatch.DescriptorKind != compression.KindZarr {
		t.Errorf("DescriptorKind = %v", mismatch.DescriptorKind)
	}
}

// pluginProvider contributes one extra codec name.
type pluginProvider struct{}

func (pluginProvider) Codecs() []compression.Codec {
	return []compression.Codec{pluginCodec{}}
}

type pluginCodec struct{}

func (pluginCodec) Name() string   { return "blosc-lz4hc" }
func (pluginCodec) Lossless() bool { return true }
func (pluginCodec) Compress(data []byte) ([]byte, error) {
	return data, nil
}
func (pluginCodec) Decompress(compressed []byte, uncompressedSize int) ([]byte, error) {
	return compressed, nil
}

func TestSetRejectsUnresolvableMethod(t *testing.T) {
	// A descriptor built against a provider-extended catalog cannot
	// be copied into a configuration whose catalog lacks the
	// provider's codec.
	extended := New(compression.KindZarr, pluginProvider{})
	d, err := descriptor.New(descriptor.Params{
		ObjectID:          "series-es",
		Location:          "acquisition/ElectricalSeries/data",
		DatasetName:       descriptor.NameData,
		Dtype:             dtype.Float32Type,
		FullShape:         shapeplan.Shape{1000, 8},
		Kind:              compression.KindZarr,
		ChunkShape:        shapeplan.Shape{1000, 8},
		BufferShape:       shapeplan.Shape{1000, 8},
		CompressionMethod: "blosc-lz4hc",
		Catalog:           extended.Catalog(),
	})
	if err != nil {
		t.Fatalf("descriptor with provider codec should build: %v", err)
	}
	if err := extended.Set(d.Location(), d); err != nil {
		t.Fatalf("Set into the provider-extended configuration should succeed: %v", err)
	}

	plain := New(compression.KindZarr)
	err = plain.Set(d.Location(), d)
	var mismatch *BackendCompressionMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("want BackendCompressionMismatchError, got %v", err)
	}
	if mismatch.Method != "blosc-lz4hc" {
		t.Errorf("Method = %q", mismatch.Method)
	}
}

func TestGetReturnsSetDescriptor(t *testing.T) {
	configuration := New(compression.KindZarr)
	d := seriesDescriptor(t, compression.KindZarr)
	if err := configuration.Set(d.Location(), d); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := configuration.Get(d.Location())
	if !ok || got != d {
		t.Error("Get should return the descriptor that was set")
	}
	if _, ok := configuration.Get("missing/data"); ok {
		t.Error("Get on a missing location should report absence")
	}
}

func TestNumberOfJobsDefaults(t *testing.T) {
	withCPUs(t, 8)

	zarr := New(compression.KindZarr)
	if zarr.NumberOfJobs() != 7 {
		t.Errorf("default jobs = %d, want cpus-1 = 7", zarr.NumberOfJobs())
	}

	hdf5 := New(compression.KindHDF5)
	if hdf5.NumberOfJobs() != 0 {
		t.Errorf("HDF5 configurations have no fan-out, got %d", hdf5.NumberOfJobs())
	}
}

func TestSetNumberOfJobs(t *testing.T) {
	withCPUs(t, 8)
	configuration := New(compression.KindZarr)

	tests := []struct {
		name      string
		requested int
		want      int
		wantError bool
	}{
		{"explicit", 4, 4, false},
		{"all cpus", 8, 8, false},
		{"negative counts back from all", -1, 8, false},
		{"negative minus one", -2, 7, false},
		{"most negative", -8, 1, false},
		{"zero restores default", 0, 7, false},
		{"too large", 9, 0, true},
		{"too negative", -9, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := configuration.SetNumberOfJobs(tt.requested)
			if tt.wantError {
				if err == nil {
					t.Fatalf("SetNumberOfJobs(%d) should fail", tt.requested)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetNumberOfJobs(%d) failed: %v", tt.requested, err)
			}
			if configuration.NumberOfJobs() != tt.want {
				t.Errorf("NumberOfJobs = %d, want %d", configuration.NumberOfJobs(), tt.want)
			}
		})
	}
}

func TestSetNumberOfJobsRejectedForHDF5(t *testing.T) {
	withCPUs(t, 8)
	configuration := New(compression.KindHDF5)
	if err := configuration.SetNumberOfJobs(4); err == nil {
		t.Fatal("jobs on an HDF5 configuration should fail")
	}
}

func TestRenderSummary(t *testing.T) {
	withCPUs(t, 8)
	configuration := New(compression.KindZarr)
	d := seriesDescriptor(t, compression.KindZarr)
	if err := configuration.Set(d.Location(), d); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	summary := configuration.RenderSummary()
	for _, want := range []string{
		"zarr backend configuration",
		"acquisition/ElectricalSeries/data",
		"float32",
		"generic-lossless",
		"7 parallel write job(s)",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}
