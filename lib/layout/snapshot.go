// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"bytes"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/chunkforge/chunkforge/lib/codec"
	"github.com/chunkforge/chunkforge/lib/compression"
	"github.com/chunkforge/chunkforge/lib/descriptor"
	"github.com/chunkforge/chunkforge/lib/dtype"
	"github.com/chunkforge/chunkforge/lib/shapeplan"
)

// snapshotDataset is the serialized form of one descriptor. The
// codec-override field is deliberately absent: an instantiated codec
// has no serialized equivalent (the same omission rule the JSON
// schema applies), so a snapshot records the named method only.
type snapshotDataset struct {
	ObjectID           string         `cbor:"object_id"`
	Location           string         `cbor:"location"`
	DatasetName        string         `cbor:"dataset_name"`
	Dtype              string         `cbor:"dtype"`
	FullShape          []int64        `cbor:"full_shape"`
	ChunkShape         []int64        `cbor:"chunk_shape"`
	BufferShape        []int64        `cbor:"buffer_shape"`
	CompressionMethod  string         `cbor:"compression_method"`
	CompressionOptions map[string]any `cbor:"compression_options,omitempty"`
}

// snapshotPayload is the digestable snapshot body.
type snapshotPayload struct {
	Backend      string            `cbor:"backend"`
	NumberOfJobs int               `cbor:"number_of_jobs,omitempty"`
	Datasets     []snapshotDataset `cbor:"datasets"`
}

// snapshotEnvelope wraps the encoded payload with its BLAKE3 digest.
type snapshotEnvelope struct {
	Payload []byte `cbor:"payload"`
	Digest  []byte `cbor:"digest"`
}

// Snapshot serializes the configuration to deterministic CBOR with a
// BLAKE3 content digest. Snapshots are for inspection and for reusing
// a validated layout across a retried write; they are not the write
// path itself.
func (c *Configuration) Snapshot() ([]byte, error) {
	payload := snapshotPayload{
		Backend:      c.kind.String(),
		NumberOfJobs: c.numberOfJobs,
	}
	for _, location := range c.Locations() {
		d := c.descriptors[location]
		payload.Datasets = append(payload.Datasets, snapshotDataset{
			ObjectID:           d.ObjectID(),
			Location:           d.Location(),
			DatasetName:        d.DatasetName(),
			Dtype:              d.Dtype().String(),
			FullShape:          d.FullShape(),
			ChunkShape:         d.ChunkShape(),
			BufferShape:        d.BufferShape(),
			CompressionMethod:  d.CompressionMethod(),
			CompressionOptions: d.CompressionOptions(),
		})
	}

	encoded, err := codec.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot payload: %w", err)
	}
	digest := blake3.Sum256(encoded)
	envelope, err := codec.Marshal(snapshotEnvelope{Payload: encoded, Digest: digest[:]})
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot envelope: %w", err)
	}
	return envelope, nil
}

// LoadSnapshot rebuilds a configuration from Snapshot output,
// verifying the content digest and re-running full descriptor
// validation. Providers extend the rebuilt catalog the same way they
// would at FromObjectGraph time.
func LoadSnapshot(data []byte, providers ...compression.Provider) (*Configuration, error) {
	var envelope snapshotEnvelope
	if err := codec.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding snapshot envelope: %w", err)
	}
	digest := blake3.Sum256(envelope.Payload)
	if !bytes.Equal(digest[:], envelope.Digest) {
		return nil, fmt.Errorf("snapshot digest mismatch: snapshot is corrupt or was modified")
	}

	var payload snapshotPayload
	if err := codec.Unmarshal(envelope.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decoding snapshot payload: %w", err)
	}
	kind, err := compression.ParseBackendKind(payload.Backend)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	// Snapshot always writes at least one dataset (a configuration
	// cannot be built from an empty graph), so a dataset-free payload
	// is hand-crafted or truncated. Loading it would yield a
	// configuration that applies as a silent no-op.
	if len(payload.Datasets) == 0 {
		return nil, fmt.Errorf("snapshot contains no datasets")
	}

	configuration := New(kind, providers...)
	for _, dataset := range payload.Datasets {
		elementType, err := dtype.Parse(dataset.Dtype)
		if err != nil {
			return nil, fmt.Errorf("snapshot dataset %s: %w", dataset.Location, err)
		}
		d, err := descriptor.New(descriptor.Params{
			ObjectID:           dataset.ObjectID,
			Location:           dataset.Location,
			DatasetName:        dataset.DatasetName,
			Dtype:              elementType,
			FullShape:          shapeplan.Shape(dataset.FullShape),
			Kind:               kind,
			ChunkShape:         shapeplan.Shape(dataset.ChunkShape),
			BufferShape:        shapeplan.Shape(dataset.BufferShape),
			CompressionMethod:  dataset.CompressionMethod,
			CompressionOptions: dataset.CompressionOptions,
			Catalog:            configuration.Catalog(),
		})
		if err != nil {
			return nil, fmt.Errorf("snapshot dataset %s: %w", dataset.Location, err)
		}
		if err := configuration.Set(dataset.Location, d); err != nil {
			return nil, err
		}
	}

	// Job counts are machine-relative; a snapshot written on a larger
	// machine falls back to this machine's default.
	if kind == compression.KindZarr {
		if payload.NumberOfJobs >= 1 && payload.NumberOfJobs <= availableCPUs() {
			configuration.numberOfJobs = payload.NumberOfJobs
		} else {
			configuration.numberOfJobs = defaultJobs()
		}
	}
	return configuration, nil
}
