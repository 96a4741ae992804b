// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package descriptor defines the validated storage-layout record for
// one dataset: where it lives in the container, its element type and
// full extent, and the chunking and compression that will be applied
// when it is written.
//
// A Descriptor is an immutable value. Identity fields (object ID,
// location, dataset name, dtype, full shape, backend kind) are fixed
// at construction; chunking and compression change only through the
// With* builders, each of which validates the complete invariant set
// before returning a new instance. A failed builder call leaves the
// receiver untouched, so an invalid layout is never observable.
package descriptor

import (
	"fmt"
	"strings"

	"github.com/chunkforge/chunkforge/lib/compression"
	"github.com/chunkforge/chunkforge/lib/dtype"
	"github.com/chunkforge/chunkforge/lib/shapeplan"
)

// Dataset names form a closed set: containers store the payload array
// under "data" and its time axis under "timestamps".
const (
	NameData       = "data"
	NameTimestamps = "timestamps"
)

// validNames is consulted by validation; extend here if the container
// schema ever grows a third array field.
var validNames = map[string]struct{}{
	NameData:       {},
	NameTimestamps: {},
}

// ShapeMismatchError reports a chunk/buffer/full shape conflict. Axis
// is -1 for rank mismatches; otherwise it names the offending axis,
// and the two shape fields in conflict are carried verbatim.
type ShapeMismatchError struct {
	Axis       int
	InnerField string
	InnerShape shapeplan.Shape
	OuterField string
	OuterShape shapeplan.Shape
	// Reason distinguishes the violated rule: "exceeds",
	// "not a multiple of", or "rank differs from".
	Reason string
}

func (e *ShapeMismatchError) Error() string {
	if e.Axis < 0 {
		return fmt.Sprintf("%s %v %s %s %v",
			e.InnerField, e.InnerShape, e.Reason, e.OuterField, e.OuterShape)
	}
	return fmt.Sprintf("%s %v %s %s %v on axis %d",
		e.InnerField, e.InnerShape, e.Reason, e.OuterField, e.OuterShape, e.Axis)
}

// Params carries every field for direct construction via New. Using a
// struct rather than positional parameters keeps call sites readable
// and lets defaults be zero values.
type Params struct {
	// ObjectID is the opaque identifier of the in-memory entity that
	// owns the array. Frozen after construction.
	ObjectID string

	// Location is the slash-delimited in-container path, e.g.
	// "acquisition/Series/data". Its final segment must equal
	// DatasetName. Frozen after construction.
	Location string

	// DatasetName is "data" or "timestamps". Frozen.
	DatasetName string

	// Dtype is the element type; must not be the unclassified object
	// kind. Frozen.
	Dtype dtype.Dtype

	// FullShape is the total array extent. Frozen.
	FullShape shapeplan.Shape

	// Kind tags the backend the descriptor is built for.
	Kind compression.BackendKind

	// ChunkShape and BufferShape are the mutable layout choice.
	ChunkShape  shapeplan.Shape
	BufferShape shapeplan.Shape

	// CompressionMethod must resolve in the Kind's catalog (or be
	// "none"). Ignored when CodecOverride is set.
	CompressionMethod string

	// CompressionOptions is an open bag interpreted by the resolved
	// codec.
	CompressionOptions map[string]any

	// CodecOverride attaches an already-instantiated codec,
	// bypassing name resolution. This is the only way to use a lossy
	// or out-of-catalog codec.
	CodecOverride compression.Codec

	// Catalog validates CompressionMethod. Nil means the Kind's
	// provider-free default catalog; pass a provider-extended
	// catalog to allow its contributed method names.
	Catalog *compression.Catalog
}

// Descriptor is the validated storage configuration for one dataset.
// The zero value is not usable; construct with New or FromDefaults.
type Descriptor struct {
	objectID    string
	location    string
	datasetName string
	elementType dtype.Dtype
	fullShape   shapeplan.Shape
	kind        compression.BackendKind

	chunkShape         shapeplan.Shape
	bufferShape        shapeplan.Shape
	compressionMethod  string
	compressionOptions map[string]any
	codecOverride      compression.Codec

	// catalog is the resolution scope for compressionMethod; nil
	// means the kind's default catalog.
	catalog *compression.Catalog
}

// New constructs a Descriptor from explicit fields and runs the full
// invariant check. Shape violations fail with ShapeMismatchError;
// unresolvable compression methods fail with
// compression.UnknownCompressionMethodError.
func New(params Params) (*Descriptor, error) {
	d := &Descriptor{
		objectID:           params.ObjectID,
		location:           params.Location,
		datasetName:        params.DatasetName,
		elementType:        params.Dtype,
		fullShape:          params.FullShape.Clone(),
		kind:               params.Kind,
		chunkShape:         params.ChunkShape.Clone(),
		bufferShape:        params.BufferShape.Clone(),
		compressionMethod:  params.CompressionMethod,
		compressionOptions: copyOptions(params.CompressionOptions),
		codecOverride:      params.CodecOverride,
		catalog:            params.Catalog,
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// FromDefaults constructs a Descriptor with estimated chunk and
// buffer shapes (default size targets) and "generic-lossless"
// compression. Estimation is deterministic: identical inputs yield
// identical descriptors.
func FromDefaults(kind compression.BackendKind, objectID, location, datasetName string, fullShape shapeplan.Shape, elementType dtype.Dtype) (*Descriptor, error) {
	width, err := elementType.ByteSize()
	if err != nil {
		return nil, fmt.Errorf("descriptor for %s: %w", location, err)
	}
	chunk, buffer, err := shapeplan.EstimateShapes(fullShape, int64(width))
	if err != nil {
		return nil, fmt.Errorf("descriptor for %s: %w", location, err)
	}
	return New(Params{
		ObjectID:          objectID,
		Location:          location,
		DatasetName:       datasetName,
		Dtype:             elementType,
		FullShape:         fullShape,
		Kind:              kind,
		ChunkShape:        chunk,
		BufferShape:       buffer,
		CompressionMethod: compression.MethodGenericLossless,
	})
}

// validate enforces the full invariant set. Called on construction
// and by every With* builder before the new instance escapes.
func (d *Descriptor) validate() error {
	if _, ok := validNames[d.datasetName]; !ok {
		return fmt.Errorf("dataset name %q is not one of the known array fields (data, timestamps)", d.datasetName)
	}
	segments := strings.Split(d.location, "/")
	if last := segments[len(segments)-1]; last != d.datasetName {
		return fmt.Errorf("location %q must end in the dataset name %q, not %q", d.location, d.datasetName, last)
	}
	if d.elementType.IsObject() {
		return fmt.Errorf("descriptor for %s: object dtype must be classified before construction", d.location)
	}
	for axis, extent := range d.fullShape {
		if extent < 0 {
			return fmt.Errorf("full shape %v has negative extent on axis %d", d.fullShape, axis)
		}
	}

	if len(d.chunkShape) != len(d.fullShape) {
		return &ShapeMismatchError{
			Axis:       -1,
			InnerField: "chunk_shape", InnerShape: d.chunkShape.Clone(),
			OuterField: "full_shape", OuterShape: d.fullShape.Clone(),
			Reason: "rank differs from",
		}
	}
	if len(d.bufferShape) != len(d.fullShape) {
		return &ShapeMismatchError{
			Axis:       -1,
			InnerField: "buffer_shape", InnerShape: d.bufferShape.Clone(),
			OuterField: "full_shape", OuterShape: d.fullShape.Clone(),
			Reason: "rank differs from",
		}
	}

	// Empty arrays carry their full shape through unchanged and skip
	// the per-axis ordering rules: there is no data to tile.
	if d.fullShape.Volume() == 0 {
		return nil
	}

	for axis := range d.fullShape {
		chunk, buffer, full := d.chunkShape[axis], d.bufferShape[axis], d.fullShape[axis]
		if chunk < 1 {
			return &ShapeMismatchError{
				Axis:       axis,
				InnerField: "chunk_shape", InnerShape: d.chunkShape.Clone(),
				OuterField: "full_shape", OuterShape: d.fullShape.Clone(),
				Reason: "has non-positive extent against",
			}
		}
		if chunk > buffer {
			return &ShapeMismatchError{
				Axis:       axis,
				InnerField: "chunk_shape", InnerShape: d.chunkShape.Clone(),
				OuterField: "buffer_shape", OuterShape: d.bufferShape.Clone(),
				Reason: "exceeds",
			}
		}
		if buffer > full {
			return &ShapeMismatchError{
				Axis:       axis,
				InnerField: "buffer_shape", InnerShape: d.bufferShape.Clone(),
				OuterField: "full_shape", OuterShape: d.fullShape.Clone(),
				Reason: "exceeds",
			}
		}
		if buffer != full && buffer%chunk != 0 {
			return &ShapeMismatchError{
				Axis:       axis,
				InnerField: "buffer_shape", InnerShape: d.bufferShape.Clone(),
				OuterField: "chunk_shape", OuterShape: d.chunkShape.Clone(),
				Reason: "not a multiple of",
			}
		}
	}

	if d.codecOverride == nil {
		catalog := d.catalog
		if catalog == nil {
			catalog = compression.Default(d.kind)
		}
		if _, err := catalog.Resolve(d.compressionMethod); err != nil {
			return err
		}
	}
	return nil
}

// clone returns a deep copy for the With* builders to mutate.
func (d *Descriptor) clone() *Descriptor {
	copied := *d
	copied.fullShape = d.fullShape.Clone()
	copied.chunkShape = d.chunkShape.Clone()
	copied.bufferShape = d.bufferShape.Clone()
	copied.compressionOptions = copyOptions(d.compressionOptions)
	return &copied
}

// WithChunkShape returns a copy with the given chunk shape, or fails
// without touching the receiver.
func (d *Descriptor) WithChunkShape(chunk shapeplan.Shape) (*Descriptor, error) {
	copied := d.clone()
	copied.chunkShape = chunk.Clone()
	if err := copied.validate(); err != nil {
		return nil, err
	}
	return copied, nil
}

// WithBufferShape returns a copy with the given buffer shape.
func (d *Descriptor) WithBufferShape(buffer shapeplan.Shape) (*Descriptor, error) {
	copied := d.clone()
	copied.bufferShape = buffer.Clone()
	if err := copied.validate(); err != nil {
		return nil, err
	}
	return copied, nil
}

// WithShapes returns a copy with both shapes replaced atomically. Use
// this when the new chunk would conflict with the old buffer or vice
// versa.
func (d *Descriptor) WithShapes(chunk, buffer shapeplan.Shape) (*Descriptor, error) {
	copied := d.clone()
	copied.chunkShape = chunk.Clone()
	copied.bufferShape = buffer.Clone()
	if err := copied.validate(); err != nil {
		return nil, err
	}
	return copied, nil
}

// WithCompression returns a copy using the named method and options,
// clearing any codec override.
func (d *Descriptor) WithCompression(method string, options map[string]any) (*Descriptor, error) {
	copied := d.clone()
	copied.compressionMethod = method
	copied.compressionOptions = copyOptions(options)
	copied.codecOverride = nil
	if err := copied.validate(); err != nil {
		return nil, err
	}
	return copied, nil
}

// WithCodecOverride returns a copy carrying an instantiated codec
// that bypasses catalog resolution. The explicit opt-in for lossy or
// out-of-catalog codecs.
func (d *Descriptor) WithCodecOverride(codec compression.Codec) (*Descriptor, error) {
	copied := d.clone()
	copied.codecOverride = codec
	if err := copied.validate(); err != nil {
		return nil, err
	}
	return copied, nil
}

// Accessors. Shapes and option bags are returned as copies so a
// caller cannot mutate a validated descriptor from outside.

func (d *Descriptor) ObjectID() string { return d.objectID }

func (d *Descriptor) Location() string { return d.location }

func (d *Descriptor) DatasetName() string { return d.datasetName }

func (d *Descriptor) Dtype() dtype.Dtype { return d.elementType }

func (d *Descriptor) Kind() compression.BackendKind { return d.kind }

func (d *Descriptor) FullShape() shapeplan.Shape { return d.fullShape.Clone() }

func (d *Descriptor) ChunkShape() shapeplan.Shape { return d.chunkShape.Clone() }

func (d *Descriptor) BufferShape() shapeplan.Shape { return d.bufferShape.Clone() }

func (d *Descriptor) CompressionMethod() string { return d.compressionMethod }

func (d *Descriptor) CompressionOptions() map[string]any {
	return copyOptions(d.compressionOptions)
}

func (d *Descriptor) CodecOverride() compression.Codec { return d.codecOverride }

// FullBytes returns the total array footprint in bytes.
func (d *Descriptor) FullBytes() int64 { return d.byteVolume(d.fullShape) }

// ChunkBytes returns the on-disk chunk footprint in bytes.
func (d *Descriptor) ChunkBytes() int64 { return d.byteVolume(d.chunkShape) }

// BufferBytes returns the in-memory staging footprint in bytes.
func (d *Descriptor) BufferBytes() int64 { return d.byteVolume(d.bufferShape) }

func (d *Descriptor) byteVolume(shape shapeplan.Shape) int64 {
	width, err := d.elementType.ByteSize()
	if err != nil {
		return 0
	}
	return shape.Volume() * int64(width)
}

// IOArguments builds the backend-specific keyword bundle for this
// descriptor via the given catalog (pass nil for the kind's default
// catalog).
func (d *Descriptor) IOArguments(catalog *compression.Catalog) (map[string]any, error) {
	if catalog == nil {
		catalog = d.catalog
	}
	if catalog == nil {
		catalog = compression.Default(d.kind)
	}
	return catalog.BuildIOArguments(d.chunkShape, d.compressionMethod, d.compressionOptions, d.codecOverride)
}

func copyOptions(options map[string]any) map[string]any {
	if options == nil {
		return nil
	}
	copied := make(map[string]any, len(options))
	for key, value := range options {
		copied[key] = value
	}
	return copied
}
