// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"fmt"
	"log/slog"

	"github.com/chunkforge/chunkforge/lib/compression"
	"github.com/chunkforge/chunkforge/lib/descriptor"
	"github.com/chunkforge/chunkforge/lib/dtype"
	"github.com/chunkforge/chunkforge/lib/graph"
	"github.com/chunkforge/chunkforge/lib/shapeplan"
)

// BuildOption tunes FromObjectGraph.
type BuildOption func(*builder)

// WithProviders adds codec providers to the configuration's catalog.
func WithProviders(providers ...compression.Provider) BuildOption {
	return func(b *builder) { b.providers = append(b.providers, providers...) }
}

// WithTargets overrides the default chunk and buffer byte targets
// used for estimation.
func WithTargets(chunkBytes, bufferBytes int64) BuildOption {
	return func(b *builder) {
		b.chunkTargetBytes = chunkBytes
		b.bufferTargetBytes = bufferBytes
	}
}

// WithDefaultCompression overrides the method assigned to discovered
// datasets (default "generic-lossless").
func WithDefaultCompression(method string) BuildOption {
	return func(b *builder) { b.defaultMethod = method }
}

// WithLogger attaches a logger for per-dataset discovery debug lines.
func WithLogger(logger *slog.Logger) BuildOption {
	return func(b *builder) { b.logger = logger }
}

type builder struct {
	kind              compression.BackendKind
	providers         []compression.Provider
	chunkTargetBytes  int64
	bufferTargetBytes int64
	defaultMethod     string
	logger            *slog.Logger

	configuration *Configuration
}

// FromObjectGraph walks the pipeline's object graph once, top-down,
// and produces a default descriptor for every array field it finds.
// The location of each dataset is the slash-joined path of node names
// from the root (empty names contribute no segment) plus the array's
// own name, so no back-references through the graph are needed.
//
// Lazily-chunked sources (graph.ChunkedSource) have their shape hints
// adopted directly instead of re-estimated; object-dtype arrays are
// classified via graph.ObjectSource (uniformly textual elements
// become a string array, anything else fails with
// dtype.UnsupportedDtypeError). A graph with no array fields at all
// fails with NoWritableDatasetsError.
func FromObjectGraph(root graph.Node, kind compression.BackendKind, options ...BuildOption) (*Configuration, error) {
	b := &builder{
		kind:              kind,
		chunkTargetBytes:  shapeplan.DefaultChunkTargetBytes,
		bufferTargetBytes: shapeplan.DefaultBufferTargetBytes,
		defaultMethod:     compression.MethodGenericLossless,
		logger:            slog.Default(),
	}
	for _, option := range options {
		option(b)
	}
	b.configuration = New(kind, b.providers...)

	if err := b.walk(root, ""); err != nil {
		return nil, err
	}
	if b.configuration.Len() == 0 {
		return nil, &NoWritableDatasetsError{Root: root.ID()}
	}
	return b.configuration, nil
}

// walk visits one node with the path accumulated so far.
func (b *builder) walk(node graph.Node, prefix string) error {
	path := joinLocation(prefix, node.Name())

	for _, array := range node.Arrays() {
		if err := b.discover(node, array, path); err != nil {
			return err
		}
	}
	for _, child := range node.Children() {
		if err := b.walk(child, path); err != nil {
			return err
		}
	}
	return nil
}

// discover builds the descriptor for one array field.
func (b *builder) discover(node graph.Node, array graph.ArraySource, nodePath string) error {
	location := joinLocation(nodePath, array.Name())
	if _, exists := b.configuration.Get(location); exists {
		return fmt.Errorf("duplicate dataset location %q in object graph", location)
	}

	elementType := array.Dtype()
	if elementType.IsObject() {
		objectSource, ok := array.(graph.ObjectSource)
		if !ok {
			return fmt.Errorf("dataset %s: object dtype source does not expose its elements", location)
		}
		classified, err := dtype.ClassifyObjectElements(objectSource.Elements())
		if err != nil {
			return fmt.Errorf("dataset %s: %w", location, err)
		}
		elementType = classified
	}

	width, err := elementType.ByteSize()
	if err != nil {
		return fmt.Errorf("dataset %s: %w", location, err)
	}

	full := array.Shape()
	chunk, buffer, err := b.planShapes(array, full, int64(width))
	if err != nil {
		return fmt.Errorf("dataset %s: %w", location, err)
	}

	d, err := descriptor.New(descriptor.Params{
		ObjectID:          node.ID(),
		Location:          location,
		DatasetName:       array.Name(),
		Dtype:             elementType,
		FullShape:         full,
		Kind:              b.kind,
		ChunkShape:        chunk,
		BufferShape:       buffer,
		CompressionMethod: b.defaultMethod,
		Catalog:           b.configuration.Catalog(),
	})
	if err != nil {
		return fmt.Errorf("dataset %s: %w", location, err)
	}
	if err := b.configuration.Set(location, d); err != nil {
		return err
	}

	b.logger.Debug("discovered dataset",
		"location", location,
		"dtype", elementType.String(),
		"full_shape", fmt.Sprint(full),
		"chunk_shape", fmt.Sprint(chunk),
		"buffer_shape", fmt.Sprint(buffer))
	return nil
}

// planShapes adopts the source's own chunking hints when present and
// estimates the rest.
func (b *builder) planShapes(array graph.ArraySource, full shapeplan.Shape, width int64) (chunk, buffer shapeplan.Shape, err error) {
	if chunked, ok := array.(graph.ChunkedSource); ok {
		chunk = chunked.ChunkShapeHint()
		buffer = chunked.BufferShapeHint()
	}
	if len(chunk) == 0 {
		chunk, err = shapeplan.EstimateChunkShape(full, width, b.chunkTargetBytes)
		if err != nil {
			return nil, nil, err
		}
	}
	if len(buffer) == 0 {
		buffer, err = shapeplan.EstimateBufferShape(full, chunk, width, b.bufferTargetBytes)
		if err != nil {
			return nil, nil, err
		}
	}
	return chunk, buffer, nil
}

// joinLocation appends a path segment, skipping empty segments so an
// unnamed root contributes nothing.
func joinLocation(prefix, segment string) string {
	if segment == "" {
		return prefix
	}
	if prefix == "" {
		return segment
	}
	return prefix + "/" + segment
}
