// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package shapeplan computes default chunk and buffer shapes for
// arrays destined for a container dataset. A chunk is the tile that
// is compressed and stored as one unit on disk; a buffer is the slab
// held in memory while iteratively writing an array larger than RAM.
//
// Both estimates use the same rank-aware greedy growth: start from a
// unit shape and repeatedly double the axis with the most remaining
// room, until the shape's byte volume reaches a target size or every
// axis is saturated at the full extent. The defaults target roughly
// 10 MB chunks and 500 MB buffers.
package shapeplan

import (
	"fmt"
	"math"
)

const (
	// DefaultChunkTargetBytes is the default on-disk chunk size
	// target. Around 10 MB balances compression ratio against the
	// cost of partial-chunk reads.
	DefaultChunkTargetBytes int64 = 10_000_000

	// DefaultBufferTargetBytes is the default in-memory staging size
	// target used while writing. Around 500 MB keeps write batches
	// large without exhausting RAM on commodity machines.
	DefaultBufferTargetBytes int64 = 500_000_000
)

// Shape is an array extent, one entry per axis. Entries are element
// counts, not bytes. A zero entry marks an empty axis; negative
// entries are invalid.
type Shape []int64

// Clone returns an independent copy. Cloning a nil shape stays nil.
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// Equal reports whether two shapes have the same rank and extents.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Volume returns the element count, the product of all extents.
// Saturates at math.MaxInt64 instead of overflowing.
func (s Shape) Volume() int64 {
	volume := int64(1)
	for _, extent := range s {
		if extent == 0 {
			return 0
		}
		if volume > math.MaxInt64/extent {
			return math.MaxInt64
		}
		volume *= extent
	}
	return volume
}

// InvalidShapeError reports a shape or element width that cannot be
// estimated: a negative full-shape extent, a chunk extent below one,
// or a non-positive per-element byte width. (A zero extent in the full
// shape is legal: it marks an empty axis, and estimation passes empty
// shapes through unchanged.)
type InvalidShapeError struct {
	// Shape is the offending shape.
	Shape Shape
	// Axis is the offending axis index, or -1 when the element width
	// is at fault.
	Axis int
	// ElementSize is the per-element byte width that was supplied.
	ElementSize int64
}

func (e *InvalidShapeError) Error() string {
	if e.Axis >= 0 {
		return fmt.Sprintf("invalid shape %v: extent %d on axis %d", e.Shape, e.Shape[e.Axis], e.Axis)
	}
	return fmt.Sprintf("invalid shape %v: non-positive element width %d bytes", e.Shape, e.ElementSize)
}

// validate checks the full shape and element width shared by both
// estimators.
func validate(full Shape, elementSize int64) error {
	for axis, extent := range full {
		if extent < 0 {
			return &InvalidShapeError{Shape: full.Clone(), Axis: axis, ElementSize: elementSize}
		}
	}
	if elementSize <= 0 {
		return &InvalidShapeError{Shape: full.Clone(), Axis: -1, ElementSize: elementSize}
	}
	return nil
}

// EstimateChunkShape computes a chunk shape for an array of the given
// full shape and per-element byte width, aiming for targetBytes per
// chunk. Empty arrays (any zero extent) are returned unchanged: there
// is nothing to grow, and callers treat such shapes as valid but
// non-actionable.
func EstimateChunkShape(full Shape, elementSize int64, targetBytes int64) (Shape, error) {
	if err := validate(full, elementSize); err != nil {
		return nil, err
	}
	if full.Volume() == 0 {
		return full.Clone(), nil
	}

	shape := make(Shape, len(full))
	for i := range shape {
		shape[i] = 1
	}
	grow(shape, full, elementSize, targetBytes)
	return shape, nil
}

// EstimateBufferShape computes a buffer shape at least as large as
// chunk on every axis, aiming for targetBytes, then rounds each axis
// that is not already the full extent up to an exact multiple of the
// chunk extent. The chunk shape must come from EstimateChunkShape (or
// otherwise satisfy 0 < chunk[i] <= full[i]).
func EstimateBufferShape(full, chunk Shape, elementSize int64, targetBytes int64) (Shape, error) {
	if err := validate(full, elementSize); err != nil {
		return nil, err
	}
	if full.Volume() == 0 {
		return full.Clone(), nil
	}
	if len(chunk) != len(full) {
		return nil, fmt.Errorf("chunk shape %v has rank %d, full shape %v has rank %d",
			chunk, len(chunk), full, len(full))
	}
	// Chunk extents come from the caller (a lazy source's hint, not
	// necessarily EstimateChunkShape), so they are not trusted: a zero
	// extent would make the growth loop spin forever.
	for axis, extent := range chunk {
		if extent < 1 {
			return nil, &InvalidShapeError{Shape: chunk.Clone(), Axis: axis, ElementSize: elementSize}
		}
	}

	shape := chunk.Clone()
	grow(shape, full, elementSize, targetBytes)

	// Round up to a whole number of chunks on every axis that is not
	// already whole-array, so the writer never stages a partial chunk
	// except at the trailing edge of the array itself.
	for i := range shape {
		if shape[i] == full[i] {
			continue
		}
		snapped := ((shape[i] + chunk[i] - 1) / chunk[i]) * chunk[i]
		if snapped > full[i] {
			snapped = full[i]
		}
		shape[i] = snapped
	}
	return shape, nil
}

// EstimateShapes runs both estimators with the default targets.
func EstimateShapes(full Shape, elementSize int64) (chunk, buffer Shape, err error) {
	chunk, err = EstimateChunkShape(full, elementSize, DefaultChunkTargetBytes)
	if err != nil {
		return nil, nil, err
	}
	buffer, err = EstimateBufferShape(full, chunk, elementSize, DefaultBufferTargetBytes)
	if err != nil {
		return nil, nil, err
	}
	return chunk, buffer, nil
}

// grow doubles one axis at a time, always the axis with the most
// remaining headroom relative to full, until the byte volume reaches
// targetBytes or every axis is saturated. Mutates shape in place.
func grow(shape, full Shape, elementSize, targetBytes int64) {
	for {
		if shape.Volume() >= math.MaxInt64/elementSize || shape.Volume()*elementSize >= targetBytes {
			return
		}

		// Pick the axis where shape[i]/full[i] is smallest, compared
		// cross-multiplied to stay in integers. Ties go to the lower
		// axis index, which keeps the result deterministic.
		axis := -1
		for i := range shape {
			if shape[i] >= full[i] {
				continue
			}
			if axis == -1 || headroomLess(shape[i], full[i], shape[axis], full[axis]) {
				axis = i
			}
		}
		if axis == -1 {
			return // every axis saturated
		}

		doubled := shape[axis] * 2
		if doubled > full[axis] {
			doubled = full[axis]
		}
		shape[axis] = doubled
	}
}

// headroomLess reports whether a/fullA < b/fullB without floating
// point: the axis with the smaller filled fraction has more room.
func headroomLess(a, fullA, b, fullB int64) bool {
	return a*fullB < b*fullA
}
