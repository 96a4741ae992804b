// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package graph defines the contract between the conversion
// pipeline's in-memory object graph and the layout subsystem. The
// pipeline owns the graph; layout only reads it: node names form the
// in-container path, and array fields become dataset descriptors.
//
// StaticNode and StaticArray are ready-made implementations for
// embedders whose graphs are already materialized, and for tests.
package graph

import (
	"github.com/chunkforge/chunkforge/lib/dtype"
	"github.com/chunkforge/chunkforge/lib/shapeplan"
)

// ArraySource is one array field of a node, destined for disk under
// the node's path. Implementations must report a stable shape and
// dtype for the duration of configuration and apply.
type ArraySource interface {
	// Name is the dataset name, "data" or "timestamps".
	Name() string

	// Shape is the full array extent.
	Shape() shapeplan.Shape

	// Dtype is the element type. Object-dtype sources must also
	// implement ObjectSource so their elements can be classified.
	Dtype() dtype.Dtype
}

// ChunkedSource is implemented by lazily-iterated sources that are
// already chunked upstream. Their hints are adopted directly instead
// of re-estimated, so the write path consumes the source in its
// native chunking. A nil hint falls back to estimation.
type ChunkedSource interface {
	ArraySource

	// ChunkShapeHint is the source's native chunk shape, or nil.
	ChunkShapeHint() shapeplan.Shape

	// BufferShapeHint is the source's preferred staging shape, or
	// nil.
	BufferShapeHint() shapeplan.Shape
}

// ObjectSource exposes the elements of an object-dtype array so the
// builder can classify them (uniformly textual arrays become string
// arrays; anything else is unsupported).
type ObjectSource interface {
	ArraySource

	// Elements returns every element of the array.
	Elements() []any
}

// Node is one entity in the object graph. The node's name is a path
// segment; the path from the root to a node, joined with slashes,
// is the in-container location of its arrays.
type Node interface {
	// ID is the opaque identifier of the owning entity, stable
	// between configuration and apply.
	ID() string

	// Name is this node's path segment. The root node may return ""
	// to keep itself out of locations.
	Name() string

	// Children returns the child entities, in traversal order.
	Children() []Node

	// Arrays returns the node's array fields.
	Arrays() []ArraySource
}

// StaticArray is a materialized ArraySource.
type StaticArray struct {
	ArrayName    string
	ArrayShape   shapeplan.Shape
	ArrayDtype   dtype.Dtype
	ChunkHint    shapeplan.Shape
	BufferHint   shapeplan.Shape
	ObjectValues []any
}

func (a *StaticArray) Name() string { return a.ArrayName }

func (a *StaticArray) Shape() shapeplan.Shape { return a.ArrayShape.Clone() }

func (a *StaticArray) Dtype() dtype.Dtype { return a.ArrayDtype }

func (a *StaticArray) ChunkShapeHint() shapeplan.Shape { return a.ChunkHint.Clone() }

func (a *StaticArray) BufferShapeHint() shapeplan.Shape { return a.BufferHint.Clone() }

func (a *StaticArray) Elements() []any { return a.ObjectValues }

// StaticNode is a materialized Node.
type StaticNode struct {
	NodeID     string
	NodeName   string
	NodeChilds []*StaticNode
	NodeArrays []*StaticArray
}

func (n *StaticNode) ID() string   { return n.NodeID }
func (n *StaticNode) Name() string { return n.NodeName }

func (n *StaticNode) Children() []Node {
	children := make([]Node, len(n.NodeChilds))
	for i, child := range n.NodeChilds {
		children[i] = child
	}
	return children
}

func (n *StaticNode) Arrays() []ArraySource {
	arrays := make([]ArraySource, len(n.NodeArrays))
	for i, array := range n.NodeArrays {
		arrays[i] = array
	}
	return arrays
}
