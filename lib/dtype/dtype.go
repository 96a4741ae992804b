// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package dtype describes the element type of an array destined for a
// container dataset. A Dtype pairs a basic kind with a byte width and
// is the sole source of per-element size arithmetic for chunk and
// buffer estimation.
//
// Two textual forms are accepted by Parse: plain Go-style names
// ("float64", "int32", "bool") and NumPy typestrs ("<f8", "|u1",
// "|S16"). Both render back through String as the canonical plain
// name, so a parsed Dtype always round-trips.
package dtype

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind is the basic element category. The set is closed: container
// backends only understand fixed-width numeric data, fixed-width
// strings, and the special object kind for heterogeneous arrays that
// have not yet been classified.
type Kind uint8

const (
	// Bool is a one-byte boolean.
	Bool Kind = iota
	// Int is a signed integer of Size bytes.
	Int
	// Uint is an unsigned integer of Size bytes.
	Uint
	// Float is an IEEE 754 float of Size bytes.
	Float
	// String is a fixed-width byte string of Size bytes per element.
	String
	// Object marks a heterogeneous array whose elements have not been
	// classified. Object arrays have no byte width; they must be
	// classified (see ClassifyObjectElements) before estimation.
	Object
)

// Dtype is an array element type: a kind plus a per-element byte
// width. The zero value is a one-byte Bool; use Parse or the
// constructors below for anything else.
type Dtype struct {
	Kind Kind
	// Size is the per-element width in bytes. Zero for Object.
	Size int
}

// Common fixed-width types.
var (
	BoolType    = Dtype{Kind: Bool, Size: 1}
	Int8Type    = Dtype{Kind: Int, Size: 1}
	Int16Type   = Dtype{Kind: Int, Size: 2}
	Int32Type   = Dtype{Kind: Int, Size: 4}
	Int64Type   = Dtype{Kind: Int, Size: 8}
	Uint8Type   = Dtype{Kind: Uint, Size: 1}
	Uint16Type  = Dtype{Kind: Uint, Size: 2}
	Uint32Type  = Dtype{Kind: Uint, Size: 4}
	Uint64Type  = Dtype{Kind: Uint, Size: 8}
	Float32Type = Dtype{Kind: Float, Size: 4}
	Float64Type = Dtype{Kind: Float, Size: 8}
	ObjectType  = Dtype{Kind: Object}
)

// FixedString returns a fixed-width string type holding width bytes
// per element.
func FixedString(width int) Dtype {
	return Dtype{Kind: String, Size: width}
}

// String renders the canonical plain name ("float64", "uint8",
// "string16", "object").
func (d Dtype) String() string {
	switch d.Kind {
	case Bool:
		return "bool"
	case Int:
		return fmt.Sprintf("int%d", d.Size*8)
	case Uint:
		return fmt.Sprintf("uint%d", d.Size*8)
	case Float:
		return fmt.Sprintf("float%d", d.Size*8)
	case String:
		return fmt.Sprintf("string%d", d.Size)
	case Object:
		return "object"
	default:
		return fmt.Sprintf("unknown(%d)", d.Kind)
	}
}

// IsObject reports whether the type is the unclassified object kind.
func (d Dtype) IsObject() bool { return d.Kind == Object }

// ByteSize returns the per-element width in bytes. Object types have
// no width and return an error; classify them first.
func (d Dtype) ByteSize() (int, error) {
	if d.Kind == Object {
		return 0, fmt.Errorf("object dtype has no byte width: classify the array first")
	}
	if d.Size <= 0 {
		return 0, fmt.Errorf("dtype %s: non-positive byte width %d", d, d.Size)
	}
	return d.Size, nil
}

// plainNames maps plain-name spellings to their types. "str" with no
// width is not listed: fixed-width strings need an explicit width.
var plainNames = map[string]Dtype{
	"bool":    BoolType,
	"int8":    Int8Type,
	"int16":   Int16Type,
	"int32":   Int32Type,
	"int64":   Int64Type,
	"uint8":   Uint8Type,
	"uint16":  Uint16Type,
	"uint32":  Uint32Type,
	"uint64":  Uint64Type,
	"float32": Float32Type,
	"float64": Float64Type,
	"object":  ObjectType,
}

// Parse accepts a plain name ("float64", "string16", "object") or a
// NumPy typestr ("<f8", "|u1", "|S16", "|O"). Byte order characters
// in typestrs are accepted and discarded: the layout subsystem only
// needs widths, not endianness.
func Parse(s string) (Dtype, error) {
	if d, ok := plainNames[s]; ok {
		return d, nil
	}
	if width, ok := strings.CutPrefix(s, "string"); ok {
		n, err := strconv.Atoi(width)
		if err != nil || n <= 0 {
			return Dtype{}, fmt.Errorf("invalid string dtype %q: width must be a positive integer", s)
		}
		return FixedString(n), nil
	}
	return parseTypestr(s)
}

// parseTypestr handles the NumPy array-protocol type string: one byte
// order character ("<", ">", "|"), one kind character, and a decimal
// byte count. "|O" (object) carries no count.
func parseTypestr(s string) (Dtype, error) {
	if len(s) < 2 {
		return Dtype{}, fmt.Errorf("invalid dtype %q: too short", s)
	}
	switch s[0] {
	case '<', '>', '|':
	default:
		return Dtype{}, fmt.Errorf("invalid dtype %q: unknown byte order %q", s, s[0])
	}

	kindChar := s[1]
	if kindChar == 'O' {
		return ObjectType, nil
	}
	if len(s) < 3 {
		return Dtype{}, fmt.Errorf("invalid dtype %q: missing byte count", s)
	}
	size, err := strconv.Atoi(s[2:])
	if err != nil || size <= 0 {
		return Dtype{}, fmt.Errorf("invalid dtype %q: bad byte count %q", s, s[2:])
	}

	switch kindChar {
	case 'b':
		return BoolType, nil
	case 'i':
		return Dtype{Kind: Int, Size: size}, nil
	case 'u':
		return Dtype{Kind: Uint, Size: size}, nil
	case 'f':
		return Dtype{Kind: Float, Size: size}, nil
	case 'S':
		return FixedString(size), nil
	default:
		return Dtype{}, fmt.Errorf("invalid dtype %q: unsupported kind %q", s, kindChar)
	}
}

// UnsupportedDtypeError reports an object array whose elements are
// not uniformly textual. Compound object arrays are an accepted
// limitation of the layout subsystem: there is no serialization
// strategy for them, so classification refuses rather than guessing.
type UnsupportedDtypeError struct {
	// ElementTypes lists the distinct Go type names observed in the
	// array, sorted.
	ElementTypes []string
}

func (e *UnsupportedDtypeError) Error() string {
	return fmt.Sprintf("object array elements are not uniformly textual (found %s): compound object arrays are not supported",
		strings.Join(e.ElementTypes, ", "))
}

// ClassifyObjectElements decides what an object-dtype array really
// holds. If every element is a string, the array is treated as a
// fixed-width string array sized to the longest element (minimum one
// byte, so empty string arrays still have a width). Anything else
// fails with UnsupportedDtypeError listing the element types found.
func ClassifyObjectElements(elements []any) (Dtype, error) {
	width := 1
	types := map[string]struct{}{}
	textual := true
	for _, element := range elements {
		s, ok := element.(string)
		if !ok {
			textual = false
			types[fmt.Sprintf("%T", element)] = struct{}{}
			continue
		}
		if len(s) > width {
			width = len(s)
		}
	}
	if !textual {
		names := make([]string, 0, len(types))
		for name := range types {
			names = append(names, name)
		}
		sort.Strings(names)
		return Dtype{}, &UnsupportedDtypeError{ElementTypes: names}
	}
	return FixedString(width), nil
}
