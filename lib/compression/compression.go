// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package compression resolves compression method names to concrete
// codecs, one catalog per backend kind. A catalog starts from the
// backend's native codec set, subtracts a deny list of filters that
// the container layer already applies (or that are lossy), and merges
// in any codecs contributed by external providers. It is also the
// only place backend-specific I/O vocabulary appears: everything
// upstream of BuildIOArguments is backend-agnostic.
package compression

import (
	"fmt"
	"sort"
	"strings"
)

// BackendKind selects the target container technology. The set is
// closed: every descriptor and configuration is tagged with exactly
// one kind, and the kind decides which catalog and which I/O argument
// vocabulary apply.
type BackendKind uint8

const (
	// KindHDF5 targets an HDF5-like container: datasets carry
	// {chunks, compression, compression_opts} creation arguments.
	KindHDF5 BackendKind = iota

	// KindZarr targets a Zarr-like container: arrays carry
	// {chunks, compressor, filters} creation arguments.
	KindZarr
)

// String returns the lowercase kind name.
func (k BackendKind) String() string {
	switch k {
	case KindHDF5:
		return "hdf5"
	case KindZarr:
		return "zarr"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// ParseBackendKind parses a kind from its string form.
func ParseBackendKind(name string) (BackendKind, error) {
	switch name {
	case "hdf5":
		return KindHDF5, nil
	case "zarr":
		return KindZarr, nil
	default:
		return 0, fmt.Errorf("unknown backend kind: %q (valid: hdf5, zarr)", name)
	}
}

// MethodNone is the method name that disables compression. It is
// always resolvable and resolves to no codec.
const MethodNone = "none"

// MethodGenericLossless is the backend-independent default method.
// Each catalog maps it to its standard lossless codec: gzip for the
// HDF5 kind, zstd for the Zarr kind.
const MethodGenericLossless = "generic-lossless"

// Codec is a per-chunk byte transform. Codecs obtained from a catalog
// are lossless; lossy codecs can only enter a descriptor as an
// already-instantiated Codec value, never by name.
type Codec interface {
	// Name is the method name the codec resolves under.
	Name() string

	// Lossless reports whether the transform is invertible.
	Lossless() bool

	// Compress transforms one chunk.
	Compress(data []byte) ([]byte, error)

	// Decompress reverses Compress. The uncompressed size must match
	// the original chunk length exactly.
	Decompress(compressed []byte, uncompressedSize int) ([]byte, error)
}

// Provider contributes additional codecs to a catalog. The embedding
// application resolves providers at startup (for example from an
// optional plugin package) and passes them to NewCatalog; the catalog
// itself never probes for plugins.
type Provider interface {
	// Codecs returns the contributed codecs. Contributions whose
	// names collide with the deny list are discarded; contributions
	// shadowing a native name replace it.
	Codecs() []Codec
}

// UnknownCompressionMethodError reports a method name that the active
// catalog cannot resolve. Valid always carries the catalog's full
// resolvable name set, sorted, so the message is self-correcting.
type UnknownCompressionMethodError struct {
	Kind   BackendKind
	Method string
	Valid  []string
}

func (e *UnknownCompressionMethodError) Error() string {
	return fmt.Sprintf("unknown compression method %q for %s backend (valid: %s)",
		e.Method, e.Kind, strings.Join(e.Valid, ", "))
}

// sortedNames returns the sorted keys of a codec map plus the
// always-valid "none".
func sortedNames(codecs map[string]Codec) []string {
	names := make([]string, 0, len(codecs)+1)
	names = append(names, MethodNone)
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
