// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

package compression

import (
	"fmt"
	"sort"

	"github.com/chunkforge/chunkforge/lib/shapeplan"
)

// Catalog maps compression method names to codecs for one backend
// kind. Construct with NewCatalog; the zero value resolves nothing.
type Catalog struct {
	kind   BackendKind
	codecs map[string]Codec
	denied map[string]string // name -> reason it is not resolvable
}

// hdf5Denied lists filter names an HDF5-like container refuses by
// name. The container applies variable-length string encoding and
// byte-reordering itself, identity filters reduce nothing, and the
// lossy filters may only enter a descriptor as an instantiated Codec
// value.
var hdf5Denied = map[string]string{
	"shuffle":     "byte-reordering is applied by the container layer",
	"fletcher32":  "checksumming is applied by the container layer",
	"vlen-utf8":   "variable-length string encoding is applied by the container layer",
	"szip":        "lossy in common modes; pass an instantiated codec to opt in",
	"scaleoffset": "lossy; pass an instantiated codec to opt in",
}

// zarrDenied is the Zarr-kind equivalent.
var zarrDenied = map[string]string{
	"vlen-utf8":        "variable-length string encoding is applied by the container layer",
	"vlen-bytes":       "variable-length byte encoding is applied by the container layer",
	"shuffle":          "byte-reordering is applied by the container layer",
	"identity":         "pass-through codec provides no data reduction",
	"delta":            "redundant with the container's filter pipeline",
	"quantize":         "lossy; pass an instantiated codec to opt in",
	"fixedscaleoffset": "lossy; pass an instantiated codec to opt in",
}

// defaultCatalogs holds the provider-free catalog per kind, built on
// first use. Descriptor validation uses these; configurations built
// with providers carry their own catalog.
var defaultCatalogs = map[BackendKind]*Catalog{}

func init() {
	defaultCatalogs[KindHDF5] = NewCatalog(KindHDF5)
	defaultCatalogs[KindZarr] = NewCatalog(KindZarr)
}

// Default returns the provider-free catalog for a kind.
func Default(kind BackendKind) *Catalog {
	return defaultCatalogs[kind]
}

// NewCatalog builds the catalog for a backend kind: the kind's native
// codec set, minus the deny list, plus codecs from the given
// providers. Provider codecs shadowing a native name replace it;
// provider codecs whose names are denied are discarded.
func NewCatalog(kind BackendKind, providers ...Provider) *Catalog {
	catalog := &Catalog{kind: kind, codecs: map[string]Codec{}}

	switch kind {
	case KindHDF5:
		catalog.denied = hdf5Denied
		gzip := gzipCodec{level: 4}
		catalog.register(gzip)
		catalog.register(zstdCodec{})
		catalog.register(lz4Codec{})
		catalog.codecs[MethodGenericLossless] = aliasCodec{alias: MethodGenericLossless, target: gzip}
	case KindZarr:
		catalog.denied = zarrDenied
		catalog.register(zstdCodec{})
		catalog.register(lz4Codec{})
		catalog.register(gzipCodec{level: 4})
		catalog.register(snappyCodec{})
		catalog.codecs[MethodGenericLossless] = aliasCodec{alias: MethodGenericLossless, target: zstdCodec{}}
	}

	for _, provider := range providers {
		for _, codec := range provider.Codecs() {
			catalog.register(codec)
		}
	}
	return catalog
}

func (c *Catalog) register(codec Codec) {
	name := codec.Name()
	if _, deny := c.denied[name]; deny {
		return
	}
	c.codecs[name] = codec
}

// Kind returns the backend kind the catalog serves.
func (c *Catalog) Kind() BackendKind { return c.kind }

// Names returns every resolvable method name, sorted. "none" is
// always included.
func (c *Catalog) Names() []string { return sortedNames(c.codecs) }

// Denied returns the reason a name is deny-listed, if it is.
func (c *Catalog) Denied(name string) (reason string, ok bool) {
	reason, ok = c.denied[name]
	return reason, ok
}

// DeniedNames returns every deny-listed codec identifier, sorted.
func (c *Catalog) DeniedNames() []string {
	names := make([]string, 0, len(c.denied))
	for name := range c.denied {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the codec registered under method. "none" resolves
// to a nil codec without error. Unresolvable names (including
// deny-listed ones) fail with UnknownCompressionMethodError carrying
// the valid name set.
func (c *Catalog) Resolve(method string) (Codec, error) {
	if method == MethodNone {
		return nil, nil
	}
	codec, ok := c.codecs[method]
	if !ok {
		return nil, &UnknownCompressionMethodError{Kind: c.kind, Method: method, Valid: c.Names()}
	}
	return codec, nil
}

// BuildIOArguments translates a validated chunking and compression
// choice into the keyword bundle the backend's writer expects. This
// is the only exit point for backend-specific vocabulary:
//
//	HDF5 kind: {chunks, compression, compression_opts}
//	Zarr kind: {chunks, compressor, filters}
//
// A non-nil override codec bypasses name resolution entirely and is
// attached as-is; this is the opt-in path for lossy or out-of-catalog
// codecs.
func (c *Catalog) BuildIOArguments(chunk shapeplan.Shape, method string, options map[string]any, override Codec) (map[string]any, error) {
	arguments := map[string]any{
		"chunks": append([]int64(nil), chunk...),
	}

	if override != nil {
		switch c.kind {
		case KindHDF5:
			arguments["compression"] = override
		case KindZarr:
			arguments["compressor"] = override
			arguments["filters"] = nil
		}
		return arguments, nil
	}

	codec, err := c.Resolve(method)
	if err != nil {
		return nil, err
	}

	switch c.kind {
	case KindHDF5:
		if codec == nil {
			return arguments, nil
		}
		arguments["compression"] = codec.Name()
		if opts := hdf5CompressionOpts(codec.Name(), options); opts != nil {
			arguments["compression_opts"] = opts
		}
	case KindZarr:
		arguments["filters"] = nil
		if codec == nil {
			arguments["compressor"] = nil
			return arguments, nil
		}
		compressor := map[string]any{"id": codec.Name()}
		for key, value := range options {
			compressor[key] = value
		}
		arguments["compressor"] = compressor
	default:
		return nil, fmt.Errorf("no I/O vocabulary for backend kind %s", c.kind)
	}
	return arguments, nil
}

// hdf5CompressionOpts maps the open option bag onto the HDF5 scalar
// compression_opts slot. gzip takes a bare level; everything else
// passes the bag through untouched (registered filters define their
// own option tuples).
func hdf5CompressionOpts(codecName string, options map[string]any) any {
	if len(options) == 0 {
		return nil
	}
	if codecName == "gzip" {
		if level, ok := options["level"]; ok && len(options) == 1 {
			return level
		}
	}
	copied := make(map[string]any, len(options))
	for key, value := range options {
		copied[key] = value
	}
	return copied
}
