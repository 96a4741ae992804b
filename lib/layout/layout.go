// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package layout assembles and applies the storage configuration for
// a pending container write. A Configuration holds one validated
// descriptor per dataset, keyed by in-container location, tagged with
// a backend kind, and is built from the conversion pipeline's object
// graph (FromObjectGraph), optionally edited, then handed to an
// Applier which attaches each descriptor's I/O arguments to the
// concrete writer.
//
// A Configuration holds no I/O handles: if the external write is
// cancelled, the same Configuration can be applied again to a fresh
// writer handle. It is not safe for concurrent mutation.
package layout

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/chunkforge/chunkforge/lib/compression"
	"github.com/chunkforge/chunkforge/lib/descriptor"
)

// availableCPUs reports the CPU count used for job validation.
// Overridable in tests.
var availableCPUs = runtime.NumCPU

// NoWritableDatasetsError reports an object graph with zero array
// fields. An empty graph is a caller error, never silently tolerated:
// a configuration with nothing to write is always a bug upstream.
type NoWritableDatasetsError struct {
	// Root is the root node's ID.
	Root string
}

func (e *NoWritableDatasetsError) Error() string {
	return fmt.Sprintf("object graph rooted at %q contains no writable array fields", e.Root)
}

// BackendCompressionMismatchError reports a descriptor that does not
// fit the configuration it is being inserted into: either its backend
// kind differs, or its compression method does not resolve in the
// configuration's catalog. Guards against copying a descriptor built
// for one backend into a configuration for the other.
type BackendCompressionMismatchError struct {
	Location          string
	ConfigurationKind compression.BackendKind
	DescriptorKind    compression.BackendKind
	Method            string
}

func (e *BackendCompressionMismatchError) Error() string {
	if e.ConfigurationKind != e.DescriptorKind {
		return fmt.Sprintf("descriptor for %s targets the %s backend, configuration targets %s",
			e.Location, e.DescriptorKind, e.ConfigurationKind)
	}
	return fmt.Sprintf("descriptor for %s uses method %q, which the %s catalog cannot resolve",
		e.Location, e.Method, e.ConfigurationKind)
}

// Configuration is the aggregate storage layout for one pending
// write: a backend kind, its compression catalog, and one descriptor
// per dataset keyed by location. Build with FromObjectGraph or New.
type Configuration struct {
	kind        compression.BackendKind
	catalog     *compression.Catalog
	descriptors map[string]*descriptor.Descriptor

	// numberOfJobs is the write fan-out directive, Zarr kind only.
	// Stored already resolved to a positive worker count.
	numberOfJobs int
}

// New returns an empty configuration for a backend kind. The catalog
// is built from the kind's native set plus the given providers.
func New(kind compression.BackendKind, providers ...compression.Provider) *Configuration {
	c := &Configuration{
		kind:        kind,
		catalog:     compression.NewCatalog(kind, providers...),
		descriptors: map[string]*descriptor.Descriptor{},
	}
	if kind == compression.KindZarr {
		c.numberOfJobs = defaultJobs()
	}
	return c
}

// Kind returns the backend kind.
func (c *Configuration) Kind() compression.BackendKind { return c.kind }

// Catalog returns the configuration's compression catalog.
func (c *Configuration) Catalog() *compression.Catalog { return c.catalog }

// Len returns the dataset count.
func (c *Configuration) Len() int { return len(c.descriptors) }

// Locations returns every configured location, sorted.
func (c *Configuration) Locations() []string {
	locations := make([]string, 0, len(c.descriptors))
	for location := range c.descriptors {
		locations = append(locations, location)
	}
	sort.Strings(locations)
	return locations
}

// Get returns the descriptor at a location.
func (c *Configuration) Get(location string) (*descriptor.Descriptor, bool) {
	d, ok := c.descriptors[location]
	return d, ok
}

// Set inserts or replaces the descriptor at a location. The
// descriptor's own location must match the key, its backend kind must
// match the configuration's, and its compression method must resolve
// in the configuration's catalog; kind and method violations fail
// with BackendCompressionMismatchError.
func (c *Configuration) Set(location string, d *descriptor.Descriptor) error {
	if d.Location() != location {
		return fmt.Errorf("descriptor location %q does not match key %q", d.Location(), location)
	}
	if d.Kind() != c.kind {
		return &BackendCompressionMismatchError{
			Location:          location,
			ConfigurationKind: c.kind,
			DescriptorKind:    d.Kind(),
			Method:            d.CompressionMethod(),
		}
	}
	if d.CodecOverride() == nil {
		if _, err := c.catalog.Resolve(d.CompressionMethod()); err != nil {
			return &BackendCompressionMismatchError{
				Location:          location,
				ConfigurationKind: c.kind,
				DescriptorKind:    d.Kind(),
				Method:            d.CompressionMethod(),
			}
		}
	}
	c.descriptors[location] = d
	return nil
}

// NumberOfJobs returns the resolved write fan-out for the Zarr kind,
// or zero for backends that write serially.
func (c *Configuration) NumberOfJobs() int { return c.numberOfJobs }

// SetNumberOfJobs sets the write fan-out directive. Only the Zarr
// kind fans out; requests are bounded by [-cpus, cpus], with negative
// values counting back from all CPUs (-1 is every CPU, -2 all but
// one, and so on). Zero restores the default of all CPUs but one.
func (c *Configuration) SetNumberOfJobs(requested int) error {
	if c.kind != compression.KindZarr {
		return fmt.Errorf("number of jobs applies only to the zarr backend, not %s", c.kind)
	}
	cpus := availableCPUs()
	if requested < -cpus || requested > cpus {
		return fmt.Errorf("number of jobs %d outside [-%d, %d]", requested, cpus, cpus)
	}
	switch {
	case requested == 0:
		c.numberOfJobs = defaultJobs()
	case requested < 0:
		c.numberOfJobs = cpus + 1 + requested
	default:
		c.numberOfJobs = requested
	}
	return nil
}

// defaultJobs leaves one CPU free for coordination.
func defaultJobs() int {
	cpus := availableCPUs()
	if cpus <= 1 {
		return 1
	}
	return cpus - 1
}
