// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"fmt"
	"sort"
	"strings"
)

// Target is one writable dataset inside a writer handle. The writer
// defines what attaching I/O arguments means; this subsystem's
// contract ends at handing over the validated bundle.
type Target interface {
	// AttachIOArguments stores the backend keyword bundle that the
	// writer will use when serializing the dataset.
	AttachIOArguments(arguments map[string]any) error
}

// WriterHandle is the external container writer onto which a
// configuration is applied. Implementations must be comparable (a
// pointer type is sufficient): the Applier tracks handles it has
// already configured.
type WriterHandle interface {
	// Target resolves a writable dataset by owning object ID and
	// dataset name.
	Target(objectID, datasetName string) (Target, bool)

	// TargetKeys enumerates every "objectID/datasetName" pair the
	// handle can resolve, for diagnostics.
	TargetKeys() []string
}

// TargetNotFoundError reports an object ID that no longer resolves in
// the writer handle: the graph changed between configuration and
// apply. Known carries the handle's resolvable keys, sorted.
type TargetNotFoundError struct {
	ObjectID    string
	DatasetName string
	Known       []string
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("writer target %s/%s not found (known targets: %s)",
		e.ObjectID, e.DatasetName, strings.Join(e.Known, ", "))
}

// AlreadyConfiguredError reports a second Apply against a writer
// handle that has already been configured. Applying twice would
// attach conflicting I/O arguments, so the one-shot contract is
// enforced rather than left undefined.
type AlreadyConfiguredError struct{}

func (e *AlreadyConfiguredError) Error() string {
	return "writer handle has already been configured: Apply is one-shot per handle"
}

// Applier attaches a validated configuration's I/O argument bundles
// to a writer handle, once per handle. The zero value is not usable;
// construct with NewApplier.
type Applier struct {
	applied map[WriterHandle]struct{}
}

// NewApplier returns an applier with no configured handles.
func NewApplier() *Applier {
	return &Applier{applied: map[WriterHandle]struct{}{}}
}

// Apply resolves each descriptor's target in the writer handle and
// attaches its backend I/O arguments. Fails with
// AlreadyConfiguredError if this applier has already configured the
// handle, and with TargetNotFoundError if any descriptor's object no
// longer resolves; on any failure no subsequent targets are touched,
// and the handle is not marked configured.
func (a *Applier) Apply(configuration *Configuration, writer WriterHandle) error {
	if _, done := a.applied[writer]; done {
		return &AlreadyConfiguredError{}
	}

	for _, location := range configuration.Locations() {
		d, _ := configuration.Get(location)

		target, ok := writer.Target(d.ObjectID(), d.DatasetName())
		if !ok {
			known := writer.TargetKeys()
			sort.Strings(known)
			return &TargetNotFoundError{
				ObjectID:    d.ObjectID(),
				DatasetName: d.DatasetName(),
				Known:       known,
			}
		}

		arguments, err := d.IOArguments(configuration.Catalog())
		if err != nil {
			return fmt.Errorf("building I/O arguments for %s: %w", location, err)
		}
		if err := target.AttachIOArguments(arguments); err != nil {
			return fmt.Errorf("attaching I/O arguments for %s: %w", location, err)
		}
	}

	a.applied[writer] = struct{}{}
	return nil
}
