// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides deterministic CBOR encoding for layout
// snapshots. Deterministic bytes matter because snapshots carry a
// content digest: the same configuration must always serialize to
// the same bytes, or digests would never verify across runs.
package codec

import (
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. Same logical data always
// produces identical bytes.
var encMode cbor.EncMode

// decMode is the CBOR decoder configured to accept standard CBOR.
// Unknown fields are silently ignored for forward compatibility.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Snapshot option bags decode into map[string]any values.
		// The CBOR default for any-typed targets is
		// map[interface{}]interface{}; string-keyed maps are what
		// the rest of the module (and encoding/json) expect.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encode writes v as CBOR to w.
func Encode(w io.Writer, v any) error {
	data, err := encMode.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding CBOR: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing CBOR: %w", err)
	}
	return nil
}

// Decode reads one CBOR value from r into v.
func Decode(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading CBOR: %w", err)
	}
	return decMode.Unmarshal(data, v)
}
