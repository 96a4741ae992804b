// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

// Chunkforge is the operator CLI for dataset layout configuration. It
// inspects layout snapshots, lists the codecs each backend kind can
// resolve, and prints the per-dataset field schema used by editing
// frontends. Subcommands: inspect, codecs, schema, version.
package main
