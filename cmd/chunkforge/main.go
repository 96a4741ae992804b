// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/chunkforge/chunkforge/lib/compression"
	"github.com/chunkforge/chunkforge/lib/config"
	"github.com/chunkforge/chunkforge/lib/descriptor"
	"github.com/chunkforge/chunkforge/lib/layout"
	"github.com/chunkforge/chunkforge/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	subcommand := os.Args[1]
	switch subcommand {
	case "inspect":
		return runInspect(os.Args[2:])
	case "codecs":
		return runCodecs(os.Args[2:])
	case "schema":
		return runSchema(os.Args[2:])
	case "version":
		return runVersion(os.Args[2:])
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: chunkforge <subcommand> [flags]

Subcommands:
  inspect     Render a layout snapshot as a dataset table
  codecs      List the codecs a backend kind can resolve
  schema      Print the per-dataset field schema for a backend kind
  version     Print version information

Run 'chunkforge <subcommand> --help' for subcommand flags.
`)
}

// runVersion prints the build version; --full adds the Go version and
// platform.
func runVersion(args []string) error {
	flags := pflag.NewFlagSet("version", pflag.ExitOnError)
	full := flags.Bool("full", false, "include Go version and platform")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *full {
		fmt.Printf("chunkforge %s\n", version.Full())
		return nil
	}
	fmt.Printf("chunkforge %s\n", version.Info())
	return nil
}

// parseBackendFlag resolves the shared --backend flag.
func parseBackendFlag(value string) (compression.BackendKind, error) {
	kind, err := compression.ParseBackendKind(value)
	if err != nil {
		return 0, fmt.Errorf("--backend: %w", err)
	}
	return kind, nil
}

// runInspect loads a snapshot file and renders the dataset table. With
// --overrides a JSONC override file is applied first, so the rendered
// layout is what a retried write would actually use. With --io it
// additionally prints the per-dataset writer arguments as JSON, which
// is what the storage writer would receive verbatim.
func runInspect(args []string) error {
	flags := pflag.NewFlagSet("inspect", pflag.ExitOnError)
	overridesPath := flags.String("overrides", "", "JSONC per-location override file to apply before rendering")
	showIO := flags.Bool("io", false, "also print per-dataset writer arguments as JSON")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return fmt.Errorf("inspect takes exactly one snapshot file argument")
	}

	data, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}
	configuration, err := layout.LoadSnapshot(data)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	if *overridesPath != "" {
		overrides, err := config.LoadOverrides(*overridesPath)
		if err != nil {
			return err
		}
		if err := config.ApplyOverrides(configuration, overrides); err != nil {
			return err
		}
	}

	fmt.Print(configuration.RenderSummary())

	if !*showIO {
		return nil
	}
	for _, location := range configuration.Locations() {
		d, _ := configuration.Get(location)
		arguments, err := d.IOArguments(configuration.Catalog())
		if err != nil {
			return fmt.Errorf("writer arguments for %s: %w", location, err)
		}
		encoded, err := json.MarshalIndent(arguments, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding writer arguments for %s: %w", location, err)
		}
		fmt.Printf("\n%s:\n%s\n", location, encoded)
	}
	return nil
}

// runCodecs lists the method names a backend kind resolves, and with
// --denied the codec identifiers the kind refuses.
func runCodecs(args []string) error {
	flags := pflag.NewFlagSet("codecs", pflag.ExitOnError)
	backend := flags.String("backend", "", "backend kind: hdf5 or zarr (required)")
	showDenied := flags.Bool("denied", false, "also list denied codec identifiers")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *backend == "" {
		flags.Usage()
		return fmt.Errorf("--backend is required")
	}
	kind, err := parseBackendFlag(*backend)
	if err != nil {
		return err
	}

	catalog := compression.Default(kind)
	for _, name := range catalog.Names() {
		fmt.Println(name)
	}
	if *showDenied {
		fmt.Println()
		for _, name := range catalog.DeniedNames() {
			reason, _ := catalog.Denied(name)
			fmt.Printf("denied: %s (%s)\n", name, reason)
		}
	}
	return nil
}

// runSchema prints the JSON field schema describing one dataset's
// configurable and identity fields for a backend kind.
func runSchema(args []string) error {
	flags := pflag.NewFlagSet("schema", pflag.ExitOnError)
	backend := flags.String("backend", "", "backend kind: hdf5 or zarr (required)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *backend == "" {
		flags.Usage()
		return fmt.Errorf("--backend is required")
	}
	kind, err := parseBackendFlag(*backend)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(descriptor.FieldSchema(kind), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schema: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}
