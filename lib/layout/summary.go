// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/chunkforge/chunkforge/lib/compression"
)

// RenderSummary returns a human-readable per-dataset report: location,
// dtype, the three shapes, their byte footprints, and the compression
// choice. A read-only diagnostic for logs and interactive inspection;
// it never fails and is not consumed by the write path.
func (c *Configuration) RenderSummary() string {
	var report strings.Builder

	fmt.Fprintf(&report, "%s backend configuration: %d dataset(s)", c.kind, c.Len())
	if c.kind == compression.KindZarr {
		fmt.Fprintf(&report, ", %d parallel write job(s)", c.numberOfJobs)
	}
	report.WriteString("\n\n")

	writer := tabwriter.NewWriter(&report, 2, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "LOCATION\tDTYPE\tFULL\tCHUNK\tBUFFER\tCOMPRESSION")

	var totalDisk, totalRAM int64
	for _, location := range c.Locations() {
		d := c.descriptors[location]

		method := d.CompressionMethod()
		if override := d.CodecOverride(); override != nil {
			method = override.Name() + " (instantiated codec)"
		}

		fmt.Fprintf(writer, "%s\t%s\t%v (%s)\t%v (%s)\t%v (%s)\t%s\n",
			location,
			d.Dtype(),
			d.FullShape(), humanize.IBytes(uint64(d.FullBytes())),
			d.ChunkShape(), humanize.IBytes(uint64(d.ChunkBytes())),
			d.BufferShape(), humanize.IBytes(uint64(d.BufferBytes())),
			method)

		totalDisk += d.FullBytes()
		totalRAM += d.BufferBytes()
	}
	writer.Flush()

	fmt.Fprintf(&report, "\nuncompressed disk footprint: %s, peak staging RAM: %s\n",
		humanize.IBytes(uint64(totalDisk)), humanize.IBytes(uint64(totalRAM)))
	return report.String()
}
