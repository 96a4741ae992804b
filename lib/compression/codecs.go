// Copyright 2026 The Chunkforge Authors
// SPDX-License-Identifier: Apache-2.0

package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// zstdEncoder and zstdDecoder are reused across calls to avoid
// repeated initialization overhead. Both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compression: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compression: zstd decoder initialization failed: " + err.Error())
	}
}

// zstdCodec compresses with zstd at the default level (3). Best
// ratio-per-CPU for numeric chunk data among the native set.
type zstdCodec struct{}

func (zstdCodec) Name() string   { return "zstd" }
func (zstdCodec) Lossless() bool { return true }

func (zstdCodec) Compress(data []byte) ([]byte, error) {
	return zstdEncoder.EncodeAll(data, nil), nil
}

func (zstdCodec) Decompress(compressed []byte, uncompressedSize int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != uncompressedSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), uncompressedSize)
	}
	return result, nil
}

// lz4Codec compresses with LZ4 block mode. Fastest decode of the
// native set; the choice when write throughput matters more than
// ratio.
type lz4Codec struct{}

func (lz4Codec) Name() string   { return "lz4" }
func (lz4Codec) Lossless() bool { return true }

func (lz4Codec) Compress(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if written == 0 || written >= len(data) {
		// CompressBlock returns 0 for incompressible input. Store
		// the raw bytes; Decompress recognizes the stored form by
		// the compressed length equalling the uncompressed length.
		return append([]byte(nil), data...), nil
	}
	return destination[:written], nil
}

func (lz4Codec) Decompress(compressed []byte, uncompressedSize int) ([]byte, error) {
	if len(compressed) == uncompressedSize {
		return compressed, nil
	}
	destination := make([]byte, uncompressedSize)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != uncompressedSize {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
	}
	return destination, nil
}

// gzipCodec compresses with DEFLATE at a fixed level. Present for
// compatibility: it is the one codec every HDF5-like reader can
// decode without plugins.
type gzipCodec struct {
	level int
}

func (c gzipCodec) Name() string   { return "gzip" }
func (c gzipCodec) Lossless() bool { return true }

func (c gzipCodec) Compress(data []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buffer, c.level)
	if err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	return buffer.Bytes(), nil
}

func (c gzipCodec) Decompress(compressed []byte, uncompressedSize int) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("gzip decompress: %w", err)
	}
	defer reader.Close()
	result, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("gzip decompress: %w", err)
	}
	if len(result) != uncompressedSize {
		return nil, fmt.Errorf("gzip decompress: got %d bytes, expected %d", len(result), uncompressedSize)
	}
	return result, nil
}

// snappyCodec compresses with Snappy block format. Zarr-kind only:
// there is no registered HDF5 filter for it.
type snappyCodec struct{}

func (snappyCodec) Name() string   { return "snappy" }
func (snappyCodec) Lossless() bool { return true }

func (snappyCodec) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (snappyCodec) Decompress(compressed []byte, uncompressedSize int) ([]byte, error) {
	result, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress: %w", err)
	}
	if len(result) != uncompressedSize {
		return nil, fmt.Errorf("snappy decompress: got %d bytes, expected %d", len(result), uncompressedSize)
	}
	return result, nil
}

// aliasCodec resolves one name to another codec's implementation.
// Used for "generic-lossless", which maps to each backend's standard
// lossless codec while keeping the target codec's own name in the
// I/O arguments.
type aliasCodec struct {
	alias  string
	target Codec
}

func (c aliasCodec) Name() string   { return c.target.Name() }
func (c aliasCodec) Lossless() bool { return c.target.Lossless() }

func (c aliasCodec) Compress(data []byte) ([]byte, error) {
	return c.target.Compress(data)
}

func (c aliasCodec) Decompress(compressed []byte, uncompressedSize int) ([]byte, error) {
	return c.target.Decompress(compressed, uncompressedSize)
}
