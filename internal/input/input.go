// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package input reads the buffers handed to the decoder, expanding LZ4
// frames, zstd and framed snappy streams on the way.
package input

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// MaxSize bounds a single input after decompression.
const MaxSize = 64 << 20

// Stdin is the path that selects standard input.
const Stdin = "-"

// Compression identifies how an input is stored.
type Compression uint8

const (
	None Compression = iota
	LZ4
	Zstd
	Snappy
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	case Snappy:
		return "snappy"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// CompressionForPath picks the compression from the file extension.
func CompressionForPath(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lz4":
		return LZ4
	case ".zst", ".zstd":
		return Zstd
	case ".sz":
		return Snappy
	}
	return None
}

// zstdDecoder is shared; DecodeAll is safe for concurrent use.
var zstdDecoder *zstd.Decoder

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxSize))
	if err != nil {
		panic("input: zstd decoder initialization failed: " + err.Error())
	}
}

// Read returns the contents of path, or of stdin when path is Stdin.
// Standard input is never decompressed.
func Read(path string, stdin io.Reader) ([]byte, error) {
	if path == Stdin {
		return readAll(stdin, "stdin")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decompress(f, CompressionForPath(path), path)
}

// Decompress reads r to the end, expanding it per c. name labels errors.
func Decompress(r io.Reader, c Compression, name string) ([]byte, error) {
	switch c {
	case None:
		return readAll(r, name)
	case LZ4:
		return readAll(lz4.NewReader(r), name)
	case Snappy:
		return readAll(snappy.NewReader(r), name)
	case Zstd:
		compressed, err := readAll(r, name)
		if err != nil {
			return nil, err
		}
		out, err := zstdDecoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: zstd decompress: %w", name, err)
		}
		if len(out) > MaxSize {
			return nil, fmt.Errorf("%s: larger than %d bytes", name, MaxSize)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s: unsupported compression %s", name, c)
}

func readAll(r io.Reader, name string) ([]byte, error) {
	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if n > MaxSize {
		return nil, fmt.Errorf("%s: larger than %d bytes", name, MaxSize)
	}
	return buf.Bytes(), nil
}
