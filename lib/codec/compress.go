// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec implements the pak archive's codec layer: a uniform
// compress/decompress interface over the three blob compression kinds
// the container format supports (none, snap, brotli), plus the
// deterministic CBOR encoding used for the archive manifest.
package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/s2"
)

// Kind identifies the compression algorithm applied to a single blob.
// Kinds are stored as a single byte in the blob table (§6.1) — changing
// these values breaks container format compatibility.
type Kind uint8

const (
	// KindNone stores the blob unmodified. Used when the content
	// document selects compression = "none", and by the writer for any
	// blob whose compressed form would be no smaller than the original.
	KindNone Kind = 0

	// KindSnap is Snappy-compatible block compression via
	// klauspost/compress/s2, used in its Snappy-compatible mode. Fast
	// default for binary data.
	KindSnap Kind = 1

	// KindBrotli is brotli at a fixed quality/window baked into the
	// format (see brotliQuality, brotliWindow below). Better ratio
	// than snap at higher CPU cost; used as the bake default for
	// manifest and bitmap/mesh payloads.
	KindBrotli Kind = 2
)

// brotliQuality and brotliWindow are the fixed parameters baked into
// the on-disk format. They are part of the format contract (two
// archives written with different values still decode correctly,
// since brotli's window/quality do not affect decode, only encode
// behavior) but are pinned here so bake runs are deterministic
// (§4.1, §8 "Determinism").
const (
	brotliQuality = 9
	brotliWindow  = 22
)

// String returns the on-disk name of a codec kind, used in error
// messages and the content document's compression field.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSnap:
		return "snap"
	case KindBrotli:
		return "brotli"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// ParseKind parses a codec kind from its content-document name.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "none":
		return KindNone, nil
	case "snap":
		return KindSnap, nil
	case "brotli":
		return KindBrotli, nil
	default:
		return 0, fmt.Errorf("codec: unknown compression kind %q", name)
	}
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindNone, KindSnap, KindBrotli:
		return true
	default:
		return false
	}
}

// ErrBadCompression is returned by Decompress when the input cannot be
// decoded under the claimed kind.
var ErrBadCompression = fmt.Errorf("codec: corrupt compressed data")

// Compress compresses data under the given kind. KindNone returns
// data unchanged (no copy).
func Compress(kind Kind, data []byte) ([]byte, error) {
	switch kind {
	case KindNone:
		return data, nil
	case KindSnap:
		return s2.EncodeSnappy(nil, data), nil
	case KindBrotli:
		var buf bytes.Buffer
		writer := brotli.NewWriterOptions(&buf, brotli.WriterOptions{
			Quality: brotliQuality,
			LGWin:   brotliWindow,
		})
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("codec: brotli compress: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("codec: brotli compress: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("codec: unsupported compression kind %d", kind)
	}
}

// Decompress decompresses data that was compressed under the given
// kind. Returns ErrBadCompression (wrapped) if the input is corrupt.
func Decompress(kind Kind, data []byte) ([]byte, error) {
	switch kind {
	case KindNone:
		return data, nil
	case KindSnap:
		out, err := s2.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("%w: snap: %v", ErrBadCompression, err)
		}
		return out, nil
	case KindBrotli:
		reader := brotli.NewReader(bytes.NewReader(data))
		out, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("%w: brotli: %v", ErrBadCompression, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("codec: unsupported compression kind %d", kind)
	}
}
