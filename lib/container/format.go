// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

// Package container implements the pak archive's binary envelope
// (§4.2, §6.1): magic + version, a compressed manifest block, a blob
// table, and a payload region of concatenated compressed blobs. It
// knows nothing about asset semantics — that is lib/assets and
// lib/writer/lib/reader's job — only about locating and
// compressing/decompressing opaque byte blobs.
//
// The envelope layout is adapted from the teacher repository's
// lib/artifact/container.go (magic + fixed header + index-before-data
// layout for O(1) index loads), generalized from a fixed-size chunk
// index to a variable-length CBOR manifest so per-kind AssetKey maps
// and light metadata can travel alongside the blob table.
package container

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the 4-byte archive signature.
var Magic = [4]byte{'P', 'A', 'K', '0'}

// Version is the current on-disk format version. Bumping it is a
// breaking change: Open refuses to read archives with a different
// version (§7 "VersionMismatch").
const Version uint16 = 1

// headerSize is magic(4) + version(2) + manifest_compressed_len(4) +
// manifest_uncompressed_len(4), exactly as laid out in §6.1.
const headerSize = 4 + 2 + 4 + 4

// blobTableEntrySize is offset(8) + length(4) + codec(1), §6.1.
const blobTableEntrySize = 8 + 4 + 1

// BlobEntry addresses one compressed blob within the payload region
// (§4.2 "Blob table").
type BlobEntry struct {
	Offset uint64
	Length uint32
	Codec  uint8
}

// ErrVersionMismatch is returned by Open when the archive's magic or
// version does not match what this build supports (§7).
var ErrVersionMismatch = fmt.Errorf("container: version mismatch")

// ErrCorrupt is returned when the archive's structure cannot be
// parsed (§7).
var ErrCorrupt = fmt.Errorf("container: corrupt archive")

// WriteEnvelope writes the complete archive envelope to w: header,
// compressed manifest, blob table, then payload. manifestCompressed
// and manifestUncompressedLen describe the manifest block (already
// compressed by the caller with the bake's default codec, per §4.2
// "The manifest block itself is compressed with the archive's default
// codec"). payload is the concatenation of every blob's compressed
// bytes, in the same order as blobs.
func WriteEnvelope(w io.Writer, manifestCompressed []byte, manifestUncompressedLen uint32, blobs []BlobEntry, payload io.Reader) error {
	var header [headerSize]byte
	copy(header[0:4], Magic[:])
	binary.LittleEndian.PutUint16(header[4:6], Version)
	binary.LittleEndian.PutUint32(header[6:10], uint32(len(manifestCompressed)))
	binary.LittleEndian.PutUint32(header[10:14], manifestUncompressedLen)
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("container: writing header: %w", err)
	}

	if _, err := w.Write(manifestCompressed); err != nil {
		return fmt.Errorf("container: writing manifest: %w", err)
	}

	var countBytes [4]byte
	binary.LittleEndian.PutUint32(countBytes[:], uint32(len(blobs)))
	if _, err := w.Write(countBytes[:]); err != nil {
		return fmt.Errorf("container: writing blob count: %w", err)
	}

	for i, entry := range blobs {
		var entryBytes [blobTableEntrySize]byte
		binary.LittleEndian.PutUint64(entryBytes[0:8], entry.Offset)
		binary.LittleEndian.PutUint32(entryBytes[8:12], entry.Length)
		entryBytes[12] = entry.Codec
		if _, err := w.Write(entryBytes[:]); err != nil {
			return fmt.Errorf("container: writing blob table entry %d: %w", i, err)
		}
	}

	if _, err := io.Copy(w, payload); err != nil {
		return fmt.Errorf("container: writing payload: %w", err)
	}
	return nil
}

// Envelope is a parsed archive header plus blob table, with the
// payload left addressable by offset on the original reader (§4.9
// "O(1) seek + decompress per blob fetch").
type Envelope struct {
	ManifestCompressed      []byte
	ManifestUncompressedLen uint32
	Blobs                   []BlobEntry
	// PayloadOffset is the byte offset where the payload region
	// begins, relative to the start of the archive.
	PayloadOffset int64
}

// ReadEnvelope reads and validates the header, manifest bytes, and
// blob table from r. The manifest bytes are returned still compressed.
// The header does not record which codec compressed them, so the
// caller (lib/reader) tries each codec kind against the recorded
// uncompressed length.
func ReadEnvelope(r io.Reader) (*Envelope, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrCorrupt, err)
	}

	var magic [4]byte
	copy(magic[:], header[0:4])
	if magic != Magic {
		return nil, fmt.Errorf("%w: bad magic bytes", ErrCorrupt)
	}
	version := binary.LittleEndian.Uint16(header[4:6])
	if version != Version {
		return nil, fmt.Errorf("%w: archive version %d, this build supports %d", ErrVersionMismatch, version, Version)
	}

	manifestCompressedLen := binary.LittleEndian.Uint32(header[6:10])
	manifestUncompressedLen := binary.LittleEndian.Uint32(header[10:14])

	manifestCompressed := make([]byte, manifestCompressedLen)
	if _, err := io.ReadFull(r, manifestCompressed); err != nil {
		return nil, fmt.Errorf("%w: reading manifest: %v", ErrCorrupt, err)
	}

	var countBytes [4]byte
	if _, err := io.ReadFull(r, countBytes[:]); err != nil {
		return nil, fmt.Errorf("%w: reading blob count: %v", ErrCorrupt, err)
	}
	blobCount := binary.LittleEndian.Uint32(countBytes[:])

	blobs := make([]BlobEntry, blobCount)
	for i := range blobs {
		var entryBytes [blobTableEntrySize]byte
		if _, err := io.ReadFull(r, entryBytes[:]); err != nil {
			return nil, fmt.Errorf("%w: reading blob table entry %d: %v", ErrCorrupt, i, err)
		}
		blobs[i] = BlobEntry{
			Offset: binary.LittleEndian.Uint64(entryBytes[0:8]),
			Length: binary.LittleEndian.Uint32(entryBytes[8:12]),
			Codec:  entryBytes[12],
		}
	}

	payloadOffset := int64(headerSize) + int64(manifestCompressedLen) + 4 + int64(blobCount)*int64(blobTableEntrySize)

	return &Envelope{
		ManifestCompressed:      manifestCompressed,
		ManifestUncompressedLen: manifestUncompressedLen,
		Blobs:                   blobs,
		PayloadOffset:           payloadOffset,
	}, nil
}

// ReadBlob reads blob index i's compressed bytes from a seekable
// archive reader.
func (env *Envelope) ReadBlob(rs io.ReadSeeker, index int) ([]byte, error) {
	if index < 0 || index >= len(env.Blobs) {
		return nil, fmt.Errorf("container: blob index %d out of range [0,%d)", index, len(env.Blobs))
	}
	entry := env.Blobs[index]
	if _, err := rs.Seek(env.PayloadOffset+int64(entry.Offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("container: seeking to blob %d: %w", index, err)
	}
	data := make([]byte, entry.Length)
	if _, err := io.ReadFull(rs, data); err != nil {
		return nil, fmt.Errorf("container: reading blob %d (%d bytes): %w", index, entry.Length, err)
	}
	return data, nil
}
