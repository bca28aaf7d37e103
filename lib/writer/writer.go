// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

// Package writer assembles baked entities into a pak archive. It owns
// BlobId assignment, content deduplication, compression, manifest
// construction and the atomic write of the output file. The Bake
// orchestrator in this package fans asset bakes out over a worker
// pool and commits results through a single serialized coordinator so
// the dedup map and blob table stay race-free and archives come out
// byte-identical across runs.
package writer

import (
	"bytes"
	"encoding"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/blake3"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/codec"
	"github.com/pak-forge/pak/lib/container"
)

// blobDomainKey is the BLAKE3 keyed-hash domain for blob content
// hashes. Fixed ASCII so the key is legible in hex dumps; changing it
// invalidates nothing on disk (the hash is bake-internal) but would
// perturb dedup tiebreaking, so it stays pinned.
var blobDomainKey = [32]byte{
	'p', 'a', 'k', '.', 'b', 'l', 'o', 'b',
}

// contentHash is the digest used to deduplicate byte-identical baked
// blobs before writing (§3.1 ContentHash).
type contentHash [32]byte

func hashBlob(data []byte) contentHash {
	hasher, err := blake3.NewKeyed(blobDomainKey[:])
	if err != nil {
		panic("writer: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var digest contentHash
	hasher.Sum(digest[:0])
	return digest
}

// dedupKey pairs the content hash with the uncompressed length;
// collisions would need both to match.
type dedupKey struct {
	hash   contentHash
	length int
}

// Writer accumulates blobs and manifest rows for one archive. Methods
// are not safe for concurrent use: the bake coordinator is the single
// thread of execution over a Writer.
type Writer struct {
	compression codec.Kind

	blobs   []container.BlobEntry
	payload bytes.Buffer
	dedup   map[dedupKey]assets.BlobId

	tables map[assets.Kind][]container.ManifestRow
}

// New creates a Writer that compresses blobs and the manifest with
// the given default codec.
func New(compression codec.Kind) *Writer {
	return &Writer{
		compression: compression,
		dedup:       make(map[dedupKey]assets.BlobId),
		tables:      make(map[assets.Kind][]container.ManifestRow),
	}
}

// AddBlob serializes the entity, deduplicates against previously
// written blobs, and returns the (possibly shared) BlobId. BlobIds
// start at 1; 0 is the no-reference sentinel.
func (w *Writer) AddBlob(entity encoding.BinaryMarshaler) (assets.BlobId, error) {
	data, err := entity.MarshalBinary()
	if err != nil {
		return assets.NoBlob, err
	}
	key := dedupKey{hash: hashBlob(data), length: len(data)}
	if existing, ok := w.dedup[key]; ok {
		return existing, nil
	}

	compressed, err := codec.Compress(w.compression, data)
	if err != nil {
		return assets.NoBlob, fmt.Errorf("writer: compressing blob: %w", err)
	}
	// Store under the identity codec when compression does not pay.
	kind := w.compression
	if len(compressed) >= len(data) {
		kind = codec.KindNone
		compressed = data
	}

	id := assets.BlobId(len(w.blobs) + 1)
	w.blobs = append(w.blobs, container.BlobEntry{
		Offset: uint64(w.payload.Len()),
		Length: uint32(len(compressed)),
		Codec:  uint8(kind),
	})
	w.payload.Write(compressed)
	w.dedup[key] = id
	return id, nil
}

// AddManifestEntry records one (kind, key) → entry row. Key
// uniqueness per kind is enforced at resolve time; a duplicate here
// is a coordinator bug.
func (w *Writer) AddManifestEntry(kind assets.Kind, key assets.Key, entry container.Entry) error {
	for _, row := range w.tables[kind] {
		if row.Key == key {
			return fmt.Errorf("writer: duplicate manifest key %s in %s table", key, kind)
		}
	}
	w.tables[kind] = append(w.tables[kind], container.ManifestRow{Key: key, Entry: entry})
	return nil
}

// WriteFile serializes the archive to path. The file is written to a
// temporary sibling and renamed into place, so a failed bake never
// leaves a truncated archive behind.
func (w *Writer) WriteFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("writer: creating temporary output: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := w.writeTo(tmp); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writer: closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writer: renaming output into place: %w", err)
	}
	return nil
}

func (w *Writer) writeTo(out *os.File) error {
	// Manifest rows were appended in commit order; the manifest sorts
	// by AssetKey within each kind.
	manifest := &container.Manifest{Tables: make(map[assets.Kind][]container.ManifestRow, len(w.tables))}
	for kind, rows := range w.tables {
		sorted := append([]container.ManifestRow(nil), rows...)
		sortRows(sorted)
		manifest.Tables[kind] = sorted
	}

	manifestBytes, err := manifest.Marshal()
	if err != nil {
		return fmt.Errorf("writer: encoding manifest: %w", err)
	}
	manifestCompressed, err := codec.Compress(w.compression, manifestBytes)
	if err != nil {
		return fmt.Errorf("writer: compressing manifest: %w", err)
	}

	if err := container.WriteEnvelope(out, manifestCompressed, uint32(len(manifestBytes)), w.blobs, bytes.NewReader(w.payload.Bytes())); err != nil {
		return err
	}
	return nil
}

func sortRows(rows []container.ManifestRow) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
}
