// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"fmt"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/codec"
)

// EntryMetadata carries the light, kind-specific metadata a caller
// needs before decompressing a blob (§4.2 "e.g., a Bitmap's
// width/height/channels/mip count so callers may pre-allocate"). Only
// the fields relevant to the entry's kind are populated; the others
// are zero.
type EntryMetadata struct {
	// Bitmap metadata.
	Width, Height uint32
	Channels      uint8
	MipLevels     uint32

	// BitmapFont metadata.
	PageCount uint32

	// Mesh metadata.
	PartCount  uint32
	JointCount uint32

	// Animation metadata.
	Duration float32
}

// Entry is one manifest table row: the BlobId it resolves to plus
// light metadata (§4.2 "ManifestEntry").
type Entry struct {
	BlobId   assets.BlobId
	Metadata EntryMetadata
}

// Manifest is the archive's full table of contents: per asset kind,
// an ordered map from AssetKey to Entry (§4.2, §6.1). Ordering within
// a kind is by AssetKey (§4.8 "Determinism"), which is why Tables
// stores ordered slices of (key, entry) pairs rather than a Go map —
// map iteration order is not stable, and manifest bytes must be
// byte-identical across runs. index speeds up Lookup once the
// manifest is materialized (§3.4 "fully materialized in memory");
// it is rebuilt by reindex, never serialized.
type Manifest struct {
	Tables map[assets.Kind][]ManifestRow

	index map[assets.Kind]map[assets.Key]Entry
}

// reindex (re)builds the lookup index from Tables. Call after
// constructing or mutating Tables directly; Unmarshal calls it
// automatically.
func (m *Manifest) reindex() {
	m.index = make(map[assets.Kind]map[assets.Key]Entry, len(m.Tables))
	for kind, rows := range m.Tables {
		byKey := make(map[assets.Key]Entry, len(rows))
		for _, row := range rows {
			byKey[row.Key] = row.Entry
		}
		m.index[kind] = byKey
	}
}

// ManifestRow is one (AssetKey, Entry) pair within a kind's table.
type ManifestRow struct {
	Key   assets.Key
	Entry Entry
}

// cborManifest is the wire shape manifests encode to: assets.Kind and
// assets.Key are defined types over uint8/string, and the CBOR
// library round-trips those natively, but map keys must be strings
// for deterministic sorted-key encoding, so kinds are keyed by their
// String() name on the wire.
type cborManifest struct {
	Tables map[string][]ManifestRow `cbor:"tables"`
}

// Marshal encodes the manifest using the archive's deterministic CBOR
// encoding (§4.2).
func (m *Manifest) Marshal() ([]byte, error) {
	wire := cborManifest{Tables: make(map[string][]ManifestRow, len(m.Tables))}
	for kind, rows := range m.Tables {
		wire.Tables[kind.String()] = rows
	}
	return codec.MarshalManifest(wire)
}

// Unmarshal decodes a manifest previously encoded by Marshal.
func Unmarshal(data []byte) (*Manifest, error) {
	var wire cborManifest
	if err := codec.UnmarshalManifest(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: decoding manifest: %v", ErrCorrupt, err)
	}
	m := &Manifest{Tables: make(map[assets.Kind][]ManifestRow, len(wire.Tables))}
	for name, rows := range wire.Tables {
		kind, err := assets.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("%w: manifest table %q: %v", ErrCorrupt, name, err)
		}
		m.Tables[kind] = rows
	}
	m.reindex()
	return m, nil
}

// Lookup returns the entry for key within kind's table, or false if
// absent.
func (m *Manifest) Lookup(kind assets.Kind, key assets.Key) (Entry, bool) {
	if m.index == nil {
		m.reindex()
	}
	entry, ok := m.index[kind][key]
	return entry, ok
}

// Keys returns every AssetKey present in kind's table, in manifest
// order.
func (m *Manifest) Keys(kind assets.Kind) []assets.Key {
	rows := m.Tables[kind]
	keys := make([]assets.Key, len(rows))
	for i, row := range rows {
		keys[i] = row.Key
	}
	return keys
}
