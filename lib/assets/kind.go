// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

// Package assets defines the canonical, baked in-memory representation
// of every asset kind the pipeline produces (§3.2), plus the
// deterministic binary encoding each kind uses inside archive blobs
// (§4.8 "canonical deterministic encoding: field order fixed, integers
// little-endian, lengths length-prefixed").
package assets

import "fmt"

// Kind identifies one of the seven baked asset kinds. Each kind has
// its own manifest table in the archive (§3.3 "Key uniqueness").
type Kind uint8

const (
	KindBitmap Kind = iota
	KindBitmapFont
	KindMesh
	KindAnimation
	KindMaterial
	KindModel
	KindScene
)

// kindNames is indexed by Kind; also used for content-document root
// table names (§4.3).
var kindNames = [...]string{
	KindBitmap:     "bitmap",
	KindBitmapFont: "bitmap-font",
	KindMesh:       "mesh",
	KindAnimation:  "animation",
	KindMaterial:   "material",
	KindModel:      "model",
	KindScene:      "scene",
}

// AllKinds enumerates every asset kind, in the fixed order used for
// manifest table iteration.
var AllKinds = []Kind{KindBitmap, KindBitmapFont, KindMesh, KindAnimation, KindMaterial, KindModel, KindScene}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("unknown-kind(%d)", uint8(k))
}

// ParseKind maps a content-document root table name to its Kind.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("assets: unknown asset kind %q", name)
}

// BlobId is an opaque index into the archive's blob table, assigned
// at write time (§3.1). The zero value never refers to a real blob;
// writer code uses it as a "no reference" sentinel for optional
// material slots.
type BlobId uint32

// NoBlob is the sentinel BlobId meaning "no reference" (e.g. an unset
// material slot, or a mesh part with no shadow geometry).
const NoBlob BlobId = 0

// Key is a stable, canonicalized absolute path (or synthesized key
// for inline assets) acting as the runtime lookup surface (§3.1).
// Equality is byte-for-byte on the canonical string.
type Key string
