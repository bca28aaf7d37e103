// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"testing"

	"github.com/pak-forge/pak/lib/assets"
)

func TestManifestRoundTrip(t *testing.T) {
	m := &Manifest{Tables: map[assets.Kind][]ManifestRow{
		assets.KindBitmap: {
			{Key: "/assets/a.png", Entry: Entry{BlobId: 1, Metadata: EntryMetadata{Width: 4, Height: 4, Channels: 4, MipLevels: 3}}},
			{Key: "/assets/b.png", Entry: Entry{BlobId: 1}},
		},
	}}

	encoded, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	decoded, err := Unmarshal(encoded)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	entry, ok := decoded.Lookup(assets.KindBitmap, "/assets/a.png")
	if !ok {
		t.Fatal("expected to find /assets/a.png")
	}
	if entry.Metadata.Width != 4 || entry.BlobId != 1 {
		t.Fatalf("decoded entry mismatch: %+v", entry)
	}

	other, ok := decoded.Lookup(assets.KindBitmap, "/assets/b.png")
	if !ok || other.BlobId != entry.BlobId {
		t.Fatalf("expected dedup: same BlobId for both keys, got %+v vs %+v", other, entry)
	}

	if _, ok := decoded.Lookup(assets.KindBitmap, "/assets/missing.png"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestManifestMarshalIsDeterministic(t *testing.T) {
	build := func() *Manifest {
		return &Manifest{Tables: map[assets.Kind][]ManifestRow{
			assets.KindBitmap: {{Key: "/a.png", Entry: Entry{BlobId: 1}}},
			assets.KindMesh:   {{Key: "/m.gltf", Entry: Entry{BlobId: 2}}},
		}}
	}

	a, err := build().Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	b, err := build().Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(a) != string(b) {
		t.Fatal("expected identical bytes for identical manifests across independent builds")
	}
}
