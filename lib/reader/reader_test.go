// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/container"
	"github.com/pak-forge/pak/lib/writer"
)

// bakeFixture bakes a small archive with two bitmaps and a material
// and returns its path.
func bakeFixture(t *testing.T, compression string) string {
	t.Helper()
	dir := t.TempDir()

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = uint8(37 * i)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"b.toml": "[bitmap]\nsrc = 'a.png'\ncolor-space = 'linear'\n",
		"m.toml": "[material]\ncolor = 'a.png'\nrough = 0.5\n",
		"content.toml": `
[content]
compression = '` + compression + `'
[[content.group]]
assets = ['a.png', 'b.toml', 'm.toml']
`,
	}
	for name, text := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	output := filepath.Join(t.TempDir(), "fixture.pak")
	if err := writer.Bake(filepath.Join(dir, "content.toml"), output, writer.Options{}); err != nil {
		t.Fatal(err)
	}
	return output
}

func TestOpenAndLookup(t *testing.T) {
	for _, compression := range []string{"none", "snap", "brotli"} {
		t.Run(compression, func(t *testing.T) {
			archive, err := Open(bakeFixture(t, compression))
			if err != nil {
				t.Fatal(err)
			}
			defer archive.Close()

			bitmapKeys := archive.Keys(assets.KindBitmap)
			if len(bitmapKeys) != 2 {
				t.Fatalf("bitmap keys = %v", bitmapKeys)
			}
			if !sort.SliceIsSorted(bitmapKeys, func(i, j int) bool { return bitmapKeys[i] < bitmapKeys[j] }) {
				t.Errorf("keys not sorted: %v", bitmapKeys)
			}
			for _, key := range bitmapKeys {
				if !archive.Contains(assets.KindBitmap, key) {
					t.Errorf("Contains(%s) = false", key)
				}
				bitmap, err := archive.ReadBitmap(key)
				if err != nil {
					t.Fatal(err)
				}
				if bitmap.Width != 2 || bitmap.Height != 2 {
					t.Errorf("%s: %dx%d", key, bitmap.Width, bitmap.Height)
				}
			}

			materialKeys := archive.Keys(assets.KindMaterial)
			if len(materialKeys) != 1 {
				t.Fatalf("material keys = %v", materialKeys)
			}
			material, err := archive.ReadMaterial(materialKeys[0])
			if err != nil {
				t.Fatal(err)
			}
			if material.Slots[assets.SlotColor].Kind != assets.SlotValueBitmap {
				t.Errorf("color slot = %+v", material.Slots[assets.SlotColor])
			}
			if material.Slots[assets.SlotRough].Constant[0] != 0.5 {
				t.Errorf("rough = %+v", material.Slots[assets.SlotRough])
			}
		})
	}
}

func TestUnknownKey(t *testing.T) {
	archive, err := Open(bakeFixture(t, "snap"))
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	if archive.Contains(assets.KindBitmap, "/no/such/key") {
		t.Error("Contains reported a missing key")
	}
	_, err = archive.ReadBitmap("/no/such/key")
	if !errors.Is(err, ErrUnknownKey) {
		t.Errorf("err = %v, want ErrUnknownKey", err)
	}
	// Right key, wrong kind table.
	bitmapKey := archive.Keys(assets.KindBitmap)[0]
	_, err = archive.ReadMesh(bitmapKey)
	if !errors.Is(err, ErrUnknownKey) {
		t.Errorf("cross-kind err = %v, want ErrUnknownKey", err)
	}
}

func TestOpenVersionMismatch(t *testing.T) {
	path := bakeFixture(t, "snap")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Bump the version field behind the magic.
	data[4]++
	bumped := filepath.Join(t.TempDir(), "bumped.pak")
	if err := os.WriteFile(bumped, data, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = Open(bumped)
	if !errors.Is(err, container.ErrVersionMismatch) {
		t.Errorf("err = %v, want ErrVersionMismatch", err)
	}
}

func TestOpenCorrupt(t *testing.T) {
	path := bakeFixture(t, "snap")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	truncated := filepath.Join(t.TempDir(), "truncated.pak")
	if err := os.WriteFile(truncated, data[:len(data)/3], 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(truncated); !errors.Is(err, container.ErrCorrupt) {
		t.Errorf("truncated err = %v, want ErrCorrupt", err)
	}

	garbled := filepath.Join(t.TempDir(), "garbled.pak")
	bad := append([]byte(nil), data...)
	bad[0] ^= 0xff
	if err := os.WriteFile(garbled, bad, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(garbled); !errors.Is(err, container.ErrCorrupt) {
		t.Errorf("bad magic err = %v, want ErrCorrupt", err)
	}
}

func TestReaderFromByteSource(t *testing.T) {
	data, err := os.ReadFile(bakeFixture(t, "brotli"))
	if err != nil {
		t.Fatal(err)
	}
	archive, err := New(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	keys := archive.Keys(assets.KindBitmap)
	if len(keys) == 0 {
		t.Fatal("no bitmaps via byte source")
	}
	if _, err := archive.ReadBitmap(keys[0]); err != nil {
		t.Fatal(err)
	}
	// Close on a caller-owned source is a no-op.
	if err := archive.Close(); err != nil {
		t.Fatal(err)
	}
}
