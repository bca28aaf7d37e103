// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package writer

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/container"
	"github.com/pak-forge/pak/lib/reader"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeText(t *testing.T, path, text string) {
	t.Helper()
	writeFile(t, path, []byte(text))
}

// pngBytes encodes a width x height checker of the two given colors.
func pngBytes(t *testing.T, width, height int, a, b [4]uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := a
			if (x+y)%2 == 1 {
				c = b
			}
			copy(img.Pix[y*img.Stride+x*4:], c[:])
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// triangleGLTF is a single-triangle glTF document with an embedded
// buffer: three positions and a uint16 index triple.
const triangleGLTF = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [{"mesh": 0, "name": "tri"}],
  "meshes": [{"name": "tri", "primitives": [{"attributes": {"POSITION": 1}, "indices": 0}]}],
  "accessors": [
    {"bufferView": 0, "componentType": 5123, "count": 3, "type": "SCALAR"},
    {"bufferView": 1, "componentType": 5126, "count": 3, "type": "VEC3",
     "min": [0, 0, 0], "max": [1, 1, 0]}
  ],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 6},
    {"buffer": 0, "byteOffset": 8, "byteLength": 36}
  ],
  "buffers": [{"byteLength": 44, "uri": "data:application/octet-stream;base64,AAABAAIAAAAAAAAAAAAAAAAAAAAAAIA/AAAAAAAAAAAAAAAAAACAPwAAAAA="}]
}`

func bakeDir(t *testing.T, dir string) string {
	t.Helper()
	output := filepath.Join(t.TempDir(), "out.pak")
	if err := Bake(filepath.Join(dir, "content.toml"), output, Options{}); err != nil {
		t.Fatal(err)
	}
	return output
}

func TestBakeBitmapMipsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.png"), pngBytes(t, 4, 4, [4]uint8{255, 0, 0, 255}, [4]uint8{0, 0, 255, 255}))
	writeText(t, filepath.Join(dir, "a.toml"), "[bitmap]\nmip-levels = true\n")
	writeText(t, filepath.Join(dir, "content.toml"), `
[content]
compression = 'snap'
[[content.group]]
assets = ['a.toml']
`)

	archive, err := reader.Open(bakeDir(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	keys := archive.Keys(assets.KindBitmap)
	if len(keys) != 1 {
		t.Fatalf("bitmap keys = %v", keys)
	}
	bitmap, err := archive.ReadBitmap(keys[0])
	if err != nil {
		t.Fatal(err)
	}
	if bitmap.MipLevels != 3 {
		t.Errorf("mip levels = %d, want 3", bitmap.MipLevels)
	}
	if want := (16 + 4 + 1) * 4; len(bitmap.PixelData) != want {
		t.Errorf("pixel bytes = %d, want %d", len(bitmap.PixelData), want)
	}

	// The manifest metadata answers without decompressing.
	width, height, channels, mips, err := archive.BitmapInfo(keys[0])
	if err != nil {
		t.Fatal(err)
	}
	if width != 4 || height != 4 || channels != 4 || mips != 3 {
		t.Errorf("metadata = %dx%d/%d/%d", width, height, channels, mips)
	}
}

func TestBakeDedupSharesBlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tex.png"), pngBytes(t, 2, 2, [4]uint8{1, 2, 3, 255}, [4]uint8{4, 5, 6, 255}))
	writeText(t, filepath.Join(dir, "a.toml"), "[bitmap]\nsrc = 'tex.png'\n")
	writeText(t, filepath.Join(dir, "b.toml"), "[bitmap]\nsrc = 'tex.png'\n")
	writeText(t, filepath.Join(dir, "content.toml"), `
[content]
compression = 'snap'
[[content.group]]
assets = ['a.toml', 'b.toml']
`)

	output := bakeDir(t, dir)
	archive, err := reader.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	keys := archive.Keys(assets.KindBitmap)
	if len(keys) != 2 {
		t.Fatalf("bitmap keys = %v, want 2 independent manifest entries", keys)
	}
	entryA, err := archive.Entry(assets.KindBitmap, keys[0])
	if err != nil {
		t.Fatal(err)
	}
	entryB, err := archive.Entry(assets.KindBitmap, keys[1])
	if err != nil {
		t.Fatal(err)
	}
	if entryA.BlobId != entryB.BlobId {
		t.Errorf("blob ids %d and %d, want shared", entryA.BlobId, entryB.BlobId)
	}

	// One payload blob on disk.
	file, err := os.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	envelope, err := container.ReadEnvelope(file)
	if err != nil {
		t.Fatal(err)
	}
	if len(envelope.Blobs) != 1 {
		t.Errorf("blob table has %d entries, want 1", len(envelope.Blobs))
	}
}

func TestBakeDeterministicBytes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tex.png"), pngBytes(t, 4, 4, [4]uint8{9, 9, 9, 255}, [4]uint8{0, 0, 0, 255}))
	writeText(t, filepath.Join(dir, "mat.toml"), "[material]\ncolor = 'tex.png'\nrough = 0.5\n")
	writeText(t, filepath.Join(dir, "mesh.gltf"), triangleGLTF)
	writeText(t, filepath.Join(dir, "content.toml"), `
[content]
[[content.group]]
assets = ['mat.toml', 'mesh.gltf', 'tex.png']
`)

	outputA := filepath.Join(t.TempDir(), "a.pak")
	outputB := filepath.Join(t.TempDir(), "b.pak")
	if err := Bake(filepath.Join(dir, "content.toml"), outputA, Options{Workers: 4}); err != nil {
		t.Fatal(err)
	}
	if err := Bake(filepath.Join(dir, "content.toml"), outputB, Options{Workers: 1}); err != nil {
		t.Fatal(err)
	}
	bytesA, err := os.ReadFile(outputA)
	if err != nil {
		t.Fatal(err)
	}
	bytesB, err := os.ReadFile(outputB)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(bytesA, bytesB) {
		t.Error("two bakes over the same inputs produced different archive bytes")
	}
}

func TestBakeMaterialFormsShareBitmapBlob(t *testing.T) {
	// A path reference and an inline table with identical processing
	// parameters bake to byte-identical bitmaps, so both materials
	// point at one blob.
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tex.png"), pngBytes(t, 2, 2, [4]uint8{10, 20, 30, 255}, [4]uint8{40, 50, 60, 255}))
	writeText(t, filepath.Join(dir, "a.toml"), "[material]\ncolor = 'tex.png'\n")
	writeText(t, filepath.Join(dir, "b.toml"), "[material]\n[material.color]\nsrc = 'tex.png'\n")
	writeText(t, filepath.Join(dir, "content.toml"), `
[content]
[[content.group]]
assets = ['a.toml', 'b.toml']
`)

	archive, err := reader.Open(bakeDir(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	keys := archive.Keys(assets.KindMaterial)
	if len(keys) != 2 {
		t.Fatalf("material keys = %v", keys)
	}
	materialA, err := archive.ReadMaterial(keys[0])
	if err != nil {
		t.Fatal(err)
	}
	materialB, err := archive.ReadMaterial(keys[1])
	if err != nil {
		t.Fatal(err)
	}
	blobA := materialA.Slots[assets.SlotColor].Bitmap
	blobB := materialB.Slots[assets.SlotColor].Bitmap
	if blobA == assets.NoBlob || blobA != blobB {
		t.Errorf("color blobs %d and %d, want one shared bitmap blob", blobA, blobB)
	}
	if _, err := archive.ReadBitmapBlob(blobA); err != nil {
		t.Errorf("shared bitmap blob unreadable: %v", err)
	}
}

func TestBakeMeshAndSceneRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeText(t, filepath.Join(dir, "models", "tri.gltf"), triangleGLTF)
	writeText(t, filepath.Join(dir, "scenes", "main.toml"), `
[scene]
[[scene.ref]]
mesh = '../models/tri.gltf'
position = [0, 0, 5]
[[scene.ref]]
id = 'spawn'
tags = ['start']
`)
	writeText(t, filepath.Join(dir, "content.toml"), `
[content]
[[content.group]]
assets = ['scenes/*.toml']
`)

	archive, err := reader.Open(bakeDir(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	sceneKeys := archive.Keys(assets.KindScene)
	if len(sceneKeys) != 1 {
		t.Fatalf("scene keys = %v", sceneKeys)
	}
	scene, err := archive.ReadScene(sceneKeys[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(scene.Refs) != 2 {
		t.Fatalf("scene refs = %d", len(scene.Refs))
	}
	placed := scene.Refs[0]
	if placed.Kind != assets.SceneRefAsset {
		t.Fatalf("ref 0 = %+v", placed)
	}
	mesh, err := archive.ReadMeshBlob(placed.Mesh)
	if err != nil {
		t.Fatal(err)
	}
	if len(mesh.Parts) != 1 {
		t.Fatalf("mesh parts = %d", len(mesh.Parts))
	}
	part := mesh.Parts[0]
	if part.VertexCount != 3 || len(part.Indices) != 3 {
		t.Errorf("part = %d vertices, %d indices", part.VertexCount, len(part.Indices))
	}
	for _, idx := range part.Indices {
		if idx >= part.VertexCount {
			t.Errorf("index %d out of bounds", idx)
		}
	}
}

func TestBakeFontPagesReferenceBitmaps(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "font_0.png"), pngBytes(t, 2, 2, [4]uint8{255, 255, 255, 255}, [4]uint8{0, 0, 0, 255}))
	writeText(t, filepath.Join(dir, "font.fnt"), `info face="Test" size=32
common lineHeight=36 pages=1
page id=0 file="font_0.png"
chars count=0
`)
	writeText(t, filepath.Join(dir, "content.toml"), `
[content]
[[content.group]]
assets = ['font.fnt']
`)

	archive, err := reader.Open(bakeDir(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	fontKeys := archive.Keys(assets.KindBitmapFont)
	if len(fontKeys) != 1 {
		t.Fatalf("font keys = %v", fontKeys)
	}
	font, err := archive.ReadBitmapFont(fontKeys[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(font.Pages) != 1 {
		t.Fatalf("pages = %d", len(font.Pages))
	}
	page, err := archive.ReadBitmapBlob(font.Pages[0])
	if err != nil {
		t.Fatal(err)
	}
	if page.Width != 2 || page.Height != 2 {
		t.Errorf("page = %dx%d", page.Width, page.Height)
	}
	if len(font.Definition) == 0 {
		t.Error("font definition bytes not preserved")
	}
}

func TestBakeFailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	writeText(t, filepath.Join(dir, "broken.png"), "this is not a png")
	writeText(t, filepath.Join(dir, "content.toml"), `
[content]
[[content.group]]
assets = ['broken.png']
`)
	output := filepath.Join(t.TempDir(), "out.pak")
	if err := Bake(filepath.Join(dir, "content.toml"), output, Options{}); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Errorf("failed bake left output file behind (stat err = %v)", err)
	}
}

func TestWriterDuplicateManifestKeyRejected(t *testing.T) {
	w := New(0)
	entry := container.Entry{BlobId: 1}
	if err := w.AddManifestEntry(assets.KindBitmap, "/a", entry); err != nil {
		t.Fatal(err)
	}
	if err := w.AddManifestEntry(assets.KindBitmap, "/a", entry); err == nil {
		t.Fatal("duplicate key accepted")
	}
}
