// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/codec"
)

// tinyPNG is a 1x1 white PNG, enough for path resolution tests (the
// resolver never decodes pixels).
var tinyPNG = []byte{
	0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
	0x00, 0x00, 0x00, 0x0a, 'I', 'D', 'A', 'T',
	0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00, 0x05, 0x00, 0x01,
	0x0d, 0x0a, 0x2d, 0xb4,
	0x00, 0x00, 0x00, 0x00, 'I', 'E', 'N', 'D',
	0xae, 0x42, 0x60, 0x82,
}

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

func TestResolveGlobAndKinds(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "textures", "a.png"), tinyPNG)
	writeFile(t, filepath.Join(dir, "textures", "deep", "b.png"), tinyPNG)
	writeText(t, filepath.Join(dir, "content.toml"), `
[content]
compression = 'snap'

[[content.group]]
assets = ['textures/**/*.png']
`)

	resolved, err := Resolve(filepath.Join(dir, "content.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Compression != codec.KindSnap {
		t.Errorf("compression = %v", resolved.Compression)
	}
	if len(resolved.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(resolved.Items))
	}
	for _, item := range resolved.Items {
		if item.Kind != assets.KindBitmap {
			t.Errorf("%s: kind = %v, want bitmap", item.Key, item.Kind)
		}
		if !filepath.IsAbs(string(item.Key)) {
			t.Errorf("key %q is not absolute", item.Key)
		}
		if item.SrcPath == "" {
			t.Errorf("%s: no source path", item.Key)
		}
	}
}

func TestResolveDisabledGroupSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.png"), tinyPNG)
	writeText(t, filepath.Join(dir, "content.toml"), `
[content]
[[content.group]]
enabled = false
assets = ['*.png']
`)
	resolved, err := Resolve(filepath.Join(dir, "content.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved.Items) != 0 {
		t.Fatalf("disabled group produced %d items", len(resolved.Items))
	}
}

func TestResolveMaterialEnlistsBitmap(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tex.png"), tinyPNG)
	writeText(t, filepath.Join(dir, "mat.toml"), "[material]\ncolor = 'tex.png'\n")
	writeText(t, filepath.Join(dir, "content.toml"), `
[content]
[[content.group]]
assets = ['mat.toml']
`)

	resolved, err := Resolve(filepath.Join(dir, "content.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved.Items) != 2 {
		t.Fatalf("got %d items, want bitmap + material", len(resolved.Items))
	}
	// Topological order: the referenced bitmap precedes the material.
	if resolved.Items[0].Kind != assets.KindBitmap || resolved.Items[1].Kind != assets.KindMaterial {
		t.Errorf("order = %v, %v", resolved.Items[0].Kind, resolved.Items[1].Kind)
	}
	material := resolved.Items[1]
	bitmapKey, ok := material.Deps["color"]
	if !ok {
		t.Fatal("material has no color dep")
	}
	if bitmapKey != resolved.Items[0].Key {
		t.Errorf("color dep %q != bitmap key %q", bitmapKey, resolved.Items[0].Key)
	}
}

func TestResolveInlineBitmapGetsOwnKey(t *testing.T) {
	// A material referencing color = 'tex.png' and another using an
	// inline table with the same src resolve to one bitmap asset for
	// the path form and one synthesized asset for the inline form;
	// both sources point at the same file, and dedup by canonical
	// bytes happens at write time. Here we check only key resolution.
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tex.png"), tinyPNG)
	writeText(t, filepath.Join(dir, "a.toml"), "[material]\ncolor = 'tex.png'\n")
	writeText(t, filepath.Join(dir, "b.toml"), "[material]\n[material.color]\nsrc = 'tex.png'\n")
	writeText(t, filepath.Join(dir, "content.toml"), `
[content]
[[content.group]]
assets = ['a.toml', 'b.toml']
`)

	resolved, err := Resolve(filepath.Join(dir, "content.toml"))
	if err != nil {
		t.Fatal(err)
	}
	var materialCount, bitmapCount int
	for _, item := range resolved.Items {
		switch item.Kind {
		case assets.KindMaterial:
			materialCount++
		case assets.KindBitmap:
			bitmapCount++
		}
	}
	if materialCount != 2 {
		t.Errorf("materials = %d, want 2", materialCount)
	}
	// One shared path-referenced bitmap plus one synthesized inline.
	if bitmapCount != 2 {
		t.Errorf("bitmaps = %d, want 2", bitmapCount)
	}
}

func TestResolveSceneRelativeMeshMatchesDirect(t *testing.T) {
	dir := t.TempDir()
	// A minimal glTF; resolution only needs the file to exist.
	writeText(t, filepath.Join(dir, "models", "rock.gltf"), `{"asset":{"version":"2.0"}}`)
	writeText(t, filepath.Join(dir, "scenes", "cave.toml"), `
[scene]
[[scene.ref]]
mesh = '../models/rock.gltf'
`)
	writeText(t, filepath.Join(dir, "content.toml"), `
[content]
[[content.group]]
assets = ['scenes/*.toml', 'models/*.gltf']
`)

	resolved, err := Resolve(filepath.Join(dir, "content.toml"))
	if err != nil {
		t.Fatal(err)
	}
	var scene *Item
	meshCount := 0
	for _, item := range resolved.Items {
		switch item.Kind {
		case assets.KindScene:
			scene = item
		case assets.KindMesh:
			meshCount++
		}
	}
	if scene == nil {
		t.Fatal("no scene item")
	}
	if meshCount != 1 {
		t.Fatalf("mesh enlisted %d times, want 1 (deduplicated)", meshCount)
	}
	meshKey := scene.Deps["ref0.mesh"]
	want, err := canonicalKey(filepath.Join(dir, "models", "rock.gltf"))
	if err != nil {
		t.Fatal(err)
	}
	if meshKey != want {
		t.Errorf("mesh key %q, want %q", meshKey, want)
	}
}

func TestResolveDedupAcrossGroups(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.png"), tinyPNG)
	writeText(t, filepath.Join(dir, "content.toml"), `
[content]
[[content.group]]
assets = ['*.png']
[[content.group]]
assets = ['a.png']
`)
	resolved, err := Resolve(filepath.Join(dir, "content.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(resolved.Items))
	}
}

func TestResolveKindMismatchRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tex.png"), tinyPNG)
	writeText(t, filepath.Join(dir, "notbitmap.toml"), "[animation]\nsrc = 'run.glb'\n")
	writeText(t, filepath.Join(dir, "run.glb"), "")
	writeText(t, filepath.Join(dir, "mat.toml"), "[material]\ncolor = 'notbitmap.toml'\n")
	writeText(t, filepath.Join(dir, "content.toml"), `
[content]
[[content.group]]
assets = ['mat.toml']
`)
	_, err := Resolve(filepath.Join(dir, "content.toml"))
	if err == nil {
		t.Fatal("expected kind mismatch error")
	}
}

func TestResolveMissingSrcProbesStem(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "hero.png"), tinyPNG)
	writeText(t, filepath.Join(dir, "hero.toml"), "[bitmap]\nresize = 64\n")
	writeText(t, filepath.Join(dir, "content.toml"), `
[content]
[[content.group]]
assets = ['hero.toml']
`)
	resolved, err := Resolve(filepath.Join(dir, "content.toml"))
	if err != nil {
		t.Fatal(err)
	}
	item := resolved.Items[0]
	if filepath.Base(item.SrcPath) != "hero.png" {
		t.Errorf("probed src = %q", item.SrcPath)
	}
}

func TestResolveFontEnlistsPages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "font_0.png"), tinyPNG)
	writeFile(t, filepath.Join(dir, "font_1.png"), tinyPNG)
	writeText(t, filepath.Join(dir, "font.fnt"), `info face="Test" size=32
common lineHeight=36 pages=2
page id=0 file="font_0.png"
page id=1 file="font_1.png"
chars count=0
`)
	writeText(t, filepath.Join(dir, "content.toml"), `
[content]
[[content.group]]
assets = ['font.fnt']
`)
	resolved, err := Resolve(filepath.Join(dir, "content.toml"))
	if err != nil {
		t.Fatal(err)
	}
	var font *Item
	for _, item := range resolved.Items {
		if item.Kind == assets.KindBitmapFont {
			font = item
		}
	}
	if font == nil {
		t.Fatal("no font item")
	}
	if len(font.Deps) != 2 {
		t.Fatalf("font deps = %v", font.Deps)
	}
	if filepath.Base(string(font.Deps["page0"])) != "font_0.png" {
		t.Errorf("page0 = %q", font.Deps["page0"])
	}
}

func TestExpandGlobLiteralAndStar(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x", "a.png"), tinyPNG)
	writeFile(t, filepath.Join(dir, "x", "b.jpg"), tinyPNG)

	matches, err := expandGlob(dir, "x/*.png")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || filepath.Base(matches[0]) != "a.png" {
		t.Errorf("matches = %v", matches)
	}

	matches, err = expandGlob(dir, "x/a.png")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("literal matches = %v", matches)
	}

	matches, err = expandGlob(dir, "missing/*.png")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("missing dir matches = %v", matches)
	}
}

func TestExpandGlobDoubleStarZeroDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.png"), tinyPNG)
	writeFile(t, filepath.Join(dir, "deep", "er", "leaf.png"), tinyPNG)

	matches, err := expandGlob(dir, "**/*.png")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Errorf("matches = %v, want top.png and deep/er/leaf.png", matches)
	}
}
