// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

// Package resolver turns a content document into a flat, topologically
// ordered work list of concrete asset descriptions. It expands group
// globs, canonicalizes every path into an AssetKey, infers asset kinds
// for bare source binaries, resolves src fields and embedded
// references (material→bitmap, model→mesh+materials, scene→mesh and
// materials, font→pages), and enlists referenced assets that no group
// matched directly. Referents always precede their referers in the
// emitted list, so a bake can assign BlobIds in list order.
package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/bake/fontsource"
	"github.com/pak-forge/pak/lib/codec"
	"github.com/pak-forge/pak/lib/content"
)

// ErrCyclicReference is returned when assets reference each other in
// a cycle. Cycles are rejected, not resolved.
var ErrCyclicReference = errors.New("resolver: cyclic asset reference")

// Item is one unit of bake work: a concrete asset description with
// its canonical key, resolved source path, and resolved references.
type Item struct {
	Key  assets.Key
	Kind assets.Kind

	// Doc is the parsed (or synthesized) per-asset document.
	Doc *content.Document

	// SrcPath is the absolute path of the source binary for kinds
	// that read one (bitmap, bitmap-font, mesh, animation). Empty for
	// materials, models, and scenes.
	SrcPath string

	// Dir is the directory the document's relative paths resolve
	// against.
	Dir string

	// Deps maps reference names to the keys of the referenced
	// assets. Names are positional and fixed per kind: material slots
	// use the slot name ("color", "normal", ...), fonts use "page0",
	// "page1", ..., models use "entry0.mesh" and "entry0.material1",
	// scenes use "ref0.mesh" and "ref0.material0".
	Deps map[string]assets.Key
}

// Resolved is the output of Resolve: the bake's default compression
// and the ordered work list.
type Resolved struct {
	ContentDir  string
	Compression codec.Kind
	Items       []*Item
}

// Lookup returns the item with the given key, or nil.
func (r *Resolved) Lookup(key assets.Key) *Item {
	for _, item := range r.Items {
		if item.Key == key {
			return item
		}
	}
	return nil
}

// Resolve reads the content document at contentPath and produces the
// bake work list. Group globs resolve relative to the content file's
// directory; matched paths and all referenced assets are
// canonicalized and deduplicated by key.
func Resolve(contentPath string) (*Resolved, error) {
	doc, contentDir, err := content.ReadContentFile(contentPath)
	if err != nil {
		return nil, err
	}
	compression, err := doc.CompressionKind()
	if err != nil {
		return nil, err
	}

	state := &resolveState{
		contentDir: contentDir,
		visiting:   make(map[assets.Key]bool),
		byKey:      make(map[assets.Key]*Item),
	}

	for groupIndex, group := range doc.Groups {
		if !group.IsEnabled() {
			continue
		}
		for _, pattern := range group.Assets {
			matches, err := expandGlob(contentDir, pattern)
			if err != nil {
				return nil, fmt.Errorf("resolver: group %d glob %q: %w", groupIndex, pattern, err)
			}
			for _, match := range matches {
				if _, err := state.addPath(match, anyKind); err != nil {
					return nil, err
				}
			}
		}
	}

	return &Resolved{
		ContentDir:  contentDir,
		Compression: compression,
		Items:       state.items,
	}, nil
}

type resolveState struct {
	contentDir string
	items      []*Item
	byKey      map[assets.Key]*Item
	visiting   map[assets.Key]bool
}

// canonicalKey converts an absolute or already-joined path into the
// canonical AssetKey form: absolute, cleaned, symlinks resolved when
// the target exists.
func canonicalKey(path string) (assets.Key, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolver: canonicalizing %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return assets.Key(filepath.Clean(abs)), nil
}

// kindMismatch reports a document of the wrong kind at a reference
// position, caught at resolve time instead of deep in the bake.
func kindMismatch(key assets.Key, got, want assets.Kind) error {
	return fmt.Errorf("resolver: %s is a %s document, but the reference expects a %s", key, got, want)
}

// anyKind is the addPath restriction that accepts every asset kind.
// KindBitmap is the zero Kind, so zero cannot mean "no restriction".
const anyKind = assets.Kind(0xff)

// addPath enlists the asset at an already-resolved filesystem path.
// TOML files carry their kind in the root table; anything else must
// be a recognized source binary. Any restrict other than anyKind
// rejects an asset of a different kind.
func (s *resolveState) addPath(path string, restrict assets.Kind) (assets.Key, error) {
	key, err := canonicalKey(path)
	if err != nil {
		return "", err
	}
	if item, ok := s.byKey[key]; ok {
		if restrict != anyKind && item.Kind != restrict {
			return "", kindMismatch(key, item.Kind, restrict)
		}
		return key, nil
	}
	if s.visiting[key] {
		return "", fmt.Errorf("%w: via %s", ErrCyclicReference, key)
	}

	if _, err := os.Stat(string(key)); err != nil {
		return "", fmt.Errorf("resolver: %s: %w", path, err)
	}

	dir := filepath.Dir(string(key))
	var doc *content.Document
	srcPath := ""
	if content.IsTOML(string(key)) {
		parsed, err := content.ReadDocumentFile(string(key))
		if err != nil {
			return "", err
		}
		doc = parsed
	} else {
		kind, ok := content.SourceKindForExtension(string(key))
		if !ok {
			return "", fmt.Errorf("resolver: %s: unrecognized source file extension", key)
		}
		doc = defaultDocument(kind)
		srcPath = string(key)
	}
	if restrict != anyKind && doc.Kind != restrict {
		return "", kindMismatch(key, doc.Kind, restrict)
	}

	s.visiting[key] = true
	defer delete(s.visiting, key)
	return key, s.addDocument(key, dir, doc, srcPath)
}

// defaultDocument synthesizes the per-asset document implied by a
// bare source binary matched directly by a group glob. The source
// path travels separately, already resolved.
func defaultDocument(kind assets.Kind) *content.Document {
	doc := &content.Document{Kind: kind}
	switch kind {
	case assets.KindBitmap:
		doc.Bitmap = &content.Bitmap{Mips: content.MipLevels{Count: 1}}
	case assets.KindMesh:
		doc.Mesh = &content.Mesh{ScaleVec: [3]float32{1, 1, 1}}
	case assets.KindBitmapFont:
		doc.BitmapFont = &content.BitmapFont{}
	}
	return doc
}

// addDocument expands one parsed document's references depth-first,
// then appends the item itself, so the emitted list is topologically
// ordered. srcPath, when non-empty, is the already-resolved source
// binary path of a bare source file; otherwise the document's src
// field (or stem probe) decides.
func (s *resolveState) addDocument(key assets.Key, dir string, doc *content.Document, srcPath string) error {
	item := &Item{Key: key, Kind: doc.Kind, Doc: doc, Dir: dir, Deps: make(map[string]assets.Key), SrcPath: srcPath}

	resolveSrc := func(src string) error {
		if item.SrcPath != "" {
			return nil
		}
		resolved, err := s.resolveSrc(dir, string(key), src, doc.Kind)
		if err != nil {
			return err
		}
		item.SrcPath = resolved
		return nil
	}

	switch doc.Kind {
	case assets.KindBitmap:
		if err := resolveSrc(doc.Bitmap.Src); err != nil {
			return err
		}
	case assets.KindMesh:
		if err := resolveSrc(doc.Mesh.Src); err != nil {
			return err
		}
	case assets.KindAnimation:
		if err := resolveSrc(doc.Animation.Src); err != nil {
			return err
		}
	case assets.KindBitmapFont:
		if err := resolveSrc(doc.BitmapFont.Src); err != nil {
			return err
		}
		if err := s.addFontPages(item); err != nil {
			return err
		}
	case assets.KindMaterial:
		if err := s.addMaterialRefs(item, doc.Material, dir, ""); err != nil {
			return err
		}
	case assets.KindModel:
		for entryIndex, entry := range doc.Model.Entries {
			meshKey, err := s.addRef(dir, entry.Mesh, assets.KindMesh)
			if err != nil {
				return fmt.Errorf("resolver: %s entry %d mesh: %w", key, entryIndex, err)
			}
			item.Deps[fmt.Sprintf("entry%d.mesh", entryIndex)] = meshKey
			for materialIndex, ref := range entry.MaterialRefs {
				name := fmt.Sprintf("entry%d.material%d", entryIndex, materialIndex)
				if err := s.addMaterialRef(item, ref, dir, name); err != nil {
					return fmt.Errorf("resolver: %s %s: %w", key, name, err)
				}
			}
		}
	case assets.KindScene:
		for refIndex, ref := range doc.Scene.Refs {
			if ref.IsAnchor() {
				continue
			}
			meshKey, err := s.addRef(dir, ref.Mesh, assets.KindMesh)
			if err != nil {
				return fmt.Errorf("resolver: %s ref %d mesh: %w", key, refIndex, err)
			}
			item.Deps[fmt.Sprintf("ref%d.mesh", refIndex)] = meshKey
			for materialIndex, materialRef := range ref.MaterialRefs {
				name := fmt.Sprintf("ref%d.material%d", refIndex, materialIndex)
				if err := s.addMaterialRef(item, materialRef, dir, name); err != nil {
					return fmt.Errorf("resolver: %s %s: %w", key, name, err)
				}
			}
		}
	}

	s.items = append(s.items, item)
	s.byKey[key] = item
	return nil
}

// addMaterialRefs expands one material's slot values: path values
// become bitmap references, inline tables become synthesized bitmap
// assets keyed under the material's own key.
func (s *resolveState) addMaterialRefs(item *Item, material *content.Material, dir, prefix string) error {
	slotNames := [...]struct {
		slot assets.Slot
		name string
	}{
		{assets.SlotColor, "color"},
		{assets.SlotNormal, "normal"},
		{assets.SlotMetal, "metal"},
		{assets.SlotRough, "rough"},
		{assets.SlotDisplacement, "displacement"},
		{assets.SlotEmissive, "emissive"},
	}
	for _, slot := range slotNames {
		value := material.Slot(slot.slot)
		depName := slot.name
		if prefix != "" {
			depName = prefix + "." + slot.name
		}
		switch value.Kind {
		case content.ValuePath:
			bitmapKey, err := s.addRef(dir, value.Path, assets.KindBitmap)
			if err != nil {
				return fmt.Errorf("resolver: %s %s: %w", item.Key, depName, err)
			}
			item.Deps[depName] = bitmapKey
		case content.ValueInline:
			bitmapKey, err := s.addInlineBitmap(item.Key, depName, value.Inline, dir)
			if err != nil {
				return fmt.Errorf("resolver: %s %s: %w", item.Key, depName, err)
			}
			item.Deps[depName] = bitmapKey
		}
	}
	return nil
}

// addMaterialRef enlists one model/scene material reference: a path
// to a material document, or an inline material table synthesized
// under the referer's key.
func (s *resolveState) addMaterialRef(item *Item, ref content.AssetRef, dir, depName string) error {
	if ref.Path != "" {
		materialKey, err := s.addRef(dir, ref.Path, assets.KindMaterial)
		if err != nil {
			return err
		}
		item.Deps[depName] = materialKey
		return nil
	}

	syntheticKey := assets.Key(fmt.Sprintf("%s#%s", item.Key, depName))
	if _, ok := s.byKey[syntheticKey]; !ok {
		doc := &content.Document{Kind: assets.KindMaterial, Material: ref.Inline}
		if err := s.addDocument(syntheticKey, dir, doc, ""); err != nil {
			return err
		}
	}
	item.Deps[depName] = syntheticKey
	return nil
}

// addInlineBitmap enlists an inline bitmap table under a synthesized
// key derived from the parent asset's key and the field name.
func (s *resolveState) addInlineBitmap(parentKey assets.Key, fieldName string, bitmap *content.Bitmap, dir string) (assets.Key, error) {
	syntheticKey := assets.Key(fmt.Sprintf("%s#%s", parentKey, fieldName))
	if _, ok := s.byKey[syntheticKey]; ok {
		return syntheticKey, nil
	}
	doc := &content.Document{Kind: assets.KindBitmap, Bitmap: bitmap}
	if err := s.addDocument(syntheticKey, dir, doc, ""); err != nil {
		return "", err
	}
	return syntheticKey, nil
}

// addFontPages parses the font definition's page list and enlists
// each page image as a bitmap.
func (s *resolveState) addFontPages(item *Item) error {
	data, err := os.ReadFile(item.SrcPath)
	if err != nil {
		return fmt.Errorf("resolver: reading font %s: %w", item.SrcPath, err)
	}
	info, err := fontsource.Parse(data)
	if err != nil {
		return fmt.Errorf("resolver: %s: %w", item.Key, err)
	}
	fontDir := filepath.Dir(item.SrcPath)
	for pageIndex, pageFile := range info.Pages {
		pageKey, err := s.addRef(fontDir, pageFile, assets.KindBitmap)
		if err != nil {
			return fmt.Errorf("resolver: %s page %d: %w", item.Key, pageIndex, err)
		}
		item.Deps[fmt.Sprintf("page%d", pageIndex)] = pageKey
	}
	return nil
}

// addRef resolves a reference path (relative to the referring
// document's directory, or content-root-relative when absolute) and
// enlists the target, restricted to the expected kind.
func (s *resolveState) addRef(dir, ref string, want assets.Kind) (assets.Key, error) {
	return s.addPath(s.joinRef(dir, ref), want)
}

// joinRef implements the reference path rule: relative paths resolve
// against the referring document's directory; absolute paths are
// content-root-relative, never host-filesystem-absolute.
func (s *resolveState) joinRef(dir, ref string) string {
	if filepath.IsAbs(ref) {
		rooted := strings.TrimLeft(filepath.ToSlash(ref), "/")
		return filepath.Join(s.contentDir, filepath.FromSlash(rooted))
	}
	return filepath.Join(dir, ref)
}

// srcExtensions lists the extension probe order for documents whose
// src field is absent: the document's own stem is tried with each in
// turn.
var srcExtensions = map[assets.Kind][]string{
	assets.KindBitmap:     {".png", ".jpg", ".jpeg", ".bmp", ".gif", ".webp", ".tiff"},
	assets.KindMesh:       {".glb", ".gltf"},
	assets.KindAnimation:  {".glb", ".gltf"},
	assets.KindBitmapFont: {".fnt"},
}

// resolveSrc resolves a document's src field to an absolute source
// path. An empty src probes the document's own stem with the kind's
// extensions.
func (s *resolveState) resolveSrc(dir, docPath, src string, kind assets.Kind) (string, error) {
	if src == "" {
		stem := strings.TrimSuffix(docPath, filepath.Ext(docPath))
		for _, ext := range srcExtensions[kind] {
			candidate := stem + ext
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				return candidate, nil
			}
		}
		return "", fmt.Errorf("resolver: %s: no src field and no %s source found next to the document", docPath, kind)
	}
	resolved := s.joinRef(dir, src)
	if _, err := os.Stat(resolved); err != nil {
		return "", fmt.Errorf("resolver: %s: src %s: %w", docPath, src, err)
	}
	return resolved, nil
}
