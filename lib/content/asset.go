// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/pak-forge/pak/lib/assets"
)

// Bitmap describes how to bake one image source file.
type Bitmap struct {
	Src string `toml:"src"`
	// ColorSpace is "linear" or "srgb"; empty defaults to srgb, the
	// common case for authored color textures.
	ColorSpace string `toml:"color-space"`
	// Resize, when set, uniformly scales the source so that
	// max(width, height) <= Resize.
	Resize uint32 `toml:"resize"`
	// Swizzle remaps channels by a [rgba]{1,4} mapping string; the
	// output channel count equals the mapping length.
	Swizzle string `toml:"swizzle"`
	// MipLevels is false/absent or 1 for a single mip, true for a
	// full chain, or an integer cap.
	MipLevels any `toml:"mip-levels"`

	Mips MipLevels `toml:"-"`
}

func (b *Bitmap) normalize() error {
	switch b.ColorSpace {
	case "", "linear", "srgb":
	default:
		return fmt.Errorf("color-space must be \"linear\" or \"srgb\", got %q", b.ColorSpace)
	}
	if b.Swizzle != "" {
		if len(b.Swizzle) < 1 || len(b.Swizzle) > 4 {
			return fmt.Errorf("swizzle %q must have 1 to 4 channels", b.Swizzle)
		}
		for _, c := range b.Swizzle {
			switch c {
			case 'r', 'g', 'b', 'a':
			default:
				return fmt.Errorf("swizzle %q contains %q, want only r, g, b, a", b.Swizzle, c)
			}
		}
	}
	mips, err := ParseMipLevels(b.MipLevels)
	if err != nil {
		return err
	}
	b.Mips = mips
	return nil
}

// SRGB reports whether the baked bitmap should carry the srgb color
// space tag.
func (b *Bitmap) SRGB() bool { return b.ColorSpace != "linear" }

// BitmapFont describes how to bake one AngelCode .fnt definition and
// its page images.
type BitmapFont struct {
	Src string `toml:"src"`
}

func (f *BitmapFont) normalize() error { return nil }

// Mesh describes how to bake one mesh out of a glTF source file.
type Mesh struct {
	Src string `toml:"src"`
	// Name selects a mesh within the source file; empty selects the
	// first mesh.
	Name string `toml:"name"`
	// SceneName selects a scene within the source file; empty selects
	// the document default.
	SceneName string `toml:"scene-name"`

	Normals    *bool `toml:"normals"`
	Tangents   *bool `toml:"tangents"`
	IgnoreSkin *bool `toml:"ignore-skin"`

	Optimize          *bool    `toml:"optimize"`
	OverdrawThreshold *float64 `toml:"overdraw-threshold"`

	LOD             *bool    `toml:"lod"`
	LODLockBorder   *bool    `toml:"lod-lock-border"`
	LODTargetError  *float64 `toml:"lod-target-error"`
	MinLODTriangles *int     `toml:"min-lod-triangles"`

	Shadow *bool `toml:"shadow"`

	FlipX *bool `toml:"flip-x"`
	FlipY *bool `toml:"flip-y"`
	FlipZ *bool `toml:"flip-z"`

	// Euler names the rotation order (a permutation of "xyz") used
	// when Rotation holds three Euler angles.
	Euler       string `toml:"euler"`
	Rotation    any    `toml:"rotation"`
	Scale       any    `toml:"scale"`
	Translation any    `toml:"translation"`
	// Offset is an additional translation applied after the full
	// transform.
	Offset any `toml:"offset"`

	Rot            Rotation   `toml:"-"`
	ScaleVec       [3]float32 `toml:"-"`
	TranslationVec [3]float32 `toml:"-"`
	OffsetVec      [3]float32 `toml:"-"`
}

// Mesh bake defaults. LOD generation halves triangle counts until
// the floor or the error bound is hit.
const (
	DefaultMinLODTriangles   = 64
	DefaultLODTargetError    = 0.05
	DefaultOverdrawThreshold = 1.05
)

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

// WantNormals, WantTangents etc. resolve the optional flags to their
// bake defaults.
func (m *Mesh) WantNormals() bool  { return boolOr(m.Normals, true) }
func (m *Mesh) WantTangents() bool { return boolOr(m.Tangents, false) }
func (m *Mesh) SkipSkin() bool     { return boolOr(m.IgnoreSkin, false) }
func (m *Mesh) WantOptimize() bool { return boolOr(m.Optimize, true) }
func (m *Mesh) WantLOD() bool      { return boolOr(m.LOD, false) }
func (m *Mesh) LockBorder() bool   { return boolOr(m.LODLockBorder, false) }
func (m *Mesh) WantShadow() bool   { return boolOr(m.Shadow, false) }
func (m *Mesh) FlipXAxis() bool    { return boolOr(m.FlipX, false) }
func (m *Mesh) FlipYAxis() bool    { return boolOr(m.FlipY, false) }
func (m *Mesh) FlipZAxis() bool    { return boolOr(m.FlipZ, false) }

func (m *Mesh) Overdraw() float32 {
	if m.OverdrawThreshold == nil {
		return DefaultOverdrawThreshold
	}
	return float32(*m.OverdrawThreshold)
}

func (m *Mesh) TargetError() float32 {
	if m.LODTargetError == nil {
		return DefaultLODTargetError
	}
	return float32(*m.LODTargetError)
}

func (m *Mesh) MinTriangles() int {
	if m.MinLODTriangles == nil {
		return DefaultMinLODTriangles
	}
	return *m.MinLODTriangles
}

func (m *Mesh) normalize() error {
	if m.Euler != "" {
		if err := validateEulerOrder(m.Euler); err != nil {
			return err
		}
	}
	var err error
	if m.Rot, err = ParseRotation(m.Rotation); err != nil {
		return err
	}
	if m.ScaleVec, err = ParseScale(m.Scale); err != nil {
		return err
	}
	if m.TranslationVec, err = ParseVec3(m.Translation, [3]float32{}); err != nil {
		return fmt.Errorf("translation: %w", err)
	}
	if m.OffsetVec, err = ParseVec3(m.Offset, [3]float32{}); err != nil {
		return fmt.Errorf("offset: %w", err)
	}
	return nil
}

// EulerOrder resolves the euler field, defaulting to "xyz".
func (m *Mesh) EulerOrder() string {
	if m.Euler == "" {
		return "xyz"
	}
	return m.Euler
}

func validateEulerOrder(order string) error {
	if len(order) != 3 {
		return fmt.Errorf("euler order %q must be a permutation of \"xyz\"", order)
	}
	var seen [3]bool
	for _, c := range order {
		switch c {
		case 'x':
			seen[0] = true
		case 'y':
			seen[1] = true
		case 'z':
			seen[2] = true
		}
	}
	if !seen[0] || !seen[1] || !seen[2] {
		return fmt.Errorf("euler order %q must be a permutation of \"xyz\"", order)
	}
	return nil
}

// Animation describes how to bake one animation clip out of a glTF
// source file.
type Animation struct {
	Src string `toml:"src"`
	// Name selects a clip within the source file; empty selects the
	// first clip.
	Name string `toml:"name"`
	// Exclude lists channels to drop: "joint" drops every path bound
	// to that joint, "joint:rotation" drops one path.
	Exclude []string `toml:"exclude"`
}

func (a *Animation) normalize() error {
	for _, entry := range a.Exclude {
		joint, path, found := strings.Cut(entry, ":")
		if joint == "" {
			return fmt.Errorf("exclude entry %q has an empty joint name", entry)
		}
		if found {
			switch path {
			case "translation", "rotation", "scale", "weights":
			default:
				return fmt.Errorf("exclude entry %q names unknown path %q", entry, path)
			}
		}
	}
	return nil
}

// Excluded reports whether the (joint, path) channel is excluded.
func (a *Animation) Excluded(joint, path string) bool {
	for _, entry := range a.Exclude {
		entryJoint, entryPath, hasPath := strings.Cut(entry, ":")
		if entryJoint != joint {
			continue
		}
		if !hasPath || entryPath == path {
			return true
		}
	}
	return false
}

// Material describes one PBR material. Every slot is polymorphic: a
// hex literal, a path, an inline bitmap table, or a scalar/vector.
type Material struct {
	Color        any   `toml:"color"`
	Normal       any   `toml:"normal"`
	Metal        any   `toml:"metal"`
	Rough        any   `toml:"rough"`
	Displacement any   `toml:"displacement"`
	Emissive     any   `toml:"emissive"`
	DoubleSided  *bool `toml:"double-sided"`

	slots [6]Value
}

func (m *Material) normalize() error {
	raw := [6]struct {
		name string
		node any
	}{
		{"color", m.Color},
		{"normal", m.Normal},
		{"metal", m.Metal},
		{"rough", m.Rough},
		{"displacement", m.Displacement},
		{"emissive", m.Emissive},
	}
	for i, field := range raw {
		value, err := ParseValue(field.node)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		m.slots[i] = value
	}
	return nil
}

// Slot returns the parsed value for one PBR slot.
func (m *Material) Slot(slot assets.Slot) Value { return m.slots[slot] }

// IsDoubleSided resolves the double-sided flag, defaulting to false.
func (m *Material) IsDoubleSided() bool { return boolOr(m.DoubleSided, false) }

// Model groups meshes with the materials that cover their parts.
type Model struct {
	Entries []ModelEntry `toml:"entry"`
}

// ModelEntry pairs one mesh reference with an ordered material list.
// Materials may be paths to material documents or inline material
// tables; a list shorter than the mesh's part count leaves trailing
// parts on an empty material.
type ModelEntry struct {
	Mesh      string `toml:"mesh"`
	Materials []any  `toml:"materials"`

	MaterialRefs []AssetRef `toml:"-"`
}

func (m *Model) normalize() error {
	if len(m.Entries) == 0 {
		return fmt.Errorf("model has no [[model.entry]] tables")
	}
	for i := range m.Entries {
		entry := &m.Entries[i]
		if entry.Mesh == "" {
			return fmt.Errorf("entry %d: missing mesh", i)
		}
		refs, err := parseMaterialRefs(entry.Materials)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		entry.MaterialRefs = refs
	}
	return nil
}

// AssetRef is a reference to another asset: either a path to its
// document (or bare source file), or an inline material table.
type AssetRef struct {
	Path   string
	Inline *Material
}

func parseMaterialRefs(raw []any) ([]AssetRef, error) {
	refs := make([]AssetRef, len(raw))
	for i, node := range raw {
		switch v := node.(type) {
		case string:
			if v == "" {
				return nil, fmt.Errorf("materials[%d]: empty path", i)
			}
			refs[i] = AssetRef{Path: v}
		case map[string]any:
			material, err := materialFromTable(v)
			if err != nil {
				return nil, fmt.Errorf("materials[%d]: %w", i, err)
			}
			refs[i] = AssetRef{Inline: material}
		default:
			return nil, fmt.Errorf("materials[%d]: expected a path or a material table, got %T", i, node)
		}
	}
	return refs, nil
}

// Scene describes a placed collection of assets, anchors, and inline
// geometry blocks.
type Scene struct {
	Refs     []SceneRef      `toml:"ref"`
	Geometry []SceneGeometry `toml:"geometry"`
}

// SceneRef is one placed entry: a mesh reference with materials, or
// (when Mesh is empty) a named anchor carrying tags and string data.
type SceneRef struct {
	Id        string            `toml:"id"`
	Mesh      string            `toml:"mesh"`
	Materials []any             `toml:"materials"`
	Euler     string            `toml:"euler"`
	Rotation  any               `toml:"rotation"`
	Scale     any               `toml:"scale"`
	Position  []float64         `toml:"position"`
	Tags      []string          `toml:"tags"`
	Data      map[string]string `toml:"data"`

	MaterialRefs []AssetRef `toml:"-"`
	Rot          Rotation   `toml:"-"`
	ScaleVec     [3]float32 `toml:"-"`
}

// IsAnchor reports whether the ref is a named anchor rather than a
// placed asset.
func (r *SceneRef) IsAnchor() bool { return r.Mesh == "" }

// PositionVec returns the ref's position, defaulting to the origin.
func (r *SceneRef) PositionVec() [3]float32 {
	var v [3]float32
	for i := 0; i < len(r.Position) && i < 3; i++ {
		v[i] = float32(r.Position[i])
	}
	return v
}

// SceneGeometry is one inline navmesh/collision block.
type SceneGeometry struct {
	Id       string    `toml:"id"`
	Vertices []float64 `toml:"vertices"`
	Indices  []int64   `toml:"indices"`
	Position []float64 `toml:"position"`
	Rotation any       `toml:"rotation"`
	Scale    any       `toml:"scale"`
	Tags     []string  `toml:"tags"`

	Rot      Rotation   `toml:"-"`
	ScaleVec [3]float32 `toml:"-"`
}

func (s *Scene) normalize() error {
	for i := range s.Refs {
		ref := &s.Refs[i]
		if ref.IsAnchor() && ref.Id == "" {
			return fmt.Errorf("ref %d: an anchor needs an id", i)
		}
		if ref.Euler != "" {
			if err := validateEulerOrder(ref.Euler); err != nil {
				return fmt.Errorf("ref %d: %w", i, err)
			}
		}
		if len(ref.Position) != 0 && len(ref.Position) != 3 {
			return fmt.Errorf("ref %d: position must have 3 components", i)
		}
		var err error
		if ref.Rot, err = ParseRotation(ref.Rotation); err != nil {
			return fmt.Errorf("ref %d: %w", i, err)
		}
		if ref.ScaleVec, err = ParseScale(ref.Scale); err != nil {
			return fmt.Errorf("ref %d: %w", i, err)
		}
		if ref.MaterialRefs, err = parseMaterialRefs(ref.Materials); err != nil {
			return fmt.Errorf("ref %d: %w", i, err)
		}
	}
	for i := range s.Geometry {
		geometry := &s.Geometry[i]
		if len(geometry.Vertices)%3 != 0 {
			return fmt.Errorf("geometry %d: vertex array length %d is not a multiple of 3", i, len(geometry.Vertices))
		}
		if len(geometry.Indices)%3 != 0 {
			return fmt.Errorf("geometry %d: index array length %d is not a multiple of 3", i, len(geometry.Indices))
		}
		if len(geometry.Position) != 0 && len(geometry.Position) != 3 {
			return fmt.Errorf("geometry %d: position must have 3 components", i)
		}
		var err error
		if geometry.Rot, err = ParseRotation(geometry.Rotation); err != nil {
			return fmt.Errorf("geometry %d: %w", i, err)
		}
		if geometry.ScaleVec, err = ParseScale(geometry.Scale); err != nil {
			return fmt.Errorf("geometry %d: %w", i, err)
		}
	}
	return nil
}

// Document is one parsed per-asset TOML file: exactly one of the kind
// pointers is non-nil, matching Kind.
type Document struct {
	Kind assets.Kind

	Bitmap     *Bitmap
	BitmapFont *BitmapFont
	Mesh       *Mesh
	Animation  *Animation
	Material   *Material
	Model      *Model
	Scene      *Scene
}

// documentFile is the on-disk shape of a per-asset document: exactly
// one root table named after the asset kind.
type documentFile struct {
	Bitmap     *Bitmap     `toml:"bitmap"`
	BitmapFont *BitmapFont `toml:"bitmap-font"`
	Mesh       *Mesh       `toml:"mesh"`
	Animation  *Animation  `toml:"animation"`
	Material   *Material   `toml:"material"`
	Model      *Model      `toml:"model"`
	Scene      *Scene      `toml:"scene"`
}

// ParseDocument parses a per-asset document from TOML bytes,
// validating that exactly one kind's root table is present and that
// every polymorphic field has a recognized shape.
func ParseDocument(data []byte) (*Document, error) {
	var file documentFile
	if err := strictUnmarshal(data, &file); err != nil {
		return nil, &ConfigError{Err: err}
	}

	type root struct {
		kind      assets.Kind
		normalize func() error
		assign    func(*Document)
	}
	var roots []root
	if file.Bitmap != nil {
		roots = append(roots, root{assets.KindBitmap, file.Bitmap.normalize, func(d *Document) { d.Bitmap = file.Bitmap }})
	}
	if file.BitmapFont != nil {
		roots = append(roots, root{assets.KindBitmapFont, file.BitmapFont.normalize, func(d *Document) { d.BitmapFont = file.BitmapFont }})
	}
	if file.Mesh != nil {
		roots = append(roots, root{assets.KindMesh, file.Mesh.normalize, func(d *Document) { d.Mesh = file.Mesh }})
	}
	if file.Animation != nil {
		roots = append(roots, root{assets.KindAnimation, file.Animation.normalize, func(d *Document) { d.Animation = file.Animation }})
	}
	if file.Material != nil {
		roots = append(roots, root{assets.KindMaterial, file.Material.normalize, func(d *Document) { d.Material = file.Material }})
	}
	if file.Model != nil {
		roots = append(roots, root{assets.KindModel, file.Model.normalize, func(d *Document) { d.Model = file.Model }})
	}
	if file.Scene != nil {
		roots = append(roots, root{assets.KindScene, file.Scene.normalize, func(d *Document) { d.Scene = file.Scene }})
	}

	if len(roots) == 0 {
		return nil, &ConfigError{Err: errors.New("document has no asset root table (bitmap, bitmap-font, mesh, animation, material, model, scene)")}
	}
	if len(roots) > 1 {
		return nil, &ConfigError{Err: fmt.Errorf("document has %d asset root tables, want exactly one", len(roots))}
	}
	selected := roots[0]
	if err := selected.normalize(); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("[%s]: %w", selected.kind, err)}
	}
	doc := &Document{Kind: selected.kind}
	selected.assign(doc)
	return doc, nil
}

// ReadDocumentFile reads and parses a per-asset document from disk.
func ReadDocumentFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		var cfg *ConfigError
		if errors.As(err, &cfg) {
			cfg.Path = path
		}
		return nil, err
	}
	return doc, nil
}

// fromTable round-trips a raw decoded TOML table through the strict
// decoder so inline tables (a bitmap inside a material slot, a
// material inside a scene ref) get the same unknown-field checking as
// standalone documents.
func fromTable[T any](table map[string]any, normalize func(*T) error) (*T, error) {
	data, err := toml.Marshal(table)
	if err != nil {
		return nil, fmt.Errorf("re-encoding inline table: %w", err)
	}
	out := new(T)
	if err := strictUnmarshal(data, out); err != nil {
		return nil, err
	}
	if err := normalize(out); err != nil {
		return nil, err
	}
	return out, nil
}

func bitmapFromTable(table map[string]any) (*Bitmap, error) {
	return fromTable(table, (*Bitmap).normalize)
}

func materialFromTable(table map[string]any) (*Material, error) {
	return fromTable(table, (*Material).normalize)
}

// SourceKindForExtension infers the asset kind of a bare source
// binary matched directly by a group glob. TOML documents carry their
// kind in the root table instead.
func SourceKindForExtension(path string) (assets.Kind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".gif", ".webp", ".tiff":
		return assets.KindBitmap, true
	case ".gltf", ".glb":
		return assets.KindMesh, true
	case ".fnt":
		return assets.KindBitmapFont, true
	default:
		return 0, false
	}
}

// IsTOML reports whether path has the .toml extension.
func IsTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
