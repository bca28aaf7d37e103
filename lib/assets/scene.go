// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package assets

import (
	"fmt"
	"sort"
)

// Transform is a rigid transform: translation, rotation (quaternion
// xyzw), and uniform/non-uniform scale.
type Transform struct {
	Translation [3]float32
	Rotation    [4]float32
	Scale       [3]float32
}

// SceneRefKind tags whether a SceneRef is a baked asset reference or
// a named anchor (§3.2).
type SceneRefKind uint8

const (
	SceneRefAsset  SceneRefKind = 0
	SceneRefAnchor SceneRefKind = 1
)

// SceneRef is one entry of a Scene's ordered ref list: either a
// referenced mesh+materials placed with a transform, or a named
// anchor carrying tags and a free-form string data map (§3.2).
type SceneRef struct {
	Kind      SceneRefKind
	Transform Transform

	// Valid when Kind == SceneRefAsset.
	Mesh      BlobId
	Materials []BlobId

	// Valid when Kind == SceneRefAnchor.
	Name string
	Tags []string
	Data map[string]string
}

// SceneGeometry is one inline navmesh/collision block (§3.2).
type SceneGeometry struct {
	Vertices  []float32 // tightly packed xyz triples
	Indices   []uint32
	Transform Transform
	Tags      []string
}

// Scene is the baked, canonical form of a scene asset (§3.2).
type Scene struct {
	Refs     []SceneRef
	Geometry []SceneGeometry
}

// Validate enforces that anchor names are unique within the scene —
// adopted from original_source/src/scene.rs, see SPEC_FULL.md §12.
func (s *Scene) Validate() error {
	seen := make(map[string]bool)
	for _, ref := range s.Refs {
		if ref.Kind != SceneRefAnchor {
			continue
		}
		if seen[ref.Name] {
			return fmt.Errorf("scene: duplicate anchor name %q", ref.Name)
		}
		seen[ref.Name] = true
	}
	return nil
}

func writeTransform(e *encoder, t Transform) {
	for _, v := range t.Translation {
		e.f32(v)
	}
	for _, v := range t.Rotation {
		e.f32(v)
	}
	for _, v := range t.Scale {
		e.f32(v)
	}
}

func readTransform(d *decoder) (Transform, error) {
	var t Transform
	var err error
	for i := range t.Translation {
		if t.Translation[i], err = d.f32(); err != nil {
			return t, fmt.Errorf("translation[%d]: %w", i, err)
		}
	}
	for i := range t.Rotation {
		if t.Rotation[i], err = d.f32(); err != nil {
			return t, fmt.Errorf("rotation[%d]: %w", i, err)
		}
	}
	for i := range t.Scale {
		if t.Scale[i], err = d.f32(); err != nil {
			return t, fmt.Errorf("scale[%d]: %w", i, err)
		}
	}
	return t, nil
}

func writeStrings(e *encoder, ss []string) {
	e.u32(uint32(len(ss)))
	for _, s := range ss {
		e.str(s)
	}
}

func readStrings(d *decoder) ([]string, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = d.str(); err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return out, nil
}

func (s *Scene) MarshalBinary() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	e := newEncoder()
	e.u32(uint32(len(s.Refs)))
	for _, ref := range s.Refs {
		e.u8(uint8(ref.Kind))
		writeTransform(e, ref.Transform)
		switch ref.Kind {
		case SceneRefAsset:
			e.u32(uint32(ref.Mesh))
			e.u32(uint32(len(ref.Materials)))
			for _, m := range ref.Materials {
				e.u32(uint32(m))
			}
		case SceneRefAnchor:
			e.str(ref.Name)
			writeStrings(e, ref.Tags)
			e.u32(uint32(len(ref.Data)))
			keys := sortedKeys(ref.Data)
			for _, k := range keys {
				e.str(k)
				e.str(ref.Data[k])
			}
		}
	}
	e.u32(uint32(len(s.Geometry)))
	for _, g := range s.Geometry {
		e.u32(uint32(len(g.Vertices)))
		for _, v := range g.Vertices {
			e.f32(v)
		}
		e.u32(uint32(len(g.Indices)))
		for _, idx := range g.Indices {
			e.u32(idx)
		}
		writeTransform(e, g.Transform)
		writeStrings(e, g.Tags)
	}
	return e.bytes(), nil
}

func (s *Scene) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	refCount, err := d.u32()
	if err != nil {
		return fmt.Errorf("assets: decoding scene ref count: %w", err)
	}
	s.Refs = make([]SceneRef, refCount)
	for i := range s.Refs {
		ref := &s.Refs[i]
		kind, err := d.u8()
		if err != nil {
			return fmt.Errorf("assets: decoding scene ref %d kind: %w", i, err)
		}
		ref.Kind = SceneRefKind(kind)
		if ref.Transform, err = readTransform(d); err != nil {
			return fmt.Errorf("assets: decoding scene ref %d transform: %w", i, err)
		}
		switch ref.Kind {
		case SceneRefAsset:
			meshRef, err := d.u32()
			if err != nil {
				return fmt.Errorf("assets: decoding scene ref %d mesh: %w", i, err)
			}
			ref.Mesh = BlobId(meshRef)
			matCount, err := d.u32()
			if err != nil {
				return fmt.Errorf("assets: decoding scene ref %d material count: %w", i, err)
			}
			ref.Materials = make([]BlobId, matCount)
			for j := range ref.Materials {
				v, err := d.u32()
				if err != nil {
					return fmt.Errorf("assets: decoding scene ref %d material %d: %w", i, j, err)
				}
				ref.Materials[j] = BlobId(v)
			}
		case SceneRefAnchor:
			if ref.Name, err = d.str(); err != nil {
				return fmt.Errorf("assets: decoding scene ref %d name: %w", i, err)
			}
			if ref.Tags, err = readStrings(d); err != nil {
				return fmt.Errorf("assets: decoding scene ref %d tags: %w", i, err)
			}
			dataCount, err := d.u32()
			if err != nil {
				return fmt.Errorf("assets: decoding scene ref %d data count: %w", i, err)
			}
			ref.Data = make(map[string]string, dataCount)
			for j := uint32(0); j < dataCount; j++ {
				k, err := d.str()
				if err != nil {
					return fmt.Errorf("assets: decoding scene ref %d data key %d: %w", i, j, err)
				}
				v, err := d.str()
				if err != nil {
					return fmt.Errorf("assets: decoding scene ref %d data value %d: %w", i, j, err)
				}
				ref.Data[k] = v
			}
		}
	}
	geomCount, err := d.u32()
	if err != nil {
		return fmt.Errorf("assets: decoding scene geometry count: %w", err)
	}
	s.Geometry = make([]SceneGeometry, geomCount)
	for i := range s.Geometry {
		g := &s.Geometry[i]
		vertexCount, err := d.u32()
		if err != nil {
			return fmt.Errorf("assets: decoding scene geometry %d vertex count: %w", i, err)
		}
		g.Vertices = make([]float32, vertexCount)
		for j := range g.Vertices {
			if g.Vertices[j], err = d.f32(); err != nil {
				return fmt.Errorf("assets: decoding scene geometry %d vertex %d: %w", i, j, err)
			}
		}
		indexCount, err := d.u32()
		if err != nil {
			return fmt.Errorf("assets: decoding scene geometry %d index count: %w", i, err)
		}
		g.Indices = make([]uint32, indexCount)
		for j := range g.Indices {
			if g.Indices[j], err = d.u32(); err != nil {
				return fmt.Errorf("assets: decoding scene geometry %d index %d: %w", i, j, err)
			}
		}
		if g.Transform, err = readTransform(d); err != nil {
			return fmt.Errorf("assets: decoding scene geometry %d transform: %w", i, err)
		}
		if g.Tags, err = readStrings(d); err != nil {
			return fmt.Errorf("assets: decoding scene geometry %d tags: %w", i, err)
		}
	}
	if !d.done() {
		return fmt.Errorf("assets: trailing bytes after scene encoding")
	}
	return s.Validate()
}

// sortedKeys returns m's keys sorted ascending, used to make the
// scene anchor data map's encoding deterministic (§8 "Determinism").
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
