// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package assets

import "fmt"

// VertexFlags records which optional vertex attributes a Part's
// vertex buffer carries, so the byte stride of the interleaved buffer
// can be recomputed without re-deriving it from raw bytes.
type VertexFlags uint8

const (
	VertexHasNormal  VertexFlags = 1 << 0
	VertexHasTangent VertexFlags = 1 << 1
	VertexHasUV      VertexFlags = 1 << 2
	VertexHasSkin    VertexFlags = 1 << 3
)

// Stride returns the interleaved vertex byte stride implied by the
// flags: position (3 float32) is always present; normal and tangent
// are 3 and 4 float32 respectively (tangent carries a signed
// handedness in its 4th component, §3.3); UV is 2 float32; skin is 4
// uint16 joint indices + 4 float32 weights.
func (f VertexFlags) Stride() int {
	stride := 3 * 4 // position
	if f&VertexHasNormal != 0 {
		stride += 3 * 4
	}
	if f&VertexHasTangent != 0 {
		stride += 4 * 4
	}
	if f&VertexHasUV != 0 {
		stride += 2 * 4
	}
	if f&VertexHasSkin != 0 {
		stride += 4*2 + 4*4
	}
	return stride
}

// LOD is one progressively simplified index buffer for a Part,
// decreasing in triangle count (§3.3 "LOD ordering").
type LOD struct {
	Indices []uint32
}

// TriangleCount returns len(Indices)/3.
func (l LOD) TriangleCount() int { return len(l.Indices) / 3 }

// Part is one drawable piece of a Mesh, bound to a single material
// slot (§3.2).
type Part struct {
	MaterialSlot uint32
	VertexFlags  VertexFlags
	VertexCount  uint32
	VertexData   []byte // interleaved, VertexCount * VertexFlags.Stride() bytes
	Indices      []uint32
	LODs         []LOD // optional; decreasing triangle count, strictly

	HasShadow      bool
	ShadowVertices []byte // position-only, tightly packed float32 triples
	ShadowIndices  []uint32
}

// Joint is one bone in a Mesh's skeleton (§3.2).
type Joint struct {
	Name string
	// ParentIndex is the index of the parent joint within Mesh.Joints,
	// or -1 for a root joint.
	ParentIndex int32
	// InverseBind is a 4x4 row-major matrix, 16 float32 values.
	InverseBind [16]float32
}

// Mesh is the baked, canonical form of a mesh asset (§3.2): one or
// more Parts plus an optional shared skeleton.
type Mesh struct {
	Parts  []Part
	Joints []Joint // empty if the mesh has no skin
}

// Validate checks the mesh invariants from §3.3: every index is in
// bounds, and LOD triangle counts strictly decrease.
func (m *Mesh) Validate() error {
	for pi, part := range m.Parts {
		for _, idx := range part.Indices {
			if idx >= part.VertexCount {
				return fmt.Errorf("mesh: part %d index %d out of bounds for vertex count %d", pi, idx, part.VertexCount)
			}
		}
		prevTriangles := -1
		for li, lod := range part.LODs {
			for _, idx := range lod.Indices {
				if idx >= part.VertexCount {
					return fmt.Errorf("mesh: part %d lod %d index %d out of bounds for vertex count %d", pi, li, idx, part.VertexCount)
				}
			}
			triangles := lod.TriangleCount()
			if prevTriangles >= 0 && triangles >= prevTriangles {
				return fmt.Errorf("mesh: part %d lod %d has %d triangles, not strictly less than previous LOD's %d", pi, li, triangles, prevTriangles)
			}
			prevTriangles = triangles
		}
		if part.HasShadow {
			for _, idx := range part.ShadowIndices {
				if int(idx) >= len(part.ShadowVertices)/12 {
					return fmt.Errorf("mesh: part %d shadow index %d out of bounds", pi, idx)
				}
			}
		}
	}
	return nil
}

func (m *Mesh) MarshalBinary() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	e := newEncoder()
	e.u32(uint32(len(m.Parts)))
	for _, p := range m.Parts {
		e.u32(p.MaterialSlot)
		e.u8(uint8(p.VertexFlags))
		e.u32(p.VertexCount)
		e.lenBytes(p.VertexData)
		e.u32(uint32(len(p.Indices)))
		for _, idx := range p.Indices {
			e.u32(idx)
		}
		e.u32(uint32(len(p.LODs)))
		for _, lod := range p.LODs {
			e.u32(uint32(len(lod.Indices)))
			for _, idx := range lod.Indices {
				e.u32(idx)
			}
		}
		if p.HasShadow {
			e.u8(1)
			e.lenBytes(p.ShadowVertices)
			e.u32(uint32(len(p.ShadowIndices)))
			for _, idx := range p.ShadowIndices {
				e.u32(idx)
			}
		} else {
			e.u8(0)
		}
	}
	e.u32(uint32(len(m.Joints)))
	for _, j := range m.Joints {
		e.str(j.Name)
		e.u32(uint32(int32(j.ParentIndex)))
		for _, f := range j.InverseBind {
			e.f32(f)
		}
	}
	return e.bytes(), nil
}

func (m *Mesh) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	partCount, err := d.u32()
	if err != nil {
		return fmt.Errorf("assets: decoding mesh part count: %w", err)
	}
	m.Parts = make([]Part, partCount)
	for pi := range m.Parts {
		p := &m.Parts[pi]
		if p.MaterialSlot, err = d.u32(); err != nil {
			return fmt.Errorf("assets: decoding part %d material slot: %w", pi, err)
		}
		flags, err := d.u8()
		if err != nil {
			return fmt.Errorf("assets: decoding part %d vertex flags: %w", pi, err)
		}
		p.VertexFlags = VertexFlags(flags)
		if p.VertexCount, err = d.u32(); err != nil {
			return fmt.Errorf("assets: decoding part %d vertex count: %w", pi, err)
		}
		if p.VertexData, err = d.lenBytes(); err != nil {
			return fmt.Errorf("assets: decoding part %d vertex data: %w", pi, err)
		}
		indexCount, err := d.u32()
		if err != nil {
			return fmt.Errorf("assets: decoding part %d index count: %w", pi, err)
		}
		p.Indices = make([]uint32, indexCount)
		for i := range p.Indices {
			if p.Indices[i], err = d.u32(); err != nil {
				return fmt.Errorf("assets: decoding part %d index %d: %w", pi, i, err)
			}
		}
		lodCount, err := d.u32()
		if err != nil {
			return fmt.Errorf("assets: decoding part %d lod count: %w", pi, err)
		}
		p.LODs = make([]LOD, lodCount)
		for li := range p.LODs {
			n, err := d.u32()
			if err != nil {
				return fmt.Errorf("assets: decoding part %d lod %d index count: %w", pi, li, err)
			}
			p.LODs[li].Indices = make([]uint32, n)
			for i := range p.LODs[li].Indices {
				if p.LODs[li].Indices[i], err = d.u32(); err != nil {
					return fmt.Errorf("assets: decoding part %d lod %d index %d: %w", pi, li, i, err)
				}
			}
		}
		hasShadow, err := d.u8()
		if err != nil {
			return fmt.Errorf("assets: decoding part %d shadow flag: %w", pi, err)
		}
		if hasShadow != 0 {
			p.HasShadow = true
			if p.ShadowVertices, err = d.lenBytes(); err != nil {
				return fmt.Errorf("assets: decoding part %d shadow vertices: %w", pi, err)
			}
			shadowIndexCount, err := d.u32()
			if err != nil {
				return fmt.Errorf("assets: decoding part %d shadow index count: %w", pi, err)
			}
			p.ShadowIndices = make([]uint32, shadowIndexCount)
			for i := range p.ShadowIndices {
				if p.ShadowIndices[i], err = d.u32(); err != nil {
					return fmt.Errorf("assets: decoding part %d shadow index %d: %w", pi, i, err)
				}
			}
		}
	}
	jointCount, err := d.u32()
	if err != nil {
		return fmt.Errorf("assets: decoding mesh joint count: %w", err)
	}
	m.Joints = make([]Joint, jointCount)
	for ji := range m.Joints {
		j := &m.Joints[ji]
		if j.Name, err = d.str(); err != nil {
			return fmt.Errorf("assets: decoding joint %d name: %w", ji, err)
		}
		parentRaw, err := d.u32()
		if err != nil {
			return fmt.Errorf("assets: decoding joint %d parent index: %w", ji, err)
		}
		j.ParentIndex = int32(parentRaw)
		for i := range j.InverseBind {
			if j.InverseBind[i], err = d.f32(); err != nil {
				return fmt.Errorf("assets: decoding joint %d inverse bind [%d]: %w", ji, i, err)
			}
		}
	}
	if !d.done() {
		return fmt.Errorf("assets: trailing bytes after mesh encoding")
	}
	return m.Validate()
}
