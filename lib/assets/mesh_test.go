// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package assets

import "testing"

func TestMeshRoundTrip(t *testing.T) {
	m := &Mesh{
		Parts: []Part{
			{
				MaterialSlot: 0,
				VertexFlags:  VertexHasNormal | VertexHasUV,
				VertexCount:  4,
				VertexData:   make([]byte, 4*(VertexHasNormal|VertexHasUV).Stride()),
				Indices:      []uint32{0, 1, 2, 0, 2, 3},
				LODs: []LOD{
					{Indices: []uint32{0, 1, 2, 0, 2, 3}}, // 2 triangles
					{Indices: []uint32{0, 1, 2}},          // 1 triangle
				},
				HasShadow:      true,
				ShadowVertices: make([]byte, 4*12),
				ShadowIndices:  []uint32{0, 1, 2, 0, 2, 3},
			},
		},
		Joints: []Joint{
			{Name: "root", ParentIndex: -1},
			{Name: "child", ParentIndex: 0},
		},
	}

	encoded, err := m.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	var decoded Mesh
	if err := decoded.UnmarshalBinary(encoded); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if len(decoded.Parts) != 1 || len(decoded.Parts[0].LODs) != 2 {
		t.Fatalf("decoded mesh shape mismatch: %+v", decoded)
	}
	if decoded.Joints[1].ParentIndex != 0 || decoded.Joints[0].ParentIndex != -1 {
		t.Fatalf("decoded joint parents mismatch: %+v", decoded.Joints)
	}
}

func TestMeshValidateRejectsOutOfBoundsIndex(t *testing.T) {
	m := &Mesh{Parts: []Part{{VertexCount: 3, Indices: []uint32{0, 1, 3}}}}
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for out-of-bounds index")
	}
}

func TestMeshValidateRejectsNonDecreasingLODs(t *testing.T) {
	m := &Mesh{Parts: []Part{{
		VertexCount: 6,
		Indices:     []uint32{0, 1, 2},
		LODs: []LOD{
			{Indices: []uint32{0, 1, 2}},          // 1 triangle
			{Indices: []uint32{0, 1, 2, 3, 4, 5}}, // 2 triangles, not decreasing
		},
	}}}
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for non-decreasing LOD triangle counts")
	}
}
