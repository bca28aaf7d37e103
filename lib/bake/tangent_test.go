// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package bake

import "testing"

func TestComputeTangentsAlignedQuad(t *testing.T) {
	// A quad in the XY plane with UVs matching XY directly: the
	// tangent follows +X everywhere with right-handed frames.
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	normals := [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	uvs := [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	indices := []uint32{0, 1, 2, 0, 2, 3}

	tangents := computeTangents(positions, normals, uvs, indices)
	for i, tangent := range tangents {
		if tangent[0] < 0.999 {
			t.Errorf("vertex %d tangent = %v, want +X", i, tangent)
		}
		if tangent[3] != 1 {
			t.Errorf("vertex %d handedness = %v, want +1", i, tangent[3])
		}
	}
}

func TestComputeTangentsMirroredUVsFlipHandedness(t *testing.T) {
	// U runs backwards: the bitangent still follows +Y, so the frame
	// is left-handed and the sign flips.
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}}
	normals := [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	uvs := [][2]float32{{1, 0}, {0, 0}, {0, 1}}
	indices := []uint32{0, 1, 2}

	tangents := computeTangents(positions, normals, uvs, indices)
	for i, tangent := range tangents {
		if tangent[3] != -1 {
			t.Errorf("vertex %d handedness = %v, want -1", i, tangent[3])
		}
	}
}

func TestComputeTangentsDegenerateUVsFallBack(t *testing.T) {
	// All UVs equal: no gradient at all. Tangents still come out unit
	// length and perpendicular to the normal.
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	normals := [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	uvs := [][2]float32{{0.5, 0.5}, {0.5, 0.5}, {0.5, 0.5}}
	indices := []uint32{0, 1, 2}

	tangents := computeTangents(positions, normals, uvs, indices)
	for i, tangent := range tangents {
		dir := [3]float32{tangent[0], tangent[1], tangent[2]}
		if length := vec3Length(dir); length < 0.999 || length > 1.001 {
			t.Errorf("vertex %d tangent length = %v", i, length)
		}
		if dot := vec3Dot(dir, normals[i]); dot > 0.001 || dot < -0.001 {
			t.Errorf("vertex %d tangent not perpendicular to normal (dot %v)", i, dot)
		}
	}
}
