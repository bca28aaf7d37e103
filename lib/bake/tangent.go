// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package bake

// computeTangents synthesizes per-vertex tangents from positions, UVs
// and normals. Per-triangle tangent and bitangent directions are
// solved from the UV gradient, accumulated per vertex, then
// orthogonalized against the normal. The fourth component stores the
// handedness sign of the tangent frame, matching the MikkTSpace
// convention consumers expect: bitangent = sign * cross(normal,
// tangent).
func computeTangents(positions [][3]float32, normals [][3]float32, uvs [][2]float32, indices []uint32) [][4]float32 {
	tan := make([][3]float32, len(positions))
	bitan := make([][3]float32, len(positions))

	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]

		edge1 := vec3Sub(positions[b], positions[a])
		edge2 := vec3Sub(positions[c], positions[a])
		du1 := uvs[b][0] - uvs[a][0]
		dv1 := uvs[b][1] - uvs[a][1]
		du2 := uvs[c][0] - uvs[a][0]
		dv2 := uvs[c][1] - uvs[a][1]

		det := du1*dv2 - du2*dv1
		if det == 0 {
			// Degenerate UV mapping; this triangle contributes nothing.
			continue
		}
		inv := 1 / det

		t := vec3Scale(vec3Sub(vec3Scale(edge1, dv2), vec3Scale(edge2, dv1)), inv)
		bt := vec3Scale(vec3Sub(vec3Scale(edge2, du1), vec3Scale(edge1, du2)), inv)

		for _, v := range [3]uint32{a, b, c} {
			tan[v] = vec3Add(tan[v], t)
			bitan[v] = vec3Add(bitan[v], bt)
		}
	}

	out := make([][4]float32, len(positions))
	for i := range out {
		n := normals[i]
		t := tan[i]

		// Gram-Schmidt: remove the normal component so the frame stays
		// orthogonal after interpolation.
		t = vec3Sub(t, vec3Scale(n, vec3Dot(n, t)))
		if vec3Length(t) == 0 {
			// No UV gradient reached this vertex; pick any direction
			// perpendicular to the normal.
			t = perpendicular(n)
		}
		t = vec3Normalize(t)

		sign := float32(1)
		if vec3Dot(vec3Cross(n, t), bitan[i]) < 0 {
			sign = -1
		}
		out[i] = [4]float32{t[0], t[1], t[2], sign}
	}
	return out
}

// perpendicular returns a unit vector perpendicular to n, choosing the
// world axis least aligned with n as the starting point.
func perpendicular(n [3]float32) [3]float32 {
	axis := [3]float32{1, 0, 0}
	if abs32(n[0]) > abs32(n[1]) && abs32(n[0]) > abs32(n[2]) {
		axis = [3]float32{0, 1, 0}
	}
	p := vec3Cross(n, axis)
	if vec3Length(p) == 0 {
		return [3]float32{0, 0, 1}
	}
	return vec3Normalize(p)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
