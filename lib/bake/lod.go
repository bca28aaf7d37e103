// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"fmt"
	"sort"

	"github.com/pak-forge/pak/lib/assets"
)

type lodOptions struct {
	minTriangles int
	targetError  float32
	lockBorder   bool
}

// generateLODs produces progressive LOD index buffers by repeated
// simplification, each level targeting half the previous level's
// triangle count. Generation stops when the triangle count drops
// under the floor, the simplifier's accumulated error exceeds the
// target, or a level fails to shrink. Returned levels are strictly
// decreasing in triangle count; level 0 geometry is not included.
func generateLODs(positions [][3]float32, indices []uint32, options lodOptions) ([]assets.LOD, error) {
	if options.minTriangles < 1 {
		options.minTriangles = 1
	}
	diagonal := boundsDiagonal(positions)
	if diagonal == 0 {
		return nil, fmt.Errorf("bake: lod: mesh has zero spatial extent")
	}

	var lods []assets.LOD
	current := indices
	for {
		currentTriangles := len(current) / 3
		if currentTriangles < options.minTriangles*2 {
			break
		}
		target := currentTriangles / 2
		simplified, ok := simplify(positions, current, target, options.targetError*diagonal, options.lockBorder)
		if !ok || len(simplified)/3 >= currentTriangles {
			break
		}
		if len(simplified) == 0 {
			break
		}
		lods = append(lods, assets.LOD{Indices: simplified})
		current = simplified
	}
	return lods, nil
}

func boundsDiagonal(positions [][3]float32) float32 {
	if len(positions) == 0 {
		return 0
	}
	lo, hi := positions[0], positions[0]
	for _, p := range positions {
		for c := 0; c < 3; c++ {
			if p[c] < lo[c] {
				lo[c] = p[c]
			}
			if p[c] > hi[c] {
				hi[c] = p[c]
			}
		}
	}
	return vec3Length(vec3Sub(hi, lo))
}

// edge is an undirected vertex pair, stored with a < b.
type edge struct{ a, b uint32 }

func makeEdge(a, b uint32) edge {
	if a > b {
		a, b = b, a
	}
	return edge{a, b}
}

// simplify collapses edges shortest-first until the triangle count
// reaches target or every remaining candidate exceeds maxError (an
// absolute distance bound). Collapsed vertices are redirected rather
// than removed: the output index buffer still addresses the original
// vertex array, which lets all LOD levels share one vertex buffer.
// Returns ok=false when no collapse at all was possible.
func simplify(positions [][3]float32, indices []uint32, target int, maxError float32, lockBorder bool) ([]uint32, bool) {
	edgeUse := make(map[edge]int)
	for i := 0; i+2 < len(indices); i += 3 {
		edgeUse[makeEdge(indices[i], indices[i+1])]++
		edgeUse[makeEdge(indices[i+1], indices[i+2])]++
		edgeUse[makeEdge(indices[i+2], indices[i])]++
	}

	// A border vertex touches an edge used by only one triangle.
	border := make(map[uint32]bool)
	for e, uses := range edgeUse {
		if uses == 1 {
			border[e.a] = true
			border[e.b] = true
		}
	}

	type candidate struct {
		e      edge
		length float32
	}
	candidates := make([]candidate, 0, len(edgeUse))
	for e := range edgeUse {
		candidates = append(candidates, candidate{e, vec3Length(vec3Sub(positions[e.a], positions[e.b]))})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].length != candidates[j].length {
			return candidates[i].length < candidates[j].length
		}
		if candidates[i].e.a != candidates[j].e.a {
			return candidates[i].e.a < candidates[j].e.a
		}
		return candidates[i].e.b < candidates[j].e.b
	})

	// remap chains collapsed vertices to their survivors.
	remap := make(map[uint32]uint32)
	resolve := func(v uint32) uint32 {
		for {
			next, ok := remap[v]
			if !ok {
				return v
			}
			v = next
		}
	}

	triangles := len(indices) / 3
	collapsed := false
	for _, cand := range candidates {
		if triangles <= target {
			break
		}
		if cand.length > maxError {
			break
		}
		from, to := resolve(cand.e.a), resolve(cand.e.b)
		if from == to {
			continue
		}
		// Collapse toward the border: a border vertex survives so the
		// silhouette holds its outline. When both ends are borders (or
		// lockBorder pins them), skip.
		if border[from] && border[to] {
			continue
		}
		if border[from] {
			from, to = to, from
		}
		if lockBorder && border[from] {
			continue
		}
		remap[from] = to
		// Recounting the live set each collapse keeps the loop simple;
		// simplification runs offline at bake time.
		triangles = 0
		for i := 0; i+2 < len(indices); i += 3 {
			a, b, c := resolve(indices[i]), resolve(indices[i+1]), resolve(indices[i+2])
			if a != b && b != c && c != a {
				triangles++
			}
		}
		collapsed = true
	}
	if !collapsed {
		return nil, false
	}

	out := make([]uint32, 0, triangles*3)
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := resolve(indices[i]), resolve(indices[i+1]), resolve(indices[i+2])
		if a != b && b != c && c != a {
			out = append(out, a, b, c)
		}
	}
	return out, true
}
