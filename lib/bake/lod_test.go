// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package bake

import "testing"

// gridMesh builds an n x n vertex grid triangulated into 2*(n-1)^2
// triangles in the XY plane.
func gridMesh(n int) ([][3]float32, []uint32) {
	positions := make([][3]float32, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			positions = append(positions, [3]float32{float32(x), float32(y), 0})
		}
	}
	var indices []uint32
	for y := 0; y < n-1; y++ {
		for x := 0; x < n-1; x++ {
			a := uint32(y*n + x)
			b := a + 1
			c := a + uint32(n)
			d := c + 1
			indices = append(indices, a, b, c, b, d, c)
		}
	}
	return positions, indices
}

func TestGenerateLODsStrictlyDecreasing(t *testing.T) {
	positions, indices := gridMesh(9) // 128 triangles
	lods, err := generateLODs(positions, indices, lodOptions{
		minTriangles: 8,
		targetError:  1.0,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(lods) == 0 {
		t.Fatal("no LODs generated for a 128-triangle grid")
	}
	previous := len(indices) / 3
	for i, lod := range lods {
		count := lod.TriangleCount()
		if count >= previous {
			t.Errorf("lod %d has %d triangles, previous %d", i, count, previous)
		}
		for _, idx := range lod.Indices {
			if int(idx) >= len(positions) {
				t.Fatalf("lod %d index %d out of bounds", i, idx)
			}
		}
		previous = count
	}
}

func TestGenerateLODsRespectsFloor(t *testing.T) {
	positions, indices := gridMesh(3) // 8 triangles
	lods, err := generateLODs(positions, indices, lodOptions{
		minTriangles: 8,
		targetError:  1.0,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(lods) != 0 {
		t.Errorf("generated %d LODs under the floor", len(lods))
	}
}

func TestGenerateLODsTinyErrorBudgetStops(t *testing.T) {
	positions, indices := gridMesh(9)
	lods, err := generateLODs(positions, indices, lodOptions{
		minTriangles: 8,
		targetError:  1e-9,
	})
	if err != nil {
		t.Fatal(err)
	}
	// Every collapse moves a vertex by a full grid cell, far beyond
	// the error budget, so simplification cannot make progress.
	if len(lods) != 0 {
		t.Errorf("generated %d LODs with a zero error budget", len(lods))
	}
}

func TestSimplifyKeepsIndicesInBounds(t *testing.T) {
	positions, indices := gridMesh(5)
	simplified, ok := simplify(positions, indices, len(indices)/6, 100, false)
	if !ok {
		t.Fatal("no collapse possible on a 32-triangle grid")
	}
	if len(simplified)%3 != 0 {
		t.Fatalf("simplified index count %d not a multiple of 3", len(simplified))
	}
	if len(simplified) >= len(indices) {
		t.Errorf("simplify did not shrink: %d >= %d", len(simplified), len(indices))
	}
	for _, idx := range simplified {
		if int(idx) >= len(positions) {
			t.Fatalf("index %d out of bounds", idx)
		}
	}
}
