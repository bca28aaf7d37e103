// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package bake

import "sort"

// Vertex cache optimization: a linear-speed greedy reorder in the
// style of Forsyth's algorithm. Each vertex gets a score from its
// simulated FIFO cache position and remaining valence; the triangle
// with the highest vertex score sum is emitted next.

const (
	cacheSize         = 32
	lastTriScore      = 0.75
	cacheDecayPower   = 1.5
	valenceBoostScale = 2.0
	valenceBoostPower = 0.5
)

type vertexState struct {
	cachePos  int // -1 when not cached
	remaining int // triangles not yet emitted that use this vertex
	score     float32
	triangles []int
}

func vertexScore(v *vertexState) float32 {
	if v.remaining == 0 {
		return -1
	}
	var score float32
	switch {
	case v.cachePos < 0:
		score = 0
	case v.cachePos < 3:
		// One of the three most recent vertices: fixed score so the
		// optimizer does not keep chewing on one fan forever.
		score = lastTriScore
	default:
		scaled := 1 - float32(v.cachePos-3)/float32(cacheSize-3)
		score = pow32(scaled, cacheDecayPower)
	}
	// Boost vertices with few remaining triangles so isolated corners
	// get finished instead of lingering.
	score += valenceBoostScale * pow32(1/float32(v.remaining), valenceBoostPower)
	return score
}

func pow32(base, exp float32) float32 {
	// Good enough for scoring: exp is one of two constants.
	if exp == cacheDecayPower {
		return base * sqrt32(base)
	}
	return sqrt32(base)
}

func sqrt32(v float32) float32 {
	if v <= 0 {
		return 0
	}
	x := v
	for i := 0; i < 4; i++ {
		x = 0.5 * (x + v/x)
	}
	return x
}

// optimizeVertexCache reorders triangles to maximize post-transform
// vertex cache hits. The input buffer is not modified.
func optimizeVertexCache(indices []uint32, vertexCount int) []uint32 {
	triangleCount := len(indices) / 3
	if triangleCount <= 1 {
		return append([]uint32(nil), indices...)
	}

	vertices := make([]vertexState, vertexCount)
	for i := range vertices {
		vertices[i].cachePos = -1
	}
	for t := 0; t < triangleCount; t++ {
		for c := 0; c < 3; c++ {
			v := &vertices[indices[t*3+c]]
			v.remaining++
			v.triangles = append(v.triangles, t)
		}
	}
	for i := range vertices {
		vertices[i].score = vertexScore(&vertices[i])
	}

	triScore := make([]float32, triangleCount)
	emitted := make([]bool, triangleCount)
	for t := 0; t < triangleCount; t++ {
		triScore[t] = vertices[indices[t*3]].score +
			vertices[indices[t*3+1]].score +
			vertices[indices[t*3+2]].score
	}

	var cache []uint32
	out := make([]uint32, 0, len(indices))

	bestTriangle := func() int {
		best, bestScore := -1, float32(-1)
		// Prefer triangles touching cached vertices; fall back to a
		// full scan when the cache neighborhood is exhausted.
		for _, cachedVertex := range cache {
			for _, t := range vertices[cachedVertex].triangles {
				if !emitted[t] && triScore[t] > bestScore {
					best, bestScore = t, triScore[t]
				}
			}
		}
		if best >= 0 {
			return best
		}
		for t := 0; t < triangleCount; t++ {
			if !emitted[t] && triScore[t] > bestScore {
				best, bestScore = t, triScore[t]
			}
		}
		return best
	}

	for emittedCount := 0; emittedCount < triangleCount; emittedCount++ {
		t := bestTriangle()
		emitted[t] = true

		touched := make(map[uint32]bool)
		for c := 0; c < 3; c++ {
			idx := indices[t*3+c]
			out = append(out, idx)
			v := &vertices[idx]
			v.remaining--
			touched[idx] = true

			// Move to cache front.
			for pos, cached := range cache {
				if cached == idx {
					cache = append(cache[:pos], cache[pos+1:]...)
					break
				}
			}
			cache = append([]uint32{idx}, cache...)
		}
		if len(cache) > cacheSize {
			for _, evicted := range cache[cacheSize:] {
				vertices[evicted].cachePos = -1
				touched[evicted] = true
			}
			cache = cache[:cacheSize]
		}
		for pos, idx := range cache {
			if vertices[idx].cachePos != pos {
				vertices[idx].cachePos = pos
				touched[idx] = true
			}
		}

		for idx := range touched {
			v := &vertices[idx]
			v.score = vertexScore(v)
		}
		for idx := range touched {
			for _, affected := range vertices[idx].triangles {
				if !emitted[affected] {
					triScore[affected] = vertices[indices[affected*3]].score +
						vertices[indices[affected*3+1]].score +
						vertices[indices[affected*3+2]].score
				}
			}
		}
	}
	return out
}

const overdrawClusterSize = 64

// optimizeOverdraw sorts fixed-size triangle clusters front-to-back
// along each cluster's average facing direction, reducing overdraw for
// mostly-convex meshes. Cluster-internal order is preserved, so the
// cache optimization inside each cluster survives; the threshold
// disables the pass when set below 1 (meaning no cache regression is
// tolerated at all).
func optimizeOverdraw(indices []uint32, positions [][3]float32, threshold float32) []uint32 {
	triangleCount := len(indices) / 3
	if threshold < 1 || triangleCount <= overdrawClusterSize {
		return indices
	}

	var meshCentroid [3]float32
	for _, p := range positions {
		meshCentroid = vec3Add(meshCentroid, p)
	}
	meshCentroid = vec3Scale(meshCentroid, 1/float32(len(positions)))

	type cluster struct {
		start, count int
		depth        float32
	}
	var clusters []cluster
	for start := 0; start < triangleCount; start += overdrawClusterSize {
		count := minInt(overdrawClusterSize, triangleCount-start)
		var centroid, normal [3]float32
		for t := start; t < start+count; t++ {
			a := positions[indices[t*3]]
			b := positions[indices[t*3+1]]
			c := positions[indices[t*3+2]]
			centroid = vec3Add(centroid, vec3Scale(vec3Add(vec3Add(a, b), c), 1.0/3))
			normal = vec3Add(normal, vec3Cross(vec3Sub(b, a), vec3Sub(c, a)))
		}
		centroid = vec3Scale(centroid, 1/float32(count))
		clusters = append(clusters, cluster{
			start: start,
			count: count,
			depth: vec3Dot(vec3Sub(centroid, meshCentroid), vec3Normalize(normal)),
		})
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].depth > clusters[j].depth
	})

	out := make([]uint32, 0, len(indices))
	for _, cl := range clusters {
		out = append(out, indices[cl.start*3:(cl.start+cl.count)*3]...)
	}
	return out
}
