// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"fmt"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/content"
)

// BakeScene copies anchors and inline geometry blocks and resolves
// each placed ref's mesh and materials to BlobIds.
func BakeScene(desc *content.Scene, deps DepLookup) (*assets.Scene, error) {
	baked := &assets.Scene{}

	for refIndex, ref := range desc.Refs {
		eulerOrder := ref.Euler
		if eulerOrder == "" {
			eulerOrder = "xyz"
		}
		transform := assets.Transform{
			Translation: ref.PositionVec(),
			Rotation:    rotationQuat(ref.Rot, eulerOrder),
			Scale:       ref.ScaleVec,
		}

		if ref.IsAnchor() {
			baked.Refs = append(baked.Refs, assets.SceneRef{
				Kind:      assets.SceneRefAnchor,
				Transform: transform,
				Name:      ref.Id,
				Tags:      ref.Tags,
				Data:      ref.Data,
			})
			continue
		}

		meshBlob, ok := deps(fmt.Sprintf("ref%d.mesh", refIndex))
		if !ok {
			return nil, fmt.Errorf("bake: scene ref %d: mesh dependency was not baked", refIndex)
		}
		materials := make([]assets.BlobId, len(ref.MaterialRefs))
		for materialIndex := range ref.MaterialRefs {
			blob, ok := deps(fmt.Sprintf("ref%d.material%d", refIndex, materialIndex))
			if !ok {
				return nil, fmt.Errorf("bake: scene ref %d material %d: dependency was not baked", refIndex, materialIndex)
			}
			materials[materialIndex] = blob
		}
		baked.Refs = append(baked.Refs, assets.SceneRef{
			Kind:      assets.SceneRefAsset,
			Transform: transform,
			Mesh:      meshBlob,
			Materials: materials,
		})
	}

	for geometryIndex, geometry := range desc.Geometry {
		block, err := bakeSceneGeometry(geometry)
		if err != nil {
			return nil, fmt.Errorf("bake: scene geometry %d: %w", geometryIndex, err)
		}
		baked.Geometry = append(baked.Geometry, block)
	}

	if err := baked.Validate(); err != nil {
		return nil, fmt.Errorf("bake: scene: %w", err)
	}
	return baked, nil
}

func bakeSceneGeometry(geometry content.SceneGeometry) (assets.SceneGeometry, error) {
	vertices := make([]float32, len(geometry.Vertices))
	for i, v := range geometry.Vertices {
		vertices[i] = float32(v)
	}
	vertexCount := len(vertices) / 3

	indices := make([]uint32, len(geometry.Indices))
	for i, idx := range geometry.Indices {
		if idx < 0 || int(idx) >= vertexCount {
			return assets.SceneGeometry{}, fmt.Errorf("index %d out of bounds for %d vertices", idx, vertexCount)
		}
		indices[i] = uint32(idx)
	}

	var position [3]float32
	for i := 0; i < len(geometry.Position) && i < 3; i++ {
		position[i] = float32(geometry.Position[i])
	}
	eulerOrder := "xyz"
	return assets.SceneGeometry{
		Vertices: vertices,
		Indices:  indices,
		Transform: assets.Transform{
			Translation: position,
			Rotation:    rotationQuat(geometry.Rot, eulerOrder),
			Scale:       geometry.ScaleVec,
		},
		Tags: geometry.Tags,
	}, nil
}
