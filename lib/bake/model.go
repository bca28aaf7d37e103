// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"fmt"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/content"
)

// PartCountLookup returns the number of parts in an already-baked
// mesh, addressed by the same dependency name used for DepLookup.
type PartCountLookup func(name string) (int, bool)

// BakeModel resolves each entry's mesh and material references. A
// material list shorter than the mesh's part count leaves trailing
// parts on the no-material sentinel rather than failing; a longer
// list is an authoring error.
func BakeModel(desc *content.Model, deps DepLookup, partCount PartCountLookup) (*assets.Model, error) {
	baked := &assets.Model{}
	for entryIndex, entry := range desc.Entries {
		meshDep := fmt.Sprintf("entry%d.mesh", entryIndex)
		meshBlob, ok := deps(meshDep)
		if !ok {
			return nil, fmt.Errorf("bake: model entry %d: mesh dependency was not baked", entryIndex)
		}
		parts, ok := partCount(meshDep)
		if !ok {
			return nil, fmt.Errorf("bake: model entry %d: mesh part count unavailable", entryIndex)
		}
		if len(entry.MaterialRefs) > parts {
			return nil, fmt.Errorf("bake: model entry %d: %d materials for a mesh with %d parts",
				entryIndex, len(entry.MaterialRefs), parts)
		}

		materials := make([]assets.BlobId, parts)
		for materialIndex := range entry.MaterialRefs {
			depName := fmt.Sprintf("entry%d.material%d", entryIndex, materialIndex)
			blob, ok := deps(depName)
			if !ok {
				return nil, fmt.Errorf("bake: model entry %d material %d: dependency was not baked", entryIndex, materialIndex)
			}
			materials[materialIndex] = blob
		}
		for i := len(entry.MaterialRefs); i < parts; i++ {
			materials[i] = assets.NoBlob
		}

		baked.Entries = append(baked.Entries, assets.ModelEntry{
			Mesh:      meshBlob,
			Materials: materials,
		})
	}
	return baked, nil
}
