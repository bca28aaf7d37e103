// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"testing"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/content"
)

func parseMaterial(t *testing.T, toml string) *content.Material {
	t.Helper()
	doc, err := content.ParseDocument([]byte(toml))
	if err != nil {
		t.Fatal(err)
	}
	return doc.Material
}

func noDeps(string) (assets.BlobId, bool) { return assets.NoBlob, false }

func TestBakeMaterialHexAndScalars(t *testing.T) {
	desc := parseMaterial(t, `
[material]
color = '#ff000080'
rough = 0.25
metal = [0.1, 0.2]
double-sided = true
`)
	baked, err := BakeMaterial(desc, noDeps)
	if err != nil {
		t.Fatal(err)
	}
	if !baked.DoubleSided {
		t.Error("double-sided flag lost")
	}

	color := baked.Slots[assets.SlotColor]
	if color.Kind != assets.SlotValueConstant || len(color.Constant) != 4 {
		t.Fatalf("color = %+v", color)
	}
	if color.Constant[0] != 1 || color.Constant[1] != 0 {
		t.Errorf("color constant = %v", color.Constant)
	}

	rough := baked.Slots[assets.SlotRough]
	if rough.Kind != assets.SlotValueConstant || len(rough.Constant) != 1 || rough.Constant[0] != 0.25 {
		t.Errorf("rough = %+v", rough)
	}

	if metal := baked.Slots[assets.SlotMetal]; len(metal.Constant) != 2 {
		t.Errorf("metal = %+v", metal)
	}
	if displacement := baked.Slots[assets.SlotDisplacement]; displacement.Kind != assets.SlotValueNone {
		t.Errorf("absent slot = %+v", displacement)
	}
}

func TestBakeMaterialBitmapSlots(t *testing.T) {
	desc := parseMaterial(t, `
[material]
color = 'tex.png'
`)
	deps := func(name string) (assets.BlobId, bool) {
		if name == "color" {
			return 7, true
		}
		return assets.NoBlob, false
	}
	baked, err := BakeMaterial(desc, deps)
	if err != nil {
		t.Fatal(err)
	}
	color := baked.Slots[assets.SlotColor]
	if color.Kind != assets.SlotValueBitmap || color.Bitmap != 7 {
		t.Errorf("color = %+v", color)
	}
}

func TestBakeMaterialMissingDependencyFails(t *testing.T) {
	desc := parseMaterial(t, "[material]\nnormal = 'n.png'\n")
	if _, err := BakeMaterial(desc, noDeps); err == nil {
		t.Fatal("expected error for unbaked bitmap dependency")
	}
}
