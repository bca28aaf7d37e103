// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"fmt"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/content"
)

// DepLookup resolves a resolver dependency name (the same names
// lib/resolver records in Item.Deps) to the BlobId of the referenced
// asset, which the writer has already committed by the time a referer
// bakes.
type DepLookup func(name string) (assets.BlobId, bool)

// slotNames pairs each PBR slot with its dependency/field name, in
// slot order.
var slotNames = [...]struct {
	slot assets.Slot
	name string
}{
	{assets.SlotColor, "color"},
	{assets.SlotNormal, "normal"},
	{assets.SlotMetal, "metal"},
	{assets.SlotRough, "rough"},
	{assets.SlotDisplacement, "displacement"},
	{assets.SlotEmissive, "emissive"},
}

// BakeMaterial resolves every polymorphic slot value: constants are
// stored inline, path and inline-bitmap values become BlobId
// references to bitmaps baked earlier in the dependency order.
func BakeMaterial(desc *content.Material, deps DepLookup) (*assets.Material, error) {
	baked := &assets.Material{DoubleSided: desc.IsDoubleSided()}

	for _, slot := range slotNames {
		value := desc.Slot(slot.slot)
		resolved, err := bakeSlotValue(value, deps, slot.name)
		if err != nil {
			return nil, fmt.Errorf("bake: material %s: %w", slot.name, err)
		}
		baked.Slots[slot.slot] = resolved
	}
	return baked, nil
}

func bakeSlotValue(value content.Value, deps DepLookup, depName string) (assets.SlotValue, error) {
	switch value.Kind {
	case content.ValueNone:
		return assets.SlotValue{Kind: assets.SlotValueNone}, nil
	case content.ValueHexColor:
		return assets.SlotValue{
			Kind: assets.SlotValueConstant,
			Constant: []float32{
				float32(value.RGBA[0]) / 255,
				float32(value.RGBA[1]) / 255,
				float32(value.RGBA[2]) / 255,
				float32(value.RGBA[3]) / 255,
			},
		}, nil
	case content.ValueScalars:
		return assets.SlotValue{
			Kind:     assets.SlotValueConstant,
			Constant: append([]float32(nil), value.Scalars...),
		}, nil
	case content.ValuePath, content.ValueInline:
		blob, ok := deps(depName)
		if !ok {
			return assets.SlotValue{}, fmt.Errorf("bitmap dependency %q was not baked", depName)
		}
		return assets.SlotValue{Kind: assets.SlotValueBitmap, Bitmap: blob}, nil
	default:
		return assets.SlotValue{}, fmt.Errorf("unhandled value kind %d", value.Kind)
	}
}
