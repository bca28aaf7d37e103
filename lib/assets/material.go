// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package assets

import "fmt"

// Slot identifies one of the fixed PBR value slots a Material
// carries (§3.2).
type Slot uint8

const (
	SlotColor        Slot = 0
	SlotNormal       Slot = 1
	SlotMetal        Slot = 2
	SlotRough        Slot = 3
	SlotDisplacement Slot = 4
	SlotEmissive     Slot = 5
	slotCount             = 6
)

// SlotValueKind tags which shape a SlotValue holds.
type SlotValueKind uint8

const (
	SlotValueNone     SlotValueKind = 0
	SlotValueConstant SlotValueKind = 1
	SlotValueBitmap   SlotValueKind = 2
)

// SlotValue is one material slot's resolved baked value: either
// absent, a constant scalar/vector, or a reference to a baked Bitmap
// (§3.2).
type SlotValue struct {
	Kind     SlotValueKind
	Constant []float32 // 1-4 components, valid when Kind == SlotValueConstant
	Bitmap   BlobId    // valid when Kind == SlotValueBitmap
}

// Material is the baked, canonical form of a material asset (§3.2).
type Material struct {
	Slots       [slotCount]SlotValue
	DoubleSided bool
}

func (m *Material) MarshalBinary() ([]byte, error) {
	e := newEncoder()
	for _, sv := range m.Slots {
		e.u8(uint8(sv.Kind))
		switch sv.Kind {
		case SlotValueConstant:
			e.u8(uint8(len(sv.Constant)))
			for _, c := range sv.Constant {
				e.f32(c)
			}
		case SlotValueBitmap:
			e.u32(uint32(sv.Bitmap))
		}
	}
	if m.DoubleSided {
		e.u8(1)
	} else {
		e.u8(0)
	}
	return e.bytes(), nil
}

func (m *Material) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	for i := range m.Slots {
		kind, err := d.u8()
		if err != nil {
			return fmt.Errorf("assets: decoding material slot %d kind: %w", i, err)
		}
		sv := &m.Slots[i]
		sv.Kind = SlotValueKind(kind)
		switch sv.Kind {
		case SlotValueConstant:
			n, err := d.u8()
			if err != nil {
				return fmt.Errorf("assets: decoding material slot %d constant length: %w", i, err)
			}
			sv.Constant = make([]float32, n)
			for vi := range sv.Constant {
				if sv.Constant[vi], err = d.f32(); err != nil {
					return fmt.Errorf("assets: decoding material slot %d constant %d: %w", i, vi, err)
				}
			}
		case SlotValueBitmap:
			v, err := d.u32()
			if err != nil {
				return fmt.Errorf("assets: decoding material slot %d bitmap ref: %w", i, err)
			}
			sv.Bitmap = BlobId(v)
		}
	}
	doubleSided, err := d.u8()
	if err != nil {
		return fmt.Errorf("assets: decoding material double-sided flag: %w", err)
	}
	m.DoubleSided = doubleSided != 0
	if !d.done() {
		return fmt.Errorf("assets: trailing bytes after material encoding")
	}
	return nil
}

// Model is an ordered list of (mesh, materials) pairs used as a
// convenience grouping (§3.2).
type Model struct {
	Entries []ModelEntry
}

type ModelEntry struct {
	Mesh      BlobId
	Materials []BlobId
}

func (m *Model) MarshalBinary() ([]byte, error) {
	e := newEncoder()
	e.u32(uint32(len(m.Entries)))
	for _, entry := range m.Entries {
		e.u32(uint32(entry.Mesh))
		e.u32(uint32(len(entry.Materials)))
		for _, mat := range entry.Materials {
			e.u32(uint32(mat))
		}
	}
	return e.bytes(), nil
}

func (m *Model) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	count, err := d.u32()
	if err != nil {
		return fmt.Errorf("assets: decoding model entry count: %w", err)
	}
	m.Entries = make([]ModelEntry, count)
	for i := range m.Entries {
		meshRef, err := d.u32()
		if err != nil {
			return fmt.Errorf("assets: decoding model entry %d mesh: %w", i, err)
		}
		m.Entries[i].Mesh = BlobId(meshRef)
		matCount, err := d.u32()
		if err != nil {
			return fmt.Errorf("assets: decoding model entry %d material count: %w", i, err)
		}
		m.Entries[i].Materials = make([]BlobId, matCount)
		for j := range m.Entries[i].Materials {
			v, err := d.u32()
			if err != nil {
				return fmt.Errorf("assets: decoding model entry %d material %d: %w", i, j, err)
			}
			m.Entries[i].Materials[j] = BlobId(v)
		}
	}
	if !d.done() {
		return fmt.Errorf("assets: trailing bytes after model encoding")
	}
	return nil
}
