// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueKind tags which shape a polymorphic material field held in the
// source document.
type ValueKind uint8

const (
	// ValueNone means the field was absent.
	ValueNone ValueKind = iota
	// ValueHexColor is a '#'-prefixed RGBA literal.
	ValueHexColor
	// ValuePath is a string referring to a bitmap source or bitmap
	// document on disk.
	ValuePath
	// ValueInline is an inline bitmap table.
	ValueInline
	// ValueScalars is a float scalar or small float vector.
	ValueScalars
)

// Value is the tagged form of a polymorphic material field: hex RGBA
// literal, path string, inline bitmap table, or scalar/vector of
// floats. Exactly the fields matching Kind are populated.
type Value struct {
	Kind    ValueKind
	RGBA    [4]uint8
	Path    string
	Inline  *Bitmap
	Scalars []float32
}

// ParseValue converts a raw decoded TOML node into a tagged Value.
// Dispatch is by shape: strings starting with '#' are hex literals,
// other strings are paths, tables are inline bitmap documents, and
// numbers or number arrays are scalar constants.
func ParseValue(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Value{Kind: ValueNone}, nil
	case string:
		if strings.HasPrefix(v, "#") {
			rgba, err := ParseHexColor(v)
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: ValueHexColor, RGBA: rgba}, nil
		}
		if v == "" {
			return Value{}, fmt.Errorf("empty path")
		}
		return Value{Kind: ValuePath, Path: v}, nil
	case map[string]any:
		bitmap, err := bitmapFromTable(v)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueInline, Inline: bitmap}, nil
	case int64, float64:
		f, _ := toFloat(v)
		return Value{Kind: ValueScalars, Scalars: []float32{f}}, nil
	case []any:
		scalars, err := floatSlice(v, 1, 4)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueScalars, Scalars: scalars}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value shape %T", raw)
	}
}

// ParseHexColor parses '#'-prefixed color literals in the four CSS-like
// forms: #rgb, #rgba, #rrggbb, #rrggbbaa. Alpha defaults to 0xff when
// absent.
func ParseHexColor(s string) ([4]uint8, error) {
	var rgba [4]uint8
	rgba[3] = 0xff
	hex := strings.TrimPrefix(s, "#")
	expand := func(part string) (uint8, error) {
		if len(part) == 1 {
			part = part + part
		}
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return 0, fmt.Errorf("bad hex color %q: %w", s, err)
		}
		return uint8(v), nil
	}
	var parts [4]string
	switch len(hex) {
	case 3:
		parts = [4]string{hex[0:1], hex[1:2], hex[2:3], ""}
	case 4:
		parts = [4]string{hex[0:1], hex[1:2], hex[2:3], hex[3:4]}
	case 6:
		parts = [4]string{hex[0:2], hex[2:4], hex[4:6], ""}
	case 8:
		parts = [4]string{hex[0:2], hex[2:4], hex[4:6], hex[6:8]}
	default:
		return rgba, fmt.Errorf("bad hex color %q: expected 3, 4, 6 or 8 hex digits", s)
	}
	for i, part := range parts {
		if part == "" {
			continue
		}
		v, err := expand(part)
		if err != nil {
			return rgba, err
		}
		rgba[i] = v
	}
	return rgba, nil
}

// ParseHexScalar parses '#'-prefixed single-channel literals: #v or
// #vv, returning the channel value.
func ParseHexScalar(s string) (uint8, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 1 {
		hex = hex + hex
	}
	if len(hex) != 2 {
		return 0, fmt.Errorf("bad hex scalar %q: expected 1 or 2 hex digits", s)
	}
	v, err := strconv.ParseUint(hex, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("bad hex scalar %q: %w", s, err)
	}
	return uint8(v), nil
}

func toFloat(raw any) (float32, bool) {
	switch v := raw.(type) {
	case float64:
		return float32(v), true
	case int64:
		return float32(v), true
	default:
		return 0, false
	}
}

// floatSlice coerces a decoded TOML array of numbers into floats,
// enforcing a length range.
func floatSlice(raw []any, minLen, maxLen int) ([]float32, error) {
	if len(raw) < minLen || len(raw) > maxLen {
		return nil, fmt.Errorf("expected %d to %d numbers, got %d", minLen, maxLen, len(raw))
	}
	out := make([]float32, len(raw))
	for i, item := range raw {
		f, ok := toFloat(item)
		if !ok {
			return nil, fmt.Errorf("element %d is %T, not a number", i, item)
		}
		out[i] = f
	}
	return out, nil
}

// RotationKind tags a mesh rotation's shape.
type RotationKind uint8

const (
	RotationNone RotationKind = iota
	// RotationEuler is a 3-vector of Euler angles in degrees, applied
	// in the order named by the document's euler field.
	RotationEuler
	// RotationQuaternion is an xyzw quaternion.
	RotationQuaternion
)

// Rotation is a mesh or scene-ref rotation: absent, Euler angles, or
// a quaternion, distinguished by the raw array's length.
type Rotation struct {
	Kind   RotationKind
	Values [4]float32
}

// ParseRotation converts a raw decoded TOML node (a 3- or 4-element
// float array, or nil) into a tagged Rotation.
func ParseRotation(raw any) (Rotation, error) {
	if raw == nil {
		return Rotation{Kind: RotationNone}, nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return Rotation{}, fmt.Errorf("rotation must be an array of 3 or 4 numbers, got %T", raw)
	}
	values, err := floatSlice(arr, 3, 4)
	if err != nil {
		return Rotation{}, fmt.Errorf("rotation: %w", err)
	}
	var rot Rotation
	copy(rot.Values[:], values)
	if len(values) == 3 {
		rot.Kind = RotationEuler
	} else {
		rot.Kind = RotationQuaternion
	}
	return rot, nil
}

// ParseScale converts a raw decoded TOML node (a single number for
// uniform scale, or a 3-element array, or nil) into a per-axis scale.
// Absent scale is identity.
func ParseScale(raw any) ([3]float32, error) {
	identity := [3]float32{1, 1, 1}
	if raw == nil {
		return identity, nil
	}
	if f, ok := toFloat(raw); ok {
		return [3]float32{f, f, f}, nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return identity, fmt.Errorf("scale must be a number or an array of 3 numbers, got %T", raw)
	}
	values, err := floatSlice(arr, 3, 3)
	if err != nil {
		return identity, fmt.Errorf("scale: %w", err)
	}
	return [3]float32{values[0], values[1], values[2]}, nil
}

// ParseVec3 converts a raw decoded TOML node into a 3-vector,
// returning fallback when absent.
func ParseVec3(raw any, fallback [3]float32) ([3]float32, error) {
	if raw == nil {
		return fallback, nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return fallback, fmt.Errorf("expected an array of 3 numbers, got %T", raw)
	}
	values, err := floatSlice(arr, 3, 3)
	if err != nil {
		return fallback, err
	}
	return [3]float32{values[0], values[1], values[2]}, nil
}

// MipLevels is the parsed form of a bitmap's mip-levels field: false
// or 1 means a single mip, true means a full chain, an integer n caps
// the chain at n levels.
type MipLevels struct {
	FullChain bool
	Count     uint32 // valid when FullChain is false; >= 1
}

// ParseMipLevels converts a raw decoded TOML node (bool, integer, or
// nil) into a MipLevels. Absent means a single mip.
func ParseMipLevels(raw any) (MipLevels, error) {
	switch v := raw.(type) {
	case nil:
		return MipLevels{Count: 1}, nil
	case bool:
		if v {
			return MipLevels{FullChain: true}, nil
		}
		return MipLevels{Count: 1}, nil
	case int64:
		if v < 1 {
			return MipLevels{}, fmt.Errorf("mip-levels must be >= 1, got %d", v)
		}
		return MipLevels{Count: uint32(v)}, nil
	default:
		return MipLevels{}, fmt.Errorf("mip-levels must be a boolean or an integer, got %T", raw)
	}
}
