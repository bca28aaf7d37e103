// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

// Package content provides parsing and validation for the declarative
// TOML documents that describe a bake: the top-level content document
// (default compression, asset groups with glob patterns) and the
// per-asset documents (bitmap, bitmap-font, mesh, animation, material,
// model, scene).
//
// The typical flow:
//
//  1. ReadContentFile: content TOML bytes → Content (groups + options)
//  2. ReadDocumentFile: per-asset TOML bytes → Document (one root table)
//
// Both steps run the structural checks (unknown fields, enum values,
// polymorphic field shapes) while parsing; there is no separate
// validation call.
//
// Several material and mesh fields are polymorphic: a material slot
// accepts a hex color literal, a path string, an inline bitmap table,
// or a scalar/vector; a mesh rotation accepts a 3-vector of Euler
// angles or a 4-vector quaternion. These decode into tagged values
// (Value, Rotation) or a per-axis [3]float32 scale (ParseScale), each
// produced by a parser that dispatches on the raw TOML node shape.
package content
