// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

// Package bake transforms source asset descriptions plus decoded
// source bytes into the canonical baked forms in lib/assets. Each
// BakeX function is pure with respect to its inputs: the same
// description and source bytes always produce the same entity, which
// the writer depends on for byte-identical archives across runs.
//
// The bitmap path covers resize, channel swizzle, color-space tagging
// and mip-chain generation; the mesh path covers attribute extraction,
// transform application, normal/tangent synthesis, index/vertex
// optimization, LOD simplification, shadow geometry and skinning.
// Animations, materials, models and scenes are assembled from parsed
// descriptions and the BlobIds of their already-baked referents.
package bake
