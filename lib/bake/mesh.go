// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/bake/meshsource"
	"github.com/pak-forge/pak/lib/content"
)

// primitive is the mesh pipeline's mutable working form of one
// drawable primitive. Attribute slices are nil when absent; index
// values always address the attribute slices directly.
type primitive struct {
	positions [][3]float32
	normals   [][3]float32
	tangents  [][4]float32
	uvs       [][2]float32
	joints    [][4]uint16
	weights   [][4]float32
	indices   []uint32
}

// BakeMesh runs the mesh pipeline over a glTF source file: scene and
// mesh selection, attribute extraction, transform, normal/tangent
// synthesis, optimization, LOD generation, shadow geometry and
// skeleton extraction.
func BakeMesh(desc *content.Mesh, srcPath string) (*assets.Mesh, error) {
	src, err := meshsource.Open(srcPath)
	if err != nil {
		return nil, err
	}
	data, err := src.ExtractMesh(desc.SceneName, desc.Name, desc.SkipSkin())
	if err != nil {
		return nil, err
	}
	return bakeMeshData(desc, data)
}

func bakeMeshData(desc *content.Mesh, data *meshsource.MeshData) (*assets.Mesh, error) {
	transform := buildMeshTransform(desc, mat4(data.NodeTransform))

	mesh := &assets.Mesh{}
	for primitiveIndex, extracted := range data.Primitives {
		part, err := bakePrimitive(desc, extracted, transform, uint32(primitiveIndex))
		if err != nil {
			return nil, fmt.Errorf("bake: mesh primitive %d: %w", primitiveIndex, err)
		}
		mesh.Parts = append(mesh.Parts, part)
	}

	for _, joint := range data.Joints {
		mesh.Joints = append(mesh.Joints, assets.Joint{
			Name:        joint.Name,
			ParentIndex: joint.Parent,
			InverseBind: joint.InverseBind,
		})
	}

	if err := mesh.Validate(); err != nil {
		return nil, fmt.Errorf("bake: mesh: %w", err)
	}
	return mesh, nil
}

// meshTransform is the fully composed transform applied to every
// vertex: positions map through linear then translation, directions
// through linear (normals through its inverse transpose), and
// flipWinding records whether the composition mirrors space.
type meshTransform struct {
	linear       mat3
	normalMatrix mat3
	translation  [3]float32
	flipWinding  bool
	tangentFlip  float32 // multiplied into the tangent's sign component
}

// buildMeshTransform composes the document transform in the specified
// order (scale, then axis flips, then rotation, then translation,
// with offset added last) on top of the source node's own transform.
func buildMeshTransform(desc *content.Mesh, node mat4) meshTransform {
	scale := mat3{
		desc.ScaleVec[0], 0, 0,
		0, desc.ScaleVec[1], 0,
		0, 0, desc.ScaleVec[2],
	}
	flips := mat3Identity()
	if desc.FlipXAxis() {
		flips[0] = -1
	}
	if desc.FlipYAxis() {
		flips[4] = -1
	}
	if desc.FlipZAxis() {
		flips[8] = -1
	}
	rotation := quatToMat3(rotationQuat(desc.Rot, desc.EulerOrder()))

	docLinear := mat3Multiply(rotation, mat3Multiply(flips, scale))
	translation := vec3Add(desc.TranslationVec, desc.OffsetVec)

	linear := docLinear
	if !mat4IsIdentity(node) {
		// Fold the node's own transform in below the document's:
		// p' = docLinear*(nodeLinear*p + nodeTrans) + docTrans.
		linear = mat3Multiply(docLinear, node.linear())
		nodeTranslation := [3]float32{node[3], node[7], node[11]}
		translation = vec3Add(docLinear.apply(nodeTranslation), translation)
	}

	normalMatrix, invertible := linear.inverseTranspose()
	if !invertible {
		normalMatrix = linear
	}

	transform := meshTransform{
		linear:       linear,
		normalMatrix: normalMatrix,
		translation:  translation,
		tangentFlip:  1,
	}
	if linear.determinant() < 0 {
		transform.flipWinding = true
		transform.tangentFlip = -1
	}
	return transform
}

func bakePrimitive(desc *content.Mesh, extracted meshsource.Primitive, transform meshTransform, slot uint32) (assets.Part, error) {
	prim := primitive{
		positions: append([][3]float32(nil), extracted.Positions...),
		indices:   append([]uint32(nil), extracted.Indices...),
		uvs:       extracted.UVs,
		joints:    extracted.Joints,
		weights:   extracted.Weights,
	}
	if desc.WantNormals() {
		prim.normals = extracted.Normals
	}
	if desc.WantTangents() {
		prim.tangents = extracted.Tangents
	}
	if desc.SkipSkin() {
		prim.joints = nil
		prim.weights = nil
	}

	applyTransform(&prim, transform)

	if desc.WantNormals() && prim.normals == nil {
		prim.normals = computeNormals(prim.positions, prim.indices)
	}
	if desc.WantTangents() && prim.tangents == nil {
		if prim.uvs == nil {
			return assets.Part{}, fmt.Errorf("tangent synthesis needs texture coordinates, source has none")
		}
		normals := prim.normals
		if normals == nil {
			// Tangent synthesis needs normals even when the baked
			// vertex layout omits them.
			normals = computeNormals(prim.positions, prim.indices)
		}
		prim.tangents = computeTangents(prim.positions, normals, prim.uvs, prim.indices)
	}

	if desc.WantOptimize() {
		optimizePrimitive(&prim, desc.Overdraw())
	}

	part := assets.Part{
		MaterialSlot: slot,
		VertexCount:  uint32(len(prim.positions)),
		Indices:      prim.indices,
	}

	if desc.WantLOD() {
		lods, err := generateLODs(prim.positions, prim.indices, lodOptions{
			minTriangles: desc.MinTriangles(),
			targetError:  desc.TargetError(),
			lockBorder:   desc.LockBorder(),
		})
		if err != nil {
			return assets.Part{}, err
		}
		part.LODs = lods
	}

	if desc.WantShadow() {
		vertices, indices := shadowGeometry(prim.positions, prim.indices)
		part.HasShadow = true
		part.ShadowVertices = vertices
		part.ShadowIndices = indices
	}

	part.VertexFlags, part.VertexData = interleave(&prim)
	return part, nil
}

// applyTransform maps every position, normal and tangent through the
// composed transform and reverses triangle winding when the transform
// mirrors space.
func applyTransform(prim *primitive, t meshTransform) {
	for i, p := range prim.positions {
		prim.positions[i] = vec3Add(t.linear.apply(p), t.translation)
	}
	for i, n := range prim.normals {
		prim.normals[i] = vec3Normalize(t.normalMatrix.apply(n))
	}
	for i, tangent := range prim.tangents {
		dir := vec3Normalize(t.linear.apply([3]float32{tangent[0], tangent[1], tangent[2]}))
		prim.tangents[i] = [4]float32{dir[0], dir[1], dir[2], tangent[3] * t.tangentFlip}
	}
	if t.flipWinding {
		for i := 0; i+2 < len(prim.indices); i += 3 {
			prim.indices[i+1], prim.indices[i+2] = prim.indices[i+2], prim.indices[i+1]
		}
	}
}

// computeNormals synthesizes smooth per-vertex normals by
// accumulating area-weighted face normals (the unnormalized cross
// product weights larger triangles more).
func computeNormals(positions [][3]float32, indices []uint32) [][3]float32 {
	normals := make([][3]float32, len(positions))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		face := vec3Cross(
			vec3Sub(positions[b], positions[a]),
			vec3Sub(positions[c], positions[a]),
		)
		normals[a] = vec3Add(normals[a], face)
		normals[b] = vec3Add(normals[b], face)
		normals[c] = vec3Add(normals[c], face)
	}
	for i := range normals {
		n := vec3Normalize(normals[i])
		if vec3Length(n) == 0 {
			n = [3]float32{0, 0, 1}
		}
		normals[i] = n
	}
	return normals
}

// optimizePrimitive reorders indices for vertex cache locality and
// overdraw, then remaps vertices into first-use order so the vertex
// buffer streams linearly.
func optimizePrimitive(prim *primitive, overdrawThreshold float32) {
	prim.indices = optimizeVertexCache(prim.indices, len(prim.positions))
	prim.indices = optimizeOverdraw(prim.indices, prim.positions, overdrawThreshold)

	remap := firstUseRemap(prim.indices, len(prim.positions))
	for i, idx := range prim.indices {
		prim.indices[i] = remap[idx]
	}
	prim.positions = reorder3(prim.positions, remap)
	if prim.normals != nil {
		prim.normals = reorder3(prim.normals, remap)
	}
	if prim.tangents != nil {
		prim.tangents = reorder4(prim.tangents, remap)
	}
	if prim.uvs != nil {
		prim.uvs = reorder2(prim.uvs, remap)
	}
	if prim.joints != nil {
		prim.joints = reorderJoints(prim.joints, remap)
	}
	if prim.weights != nil {
		prim.weights = reorder4(prim.weights, remap)
	}
}

// firstUseRemap builds old-index → new-index in order of first
// appearance in the index buffer. Vertices never referenced keep a
// slot at the end so attribute slices stay parallel.
func firstUseRemap(indices []uint32, vertexCount int) []uint32 {
	const unassigned = ^uint32(0)
	remap := make([]uint32, vertexCount)
	for i := range remap {
		remap[i] = unassigned
	}
	next := uint32(0)
	for _, idx := range indices {
		if remap[idx] == unassigned {
			remap[idx] = next
			next++
		}
	}
	for i := range remap {
		if remap[i] == unassigned {
			remap[i] = next
			next++
		}
	}
	return remap
}

func reorder2(src [][2]float32, remap []uint32) [][2]float32 {
	out := make([][2]float32, len(src))
	for i, v := range src {
		out[remap[i]] = v
	}
	return out
}

func reorder3(src [][3]float32, remap []uint32) [][3]float32 {
	out := make([][3]float32, len(src))
	for i, v := range src {
		out[remap[i]] = v
	}
	return out
}

func reorder4(src [][4]float32, remap []uint32) [][4]float32 {
	out := make([][4]float32, len(src))
	for i, v := range src {
		out[remap[i]] = v
	}
	return out
}

func reorderJoints(src [][4]uint16, remap []uint32) [][4]uint16 {
	out := make([][4]uint16, len(src))
	for i, v := range src {
		out[remap[i]] = v
	}
	return out
}

// shadowGeometry builds a position-only copy of the geometry with
// vertices deduplicated by exact position, for shadow-pass rendering
// where attribute seams (UV splits, normal creases) would otherwise
// triple the vertex count.
func shadowGeometry(positions [][3]float32, indices []uint32) ([]byte, []uint32) {
	seen := make(map[[3]float32]uint32, len(positions))
	remap := make([]uint32, len(positions))
	var packed []byte
	next := uint32(0)
	for i, p := range positions {
		if existing, ok := seen[p]; ok {
			remap[i] = existing
			continue
		}
		seen[p] = next
		remap[i] = next
		next++
		var buf [12]byte
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p[0]))
		binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p[1]))
		binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(p[2]))
		packed = append(packed, buf[:]...)
	}
	shadowIndices := make([]uint32, len(indices))
	for i, idx := range indices {
		shadowIndices[i] = remap[idx]
	}
	return packed, shadowIndices
}

// interleave packs the primitive's attributes into the canonical
// interleaved vertex layout: position, then normal, tangent, UV and
// skin data in flag order.
func interleave(prim *primitive) (assets.VertexFlags, []byte) {
	var flags assets.VertexFlags
	if prim.normals != nil {
		flags |= assets.VertexHasNormal
	}
	if prim.tangents != nil {
		flags |= assets.VertexHasTangent
	}
	if prim.uvs != nil {
		flags |= assets.VertexHasUV
	}
	if prim.joints != nil && prim.weights != nil {
		flags |= assets.VertexHasSkin
	}

	stride := flags.Stride()
	data := make([]byte, 0, stride*len(prim.positions))
	var scratch [4]byte
	putF32 := func(v float32) {
		binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
		data = append(data, scratch[:]...)
	}
	putU16 := func(v uint16) {
		binary.LittleEndian.PutUint16(scratch[:2], v)
		data = append(data, scratch[:2]...)
	}

	for i := range prim.positions {
		putF32(prim.positions[i][0])
		putF32(prim.positions[i][1])
		putF32(prim.positions[i][2])
		if flags&assets.VertexHasNormal != 0 {
			putF32(prim.normals[i][0])
			putF32(prim.normals[i][1])
			putF32(prim.normals[i][2])
		}
		if flags&assets.VertexHasTangent != 0 {
			putF32(prim.tangents[i][0])
			putF32(prim.tangents[i][1])
			putF32(prim.tangents[i][2])
			putF32(prim.tangents[i][3])
		}
		if flags&assets.VertexHasUV != 0 {
			putF32(prim.uvs[i][0])
			putF32(prim.uvs[i][1])
		}
		if flags&assets.VertexHasSkin != 0 {
			for c := 0; c < 4; c++ {
				putU16(prim.joints[i][c])
			}
			for c := 0; c < 4; c++ {
				putF32(prim.weights[i][c])
			}
		}
	}
	return flags, data
}
