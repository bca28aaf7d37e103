// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

// Package meshsource adapts glTF 2.0 documents (via qmuntal/gltf) to
// the shapes the mesh and animation bake pipelines consume: selected
// primitives with their attribute arrays, a skeleton in stable
// depth-first joint order, and animation channels keyed by joint
// name. All accessor decoding goes through gltf/modeler so sparse
// accessors and component-type widening are handled by the library.
package meshsource

import (
	"fmt"
	"sort"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Primitive is one drawable primitive of the selected mesh with its
// attribute arrays decoded. Optional attributes are nil when the
// source lacks them.
type Primitive struct {
	Positions [][3]float32
	Normals   [][3]float32
	Tangents  [][4]float32
	UVs       [][2]float32
	Joints    [][4]uint16
	Weights   [][4]float32
	Indices   []uint32
}

// Joint is one skeleton bone in the extracted depth-first order.
type Joint struct {
	Name string
	// Parent is the index of the parent joint within the extracted
	// order, or -1 for a root.
	Parent int32
	// InverseBind is the joint's inverse bind matrix, row-major.
	InverseBind [16]float32
}

// MeshData is the extracted form of one glTF mesh instance.
type MeshData struct {
	Name       string
	Primitives []Primitive
	// NodeTransform is the mesh node's global transform within the
	// selected scene, row-major. Identity when the node carries no
	// transform.
	NodeTransform [16]float32
	// Joints is the skeleton in stable depth-first order; nil when
	// the mesh has no skin or skin extraction was disabled. Vertex
	// joint indices in Primitives are already remapped to this order.
	Joints []Joint
}

// ChannelPath names which transform property an animation channel
// drives.
type ChannelPath string

const (
	PathTranslation ChannelPath = "translation"
	PathRotation    ChannelPath = "rotation"
	PathScale       ChannelPath = "scale"
	PathWeights     ChannelPath = "weights"
)

// Channel is one decoded animation channel. Values[i] holds the
// sample at Times[i]: 3 components for translation/scale, 4 for
// rotation, a per-target weight list for weights.
type Channel struct {
	TargetName string
	Path       ChannelPath
	Times      []float32
	Values     [][]float32
}

// AnimationData is one decoded animation clip.
type AnimationData struct {
	Name     string
	Channels []Channel
}

// Source is an opened glTF document.
type Source struct {
	doc *gltf.Document
}

// Open reads a .gltf or .glb file, resolving external buffers
// relative to the document.
func Open(path string) (*Source, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("meshsource: opening %s: %w", path, err)
	}
	return &Source{doc: doc}, nil
}

// MeshNames lists the names of all meshes in the document, in
// document order.
func (s *Source) MeshNames() []string {
	names := make([]string, len(s.doc.Meshes))
	for i, mesh := range s.doc.Meshes {
		names[i] = mesh.Name
	}
	return names
}

// AnimationNames lists the names of all animation clips.
func (s *Source) AnimationNames() []string {
	names := make([]string, len(s.doc.Animations))
	for i, animation := range s.doc.Animations {
		names[i] = animation.Name
	}
	return names
}

// selectScene returns the scene index named by sceneName, the
// document default when empty.
func (s *Source) selectScene(sceneName string) (int, error) {
	if sceneName != "" {
		for i, scene := range s.doc.Scenes {
			if scene.Name == sceneName {
				return i, nil
			}
		}
		return 0, fmt.Errorf("meshsource: no scene named %q", sceneName)
	}
	if s.doc.Scene != nil {
		return int(*s.doc.Scene), nil
	}
	if len(s.doc.Scenes) == 0 {
		return 0, fmt.Errorf("meshsource: document has no scenes")
	}
	return 0, nil
}

// nodeParents builds a child→parent map over the whole node graph.
func (s *Source) nodeParents() map[int]int {
	parents := make(map[int]int)
	for nodeIndex, node := range s.doc.Nodes {
		for _, child := range node.Children {
			parents[int(child)] = nodeIndex
		}
	}
	return parents
}

// findMeshNode walks the scene's node trees depth-first and returns
// the first node whose mesh matches meshName (any mesh when empty).
func (s *Source) findMeshNode(sceneIndex int, meshName string) (nodeIndex, meshIndex int, err error) {
	scene := s.doc.Scenes[sceneIndex]
	var walk func(int) (int, int, bool)
	walk = func(current int) (int, int, bool) {
		node := s.doc.Nodes[current]
		if node.Mesh != nil {
			mesh := int(*node.Mesh)
			if meshName == "" || s.doc.Meshes[mesh].Name == meshName {
				return current, mesh, true
			}
		}
		for _, child := range node.Children {
			if n, m, ok := walk(int(child)); ok {
				return n, m, true
			}
		}
		return 0, 0, false
	}
	for _, root := range scene.Nodes {
		if n, m, ok := walk(int(root)); ok {
			return n, m, nil
		}
	}
	if meshName == "" {
		return 0, 0, fmt.Errorf("meshsource: scene has no mesh nodes")
	}
	return 0, 0, fmt.Errorf("meshsource: no mesh named %q in scene", meshName)
}

// ExtractMesh selects a scene and mesh and decodes its primitives,
// node transform, and (unless ignoreSkin) skeleton.
func (s *Source) ExtractMesh(sceneName, meshName string, ignoreSkin bool) (*MeshData, error) {
	sceneIndex, err := s.selectScene(sceneName)
	if err != nil {
		return nil, err
	}
	nodeIndex, meshIndex, err := s.findMeshNode(sceneIndex, meshName)
	if err != nil {
		return nil, err
	}
	mesh := s.doc.Meshes[meshIndex]
	node := s.doc.Nodes[nodeIndex]

	data := &MeshData{
		Name:          mesh.Name,
		NodeTransform: s.globalTransform(nodeIndex),
	}

	var jointRemap []uint16
	if node.Skin != nil && !ignoreSkin {
		joints, remap, err := s.extractSkin(int(*node.Skin))
		if err != nil {
			return nil, err
		}
		data.Joints = joints
		jointRemap = remap
	}

	for primitiveIndex, primitive := range mesh.Primitives {
		decoded, err := s.decodePrimitive(primitive, jointRemap)
		if err != nil {
			return nil, fmt.Errorf("meshsource: mesh %q primitive %d: %w", mesh.Name, primitiveIndex, err)
		}
		data.Primitives = append(data.Primitives, decoded)
	}
	if len(data.Primitives) == 0 {
		return nil, fmt.Errorf("meshsource: mesh %q has no triangle primitives", mesh.Name)
	}
	return data, nil
}

func (s *Source) decodePrimitive(primitive *gltf.Primitive, jointRemap []uint16) (Primitive, error) {
	var out Primitive
	if primitive.Mode != gltf.PrimitiveTriangles {
		return out, fmt.Errorf("unsupported primitive mode %v (only triangles)", primitive.Mode)
	}

	accessor := func(name string) *gltf.Accessor {
		index, ok := primitive.Attributes[name]
		if !ok {
			return nil
		}
		return s.doc.Accessors[int(index)]
	}

	positionAccessor := accessor(gltf.POSITION)
	if positionAccessor == nil {
		return out, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(s.doc, positionAccessor, nil)
	if err != nil {
		return out, fmt.Errorf("reading positions: %w", err)
	}
	out.Positions = positions
	if len(out.Positions) == 0 {
		return out, fmt.Errorf("primitive has an empty vertex buffer")
	}

	if acc := accessor(gltf.NORMAL); acc != nil {
		if out.Normals, err = modeler.ReadNormal(s.doc, acc, nil); err != nil {
			return out, fmt.Errorf("reading normals: %w", err)
		}
	}
	if acc := accessor(gltf.TANGENT); acc != nil {
		if out.Tangents, err = modeler.ReadTangent(s.doc, acc, nil); err != nil {
			return out, fmt.Errorf("reading tangents: %w", err)
		}
	}
	if acc := accessor(gltf.TEXCOORD_0); acc != nil {
		if out.UVs, err = modeler.ReadTextureCoord(s.doc, acc, nil); err != nil {
			return out, fmt.Errorf("reading texture coords: %w", err)
		}
	}
	if acc := accessor(gltf.JOINTS_0); acc != nil {
		if out.Joints, err = modeler.ReadJoints(s.doc, acc, nil); err != nil {
			return out, fmt.Errorf("reading joint indices: %w", err)
		}
	}
	if acc := accessor(gltf.WEIGHTS_0); acc != nil {
		if out.Weights, err = modeler.ReadWeights(s.doc, acc, nil); err != nil {
			return out, fmt.Errorf("reading joint weights: %w", err)
		}
	}

	if primitive.Indices != nil {
		indices, err := modeler.ReadIndices(s.doc, s.doc.Accessors[int(*primitive.Indices)], nil)
		if err != nil {
			return out, fmt.Errorf("reading indices: %w", err)
		}
		out.Indices = indices
	} else {
		// Non-indexed: synthesize a trivial index buffer.
		out.Indices = make([]uint32, len(out.Positions))
		for i := range out.Indices {
			out.Indices[i] = uint32(i)
		}
	}
	if len(out.Indices)%3 != 0 {
		return out, fmt.Errorf("index count %d is not a multiple of 3", len(out.Indices))
	}
	for _, index := range out.Indices {
		if int(index) >= len(out.Positions) {
			return out, fmt.Errorf("index %d out of bounds for %d vertices", index, len(out.Positions))
		}
	}

	if jointRemap != nil && out.Joints != nil {
		for i := range out.Joints {
			for c := 0; c < 4; c++ {
				old := out.Joints[i][c]
				if int(old) < len(jointRemap) {
					out.Joints[i][c] = jointRemap[old]
				}
			}
		}
	}
	return out, nil
}

// extractSkin converts a glTF skin into depth-first joint order and
// returns the skeleton plus a remap from the skin's joint order to
// the extracted order.
func (s *Source) extractSkin(skinIndex int) ([]Joint, []uint16, error) {
	skin := s.doc.Skins[skinIndex]
	if len(skin.Joints) == 0 {
		return nil, nil, fmt.Errorf("meshsource: skin %d has no joints", skinIndex)
	}

	inverseBinds, err := s.readInverseBinds(skin, len(skin.Joints))
	if err != nil {
		return nil, nil, err
	}

	// Position of each joint node within the skin's joint list.
	skinOrder := make(map[int]int, len(skin.Joints))
	for position, jointNode := range skin.Joints {
		skinOrder[int(jointNode)] = position
	}
	parents := s.nodeParents()

	// Roots are joints whose node parent is not itself a joint.
	// Depth-first traversal from each root, visiting children in node
	// order, gives a stable order independent of exporter joint-list
	// shuffling.
	var roots []int
	for _, jointNode := range skin.Joints {
		parent, hasParent := parents[int(jointNode)]
		if !hasParent {
			roots = append(roots, int(jointNode))
			continue
		}
		if _, parentIsJoint := skinOrder[parent]; !parentIsJoint {
			roots = append(roots, int(jointNode))
		}
	}
	sort.Ints(roots)

	joints := make([]Joint, 0, len(skin.Joints))
	remap := make([]uint16, len(skin.Joints))
	extractedIndex := make(map[int]int, len(skin.Joints))

	var walk func(nodeIndex, parentExtracted int)
	walk = func(nodeIndex, parentExtracted int) {
		position, isJoint := skinOrder[nodeIndex]
		current := parentExtracted
		if isJoint {
			current = len(joints)
			extractedIndex[nodeIndex] = current
			remap[position] = uint16(current)
			joints = append(joints, Joint{
				Name:        s.doc.Nodes[nodeIndex].Name,
				Parent:      int32(parentExtracted),
				InverseBind: inverseBinds[position],
			})
		}
		for _, child := range s.doc.Nodes[nodeIndex].Children {
			walk(int(child), current)
		}
	}
	for _, root := range roots {
		walk(root, -1)
	}

	if len(joints) != len(skin.Joints) {
		return nil, nil, fmt.Errorf("meshsource: skin %d joint graph is not a forest over its joint list", skinIndex)
	}
	return joints, remap, nil
}

func (s *Source) readInverseBinds(skin *gltf.Skin, jointCount int) ([][16]float32, error) {
	out := make([][16]float32, jointCount)
	if skin.InverseBindMatrices == nil {
		for i := range out {
			out[i] = identityMatrix()
		}
		return out, nil
	}
	raw, err := modeler.ReadAccessor(s.doc, s.doc.Accessors[int(*skin.InverseBindMatrices)], nil)
	if err != nil {
		return nil, fmt.Errorf("meshsource: reading inverse bind matrices: %w", err)
	}
	matrices, ok := raw.([][4][4]float32)
	if !ok {
		return nil, fmt.Errorf("meshsource: inverse bind matrices decoded to %T, want mat4", raw)
	}
	if len(matrices) < jointCount {
		return nil, fmt.Errorf("meshsource: %d inverse bind matrices for %d joints", len(matrices), jointCount)
	}
	for i := 0; i < jointCount; i++ {
		// glTF matrices are column-major; the baked form is row-major.
		for row := 0; row < 4; row++ {
			for col := 0; col < 4; col++ {
				out[i][row*4+col] = matrices[i][col][row]
			}
		}
	}
	return out, nil
}

func identityMatrix() [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// globalTransform composes node-local transforms from the node up to
// its root, returning a row-major matrix.
func (s *Source) globalTransform(nodeIndex int) [16]float32 {
	parents := s.nodeParents()
	transform := identityMatrix()
	current := nodeIndex
	for {
		transform = matrixMultiply(s.localTransform(current), transform)
		parent, ok := parents[current]
		if !ok {
			break
		}
		current = parent
	}
	return transform
}

// localTransform returns a node's local transform, row-major. A
// non-identity matrix field wins over the TRS fields, per the glTF
// spec.
func (s *Source) localTransform(nodeIndex int) [16]float32 {
	node := s.doc.Nodes[nodeIndex]

	identity := true
	for i := 0; i < 16; i++ {
		want := float64(0)
		if i%5 == 0 {
			want = 1
		}
		if float64(node.Matrix[i]) != want {
			identity = false
			break
		}
	}
	if !identity {
		var m [16]float32
		// Column-major on the wire, row-major here.
		for row := 0; row < 4; row++ {
			for col := 0; col < 4; col++ {
				m[row*4+col] = float32(node.Matrix[col*4+row])
			}
		}
		return m
	}

	translation := [3]float32{float32(node.Translation[0]), float32(node.Translation[1]), float32(node.Translation[2])}
	rotation := [4]float32{float32(node.Rotation[0]), float32(node.Rotation[1]), float32(node.Rotation[2]), float32(node.Rotation[3])}
	scale := [3]float32{float32(node.Scale[0]), float32(node.Scale[1]), float32(node.Scale[2])}
	return composeTRS(translation, rotation, scale)
}

// composeTRS builds translation * rotation * scale, row-major.
func composeTRS(translation [3]float32, rotation [4]float32, scale [3]float32) [16]float32 {
	x, y, z, w := rotation[0], rotation[1], rotation[2], rotation[3]
	// Rotation matrix from a unit quaternion.
	r := [9]float32{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	}
	var m [16]float32
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m[row*4+col] = r[row*3+col] * scale[col]
		}
	}
	m[3] = translation[0]
	m[7] = translation[1]
	m[11] = translation[2]
	m[15] = 1
	return m
}

// matrixMultiply returns a*b for row-major 4x4 matrices.
func matrixMultiply(a, b [16]float32) [16]float32 {
	var out [16]float32
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[row*4+k] * b[k*4+col]
			}
			out[row*4+col] = sum
		}
	}
	return out
}

// ExtractAnimation selects an animation clip by name (the first clip
// when empty) and decodes its channels. Cubic-spline samplers keep
// only the sample values, dropping the tangents.
func (s *Source) ExtractAnimation(name string) (*AnimationData, error) {
	if len(s.doc.Animations) == 0 {
		return nil, fmt.Errorf("meshsource: document has no animations")
	}
	var animation *gltf.Animation
	if name == "" {
		animation = s.doc.Animations[0]
	} else {
		for _, candidate := range s.doc.Animations {
			if candidate.Name == name {
				animation = candidate
				break
			}
		}
		if animation == nil {
			return nil, fmt.Errorf("meshsource: no animation named %q", name)
		}
	}

	data := &AnimationData{Name: animation.Name}
	for channelIndex, channel := range animation.Channels {
		if channel.Target.Node == nil {
			continue
		}
		sampler := animation.Samplers[int(channel.Sampler)]
		cubic := sampler.Interpolation == gltf.InterpolationCubicSpline

		times, err := s.readTimes(int(sampler.Input))
		if err != nil {
			return nil, fmt.Errorf("meshsource: animation %q channel %d: %w", animation.Name, channelIndex, err)
		}
		values, err := s.readOutputs(int(sampler.Output), channel.Target.Path, len(times), cubic)
		if err != nil {
			return nil, fmt.Errorf("meshsource: animation %q channel %d: %w", animation.Name, channelIndex, err)
		}

		data.Channels = append(data.Channels, Channel{
			TargetName: s.doc.Nodes[int(*channel.Target.Node)].Name,
			Path:       channelPath(channel.Target.Path),
			Times:      times,
			Values:     values,
		})
	}
	return data, nil
}

func channelPath(path gltf.TRSProperty) ChannelPath {
	switch path {
	case gltf.TRSTranslation:
		return PathTranslation
	case gltf.TRSRotation:
		return PathRotation
	case gltf.TRSScale:
		return PathScale
	default:
		return PathWeights
	}
}

func (s *Source) readTimes(accessorIndex int) ([]float32, error) {
	raw, err := modeler.ReadAccessor(s.doc, s.doc.Accessors[accessorIndex], nil)
	if err != nil {
		return nil, fmt.Errorf("reading keyframe times: %w", err)
	}
	times, ok := raw.([]float32)
	if !ok {
		return nil, fmt.Errorf("keyframe times decoded to %T, want []float32", raw)
	}
	return times, nil
}

func (s *Source) readOutputs(accessorIndex int, path gltf.TRSProperty, keyCount int, cubic bool) ([][]float32, error) {
	raw, err := modeler.ReadAccessor(s.doc, s.doc.Accessors[accessorIndex], nil)
	if err != nil {
		return nil, fmt.Errorf("reading keyframe values: %w", err)
	}

	var flat [][]float32
	switch typed := raw.(type) {
	case [][3]float32:
		flat = make([][]float32, len(typed))
		for i, v := range typed {
			flat[i] = []float32{v[0], v[1], v[2]}
		}
	case [][4]float32:
		flat = make([][]float32, len(typed))
		for i, v := range typed {
			flat[i] = []float32{v[0], v[1], v[2], v[3]}
		}
	case []float32:
		// Morph-target weights: groups of (value count / key count)
		// floats per key.
		sampleCount := keyCount
		if cubic {
			sampleCount = keyCount * 3
		}
		if sampleCount == 0 || len(typed)%sampleCount != 0 {
			return nil, fmt.Errorf("weight value count %d does not divide into %d samples", len(typed), sampleCount)
		}
		stride := len(typed) / sampleCount
		flat = make([][]float32, sampleCount)
		for i := range flat {
			flat[i] = typed[i*stride : (i+1)*stride]
		}
	default:
		return nil, fmt.Errorf("keyframe values decoded to %T", raw)
	}

	if cubic {
		// Cubic-spline output stores (in-tangent, value, out-tangent)
		// triples per keyframe; keep the value.
		if len(flat) != keyCount*3 {
			return nil, fmt.Errorf("cubic sampler has %d values for %d keys", len(flat), keyCount)
		}
		kept := make([][]float32, keyCount)
		for i := 0; i < keyCount; i++ {
			kept[i] = flat[i*3+1]
		}
		flat = kept
	}
	if len(flat) != keyCount {
		return nil, fmt.Errorf("sampler has %d values for %d keys", len(flat), keyCount)
	}
	return flat, nil
}
