package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	doc *gltf.Document
}

// gltfSkeletonExtractor extracts the joint hierarchy of a decoded glTF document.
// The first skin defines the skeleton; documents without skins expose every node as a
// joint so that node-targeted clips still resolve.
type gltfSkeletonExtractor interface {
	// ExtractSkeleton builds a topologically sorted skeleton from the document.
	//
	// Returns:
	//   - *model.Skeleton: the extracted skeleton
	//   - error: error if the skin references invalid nodes or its matrices cannot be read
	ExtractSkeleton() (*model.Skeleton, error)
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a new skeleton extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded document
//
// Returns:
//   - gltfSkeletonExtractor: the skeleton extractor
func newGLTFSkeletonExtractor(doc *gltf.Document) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{doc: doc}
}

func (e *gltfSkeletonExtractorImpl) ExtractSkeleton() (*model.Skeleton, error) {
	joints, inverseBind, err := e.jointNodes()
	if err != nil {
		return nil, err
	}

	nodeToBone := make(map[uint32]int32, len(joints))
	for i, n := range joints {
		nodeToBone[n] = int32(i)
	}
	parents := make(map[uint32]uint32, len(e.doc.Nodes))
	for idx, node := range e.doc.Nodes {
		for _, child := range node.Children {
			parents[child] = uint32(idx)
		}
	}

	bones := make([]model.Bone, len(joints))
	for i, n := range joints {
		node := e.doc.Nodes[n]
		bone := model.Bone{
			Name:              gltfNodeName(e.doc, n),
			ParentIndex:       -1,
			InverseBindMatrix: common.IdentityMatrix(),
			LocalTransform:    gltfNodeTransform(node),
		}
		if i < len(inverseBind) {
			bone.InverseBindMatrix = inverseBind[i]
		}
		if p, ok := parents[n]; ok {
			if pb, ok := nodeToBone[p]; ok {
				bone.ParentIndex = pb
			}
		}
		bones[i] = bone
	}
	return model.NewSkeleton(gltfTopologicalSortBones(bones)), nil
}

// jointNodes returns the node indices forming the skeleton and the skin's inverse bind
// matrices, if any.
func (e *gltfSkeletonExtractorImpl) jointNodes() ([]uint32, [][16]float32, error) {
	if len(e.doc.Skins) == 0 {
		nodes := make([]uint32, len(e.doc.Nodes))
		for i := range e.doc.Nodes {
			nodes[i] = uint32(i)
		}
		return nodes, nil, nil
	}

	skin := e.doc.Skins[0]
	for i, j := range skin.Joints {
		if int(j) >= len(e.doc.Nodes) {
			return nil, nil, fmt.Errorf("joint %d: invalid node index %d", i, j)
		}
	}
	if skin.InverseBindMatrices == nil {
		return skin.Joints, nil, nil
	}
	if int(*skin.InverseBindMatrices) >= len(e.doc.Accessors) {
		return nil, nil, fmt.Errorf("inverse bind matrices: invalid accessor %d", *skin.InverseBindMatrices)
	}

	var buf [][4][4]float32
	data, err := modeler.ReadAccessor(e.doc, e.doc.Accessors[*skin.InverseBindMatrices], buf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read inverse bind matrices: %w", err)
	}
	mats, ok := data.([][4][4]float32)
	if !ok {
		return nil, nil, fmt.Errorf("inverse bind matrices: unexpected accessor type %T", data)
	}
	out := make([][16]float32, len(mats))
	for i, m := range mats {
		for col := range 4 {
			copy(out[i][col*4:col*4+4], m[col][:])
		}
	}
	return skin.Joints, out, nil
}

// --- Helper Functions ---

// gltfNodeName returns the node name, or a stable placeholder for unnamed nodes.
func gltfNodeName(doc *gltf.Document, idx uint32) string {
	if int(idx) < len(doc.Nodes) && doc.Nodes[idx].Name != "" {
		return doc.Nodes[idx].Name
	}
	return fmt.Sprintf("node_%d", idx)
}

// gltfNodeTransform extracts the rest TRS transform of a node, decomposing its matrix
// when one is set.
func gltfNodeTransform(node *gltf.Node) model.Transform {
	if node.Matrix != common.IdentityMatrix() && node.Matrix != [16]float32{} {
		return gltfDecomposeMatrix(node.Matrix)
	}
	t := model.Transform{
		Translation: node.Translation,
		Rotation:    node.Rotation,
		Scale:       node.Scale,
	}
	if t.Rotation == [4]float32{} {
		t.Rotation = [4]float32{0, 0, 0, 1}
	}
	if t.Scale == [3]float32{} {
		t.Scale = [3]float32{1, 1, 1}
	}
	return t
}

// gltfDecomposeMatrix decomposes a column-major matrix into translation, rotation and
// scale. Shear is ignored.
func gltfDecomposeMatrix(m [16]float32) model.Transform {
	mat := mgl32.Mat4(m)
	c0, c1, c2 := mat.Col(0).Vec3(), mat.Col(1).Vec3(), mat.Col(2).Vec3()
	scale := [3]float32{c0.Len(), c1.Len(), c2.Len()}

	safe := func(s float32) float32 {
		if s < common.BlendEpsilon {
			return 1
		}
		return s
	}
	rot := mgl32.Mat4FromCols(
		c0.Mul(1/safe(scale[0])).Vec4(0),
		c1.Mul(1/safe(scale[1])).Vec4(0),
		c2.Mul(1/safe(scale[2])).Vec4(0),
		mgl32.Vec4{0, 0, 0, 1},
	)
	return model.Transform{
		Translation: [3]float32{m[12], m[13], m[14]},
		Rotation:    common.QuatArray(mgl32.Mat4ToQuat(rot).Normalize()),
		Scale:       scale,
	}
}

// gltfTopologicalSortBones reorders bones so that parents always come before children,
// rewriting parent indices accordingly. Bones unreachable from a root keep their
// relative order at the end.
func gltfTopologicalSortBones(bones []model.Bone) []model.Bone {
	if len(bones) == 0 {
		return bones
	}

	children := make(map[int32][]int32)
	queue := make([]int32, 0, len(bones))
	for i, bone := range bones {
		if bone.ParentIndex >= 0 {
			children[bone.ParentIndex] = append(children[bone.ParentIndex], int32(i))
		} else {
			queue = append(queue, int32(i))
		}
	}

	sorted := make([]int32, 0, len(bones))
	visited := make([]bool, len(bones))
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		if visited[idx] {
			continue
		}
		visited[idx] = true
		sorted = append(sorted, idx)
		queue = append(queue, children[idx]...)
	}
	for i := range bones {
		if !visited[i] {
			sorted = append(sorted, int32(i))
		}
	}

	oldToNew := make(map[int32]int32, len(sorted))
	for newIdx, oldIdx := range sorted {
		oldToNew[oldIdx] = int32(newIdx)
	}
	out := make([]model.Bone, len(bones))
	for newIdx, oldIdx := range sorted {
		bone := bones[oldIdx]
		if bone.ParentIndex >= 0 {
			if p, ok := oldToNew[bone.ParentIndex]; ok && p < int32(newIdx) {
				bone.ParentIndex = p
			} else {
				bone.ParentIndex = -1
			}
		}
		out[newIdx] = bone
	}
	return out
}
