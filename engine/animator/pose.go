package animator

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// Pose is the evaluated local transform of every joint of a skeleton, indexed like
// Skeleton.Bones.
type Pose struct {
	Joints []model.Transform
}

// Joint returns the transform of the joint at index i, or the identity transform when
// i is out of range.
//
// Parameters:
//   - i: the bone index
//
// Returns:
//   - model.Transform: the joint transform
func (p Pose) Joint(i int32) model.Transform {
	if i < 0 || int(i) >= len(p.Joints) {
		return model.IdentityTransform()
	}
	return p.Joints[i]
}

// restPose copies the skeleton rest transforms into a new Pose.
func restPose(s *model.Skeleton) Pose {
	if s == nil {
		return Pose{}
	}
	p := Pose{Joints: make([]model.Transform, len(s.Bones))}
	for i, b := range s.Bones {
		p.Joints[i] = b.LocalTransform
	}
	return p
}

// jointAccumulator sums weighted contributions for one joint.
type jointAccumulator struct {
	translation mgl32.Vec3
	scale       mgl32.Vec3
	rotation    mgl32.Quat

	translationWeight, scaleWeight, rotationWeight float32
}

// evaluatePose blends every contributing action into dst. Weights are normalized when
// they sum above one; any remaining weight below one is filled from the rest pose.
func evaluatePose(dst *Pose, s *model.Skeleton, actions []*action, acc []jointAccumulator) {
	if s == nil || len(dst.Joints) != len(s.Bones) {
		return
	}
	for i := range acc {
		acc[i] = jointAccumulator{}
	}

	for _, a := range actions {
		if !a.contributes() {
			continue
		}
		w := a.weight
		for _, b := range a.bindings {
			tr := &a.clip.Tracks[b.track]
			ja := &acc[b.bone]
			switch b.property {
			case model.PropertyTranslation:
				ja.translation = ja.translation.Add(sampleVec3(tr, a.time).Mul(w))
				ja.translationWeight += w
			case model.PropertyScale:
				ja.scale = ja.scale.Add(sampleVec3(tr, a.time).Mul(w))
				ja.scaleWeight += w
			case model.PropertyRotation:
				q := sampleQuat(tr, a.time)
				if ja.rotationWeight > 0 && ja.rotation.Dot(q) < 0 {
					q = q.Scale(-1)
				}
				ja.rotation = ja.rotation.Add(q.Scale(w))
				ja.rotationWeight += w
			}
		}
	}

	for i, bone := range s.Bones {
		rest := bone.LocalTransform
		ja := &acc[i]
		dst.Joints[i] = model.Transform{
			Translation: blendVec3(ja.translation, ja.translationWeight, rest.Translation),
			Rotation:    blendQuat(ja.rotation, ja.rotationWeight, rest.Rotation),
			Scale:       blendVec3(ja.scale, ja.scaleWeight, rest.Scale),
		}
	}
}

func blendVec3(sum mgl32.Vec3, weight float32, rest [3]float32) [3]float32 {
	if weight <= 0 {
		return rest
	}
	if weight < 1 {
		sum = sum.Add(common.Vec3(rest).Mul(1 - weight))
		weight = 1
	}
	v := sum.Mul(1 / weight)
	return [3]float32{v[0], v[1], v[2]}
}

func blendQuat(sum mgl32.Quat, weight float32, rest [4]float32) [4]float32 {
	if weight <= 0 {
		return rest
	}
	if weight < 1 {
		r := common.Quat(rest)
		if sum.Dot(r) < 0 {
			r = r.Scale(-1)
		}
		sum = sum.Add(r.Scale(1 - weight))
	}
	if sum.Len() < common.BlendEpsilon {
		return rest
	}
	return common.QuatArray(sum.Normalize())
}

// keySpan locates the keyframes surrounding t and the interpolation factor between them.
func keySpan(times []float32, count int, t float32) (int, int, float32) {
	if count <= 1 || t <= times[0] {
		return 0, 0, 0
	}
	if t >= times[count-1] {
		return count - 1, count - 1, 0
	}
	next := sort.Search(count, func(i int) bool { return times[i] > t })
	prev := next - 1
	span := times[next] - times[prev]
	if span <= 0 {
		return next, next, 0
	}
	return prev, next, (t - times[prev]) / span
}

func sampleVec3(tr *model.Track, t float32) mgl32.Vec3 {
	prev, next, f := keySpan(tr.Times, tr.KeyCount(), t)
	a := mgl32.Vec3{tr.Values[prev*3], tr.Values[prev*3+1], tr.Values[prev*3+2]}
	if prev == next {
		return a
	}
	b := mgl32.Vec3{tr.Values[next*3], tr.Values[next*3+1], tr.Values[next*3+2]}
	return a.Add(b.Sub(a).Mul(f))
}

func sampleQuat(tr *model.Track, t float32) mgl32.Quat {
	prev, next, f := keySpan(tr.Times, tr.KeyCount(), t)
	a := mgl32.Quat{W: tr.Values[prev*4+3], V: mgl32.Vec3{tr.Values[prev*4], tr.Values[prev*4+1], tr.Values[prev*4+2]}}
	if prev == next {
		return a.Normalize()
	}
	b := mgl32.Quat{W: tr.Values[next*4+3], V: mgl32.Vec3{tr.Values[next*4], tr.Values[next*4+1], tr.Values[next*4+2]}}
	return common.SlerpShortest(a, b, f)
}
