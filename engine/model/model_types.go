package model

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-avatar/common"
)

// --- Transform & Skeleton Types ---

// Transform represents a decomposed transform for animation interpolation.
type Transform struct {
	// Translation is the position offset.
	Translation [3]float32

	// Rotation is the orientation as a quaternion (x, y, z, w).
	Rotation [4]float32

	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// IdentityTransform returns the rest transform with no offset, no rotation and unit scale.
//
// Returns:
//   - Transform: the identity transform
func IdentityTransform() Transform {
	return Transform{
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

// Bone represents a single joint in a skeleton hierarchy.
type Bone struct {
	// Name is the joint identifier. Names are unique within one skeleton and are the
	// key animation tracks use to target the joint.
	Name string

	// ParentIndex is the index of the parent bone (-1 for root bones).
	ParentIndex int32

	// InverseBindMatrix transforms from model space to bone space at bind pose.
	InverseBindMatrix [16]float32

	// LocalTransform is the bone's rest transform relative to its parent.
	LocalTransform Transform
}

// Skeleton represents the bone hierarchy of a loaded model instance.
// A Skeleton is immutable once the model is loaded.
type Skeleton struct {
	// Bones is the array of all bones in the skeleton, parents before children.
	Bones []Bone

	// RootBoneIndices are indices of bones with no parent.
	RootBoneIndices []int32

	// BoneNameToIndex maps bone names to their indices for quick lookup.
	BoneNameToIndex map[string]int32
}

// NewSkeleton builds a Skeleton from a bone slice, deriving the root indices and the
// name lookup table. Bones with an empty name are kept but cannot be targeted.
//
// Parameters:
//   - bones: the bones of the skeleton, parent indices referring into the same slice
//
// Returns:
//   - *Skeleton: the assembled skeleton
func NewSkeleton(bones []Bone) *Skeleton {
	s := &Skeleton{
		Bones:           bones,
		BoneNameToIndex: make(map[string]int32, len(bones)),
	}
	for i, b := range bones {
		if b.ParentIndex < 0 {
			s.RootBoneIndices = append(s.RootBoneIndices, int32(i))
		}
		if b.Name != "" {
			s.BoneNameToIndex[b.Name] = int32(i)
		}
	}
	return s
}

// NewSkeletonFromNames builds a flat skeleton of root joints with identity rest transforms.
// It is a convenience for hosts that only know their joint names.
//
// Parameters:
//   - names: the joint names
//
// Returns:
//   - *Skeleton: the assembled skeleton
func NewSkeletonFromNames(names ...string) *Skeleton {
	bones := make([]Bone, len(names))
	for i, n := range names {
		bones[i] = Bone{
			Name:              n,
			ParentIndex:       -1,
			InverseBindMatrix: common.IdentityMatrix(),
			LocalTransform:    IdentityTransform(),
		}
	}
	return NewSkeleton(bones)
}

// JointNames collects the set of joint names present in the skeleton in a single pass.
//
// Returns:
//   - map[string]struct{}: the set of joint names
func (s *Skeleton) JointNames() map[string]struct{} {
	if s == nil {
		return nil
	}
	names := make(map[string]struct{}, len(s.Bones))
	for _, b := range s.Bones {
		if b.Name != "" {
			names[b.Name] = struct{}{}
		}
	}
	return names
}

// HasJoint reports whether a joint with the given name exists.
//
// Parameters:
//   - name: the joint name
//
// Returns:
//   - bool: true if the joint exists
func (s *Skeleton) HasJoint(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.BoneNameToIndex[name]
	return ok
}

// JointIndex returns the index of a joint by name, or -1 when absent.
//
// Parameters:
//   - name: the joint name
//
// Returns:
//   - int32: the bone index or -1
func (s *Skeleton) JointIndex(name string) int32 {
	if s == nil {
		return -1
	}
	if idx, ok := s.BoneNameToIndex[name]; ok {
		return idx
	}
	return -1
}

// --- Animation Types ---

// TrackProperty identifies which transform component a track animates.
type TrackProperty int

const (
	// PropertyUnknown is a property the mixer does not evaluate (morph weights, custom channels).
	PropertyUnknown TrackProperty = iota

	// PropertyTranslation animates the joint position, 3 values per key.
	PropertyTranslation

	// PropertyRotation animates the joint orientation as an (x, y, z, w) quaternion, 4 values per key.
	PropertyRotation

	// PropertyScale animates the joint scale, 3 values per key.
	PropertyScale
)

// String returns the canonical track suffix for the property.
func (p TrackProperty) String() string {
	switch p {
	case PropertyTranslation:
		return "position"
	case PropertyRotation:
		return "quaternion"
	case PropertyScale:
		return "scale"
	default:
		return "unknown"
	}
}

// Stride returns the number of floats per keyframe value, or 0 for unknown properties.
func (p TrackProperty) Stride() int {
	switch p {
	case PropertyTranslation, PropertyScale:
		return 3
	case PropertyRotation:
		return 4
	default:
		return 0
	}
}

// ParseTrackProperty maps a track suffix to a TrackProperty. Both the glTF path names
// (translation, rotation, scale) and the scene-graph names (position, quaternion, scale)
// are accepted.
//
// Parameters:
//   - s: the suffix after the first '.' of a track target
//
// Returns:
//   - TrackProperty: the parsed property, PropertyUnknown if unrecognized
func ParseTrackProperty(s string) TrackProperty {
	switch strings.ToLower(s) {
	case "position", "translation":
		return PropertyTranslation
	case "quaternion", "rotation":
		return PropertyRotation
	case "scale":
		return PropertyScale
	default:
		return PropertyUnknown
	}
}

// TrackTarget builds a joint-qualified track target such as "Hips.quaternion".
//
// Parameters:
//   - joint: the joint name
//   - property: the animated property
//
// Returns:
//   - string: the track target
func TrackTarget(joint string, property TrackProperty) string {
	return joint + "." + property.String()
}

// Track is one time-sampled curve targeting a single joint property.
type Track struct {
	// Target is the joint-qualified identifier, "<jointName>.<property>".
	Target string

	// Times are the keyframe timestamps in seconds, ascending.
	Times []float32

	// Values holds the flattened keyframe values, Stride() floats per timestamp.
	Values []float32
}

// JointName returns the prefix of Target before the first '.'.
// A target without a '.' is treated as a bare joint name.
func (t Track) JointName() string {
	joint, _, _ := strings.Cut(t.Target, ".")
	return joint
}

// Property returns the animated property parsed from the suffix of Target.
func (t Track) Property() TrackProperty {
	_, prop, ok := strings.Cut(t.Target, ".")
	if !ok {
		return PropertyUnknown
	}
	return ParseTrackProperty(prop)
}

// KeyCount returns the number of usable keyframes, bounded by both timestamps and values.
func (t Track) KeyCount() int {
	stride := t.Property().Stride()
	if stride == 0 {
		return 0
	}
	return min(len(t.Times), len(t.Values)/stride)
}

// AnimationClip represents a single animation (idle, wave, dance, etc.).
// Clips are loaded once per asset path, are immutable, and are shared read-only by
// every Action built from them.
type AnimationClip struct {
	// Name is the animation identifier as authored in the source asset.
	Name string

	// Duration is the total length of the animation in seconds.
	Duration float32

	// Tracks contains the animated curves in authoring order.
	Tracks []Track
}

// NewAnimationClip builds a clip, deriving Duration from the latest key time when
// duration is not positive.
//
// Parameters:
//   - name: the clip name
//   - duration: the clip length in seconds, or <= 0 to derive it from the tracks
//   - tracks: the clip tracks
//
// Returns:
//   - *AnimationClip: the assembled clip
func NewAnimationClip(name string, duration float32, tracks ...Track) *AnimationClip {
	c := &AnimationClip{Name: name, Duration: duration, Tracks: tracks}
	if c.Duration <= 0 {
		for _, t := range tracks {
			if n := len(t.Times); n > 0 && t.Times[n-1] > c.Duration {
				c.Duration = t.Times[n-1]
			}
		}
	}
	return c
}

// EmptyClip returns a clip with no tracks. It stands in for a clip whose source failed
// to load, which the compatibility check always rejects.
//
// Parameters:
//   - name: the logical animation name
//
// Returns:
//   - *AnimationClip: a zero-track clip
func EmptyClip(name string) *AnimationClip {
	return &AnimationClip{Name: name}
}

// JointNames collects the set of joint names referenced by the clip's tracks.
//
// Returns:
//   - map[string]struct{}: the set of referenced joint names
func (c *AnimationClip) JointNames() map[string]struct{} {
	if c == nil {
		return nil
	}
	names := make(map[string]struct{}, len(c.Tracks))
	for _, t := range c.Tracks {
		if j := t.JointName(); j != "" {
			names[j] = struct{}{}
		}
	}
	return names
}
