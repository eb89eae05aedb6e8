package animator

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constClip(name, joint string, x float32) *model.AnimationClip {
	return model.NewAnimationClip(name, 1, model.Track{
		Target: model.TrackTarget(joint, model.PropertyTranslation),
		Times:  []float32{0},
		Values: []float32{x, 0, 0},
	})
}

func TestPose_SamplesLinearly(t *testing.T) {
	m := NewMixer(testSkeleton())
	a := m.CreateAction(slideClip("slide"))
	a.Play()

	m.Advance(0.5)

	hips, ok := m.JointTransform("Hips")
	require.True(t, ok)
	assert.InDelta(t, 1.0, hips.Translation[0], 1e-5)

	spine, ok := m.JointTransform("Spine")
	require.True(t, ok)
	assert.Equal(t, model.IdentityTransform(), spine)

	_, ok = m.JointTransform("Tail")
	assert.False(t, ok)
}

func TestPose_PartialWeightBlendsWithRest(t *testing.T) {
	m := NewMixer(testSkeleton())
	a := m.CreateAction(constClip("lean", "Hips", 4), WithWeight(0.25))
	a.Play()

	m.Advance(0.1)

	hips, _ := m.JointTransform("Hips")
	assert.InDelta(t, 1.0, hips.Translation[0], 1e-5)
	assert.Equal(t, [3]float32{1, 1, 1}, hips.Scale)
}

func TestPose_TwoActionsBlendByWeight(t *testing.T) {
	m := NewMixer(testSkeleton())
	a := m.CreateAction(constClip("left", "Hips", 2), WithWeight(0.5))
	b := m.CreateAction(constClip("right", "Hips", 4), WithWeight(0.5))
	a.Play()
	b.Play()

	m.Advance(0.1)

	hips, _ := m.JointTransform("Hips")
	assert.InDelta(t, 3.0, hips.Translation[0], 1e-5)
}

func TestPose_OverweightIsNormalized(t *testing.T) {
	m := NewMixer(testSkeleton())
	a := m.CreateAction(constClip("left", "Hips", 2))
	b := m.CreateAction(constClip("right", "Hips", 4))
	a.Play()
	b.Play()

	m.Advance(0.1)

	hips, _ := m.JointTransform("Hips")
	assert.InDelta(t, 3.0, hips.Translation[0], 1e-5)
}

func TestPose_RotationSlerps(t *testing.T) {
	s := float32(math.Sqrt2 / 2)
	m := NewMixer(testSkeleton())
	clip := model.NewAnimationClip("turn", 0, model.Track{
		Target: model.TrackTarget("Head", model.PropertyRotation),
		Times:  []float32{0, 1},
		Values: []float32{0, 0, 0, 1, 0, 0, s, s},
	})
	a := m.CreateAction(clip)
	a.Play()

	m.Advance(0.5)

	head, _ := m.JointTransform("Head")
	want := [4]float32{0, 0, float32(math.Sin(math.Pi / 8)), float32(math.Cos(math.Pi / 8))}
	if diff := cmp.Diff(want, head.Rotation, cmpopts.EquateApprox(0, 1e-4)); diff != "" {
		t.Errorf("rotation mismatch (-want +got):\n%s", diff)
	}
}

func TestPose_StoppedActionsDoNotContribute(t *testing.T) {
	m := NewMixer(testSkeleton())
	a := m.CreateAction(constClip("lean", "Hips", 4))
	a.Play()
	m.Advance(0.1)
	a.Stop()

	m.Advance(0.1)

	hips, _ := m.JointTransform("Hips")
	assert.Equal(t, model.IdentityTransform(), hips)
}

func TestKeySpan(t *testing.T) {
	times := []float32{0, 0.5, 1.5}
	tests := []struct {
		t          float32
		prev, next int
		f          float32
	}{
		{-1, 0, 0, 0},
		{0, 0, 0, 0},
		{0.25, 0, 1, 0.5},
		{0.5, 1, 2, 0},
		{1.0, 1, 2, 0.5},
		{2, 2, 2, 0},
	}
	for _, tt := range tests {
		prev, next, f := keySpan(times, len(times), tt.t)
		assert.Equal(t, tt.prev, prev, "prev at %v", tt.t)
		assert.Equal(t, tt.next, next, "next at %v", tt.t)
		assert.InDelta(t, tt.f, f, 1e-6, "factor at %v", tt.t)
	}
}

func TestPoseJoint_OutOfRange(t *testing.T) {
	p := Pose{}
	assert.Equal(t, model.IdentityTransform(), p.Joint(3))
	assert.Equal(t, model.IdentityTransform(), p.Joint(-1))
}
