package animator

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSkeleton() *model.Skeleton {
	return model.NewSkeletonFromNames("Hips", "Spine", "Head")
}

// slideClip moves Hips along x from 0 to 2 over one second.
func slideClip(name string) *model.AnimationClip {
	return model.NewAnimationClip(name, 0, model.Track{
		Target: model.TrackTarget("Hips", model.PropertyTranslation),
		Times:  []float32{0, 1},
		Values: []float32{0, 0, 0, 2, 0, 0},
	})
}

func TestParseLoopMode(t *testing.T) {
	tests := []struct {
		in      string
		want    LoopMode
		wantErr bool
	}{
		{"once", LoopOnce, false},
		{"ONCE", LoopOnce, false},
		{"repeat", LoopRepeat, false},
		{" loop ", LoopRepeat, false},
		{"pingpong", LoopRepeat, true},
		{"", LoopRepeat, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLoopMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) LoopMode {
	t.Helper()
	l, err := ParseLoopMode(s)
	require.NoError(t, err)
	return l
}

func TestCreateAction_Defaults(t *testing.T) {
	m := NewMixer(testSkeleton())
	a := m.CreateAction(slideClip("slide"))

	assert.Equal(t, "slide", a.Name())
	assert.Equal(t, LoopRepeat, a.Loop())
	assert.Equal(t, float32(1), a.Weight())
	assert.Equal(t, float32(1), a.TimeScale())
	assert.Equal(t, float32(0), a.Time())
	assert.Equal(t, float32(1), a.Duration())
	assert.False(t, a.IsRunning())
	assert.Equal(t, 1, a.BoundTracks())
}

func TestCreateAction_SkipsTracksOutsideSkeleton(t *testing.T) {
	m := NewMixer(testSkeleton())
	clip := model.NewAnimationClip("mixed", 1,
		model.Track{Target: "Hips.quaternion", Times: []float32{0}, Values: []float32{0, 0, 0, 1}},
		model.Track{Target: "Tail.position", Times: []float32{0}, Values: []float32{1, 1, 1}},
		model.Track{Target: "Head.morphTargetInfluences", Times: []float32{0}, Values: []float32{1}},
		model.Track{Target: "Spine.scale", Times: []float32{0}, Values: []float32{1}},
	)

	a := m.CreateAction(clip, WithActionName("custom"), WithLoop(LoopOnce), WithWeight(3))

	assert.Equal(t, 1, a.BoundTracks())
	assert.Equal(t, "custom", a.Name())
	assert.Equal(t, LoopOnce, a.Loop())
	assert.Equal(t, float32(1), a.Weight())
}

func TestAction_RepeatWraps(t *testing.T) {
	m := NewMixer(testSkeleton())
	a := m.CreateAction(slideClip("slide"))
	a.Play()

	m.Advance(0.75)
	m.Advance(0.75)

	assert.InDelta(t, 0.5, a.Time(), 1e-5)
	assert.False(t, a.IsFinished())
	assert.True(t, a.IsRunning())
}

func TestAction_OnceClampsAndFinishes(t *testing.T) {
	m := NewMixer(testSkeleton())
	a := m.CreateAction(slideClip("wave"), WithLoop(LoopOnce))

	var finished []string
	m.OnFinished(func(done Action) { finished = append(finished, done.Name()) })

	a.Play()
	m.Advance(0.6)
	assert.Empty(t, finished)

	m.Advance(0.6)
	assert.Equal(t, []string{"wave"}, finished)
	assert.Equal(t, float32(1), a.Time())
	assert.True(t, a.IsFinished())

	// A finished action holds its last frame without notifying again.
	m.Advance(0.6)
	assert.Len(t, finished, 1)
	assert.Equal(t, float32(1), a.Time())
}

func TestAction_TimeScaleAndPause(t *testing.T) {
	m := NewMixer(testSkeleton())
	a := m.CreateAction(slideClip("slide"), WithTimeScale(0.5))
	a.Play()

	m.Advance(0.5)
	assert.InDelta(t, 0.25, a.Time(), 1e-6)

	a.SetPaused(true)
	m.Advance(0.5)
	assert.InDelta(t, 0.25, a.Time(), 1e-6)

	a.SetTimeScale(-2)
	assert.Equal(t, float32(0), a.TimeScale())
}

func TestAction_StopRewindsAndKeepsWeight(t *testing.T) {
	m := NewMixer(testSkeleton())
	a := m.CreateAction(slideClip("slide"))
	a.SetWeight(0.4)
	a.Play()
	m.Advance(0.3)

	a.Stop()

	assert.False(t, a.IsRunning())
	assert.Equal(t, float32(0), a.Time())
	assert.Equal(t, float32(0.4), a.Weight())
}

func TestAction_SetTimeClamps(t *testing.T) {
	m := NewMixer(testSkeleton())
	a := m.CreateAction(slideClip("slide"))

	a.SetTime(5)
	assert.Equal(t, float32(1), a.Time())
	a.SetTime(-1)
	assert.Equal(t, float32(0), a.Time())
}

func TestAction_ZeroWeightDoesNotAdvance(t *testing.T) {
	m := NewMixer(testSkeleton())
	a := m.CreateAction(slideClip("slide"), WithWeight(0))
	a.Play()

	m.Advance(0.5)

	assert.Equal(t, float32(0), a.Time())
	assert.Equal(t, 0, m.ActiveActions())
}
