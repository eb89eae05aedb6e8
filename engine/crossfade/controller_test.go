package crossfade

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-avatar/engine/animator"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"github.com/Carmen-Shannon/oxy-avatar/engine/registry"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const tick float32 = 0.125

type fixture struct {
	mixer animator.Mixer
	reg   registry.Registry
	ctrl  Controller
	logs  *observer.ObservedLogs
}

func clip(name, joint string, duration float32) *model.AnimationClip {
	return model.NewAnimationClip(name, duration, model.Track{
		Target: model.TrackTarget(joint, model.PropertyTranslation),
		Times:  []float32{0, duration},
		Values: []float32{0, 0, 0, 1, 0, 0},
	})
}

func newFixture(t *testing.T, options ...ControllerBuilderOption) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)

	skeleton := model.NewSkeletonFromNames("Hips", "Spine")
	m := animator.NewMixer(skeleton)
	reg := registry.NewRegistry(skeleton, m, registry.WithLogger(logger))
	reg.Register("idle", clip("idle", "Hips", 2))
	reg.Register("wave", clip("wave", "Spine", 1), animator.WithLoop(animator.LoopOnce))
	reg.Register("turn", clip("turn", "Hips", 1), animator.WithLoop(animator.LoopOnce))
	reg.Register("walking", clip("walking", "Hips", 0.5))
	reg.Register("sad", clip("sad", "Tail", 1))
	require.Equal(t, 1, logs.Len(), "sad is incompatible")

	opts := append([]ControllerBuilderOption{WithLogger(logger)}, options...)
	f := &fixture{mixer: m, reg: reg, ctrl: NewController(m, reg, opts...), logs: logs}
	return f
}

func (f *fixture) action(t *testing.T, name string) animator.Action {
	t.Helper()
	e, ok := f.reg.Get(name)
	require.True(t, ok)
	require.NotNil(t, e.Action)
	return e.Action
}

func (f *fixture) advance(n int) {
	for range n {
		f.mixer.Advance(tick)
	}
}

// weightedOthers returns every action outside names that still carries weight while running.
func (f *fixture) weightedOthers(names ...string) []string {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	var out []string
	for _, a := range f.mixer.Actions() {
		if !skip[a.Name()] && a.IsRunning() && a.Weight() > 0 {
			out = append(out, a.Name())
		}
	}
	return out
}

func TestController_StartsIdle(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, Snapshot{State: StateIdle}, f.ctrl.Snapshot())
	assert.Nil(t, f.ctrl.Current())
	assert.Equal(t, DefaultDuration, f.ctrl.DefaultDuration())
	assert.Equal(t, "idle", f.ctrl.IdleName())
}

func TestController_FadeInFromIdle(t *testing.T) {
	f := newFixture(t)
	idle := f.action(t, "idle")

	require.True(t, f.ctrl.Play("idle", 0.5))
	snap := f.ctrl.Snapshot()
	assert.Equal(t, StateTransitioning, snap.State)
	assert.Equal(t, "", snap.From)
	assert.Equal(t, "idle", snap.To)
	assert.Equal(t, float32(0), idle.Weight())
	assert.Equal(t, float32(0), idle.Time())

	f.advance(2)
	assert.InDelta(t, 0.5, idle.Weight(), 1e-6)
	assert.Equal(t, StateTransitioning, f.ctrl.State())

	f.advance(2)
	assert.Equal(t, StatePlaying, f.ctrl.State())
	assert.Equal(t, float32(1), idle.Weight())
	assert.Same(t, idle, f.ctrl.Current())
}

func TestController_PlaySameCurrentIsNoop(t *testing.T) {
	f := newFixture(t)
	idle := f.action(t, "idle")
	f.ctrl.Play("idle", 0)
	f.advance(3)
	before := f.ctrl.Snapshot()

	assert.True(t, f.ctrl.Play("idle", 0.5))

	assert.Equal(t, before, f.ctrl.Snapshot())
	assert.Equal(t, 3*tick, idle.Time())
}

func TestController_CrossfadeConservesWeight(t *testing.T) {
	f := newFixture(t)
	idle := f.action(t, "idle")
	walk := f.action(t, "walking")
	f.ctrl.Play("idle", 0)

	require.True(t, f.ctrl.Play("walking", 0.5))
	assert.Equal(t, float32(1), idle.Weight())
	assert.Equal(t, float32(0), walk.Weight())

	for i := 1; i <= 3; i++ {
		f.advance(1)
		snap := f.ctrl.Snapshot()
		require.Equal(t, StateTransitioning, snap.State)
		assert.Equal(t, "idle", snap.From)
		assert.Equal(t, "walking", snap.To)
		assert.InDelta(t, 1.0, idle.Weight()+walk.Weight(), 1e-6, "tick %d", i)
		assert.InDelta(t, float32(i)*tick/0.5, walk.Weight(), 1e-6, "tick %d", i)
	}

	f.advance(1)
	assert.Equal(t, Snapshot{State: StatePlaying, Current: "walking"}, f.ctrl.Snapshot())
	assert.Equal(t, float32(0), idle.Weight())
	assert.False(t, idle.IsRunning())
	assert.Equal(t, float32(1), walk.Weight())
}

func TestController_MissingTargetIsNoopWithOneWarning(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Play("idle", 0)
	f.advance(1)
	before := f.ctrl.Snapshot()
	current := f.ctrl.Current()
	warnings := f.logs.Len()

	assert.False(t, f.ctrl.Play("nonexistent", 0.5))

	assert.Equal(t, before, f.ctrl.Snapshot())
	assert.Same(t, current, f.ctrl.Current())
	require.Equal(t, warnings+1, f.logs.Len())
	last := f.logs.All()[f.logs.Len()-1]
	assert.Equal(t, "unknown_animation", last.ContextMap()["kind"])
	assert.Equal(t, "nonexistent", last.ContextMap()["animation"])
}

func TestController_IncompatibleTargetIsNoop(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Play("idle", 0)
	before := f.ctrl.Snapshot()
	warnings := f.logs.Len()

	assert.False(t, f.ctrl.PlayWithLoop("sad", animator.LoopOnce, 0.5))

	assert.Equal(t, before, f.ctrl.Snapshot())
	require.Equal(t, warnings+1, f.logs.Len())
	assert.Equal(t, "no_playable_action", f.logs.All()[warnings].ContextMap()["kind"])
}

func TestController_OneShotReturnsToIdle(t *testing.T) {
	f := newFixture(t)
	idle := f.action(t, "idle")
	wave := f.action(t, "wave")
	f.ctrl.Play("idle", 0)

	require.True(t, f.ctrl.PlayWithLoop("wave", animator.LoopOnce, 0.25))
	f.advance(7)
	assert.Equal(t, Snapshot{State: StatePlaying, Current: "wave"}, f.ctrl.Snapshot())

	// The eighth tick reaches the end of the one-second clip.
	f.advance(1)
	assert.True(t, wave.IsFinished())
	snap := f.ctrl.Snapshot()
	assert.Equal(t, StateTransitioning, snap.State)
	assert.Equal(t, "wave", snap.From)
	assert.Equal(t, "idle", snap.To)
	assert.Equal(t, DefaultDuration, snap.Duration)

	f.advance(4)
	assert.Equal(t, Snapshot{State: StatePlaying, Current: "idle"}, f.ctrl.Snapshot())
	assert.Equal(t, float32(1), idle.Weight())
	assert.Equal(t, float32(0), wave.Weight())
	assert.False(t, wave.IsRunning())
}

func TestController_RepeatNeverReturns(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Play("idle", 0)
	f.ctrl.PlayWithLoop("walking", animator.LoopRepeat, 0)

	f.advance(20)

	assert.Equal(t, Snapshot{State: StatePlaying, Current: "walking"}, f.ctrl.Snapshot())
}

func TestController_OneShotShorterThanFadeStillReturns(t *testing.T) {
	f := newFixture(t)
	f.reg.Register("blink", clip("blink", "Spine", 0.25), animator.WithLoop(animator.LoopOnce))
	f.ctrl.Play("idle", 0)

	f.ctrl.Play("blink", 1)
	f.advance(2)

	// blink finished mid fade so the blend reverses toward idle.
	snap := f.ctrl.Snapshot()
	assert.Equal(t, StateTransitioning, snap.State)
	assert.Equal(t, "blink", snap.From)
	assert.Equal(t, "idle", snap.To)

	f.advance(8)
	assert.Equal(t, Snapshot{State: StatePlaying, Current: "idle"}, f.ctrl.Snapshot())
}

func TestController_OneShotRetriggeredDuringReturnRestarts(t *testing.T) {
	f := newFixture(t)
	turn := f.action(t, "turn")
	f.ctrl.Play("idle", 0)
	f.ctrl.Play("turn", 0)
	f.advance(8)
	require.True(t, turn.IsFinished())
	require.Equal(t, "idle", f.ctrl.Snapshot().To)

	require.True(t, f.ctrl.Play("turn", 0.5))

	snap := f.ctrl.Snapshot()
	assert.Equal(t, StateTransitioning, snap.State)
	assert.Equal(t, "idle", snap.From)
	assert.Equal(t, "turn", snap.To)
	assert.Equal(t, float32(0), snap.Elapsed)
	assert.Equal(t, float32(0), turn.Time())
	assert.False(t, turn.IsFinished())

	f.advance(7)
	assert.Equal(t, Snapshot{State: StatePlaying, Current: "turn"}, f.ctrl.Snapshot())
	assert.InDelta(t, 0.875, turn.Time(), 1e-6)

	f.advance(1)
	assert.True(t, turn.IsFinished())
	assert.Equal(t, "idle", f.ctrl.Snapshot().To)

	f.advance(4)
	assert.Equal(t, Snapshot{State: StatePlaying, Current: "idle"}, f.ctrl.Snapshot())
	assert.False(t, turn.IsRunning())
}

func TestController_FinishedCurrentOneShotRestarts(t *testing.T) {
	f := newFixture(t, WithIdleName("rest"))
	turn := f.action(t, "turn")
	f.ctrl.Play("turn", 0)
	f.advance(8)

	// There is no "rest" animation, so turn holds its last frame.
	require.True(t, turn.IsFinished())
	require.Equal(t, Snapshot{State: StatePlaying, Current: "turn"}, f.ctrl.Snapshot())

	require.True(t, f.ctrl.Play("turn", 0.5))
	assert.Equal(t, Snapshot{State: StatePlaying, Current: "turn"}, f.ctrl.Snapshot())
	assert.Equal(t, float32(0), turn.Time())
	assert.False(t, turn.IsFinished())
	assert.Equal(t, float32(1), turn.Weight())

	f.advance(4)
	assert.InDelta(t, 0.5, turn.Time(), 1e-6)
	f.advance(4)
	assert.True(t, turn.IsFinished())
}

func TestController_NoopPlayWithLoopKeepsLoopMode(t *testing.T) {
	f := newFixture(t)
	idle := f.action(t, "idle")
	wave := f.action(t, "wave")
	f.ctrl.Play("idle", 0)
	before := f.ctrl.Snapshot()

	require.True(t, f.ctrl.PlayWithLoop("idle", animator.LoopOnce, 0.5))
	assert.Equal(t, before, f.ctrl.Snapshot())
	assert.Equal(t, animator.LoopRepeat, idle.Loop())

	f.advance(40)
	assert.Equal(t, Snapshot{State: StatePlaying, Current: "idle"}, f.ctrl.Snapshot())
	assert.False(t, idle.IsFinished())

	f.ctrl.Play("wave", 0.5)
	f.ctrl.PlayWithLoop("wave", animator.LoopRepeat, 0.5)
	assert.Equal(t, animator.LoopOnce, wave.Loop())

	require.True(t, f.ctrl.PlayWithLoop("walking", animator.LoopOnce, 0))
	assert.Equal(t, animator.LoopOnce, f.action(t, "walking").Loop())
}

func TestController_SupersedeZeroesAbandonedActions(t *testing.T) {
	f := newFixture(t)
	idle := f.action(t, "idle")
	wave := f.action(t, "wave")
	turn := f.action(t, "turn")
	f.ctrl.Play("idle", 0)

	f.ctrl.Play("wave", 0.5)
	f.advance(2)
	require.InDelta(t, 0.5, wave.Weight(), 1e-6)

	f.ctrl.Play("turn", 0.5)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, "wave", snap.From)
	assert.Equal(t, "turn", snap.To)
	assert.Equal(t, float32(0), idle.Weight())
	assert.False(t, idle.IsRunning())
	assert.Equal(t, float32(0), turn.Time())

	for range 3 {
		f.advance(1)
		assert.InDelta(t, 1.0, wave.Weight()+turn.Weight(), 1e-6)
		assert.Empty(t, f.weightedOthers("wave", "turn"))
	}
	f.advance(1)
	assert.Equal(t, "turn", f.ctrl.Snapshot().Current)
	assert.Empty(t, f.weightedOthers("turn"))
}

func TestController_ReverseKeepsWeightAndCursor(t *testing.T) {
	f := newFixture(t)
	idle := f.action(t, "idle")
	wave := f.action(t, "wave")
	f.ctrl.Play("idle", 0)

	f.ctrl.Play("wave", 0.5)
	f.advance(1)
	require.InDelta(t, 0.75, idle.Weight(), 1e-6)
	idleTime := idle.Time()

	f.ctrl.Play("idle", 0.5)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, "wave", snap.From)
	assert.Equal(t, "idle", snap.To)
	assert.InDelta(t, 0.375, snap.Elapsed, 1e-6)
	assert.InDelta(t, 0.75, idle.Weight(), 1e-6)
	assert.InDelta(t, 0.25, wave.Weight(), 1e-6)
	assert.Equal(t, idleTime, idle.Time())

	f.advance(1)
	assert.Equal(t, StatePlaying, f.ctrl.State())
	assert.Equal(t, float32(1), idle.Weight())
}

func TestController_PlayIncomingTargetAgainIsNoop(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Play("idle", 0)
	f.ctrl.Play("wave", 0.5)
	f.advance(1)
	before := f.ctrl.Snapshot()

	f.ctrl.Play("wave", 0.5)

	if diff := cmp.Diff(before, f.ctrl.Snapshot()); diff != "" {
		t.Errorf("snapshot changed (-before +after):\n%s", diff)
	}
}

func TestController_InvalidDurationSwitchesInstantly(t *testing.T) {
	for _, d := range []float32{0, -1, float32(math.NaN()), float32(math.Inf(1))} {
		f := newFixture(t)
		idle := f.action(t, "idle")
		f.ctrl.Play("idle", 0)

		f.ctrl.Play("walking", d)

		assert.Equal(t, Snapshot{State: StatePlaying, Current: "walking"}, f.ctrl.Snapshot(), "duration %v", d)
		assert.Equal(t, float32(0), idle.Weight())
		assert.False(t, idle.IsRunning())
	}
}

func TestController_DisposedCurrentDropsToIdle(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Play("walking", 0)

	f.reg.Register("walking", clip("walking-v2", "Hips", 1))

	assert.Equal(t, StateIdle, f.ctrl.State())
	assert.Nil(t, f.ctrl.Current())
	assert.True(t, f.ctrl.Play("walking", 0))
	assert.Equal(t, "walking", f.ctrl.Snapshot().Current)
}

func TestController_DisposedOutgoingKeepsFadeIn(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Play("idle", 0)
	f.ctrl.Play("walking", 0.5)

	f.reg.Register("idle", clip("idle-v2", "Hips", 2))

	snap := f.ctrl.Snapshot()
	assert.Equal(t, StateTransitioning, snap.State)
	assert.Equal(t, "", snap.From)
	assert.Equal(t, "walking", snap.To)
}

func TestController_StopAll(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Play("idle", 0)
	f.ctrl.Play("walking", 0.5)

	f.ctrl.StopAll()

	assert.Equal(t, Snapshot{State: StateIdle}, f.ctrl.Snapshot())
	assert.Zero(t, f.mixer.ActiveActions())
}

func TestController_StateChangeListener(t *testing.T) {
	var states []State
	f := newFixture(t, OnStateChange(func(s Snapshot) { states = append(states, s.State) }))

	f.ctrl.Play("idle", 0.25)
	f.advance(2)
	f.ctrl.Play("nonexistent", 0.25)
	f.ctrl.StopAll()

	assert.Equal(t, []State{StateTransitioning, StatePlaying, StateIdle}, states)
}

func TestController_Options(t *testing.T) {
	f := newFixture(t, WithDefaultDuration(0.2), WithIdleName("walking"), WithDefaultDuration(-1))

	assert.Equal(t, float32(0.2), f.ctrl.DefaultDuration())
	assert.Equal(t, "walking", f.ctrl.IdleName())

	f.ctrl.Play("wave", 0)
	f.advance(8)
	snap := f.ctrl.Snapshot()
	assert.Equal(t, "walking", snap.To)
	assert.Equal(t, float32(0.2), snap.Duration)
}
