package registry

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-avatar/engine/animator"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRegistry(t *testing.T, options ...RegistryBuilderOption) (Registry, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	skeleton := model.NewSkeletonFromNames("Hips", "Spine", "Head")
	m := animator.NewMixer(skeleton)
	opts := append([]RegistryBuilderOption{WithLogger(zap.New(core))}, options...)
	return NewRegistry(skeleton, m, opts...), logs
}

func TestRegister_CompatibleCreatesAction(t *testing.T) {
	r, logs := newTestRegistry(t)

	e := r.Register("idle", clipTargeting("Take 001", "Hips.quaternion"))

	require.True(t, e.Playable())
	assert.True(t, e.Compatible)
	assert.True(t, e.Loaded)
	assert.Equal(t, "idle", e.Action.Name())
	assert.Equal(t, animator.LoopRepeat, e.Action.Loop())
	assert.Equal(t, float32(1), e.Action.Weight())
	assert.Zero(t, logs.Len())
}

func TestRegister_ActionOptions(t *testing.T) {
	r, _ := newTestRegistry(t)

	e := r.Register("wave", clipTargeting("wave", "Head.quaternion"), animator.WithLoop(animator.LoopOnce))

	require.True(t, e.Playable())
	assert.Equal(t, animator.LoopOnce, e.Action.Loop())
}

func TestRegister_IncompatibleWarnsOncePerClip(t *testing.T) {
	r, logs := newTestRegistry(t)
	clip := clipTargeting("sad", "Tail.position")

	e := r.Register("sad", clip)
	r.Register("sad", clip)

	assert.False(t, e.Playable())
	assert.False(t, e.Compatible)
	assert.True(t, e.Loaded)
	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "incompatible_clip", ctx["kind"])
	assert.Equal(t, "sad", ctx["animation"])

	// A different clip under the same name is a new finding.
	r.Register("sad", clipTargeting("sad", "Wing.position"))
	assert.Equal(t, 2, logs.Len())
}

func TestRegister_ReplacesAndDisposesPrevious(t *testing.T) {
	r, _ := newTestRegistry(t)
	first := r.Register("idle", clipTargeting("v1", "Hips.quaternion"))
	first.Action.Play()

	second := r.Register("idle", clipTargeting("v2", "Spine.quaternion"))

	assert.Equal(t, 1, r.Len())
	got, ok := r.Get("idle")
	require.True(t, ok)
	assert.Same(t, second.Clip, got.Clip)
	assert.Equal(t, "v2", got.Clip.Name)

	assert.True(t, first.Action.Disposed())
	assert.False(t, first.Action.IsRunning())
	actions := r.Mixer().Actions()
	require.Len(t, actions, 1)
	assert.Same(t, second.Action, actions[0])
}

func TestRegister_ReplaceCompatibleWithIncompatible(t *testing.T) {
	r, _ := newTestRegistry(t)
	first := r.Register("idle", clipTargeting("v1", "Hips.quaternion"))

	second := r.Register("idle", clipTargeting("v2", "Tail.quaternion"))

	assert.True(t, first.Action.Disposed())
	assert.False(t, second.Playable())
	assert.Empty(t, r.Mixer().Actions())
}

func TestRegisterFailure_StoresEmptyIncompatibleClip(t *testing.T) {
	r, logs := newTestRegistry(t)
	loadErr := errors.New("404 not found")

	e := r.RegisterFailure("backflip", loadErr)

	assert.True(t, e.Loaded)
	assert.False(t, e.Compatible)
	assert.False(t, e.Playable())
	assert.Empty(t, e.Clip.Tracks)
	assert.ErrorIs(t, e.Err, loadErr)

	kinds := make([]any, 0, logs.Len())
	for _, entry := range logs.All() {
		kinds = append(kinds, entry.ContextMap()["kind"])
	}
	assert.Equal(t, []any{"load_failure", "incompatible_clip"}, kinds)
}

func TestAllLoaded_TracksExpectedNames(t *testing.T) {
	r, _ := newTestRegistry(t, WithExpected("idle", "sad"))
	assert.False(t, r.AllLoaded())
	assert.Equal(t, []string{"idle", "sad"}, r.Pending())

	r.Register("sad", clipTargeting("sad", "Tail.position"))
	assert.False(t, r.AllLoaded())
	assert.Equal(t, []string{"idle"}, r.Pending())

	r.Register("idle", clipTargeting("idle", "Hips.position"))
	assert.True(t, r.AllLoaded())
	assert.Empty(t, r.Pending())

	r.Expect("turn")
	assert.False(t, r.AllLoaded())
	r.RegisterFailure("turn", nil)
	assert.True(t, r.AllLoaded())
}

func TestGetAndNames(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Register("walking", clipTargeting("walk", "Hips.position"))
	r.Register("idle", clipTargeting("idle", "Hips.position"))

	_, ok := r.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"idle", "walking"}, r.Names())
}

func TestOnRegister_ReceivesStoredEntry(t *testing.T) {
	r, _ := newTestRegistry(t)
	var seen []string
	r.OnRegister(func(e Entry) { seen = append(seen, e.Name) })

	r.Register("idle", clipTargeting("idle", "Hips.position"))
	r.RegisterFailure("sad", errors.New("boom"))

	assert.Equal(t, []string{"idle", "sad"}, seen)
}

func TestNewRegistry_DefaultsSkeletonFromMixer(t *testing.T) {
	skeleton := model.NewSkeletonFromNames("Hips")
	r := NewRegistry(nil, animator.NewMixer(skeleton))

	e := r.Register("idle", clipTargeting("idle", "Hips.position"))

	assert.True(t, e.Compatible)
}

func TestWithChecker_SharesCache(t *testing.T) {
	c := NewChecker()
	skeleton := model.NewSkeletonFromNames("Hips")
	clip := clipTargeting("idle", "Hips.position")

	NewRegistry(skeleton, animator.NewMixer(skeleton), WithChecker(c)).Register("idle", clip)
	NewRegistry(skeleton, animator.NewMixer(skeleton), WithChecker(c)).Register("idle", clip)

	assert.Equal(t, 1, c.Len())
}

func TestRegister_ReplaceDropsStaleCheck(t *testing.T) {
	c := NewChecker()
	skeleton := model.NewSkeletonFromNames("Hips")
	r := NewRegistry(skeleton, animator.NewMixer(skeleton), WithChecker(c))
	shared := clipTargeting("idle", "Hips.position")

	r.Register("idle", clipTargeting("idle", "Hips.position"))
	r.Register("idle", shared)
	assert.Equal(t, 1, c.Len())

	// rest still holds shared, so replacing idle keeps its cached result.
	r.Register("rest", shared)
	r.Register("idle", clipTargeting("idle", "Tail.position"))
	assert.Equal(t, 2, c.Len())

	r.Register("rest", model.EmptyClip("rest"))
	assert.Equal(t, 2, c.Len())
}
