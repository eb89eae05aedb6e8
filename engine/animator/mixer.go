package animator

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/diagnostic"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// mixer is the implementation of the Mixer interface.
type mixer struct {
	id       string
	skeleton *model.Skeleton
	reporter diagnostic.Reporter

	actions []*action

	pose        Pose
	accumulator []jointAccumulator
	elapsed     float64
	maxDelta    float32

	updateHooks       []func(deltaSeconds float32)
	finishedListeners []func(Action)
	disposedListeners []func(Action)

	finishedQueue []*action
}

// Mixer owns one evolving pose for a single model instance and every Action bound to it.
//
// Time only moves when Advance is called; the Mixer never polls a clock. Advance must be
// called from a single thread, once per render tick, and the Mixer is not safe for
// concurrent use. Clip data may be shared between mixers, but each Mixer builds its own
// Actions over it.
type Mixer interface {
	// ID returns the unique instance identifier of this mixer, used in diagnostics.
	//
	// Returns:
	//   - string: the mixer id
	ID() string

	// Skeleton returns the skeleton this mixer poses.
	//
	// Returns:
	//   - *model.Skeleton: the skeleton
	Skeleton() *model.Skeleton

	// CreateAction builds a new Action that plays clip on this mixer. New actions default to
	// LoopRepeat, weight 1.0 and a stopped cursor at 0.
	//
	// Parameters:
	//   - clip: the clip to bind
	//   - options: optional ActionOption functions
	//
	// Returns:
	//   - Action: the new action
	CreateAction(clip *model.AnimationClip, options ...ActionOption) Action

	// DisposeAction stops an Action and removes it from this mixer. Dispose listeners are
	// notified. Unknown or already disposed actions are ignored.
	//
	// Parameters:
	//   - a: the action to dispose
	DisposeAction(a Action)

	// Actions returns a snapshot of the live actions in creation order.
	//
	// Returns:
	//   - []Action: the actions
	Actions() []Action

	// ActiveActions returns how many actions are running with a non-zero weight.
	//
	// Returns:
	//   - int: the number of contributing actions
	ActiveActions() int

	// Advance steps every running, weighted action by deltaSeconds and re-evaluates the pose.
	// Update hooks run first, finished events are dispatched after all actions have been
	// stepped, and the pose is evaluated last. A delta that is not a positive finite number
	// is a no-op.
	//
	// Parameters:
	//   - deltaSeconds: wall-clock seconds since the previous tick
	Advance(deltaSeconds float32)

	// StopAll halts every action immediately, without any transition.
	StopAll()

	// Pose returns the pose evaluated by the latest Advance. The returned slice is owned by
	// the mixer and is overwritten by the next Advance.
	//
	// Returns:
	//   - Pose: the current pose
	Pose() Pose

	// JointTransform returns the evaluated transform of a joint by name.
	//
	// Parameters:
	//   - name: the joint name
	//
	// Returns:
	//   - model.Transform: the joint transform
	//   - bool: false if the joint does not exist
	JointTransform(name string) (model.Transform, bool)

	// Elapsed returns the total time advanced on this mixer in seconds.
	//
	// Returns:
	//   - float64: the accumulated time
	Elapsed() float64

	// AddUpdateHook registers a function called at the start of every effective Advance,
	// before any action is stepped.
	//
	// Parameters:
	//   - hook: the function receiving the tick delta
	AddUpdateHook(hook func(deltaSeconds float32))

	// OnFinished registers a listener notified when a LoopOnce action reaches its clip end.
	//
	// Parameters:
	//   - listener: the function receiving the finished action
	OnFinished(listener func(Action))

	// OnDisposed registers a listener notified when an action is disposed.
	//
	// Parameters:
	//   - listener: the function receiving the disposed action
	OnDisposed(listener func(Action))
}

var _ Mixer = &mixer{}

// NewMixer creates a Mixer for one model instance posing the given skeleton.
//
// Parameters:
//   - skeleton: the skeleton of the model instance
//   - options: variadic list of MixerBuilderOption functions to configure the Mixer
//
// Returns:
//   - Mixer: the new mixer
func NewMixer(skeleton *model.Skeleton, options ...MixerBuilderOption) Mixer {
	if skeleton == nil {
		skeleton = model.NewSkeleton(nil)
	}
	m := &mixer{
		id:       uuid.NewString(),
		skeleton: skeleton,
		reporter: diagnostic.NewNop(),
	}
	for _, opt := range options {
		opt(m)
	}
	m.reporter = m.reporter.Scoped(zap.String("mixer", m.id))
	m.pose = restPose(skeleton)
	m.accumulator = make([]jointAccumulator, len(skeleton.Bones))
	return m
}

func (m *mixer) ID() string {
	return m.id
}

func (m *mixer) Skeleton() *model.Skeleton {
	return m.skeleton
}

func (m *mixer) CreateAction(clip *model.AnimationClip, options ...ActionOption) Action {
	name := ""
	if clip != nil {
		name = clip.Name
	}
	a := newAction(m, name, clip)
	for _, opt := range options {
		opt(a)
	}
	m.actions = append(m.actions, a)
	m.reporter.Logger().Debug("action created",
		zap.String("animation", a.name),
		zap.Int("tracks", a.BoundTracks()),
		zap.Float32("duration", a.Duration()),
	)
	return a
}

func (m *mixer) DisposeAction(a Action) {
	impl, ok := a.(*action)
	if !ok || impl.mixer != m || impl.disposed {
		return
	}
	idx := slices.Index(m.actions, impl)
	if idx < 0 {
		return
	}
	impl.Stop()
	impl.weight = 0
	impl.disposed = true
	m.actions = slices.Delete(m.actions, idx, idx+1)
	for _, l := range m.disposedListeners {
		l(impl)
	}
}

func (m *mixer) Actions() []Action {
	out := make([]Action, len(m.actions))
	for i, a := range m.actions {
		out[i] = a
	}
	return out
}

func (m *mixer) ActiveActions() int {
	n := 0
	for _, a := range m.actions {
		if a.contributes() {
			n++
		}
	}
	return n
}

func (m *mixer) Advance(deltaSeconds float32) {
	if !common.IsFinite(deltaSeconds) || deltaSeconds <= 0 {
		return
	}
	if m.maxDelta > 0 && deltaSeconds > m.maxDelta {
		deltaSeconds = m.maxDelta
	}
	m.elapsed += float64(deltaSeconds)

	for _, hook := range m.updateHooks {
		hook(deltaSeconds)
	}

	m.finishedQueue = m.finishedQueue[:0]
	for _, a := range m.actions {
		if a.step(deltaSeconds) {
			m.finishedQueue = append(m.finishedQueue, a)
		}
	}
	for _, a := range m.finishedQueue {
		for _, l := range m.finishedListeners {
			l(a)
		}
	}

	evaluatePose(&m.pose, m.skeleton, m.actions, m.accumulator)
}

func (m *mixer) StopAll() {
	for _, a := range m.actions {
		a.Stop()
		a.weight = 0
	}
	m.pose = restPose(m.skeleton)
}

func (m *mixer) Pose() Pose {
	return m.pose
}

func (m *mixer) JointTransform(name string) (model.Transform, bool) {
	idx := m.skeleton.JointIndex(name)
	if idx < 0 {
		return model.Transform{}, false
	}
	return m.pose.Joint(idx), true
}

func (m *mixer) Elapsed() float64 {
	return m.elapsed
}

func (m *mixer) AddUpdateHook(hook func(deltaSeconds float32)) {
	if hook != nil {
		m.updateHooks = append(m.updateHooks, hook)
	}
}

func (m *mixer) OnFinished(listener func(Action)) {
	if listener != nil {
		m.finishedListeners = append(m.finishedListeners, listener)
	}
}

func (m *mixer) OnDisposed(listener func(Action)) {
	if listener != nil {
		m.disposedListeners = append(m.disposedListeners, listener)
	}
}
