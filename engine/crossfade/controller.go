// Package crossfade drives which action of a mixer is current and blends between them.
package crossfade

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/animator"
	"github.com/Carmen-Shannon/oxy-avatar/engine/diagnostic"
	"github.com/Carmen-Shannon/oxy-avatar/engine/registry"
	"go.uber.org/zap"
)

// DefaultDuration is the crossfade length used when no override is configured.
const DefaultDuration float32 = 0.5

// DefaultIdleName is the registry name auto-return plays.
const DefaultIdleName = "idle"

// State is the playback state of a Controller.
type State int

const (
	// StateIdle means no action is current. This is the initial state.
	StateIdle State = iota

	// StatePlaying means exactly one action is current at full weight.
	StatePlaying

	// StateTransitioning means an outgoing and an incoming action are being blended.
	// A fade-in from Idle has no outgoing action.
	StateTransitioning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateTransitioning:
		return "transitioning"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is a read-only view of the controller state.
type Snapshot struct {
	State State

	// Current is the name of the current action. While transitioning it is the incoming one.
	Current string

	// From and To are the outgoing and incoming names of an in-flight transition.
	From, To string

	// Elapsed and Duration describe the blend progress in seconds.
	Elapsed, Duration float32
}

// controller is the implementation of the Controller interface.
type controller struct {
	mixer    animator.Mixer
	registry registry.Registry
	reporter diagnostic.Reporter

	defaultDuration float32
	idleName        string

	state    State
	current  animator.Action
	from, to animator.Action
	elapsed  float32
	duration float32

	listeners []func(Snapshot)
}

// Controller is the playback state machine of one mixer. It picks the current action,
// runs fade-out/fade-in blends between actions, and returns to idle after one-shot clips
// finish.
//
// Blend progress is driven only by Mixer.Advance; the controller never reads a clock.
// Like the mixer, it is not safe for concurrent use.
type Controller interface {
	// Play crossfades to the named action over duration seconds, keeping its loop mode.
	// A duration that is not a positive finite number switches instantly. Unknown names
	// and names without a playable action are reported and ignored. Requesting the current
	// or incoming action again is a no-op unless it is a finished one-shot, which restarts.
	//
	// Parameters:
	//   - name: the registry name to play
	//   - duration: the crossfade length in seconds
	//
	// Returns:
	//   - bool: false if the request was ignored because the name is not playable
	Play(name string, duration float32) bool

	// PlayWithLoop sets the loop mode of the named action and then behaves like Play. A request
	// that leaves the state machine untouched also leaves the loop mode untouched.
	//
	// Parameters:
	//   - name: the registry name to play
	//   - loop: the loop mode to apply
	//   - duration: the crossfade length in seconds
	//
	// Returns:
	//   - bool: false if the request was ignored because the name is not playable
	PlayWithLoop(name string, loop animator.LoopMode, duration float32) bool

	// StopAll halts every action of the mixer and returns to Idle without a transition.
	StopAll()

	// State returns the current state.
	//
	// Returns:
	//   - State: the state
	State() State

	// Current returns the current action, or nil in Idle. While transitioning it is the
	// incoming action.
	//
	// Returns:
	//   - animator.Action: the current action
	Current() animator.Action

	// Snapshot returns a read-only view of the state machine.
	//
	// Returns:
	//   - Snapshot: the snapshot
	Snapshot() Snapshot

	// DefaultDuration returns the configured default crossfade length.
	//
	// Returns:
	//   - float32: the duration in seconds
	DefaultDuration() float32

	// IdleName returns the registry name used for auto-return.
	//
	// Returns:
	//   - string: the idle animation name
	IdleName() string

	// OnStateChange adds a listener called whenever the state or the current action changes.
	//
	// Parameters:
	//   - listener: the function receiving the new snapshot
	OnStateChange(listener func(Snapshot))
}

var _ Controller = &controller{}

// NewController creates a Controller over the mixer's actions, resolving names through
// reg. The controller hooks into the mixer's update, finished and disposed events.
//
// Parameters:
//   - mixer: the mixer whose actions are driven
//   - reg: the registry names are resolved against
//   - options: variadic list of ControllerBuilderOption functions to configure the Controller
//
// Returns:
//   - Controller: the new controller
func NewController(mixer animator.Mixer, reg registry.Registry, options ...ControllerBuilderOption) Controller {
	c := &controller{
		mixer:           mixer,
		registry:        reg,
		reporter:        diagnostic.NewNop(),
		defaultDuration: DefaultDuration,
		idleName:        DefaultIdleName,
		state:           StateIdle,
	}
	for _, opt := range options {
		opt(c)
	}
	c.reporter = c.reporter.Scoped(zap.String("mixer", mixer.ID()))

	mixer.AddUpdateHook(c.update)
	mixer.OnFinished(c.handleFinished)
	mixer.OnDisposed(c.handleDisposed)
	return c
}

func (c *controller) Play(name string, duration float32) bool {
	target, ok := c.resolve(name, duration)
	if !ok {
		return false
	}
	c.play(target, duration)
	return true
}

func (c *controller) PlayWithLoop(name string, loop animator.LoopMode, duration float32) bool {
	target, ok := c.resolve(name, duration)
	if !ok {
		return false
	}
	prev := target.Loop()
	target.SetLoop(loop)
	if !c.play(target, duration) {
		target.SetLoop(prev)
	}
	return true
}

func (c *controller) StopAll() {
	c.mixer.StopAll()
	c.setIdle()
}

func (c *controller) State() State {
	return c.state
}

func (c *controller) Current() animator.Action {
	return c.current
}

func (c *controller) Snapshot() Snapshot {
	s := Snapshot{
		State:   c.state,
		Current: actionName(c.current),
	}
	if c.state == StateTransitioning {
		s.From = actionName(c.from)
		s.To = actionName(c.to)
		s.Elapsed = c.elapsed
		s.Duration = c.duration
	}
	return s
}

func (c *controller) DefaultDuration() float32 {
	return c.defaultDuration
}

func (c *controller) IdleName() string {
	return c.idleName
}

func (c *controller) OnStateChange(listener func(Snapshot)) {
	if listener != nil {
		c.listeners = append(c.listeners, listener)
	}
}

// resolve maps a registry name to its action, reporting misses.
func (c *controller) resolve(name string, duration float32) (animator.Action, bool) {
	entry, ok := c.registry.Get(name)
	if !ok {
		c.reporter.Warn(diagnostic.KindUnknownAnimation, name, "requested animation is not registered",
			zap.Float32("duration", duration),
			zap.String("state", c.state.String()),
		)
		return nil, false
	}
	if entry.Action == nil || entry.Action.Disposed() {
		c.reporter.Warn(diagnostic.KindNoPlayableAction, name, "requested animation has no playable action",
			zap.Bool("compatible", entry.Compatible),
			zap.String("state", c.state.String()),
		)
		return nil, false
	}
	return entry.Action, true
}

// play moves the state machine toward target and reports whether anything changed. A
// finished one-shot never counts as already playing: it is rewound and played again.
func (c *controller) play(target animator.Action, duration float32) bool {
	switch c.state {
	case StatePlaying:
		if c.current == target {
			if !target.IsFinished() {
				return false
			}
			target.Reset()
			target.Play()
			return true
		}
		c.begin(c.current, target, 0, duration, true)
	case StateTransitioning:
		if c.to == target {
			if !target.IsFinished() {
				return false
			}
			target.Reset()
			return true
		}
		if c.from != nil && c.from == target && !target.IsFinished() {
			// Reverse the blend from where it stands so the target keeps its weight and cursor.
			c.begin(c.to, target, c.from.Weight()*sanitizeDuration(duration), duration, false)
			return true
		}
		c.begin(c.to, target, 0, duration, true)
	default:
		c.begin(nil, target, 0, duration, true)
	}
	return true
}

// begin starts a blend from -> to. Every other action of the mixer is stopped and zeroed
// so that only the transition pair carries weight.
func (c *controller) begin(from, to animator.Action, elapsed, duration float32, restart bool) {
	for _, a := range c.mixer.Actions() {
		if a == from || a == to {
			continue
		}
		if a.IsRunning() || a.Weight() > 0 {
			a.Stop()
			a.SetWeight(0)
		}
	}

	if restart {
		to.Reset()
	}
	to.Play()

	c.from = from
	c.to = to
	c.current = to
	c.duration = sanitizeDuration(duration)
	c.elapsed = elapsed

	if c.duration <= 0 || c.elapsed >= c.duration {
		c.complete()
		return
	}
	c.state = StateTransitioning
	c.applyWeights()
	c.notify()
}

func (c *controller) update(deltaSeconds float32) {
	if c.state != StateTransitioning {
		return
	}
	c.elapsed += deltaSeconds
	if c.elapsed >= c.duration {
		c.complete()
		return
	}
	c.applyWeights()
}

// applyWeights sets the pair weights from the blend progress so they always sum to one.
func (c *controller) applyWeights() {
	t := common.Clamp01(c.elapsed / c.duration)
	c.to.SetWeight(t)
	if c.from != nil {
		c.from.SetWeight(1 - t)
	}
}

func (c *controller) complete() {
	if c.from != nil && c.from != c.to {
		c.from.SetWeight(0)
		c.from.Stop()
	}
	c.to.SetWeight(1)
	c.current = c.to
	c.from, c.to = nil, nil
	c.elapsed, c.duration = 0, 0
	c.state = StatePlaying
	c.notify()
}

func (c *controller) setIdle() {
	wasIdle := c.state == StateIdle && c.current == nil
	c.state = StateIdle
	c.current, c.from, c.to = nil, nil, nil
	c.elapsed, c.duration = 0, 0
	if !wasIdle {
		c.notify()
	}
}

func (c *controller) handleFinished(a animator.Action) {
	if a.Loop() != animator.LoopOnce || a != c.current {
		return
	}
	c.reporter.Logger().Debug("one-shot finished, returning to idle",
		zap.String("animation", a.Name()),
		zap.String("idle", c.idleName),
	)
	c.Play(c.idleName, c.defaultDuration)
}

func (c *controller) handleDisposed(a animator.Action) {
	switch {
	case a == c.current:
		if c.from != nil {
			c.from.Stop()
			c.from.SetWeight(0)
		}
		c.setIdle()
	case a == c.from:
		// The blend carries on as a fade-in of the incoming action.
		c.from = nil
		c.notify()
	}
}

func (c *controller) notify() {
	if len(c.listeners) == 0 {
		return
	}
	s := c.Snapshot()
	for _, l := range c.listeners {
		l(s)
	}
}

func sanitizeDuration(d float32) float32 {
	if !common.IsFinite(d) || d < 0 {
		return 0
	}
	return d
}

func actionName(a animator.Action) string {
	if a == nil {
		return ""
	}
	return a.Name()
}
