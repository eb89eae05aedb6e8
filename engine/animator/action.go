package animator

import (
	"fmt"
	"math"
	"strings"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
)

// LoopMode controls what an Action does when its cursor reaches the end of the clip.
type LoopMode int

const (
	// LoopRepeat wraps the cursor back to the start of the clip.
	LoopRepeat LoopMode = iota

	// LoopOnce clamps the cursor at the end of the clip and reports the Action finished.
	LoopOnce
)

// String returns the manifest spelling of the loop mode.
func (l LoopMode) String() string {
	switch l {
	case LoopOnce:
		return "once"
	case LoopRepeat:
		return "repeat"
	default:
		return fmt.Sprintf("LoopMode(%d)", int(l))
	}
}

// ParseLoopMode parses "once" or "repeat" (case-insensitive). "loop" is accepted as an
// alias of repeat.
//
// Parameters:
//   - s: the loop mode name
//
// Returns:
//   - LoopMode: the parsed mode
//   - error: error if s is not a known mode
func ParseLoopMode(s string) (LoopMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "once":
		return LoopOnce, nil
	case "repeat", "loop":
		return LoopRepeat, nil
	default:
		return LoopRepeat, fmt.Errorf("unknown loop mode %q", s)
	}
}

// trackBinding resolves one clip track against the mixer skeleton.
type trackBinding struct {
	track    int
	bone     int32
	property model.TrackProperty
}

// action is the implementation of the Action interface.
type action struct {
	mixer *mixer
	name  string
	clip  *model.AnimationClip

	bindings []trackBinding

	loop                    LoopMode
	weight, time, timeScale float32

	running, paused, finished, disposed bool
}

// Action is a live, stateful playback binding of one clip to one Mixer.
//
// An Action is owned by the Mixer that created it and must not be shared across mixers.
// The clip it wraps is shared read-only. Actions are not safe for concurrent use; all
// calls happen on the thread that drives Mixer.Advance.
type Action interface {
	// Name returns the logical animation name the Action was created under.
	//
	// Returns:
	//   - string: the action name
	Name() string

	// Clip returns the clip this Action plays.
	//
	// Returns:
	//   - *model.AnimationClip: the bound clip
	Clip() *model.AnimationClip

	// Duration returns the clip length in seconds.
	//
	// Returns:
	//   - float32: the clip duration
	Duration() float32

	// BoundTracks returns how many clip tracks resolved to a joint of the mixer skeleton.
	//
	// Returns:
	//   - int: the number of bound tracks
	BoundTracks() int

	// Loop returns the loop mode.
	//
	// Returns:
	//   - LoopMode: the current loop mode
	Loop() LoopMode

	// SetLoop sets the loop mode.
	//
	// Parameters:
	//   - loop: the loop mode
	SetLoop(loop LoopMode)

	// Weight returns the effective blend weight in [0, 1].
	//
	// Returns:
	//   - float32: the weight
	Weight() float32

	// SetWeight sets the effective blend weight, clamped to [0, 1].
	//
	// Parameters:
	//   - weight: the new weight
	SetWeight(weight float32)

	// Time returns the playback cursor in seconds.
	//
	// Returns:
	//   - float32: the cursor position
	Time() float32

	// SetTime moves the playback cursor, clamped to [0, Duration].
	//
	// Parameters:
	//   - t: the cursor position in seconds
	SetTime(t float32)

	// TimeScale returns the playback speed multiplier.
	//
	// Returns:
	//   - float32: the multiplier (1.0 = normal speed)
	TimeScale() float32

	// SetTimeScale sets the playback speed multiplier. Negative and non-finite values clamp to 0.
	//
	// Parameters:
	//   - scale: the multiplier
	SetTimeScale(scale float32)

	// Play marks the Action running so the Mixer steps and evaluates it.
	Play()

	// Stop halts the Action immediately and rewinds its cursor. The weight is left as is.
	Stop()

	// Reset rewinds the cursor to 0 and clears the finished flag without changing running state.
	Reset()

	// Paused reports whether the cursor is frozen.
	//
	// Returns:
	//   - bool: true if paused
	Paused() bool

	// SetPaused freezes or resumes the cursor while keeping the Action's pose contribution.
	//
	// Parameters:
	//   - paused: true to freeze the cursor
	SetPaused(paused bool)

	// IsRunning reports whether the Action is playing (possibly paused or finished).
	//
	// Returns:
	//   - bool: true if running
	IsRunning() bool

	// IsFinished reports whether a LoopOnce Action has reached the end of its clip.
	//
	// Returns:
	//   - bool: true if finished
	IsFinished() bool

	// Disposed reports whether the owning Mixer has released this Action.
	//
	// Returns:
	//   - bool: true if disposed
	Disposed() bool
}

var _ Action = &action{}

// newAction binds clip to the mixer skeleton. Tracks whose joint is missing from the
// skeleton or whose property the mixer does not evaluate are skipped.
func newAction(m *mixer, name string, clip *model.AnimationClip) *action {
	a := &action{
		mixer:     m,
		name:      name,
		clip:      clip,
		loop:      LoopRepeat,
		weight:    1,
		timeScale: 1,
	}
	if clip == nil {
		return a
	}
	for i, tr := range clip.Tracks {
		bone := m.skeleton.JointIndex(tr.JointName())
		prop := tr.Property()
		if bone < 0 || prop == model.PropertyUnknown || tr.KeyCount() == 0 {
			continue
		}
		a.bindings = append(a.bindings, trackBinding{track: i, bone: bone, property: prop})
	}
	return a
}

func (a *action) Name() string {
	return a.name
}

func (a *action) Clip() *model.AnimationClip {
	return a.clip
}

func (a *action) Duration() float32 {
	if a.clip == nil {
		return 0
	}
	return a.clip.Duration
}

func (a *action) BoundTracks() int {
	return len(a.bindings)
}

func (a *action) Loop() LoopMode {
	return a.loop
}

func (a *action) SetLoop(loop LoopMode) {
	a.loop = loop
}

func (a *action) Weight() float32 {
	return a.weight
}

func (a *action) SetWeight(weight float32) {
	a.weight = common.Clamp01(weight)
}

func (a *action) Time() float32 {
	return a.time
}

func (a *action) SetTime(t float32) {
	if !common.IsFinite(t) || t < 0 {
		t = 0
	}
	if d := a.Duration(); t > d {
		t = d
	}
	a.time = t
}

func (a *action) TimeScale() float32 {
	return a.timeScale
}

func (a *action) SetTimeScale(scale float32) {
	if !common.IsFinite(scale) || scale < 0 {
		scale = 0
	}
	a.timeScale = scale
}

func (a *action) Play() {
	if a.disposed {
		return
	}
	a.running = true
	a.paused = false
}

func (a *action) Stop() {
	a.running = false
	a.paused = false
	a.finished = false
	a.time = 0
}

func (a *action) Reset() {
	a.time = 0
	a.finished = false
}

func (a *action) Paused() bool {
	return a.paused
}

func (a *action) SetPaused(paused bool) {
	a.paused = paused
}

func (a *action) IsRunning() bool {
	return a.running
}

func (a *action) IsFinished() bool {
	return a.finished
}

func (a *action) Disposed() bool {
	return a.disposed
}

// contributes reports whether the action takes part in pose evaluation this tick.
func (a *action) contributes() bool {
	return a.running && !a.disposed && a.weight > 0
}

// step advances the cursor by delta and reports whether a LoopOnce action reached the
// end of its clip during this step.
func (a *action) step(delta float32) bool {
	if !a.contributes() || a.paused || a.finished {
		return false
	}
	a.time += delta * a.timeScale

	duration := a.Duration()
	switch a.loop {
	case LoopOnce:
		if a.time >= duration {
			a.time = duration
			a.finished = true
			return true
		}
	default:
		if duration > 0 && a.time >= duration {
			a.time = float32(math.Mod(float64(a.time), float64(duration)))
		} else if duration <= 0 {
			a.time = 0
		}
	}
	return false
}
