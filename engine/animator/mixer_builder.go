package animator

import (
	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/diagnostic"
	"go.uber.org/zap"
)

// DefaultMaxDelta is the step cap hosts usually pass to WithMaxDelta. Mixers are uncapped
// unless configured.
const DefaultMaxDelta float32 = 0.25

// MixerBuilderOption is a functional option for configuring a Mixer.
// Use the With* functions to create options that are applied directly to the mixer instance.
type MixerBuilderOption func(*mixer)

// WithID overrides the generated mixer id.
//
// Parameters:
//   - id: the mixer id, ignored when empty
//
// Returns:
//   - MixerBuilderOption: option function to apply
func WithID(id string) MixerBuilderOption {
	return func(m *mixer) {
		if id != "" {
			m.id = id
		}
	}
}

// WithReporter sets the diagnostic reporter of the mixer.
//
// Parameters:
//   - r: the reporter
//
// Returns:
//   - MixerBuilderOption: option function to apply
func WithReporter(r diagnostic.Reporter) MixerBuilderOption {
	return func(m *mixer) {
		if r != nil {
			m.reporter = r
		}
	}
}

// WithLogger wraps a zap logger as the diagnostic reporter of the mixer.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - MixerBuilderOption: option function to apply
func WithLogger(l *zap.Logger) MixerBuilderOption {
	return func(m *mixer) {
		m.reporter = diagnostic.NewReporter(l)
	}
}

// WithMaxDelta sets the largest step a single Advance applies. Values <= 0 disable the cap.
//
// Parameters:
//   - seconds: the maximum delta in seconds
//
// Returns:
//   - MixerBuilderOption: option function to apply
func WithMaxDelta(seconds float32) MixerBuilderOption {
	return func(m *mixer) {
		if !common.IsFinite(seconds) {
			return
		}
		m.maxDelta = seconds
	}
}

// ActionOption is a functional option applied to an Action when it is created.
type ActionOption func(*action)

// WithActionName sets the logical name of the Action, which defaults to the clip name.
func WithActionName(name string) ActionOption {
	return func(a *action) {
		a.name = name
	}
}

// WithLoop sets the initial loop mode.
func WithLoop(loop LoopMode) ActionOption {
	return func(a *action) {
		a.loop = loop
	}
}

// WithWeight sets the initial weight, clamped to [0, 1].
func WithWeight(weight float32) ActionOption {
	return func(a *action) {
		a.SetWeight(weight)
	}
}

// WithTimeScale sets the initial playback speed multiplier.
func WithTimeScale(scale float32) ActionOption {
	return func(a *action) {
		a.SetTimeScale(scale)
	}
}
