package avatar

import (
	"github.com/Carmen-Shannon/oxy-avatar/engine/animator"
	"github.com/Carmen-Shannon/oxy-avatar/engine/crossfade"
	"github.com/Carmen-Shannon/oxy-avatar/engine/diagnostic"
	"github.com/Carmen-Shannon/oxy-avatar/engine/loader"
	"github.com/Carmen-Shannon/oxy-avatar/engine/sentiment"
	"go.uber.org/zap"
)

// AvatarBuilderOption is a functional option for configuring an Avatar via NewAvatar.
type AvatarBuilderOption func(*avatar)

// WithLoader is an option builder that sets the loader Load submits clips to. The avatar
// closes it on Close. Without one, Load creates a glTF loader.
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - AvatarBuilderOption: a function that applies the loader option to an avatar
func WithLoader(l loader.Loader) AvatarBuilderOption {
	return func(a *avatar) {
		a.loader = l
	}
}

// WithReporter is an option builder that sets the diagnostic reporter shared by the
// mixer, registry and controller.
//
// Parameters:
//   - r: the reporter
//
// Returns:
//   - AvatarBuilderOption: a function that applies the reporter option to an avatar
func WithReporter(r diagnostic.Reporter) AvatarBuilderOption {
	return func(a *avatar) {
		if r != nil {
			a.reporter = r
		}
	}
}

// WithLogger is an option builder that reports diagnostics to a zap logger.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - AvatarBuilderOption: a function that applies the logger option to an avatar
func WithLogger(l *zap.Logger) AvatarBuilderOption {
	return WithReporter(diagnostic.NewReporter(l))
}

// WithMixerOptions is an option builder that forwards options to the avatar's mixer.
//
// Parameters:
//   - options: the mixer options
//
// Returns:
//   - AvatarBuilderOption: a function that applies the mixer options to an avatar
func WithMixerOptions(options ...animator.MixerBuilderOption) AvatarBuilderOption {
	return func(a *avatar) {
		a.mixerOptions = append(a.mixerOptions, options...)
	}
}

// WithRouterOptions is an option builder that adds router options after the manifest's
// sentiment rules, so they take precedence.
//
// Parameters:
//   - options: the router options
//
// Returns:
//   - AvatarBuilderOption: a function that applies the router options to an avatar
func WithRouterOptions(options ...sentiment.RouterBuilderOption) AvatarBuilderOption {
	return func(a *avatar) {
		a.routerOptions = append(a.routerOptions, options...)
	}
}

// WithResultBuffer is an option builder that sets the capacity of the loader result
// queue. It never drops below the number of manifest animations.
//
// Parameters:
//   - n: the queue capacity (default 64)
//
// Returns:
//   - AvatarBuilderOption: a function that applies the buffer option to an avatar
func WithResultBuffer(n int) AvatarBuilderOption {
	return func(a *avatar) {
		if n > 0 {
			a.buffer = n
		}
	}
}

// WithAutoIdle is an option builder that toggles starting idle when its clip registers.
//
// Parameters:
//   - enabled: whether idle starts automatically (default true)
//
// Returns:
//   - AvatarBuilderOption: a function that applies the auto idle option to an avatar
func WithAutoIdle(enabled bool) AvatarBuilderOption {
	return func(a *avatar) {
		a.autoIdle = enabled
	}
}

// OnStateChange is an option builder that registers a controller state listener.
//
// Parameters:
//   - listener: called with the new snapshot after each state change
//
// Returns:
//   - AvatarBuilderOption: a function that applies the listener option to an avatar
func OnStateChange(listener func(crossfade.Snapshot)) AvatarBuilderOption {
	return func(a *avatar) {
		if listener != nil {
			a.listeners = append(a.listeners, listener)
		}
	}
}
