package crossfade

import (
	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/diagnostic"
	"go.uber.org/zap"
)

// ControllerBuilderOption is a functional option for configuring a Controller.
// Use the With* functions to create options that are applied directly to the controller instance.
type ControllerBuilderOption func(*controller)

// WithDefaultDuration sets the crossfade length used by auto-return and by callers that
// ask for the default. Negative and non-finite values are ignored.
//
// Parameters:
//   - seconds: the default duration (default 0.5)
//
// Returns:
//   - ControllerBuilderOption: option function to apply
func WithDefaultDuration(seconds float32) ControllerBuilderOption {
	return func(c *controller) {
		if common.IsFinite(seconds) && seconds >= 0 {
			c.defaultDuration = seconds
		}
	}
}

// WithIdleName sets the registry name auto-return plays.
//
// Parameters:
//   - name: the idle animation name (default "idle")
//
// Returns:
//   - ControllerBuilderOption: option function to apply
func WithIdleName(name string) ControllerBuilderOption {
	return func(c *controller) {
		if name != "" {
			c.idleName = name
		}
	}
}

// WithReporter sets the diagnostic reporter of the controller.
//
// Parameters:
//   - r: the reporter
//
// Returns:
//   - ControllerBuilderOption: option function to apply
func WithReporter(r diagnostic.Reporter) ControllerBuilderOption {
	return func(c *controller) {
		if r != nil {
			c.reporter = r
		}
	}
}

// WithLogger wraps a zap logger as the diagnostic reporter of the controller.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - ControllerBuilderOption: option function to apply
func WithLogger(l *zap.Logger) ControllerBuilderOption {
	return func(c *controller) {
		c.reporter = diagnostic.NewReporter(l)
	}
}

// OnStateChange registers a state change listener at construction.
//
// Parameters:
//   - listener: the function receiving each new snapshot
//
// Returns:
//   - ControllerBuilderOption: option function to apply
func OnStateChange(listener func(Snapshot)) ControllerBuilderOption {
	return func(c *controller) {
		if listener != nil {
			c.listeners = append(c.listeners, listener)
		}
	}
}
