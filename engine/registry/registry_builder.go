package registry

import (
	"github.com/Carmen-Shannon/oxy-avatar/engine/diagnostic"
	"go.uber.org/zap"
)

// RegistryBuilderOption is a functional option for configuring a Registry.
// Use the With* functions to create options that are applied directly to the registry instance.
type RegistryBuilderOption func(*registry)

// WithReporter sets the diagnostic reporter of the registry.
//
// Parameters:
//   - rep: the reporter
//
// Returns:
//   - RegistryBuilderOption: option function to apply
func WithReporter(rep diagnostic.Reporter) RegistryBuilderOption {
	return func(r *registry) {
		if rep != nil {
			r.reporter = rep
		}
	}
}

// WithLogger wraps a zap logger as the diagnostic reporter of the registry.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - RegistryBuilderOption: option function to apply
func WithLogger(l *zap.Logger) RegistryBuilderOption {
	return func(r *registry) {
		r.reporter = diagnostic.NewReporter(l)
	}
}

// WithChecker shares a compatibility cache between registries, e.g. several model
// instances built from the same asset.
//
// Parameters:
//   - c: the checker
//
// Returns:
//   - RegistryBuilderOption: option function to apply
func WithChecker(c Checker) RegistryBuilderOption {
	return func(r *registry) {
		if c != nil {
			r.checker = c
		}
	}
}

// WithExpected records the animation names AllLoaded waits for.
//
// Parameters:
//   - names: the requested animation names
//
// Returns:
//   - RegistryBuilderOption: option function to apply
func WithExpected(names ...string) RegistryBuilderOption {
	return func(r *registry) {
		r.Expect(names...)
	}
}
