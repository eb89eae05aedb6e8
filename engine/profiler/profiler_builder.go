package profiler

import (
	"time"

	"go.uber.org/zap"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler via NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often statistics are logged. Values <= 0 are ignored.
//
// Parameters:
//   - d: the logging interval (default 1s)
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithLogger sets the logger statistics are written to.
//
// Parameters:
//   - l: the zap logger
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithLogger(l *zap.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithFields adds caller supplied fields to every statistics entry. fields runs on the
// tick goroutine.
//
// Parameters:
//   - fields: returns the extra fields for one entry
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithFields(fields func() []zap.Field) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.fields = fields
	}
}
