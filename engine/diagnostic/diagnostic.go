// Package diagnostic is the non-fatal warning channel of the avatar animation layer.
// Warnings are observational only; nothing reported here alters control flow.
package diagnostic

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Kind classifies a diagnostic warning.
type Kind string

const (
	// KindIncompatibleClip is reported when a clip shares no joints with the target skeleton.
	KindIncompatibleClip Kind = "incompatible_clip"

	// KindUnknownAnimation is reported when a requested name is not in the registry.
	KindUnknownAnimation Kind = "unknown_animation"

	// KindNoPlayableAction is reported when a requested name is registered without an Action.
	KindNoPlayableAction Kind = "no_playable_action"

	// KindLoadFailure is reported when the external loader could not resolve a clip source.
	KindLoadFailure Kind = "load_failure"
)

// reporter is the implementation of the Reporter interface.
type reporter struct {
	mu     *sync.Mutex
	logger *zap.Logger
	warned map[string]struct{}
}

// Reporter emits structured warnings for the animation layer.
// Each Reporter owns its own "already warned" set, so de-duplication is scoped to the
// component that holds the Reporter rather than to the process.
type Reporter interface {
	// Warn logs a warning of the given kind about the named animation.
	//
	// Parameters:
	//   - kind: the warning classification
	//   - name: the logical animation name the warning concerns
	//   - msg: a human readable message
	//   - fields: extra structured fields
	Warn(kind Kind, name, msg string, fields ...zap.Field)

	// WarnOnce logs like Warn, but only the first time the given key is seen by this Reporter.
	//
	// Parameters:
	//   - key: the de-duplication key
	//   - kind: the warning classification
	//   - name: the logical animation name the warning concerns
	//   - msg: a human readable message
	//   - fields: extra structured fields
	//
	// Returns:
	//   - bool: true if the warning was emitted, false if it was suppressed
	WarnOnce(key string, kind Kind, name, msg string, fields ...zap.Field) bool

	// Scoped returns a Reporter sharing the logger but with a fresh warned set and extra
	// fields attached to every entry.
	//
	// Parameters:
	//   - fields: fields attached to every entry of the returned Reporter
	//
	// Returns:
	//   - Reporter: the scoped reporter
	Scoped(fields ...zap.Field) Reporter

	// Logger returns the underlying zap logger.
	//
	// Returns:
	//   - *zap.Logger: the logger
	Logger() *zap.Logger
}

var _ Reporter = &reporter{}

// NewReporter wraps a zap logger as a Reporter. A nil logger yields a no-op Reporter.
//
// Parameters:
//   - logger: the logger warnings are written to
//
// Returns:
//   - Reporter: the reporter
func NewReporter(logger *zap.Logger) Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &reporter{
		mu:     &sync.Mutex{},
		logger: logger,
		warned: make(map[string]struct{}),
	}
}

// NewNop returns a Reporter that discards everything.
func NewNop() Reporter {
	return NewReporter(zap.NewNop())
}

// NewLogger builds a production zap logger at the given level name ("debug", "info",
// "warn", "error"). Unknown level names fall back to info.
//
// Parameters:
//   - level: the minimum level to log
//
// Returns:
//   - *zap.Logger: the configured logger
//   - error: error if the logger could not be built
func NewLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return config.Build()
}

func (r *reporter) Warn(kind Kind, name, msg string, fields ...zap.Field) {
	r.logger.Warn(msg, append([]zap.Field{zap.String("kind", string(kind)), zap.String("animation", name)}, fields...)...)
}

func (r *reporter) WarnOnce(key string, kind Kind, name, msg string, fields ...zap.Field) bool {
	r.mu.Lock()
	if _, seen := r.warned[key]; seen {
		r.mu.Unlock()
		return false
	}
	r.warned[key] = struct{}{}
	r.mu.Unlock()

	r.Warn(kind, name, msg, fields...)
	return true
}

func (r *reporter) Scoped(fields ...zap.Field) Reporter {
	return &reporter{
		mu:     &sync.Mutex{},
		logger: r.logger.With(fields...),
		warned: make(map[string]struct{}),
	}
}

func (r *reporter) Logger() *zap.Logger {
	return r.logger
}
