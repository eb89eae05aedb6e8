// Package config loads the avatar manifest: which model to pose, which clip sources
// back each logical animation name, and how sentiments map to them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/animator"
	"github.com/Carmen-Shannon/oxy-avatar/engine/sentiment"
	"gopkg.in/yaml.v3"
)

// DefaultCrossfade is the crossfade length used when the manifest leaves it unset.
const DefaultCrossfade float32 = 0.5

// DefaultIdle is the idle animation name used when the manifest leaves it unset.
const DefaultIdle = "idle"

var (
	ErrEmptyName        = errors.New("animation name is empty")
	ErrDuplicateName    = errors.New("animation name is declared twice")
	ErrMissingSource    = errors.New("animation has no source and the manifest has no model")
	ErrMissingIdle      = errors.New("idle animation is not declared")
	ErrNegativeDuration = errors.New("duration must be a non-negative number")
	ErrUnknownLoop      = errors.New("loop must be once or repeat")
	ErrEmptyClip        = errors.New("sentiment rule has no clip")
	ErrEmptyMatch       = errors.New("sentiment rule matches nothing")
)

// Manifest is the startup configuration of one avatar.
type Manifest struct {
	// Model is the asset the skeleton is read from.
	Model string `yaml:"model"`

	// Idle is the animation name auto-return plays. Defaults to "idle".
	Idle string `yaml:"idle"`

	// DefaultCrossfade is the crossfade length in seconds. Defaults to 0.5.
	DefaultCrossfade *float32 `yaml:"default_crossfade,omitempty"`

	// LogLevel is the minimum diagnostic level ("debug", "info", "warn", "error").
	LogLevel string `yaml:"log_level,omitempty"`

	// Animations enumerates every logical animation and its clip source.
	Animations []Animation `yaml:"animations"`

	// Sentiments overrides or extends the built-in sentiment table.
	Sentiments []SentimentRule `yaml:"sentiments,omitempty"`

	// Fallback replaces the resolution of unrecognized sentiments.
	Fallback *SentimentRule `yaml:"fallback,omitempty"`

	// BaseDir resolves relative sources. Load sets it to the manifest directory.
	BaseDir string `yaml:"-"`
}

// Animation binds a logical name to a clip source.
type Animation struct {
	Name string `yaml:"name"`

	// Source is the asset path. Empty means the model asset.
	Source string `yaml:"source,omitempty"`

	// Clip selects an animation inside the source by name. Empty means the first one.
	Clip string `yaml:"clip,omitempty"`

	// Loop is "once" or "repeat". Empty means repeat.
	Loop string `yaml:"loop,omitempty"`
}

// SentimentRule maps sentiments to a clip.
type SentimentRule struct {
	Match    []string `yaml:"match,omitempty"`
	Clip     string   `yaml:"clip"`
	Loop     string   `yaml:"loop,omitempty"`
	Duration *float32 `yaml:"duration,omitempty"`
}

// Load reads and parses the manifest at path. Relative sources resolve against the
// manifest directory.
//
// Parameters:
//   - path: the manifest file path
//
// Returns:
//   - *Manifest: the parsed manifest
//   - error: error if the file cannot be read or parsed
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}
	defer f.Close()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	m.BaseDir = filepath.Dir(path)
	return m, nil
}

// Parse parses a manifest from YAML bytes.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - *Manifest: the parsed manifest
//   - error: error if the document is malformed or has unknown fields
func Parse(data []byte) (*Manifest, error) {
	return Decode(bytes.NewReader(data))
}

// Decode parses a manifest from a YAML stream. Unknown fields are rejected.
//
// Parameters:
//   - r: the YAML stream
//
// Returns:
//   - *Manifest: the parsed manifest
//   - error: error if the document is malformed or has unknown fields
func Decode(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if m.Idle == "" {
		m.Idle = DefaultIdle
	}
	return &m, nil
}

// Validate checks the manifest and reports every problem found, joined.
//
// Returns:
//   - error: nil if the manifest is valid
func (m *Manifest) Validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(m.Animations))
	for i, a := range m.Animations {
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("animations[%d]: %w", i, ErrEmptyName))
			continue
		}
		if _, dup := seen[a.Name]; dup {
			errs = append(errs, fmt.Errorf("animations[%d] %q: %w", i, a.Name, ErrDuplicateName))
		}
		seen[a.Name] = struct{}{}
		if a.Source == "" && m.Model == "" {
			errs = append(errs, fmt.Errorf("animations[%d] %q: %w", i, a.Name, ErrMissingSource))
		}
		if err := checkLoop(a.Loop); err != nil {
			errs = append(errs, fmt.Errorf("animations[%d] %q: %w", i, a.Name, err))
		}
	}
	if _, ok := seen[m.Idle]; !ok {
		errs = append(errs, fmt.Errorf("idle %q: %w", m.Idle, ErrMissingIdle))
	}
	if d := m.DefaultCrossfade; d != nil && !validDuration(*d) {
		errs = append(errs, fmt.Errorf("default_crossfade: %w", ErrNegativeDuration))
	}
	for i, rule := range m.Sentiments {
		if len(rule.Match) == 0 {
			errs = append(errs, fmt.Errorf("sentiments[%d]: %w", i, ErrEmptyMatch))
		}
		if err := rule.validate(); err != nil {
			errs = append(errs, fmt.Errorf("sentiments[%d]: %w", i, err))
		}
	}
	if m.Fallback != nil {
		if err := m.Fallback.validate(); err != nil {
			errs = append(errs, fmt.Errorf("fallback: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (r SentimentRule) validate() error {
	var errs []error
	if r.Clip == "" {
		errs = append(errs, ErrEmptyClip)
	}
	if err := checkLoop(r.Loop); err != nil {
		errs = append(errs, err)
	}
	if r.Duration != nil && !validDuration(*r.Duration) {
		errs = append(errs, ErrNegativeDuration)
	}
	return errors.Join(errs...)
}

// Names returns the declared animation names in declaration order.
//
// Returns:
//   - []string: the names
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Animations))
	for _, a := range m.Animations {
		if a.Name != "" && !slices.Contains(names, a.Name) {
			names = append(names, a.Name)
		}
	}
	return names
}

// Crossfade returns the default crossfade length in seconds.
//
// Returns:
//   - float32: the configured value or DefaultCrossfade
func (m *Manifest) Crossfade() float32 {
	if m.DefaultCrossfade == nil || !validDuration(*m.DefaultCrossfade) {
		return DefaultCrossfade
	}
	return *m.DefaultCrossfade
}

// SourcePath returns the asset path backing a, resolved against BaseDir.
//
// Parameters:
//   - a: the animation entry
//
// Returns:
//   - string: the asset path
func (m *Manifest) SourcePath(a Animation) string {
	return m.resolve(common.Coalesce(a.Source, m.Model))
}

// ModelPath returns the model asset path resolved against BaseDir.
//
// Returns:
//   - string: the asset path, empty if no model is declared
func (m *Manifest) ModelPath() string {
	if m.Model == "" {
		return ""
	}
	return m.resolve(m.Model)
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.BaseDir == "" {
		return p
	}
	return filepath.Join(m.BaseDir, p)
}

// LoopMode returns the parsed loop mode of a, LoopRepeat when unset or invalid.
//
// Parameters:
//   - a: the animation entry
//
// Returns:
//   - animator.LoopMode: the loop mode
func (a Animation) LoopMode() animator.LoopMode {
	return parseLoop(a.Loop)
}

// Resolution converts the rule into a router Resolution. The duration falls back to def.
//
// Parameters:
//   - def: the duration used when the rule leaves it unset
//
// Returns:
//   - sentiment.Resolution: the resolution
func (r SentimentRule) Resolution(def float32) sentiment.Resolution {
	d := def
	if r.Duration != nil && validDuration(*r.Duration) {
		d = *r.Duration
	}
	return sentiment.Resolution{Clip: r.Clip, Loop: parseLoop(r.Loop), Duration: d}
}

// SentimentOptions turns the sentiments and fallback sections into router options.
// Rules without a clip are skipped.
//
// Returns:
//   - []sentiment.RouterBuilderOption: the router options
func (m *Manifest) SentimentOptions() []sentiment.RouterBuilderOption {
	opts := make([]sentiment.RouterBuilderOption, 0, len(m.Sentiments)+1)
	for _, rule := range m.Sentiments {
		if rule.Clip == "" {
			continue
		}
		opts = append(opts, sentiment.WithRule(rule.Resolution(m.Crossfade()), rule.Match...))
	}
	if m.Fallback != nil && m.Fallback.Clip != "" {
		opts = append(opts, sentiment.WithFallback(m.Fallback.Resolution(m.Crossfade())))
	}
	return opts
}

func checkLoop(s string) error {
	if s == "" {
		return nil
	}
	if _, err := animator.ParseLoopMode(s); err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownLoop, err)
	}
	return nil
}

func parseLoop(s string) animator.LoopMode {
	l, err := animator.ParseLoopMode(s)
	if err != nil {
		return animator.LoopRepeat
	}
	return l
}

func validDuration(d float32) bool {
	return common.IsFinite(d) && d >= 0
}
