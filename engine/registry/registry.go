// Package registry holds the loaded animation clips of one model instance and gates
// which of them become playable actions.
package registry

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/animator"
	"github.com/Carmen-Shannon/oxy-avatar/engine/diagnostic"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"go.uber.org/zap"
)

// Entry is the registry record for one logical animation name.
type Entry struct {
	// Name is the logical animation name, e.g. "idle" or "happy_dance".
	Name string

	// Clip is the registered clip. Failed loads register an empty clip.
	Clip *model.AnimationClip

	// Action is the playable binding on the registry's mixer, nil when the clip is
	// incompatible with the skeleton.
	Action animator.Action

	// Compatible is the cached compatibility result of Clip against the skeleton.
	Compatible bool

	// Loaded is true once the name has been registered, successfully or not.
	Loaded bool

	// Err is the load error reported through RegisterFailure, nil otherwise.
	Err error
}

// Playable reports whether the entry carries an Action.
func (e Entry) Playable() bool {
	return e.Action != nil
}

// registry is the implementation of the Registry interface.
type registry struct {
	skeleton *model.Skeleton
	mixer    animator.Mixer
	checker  Checker
	reporter diagnostic.Reporter

	entries  map[string]*Entry
	expected map[string]struct{}

	listeners []func(Entry)
}

// Registry maps logical animation names to loaded clips and their Actions for one model
// instance. Loads may complete in any order; Register is idempotent per name and the
// latest registration wins.
//
// A Registry is not safe for concurrent use. Registration happens on the thread that
// drives the mixer.
type Registry interface {
	// Register stores clip under name. Compatible clips get an Action created through the
	// mixer with loop mode repeat and weight 1.0 unless options override them. Incompatible
	// clips are stored without an Action and reported once per (name, clip). Registering a
	// name again replaces the entry and disposes its previous Action.
	//
	// Parameters:
	//   - name: the logical animation name
	//   - clip: the loaded clip
	//   - options: ActionOption functions applied to a newly created Action
	//
	// Returns:
	//   - Entry: the stored entry
	Register(name string, clip *model.AnimationClip, options ...animator.ActionOption) Entry

	// RegisterFailure records a failed load for name as an empty, always-incompatible clip.
	//
	// Parameters:
	//   - name: the logical animation name
	//   - err: the load error
	//
	// Returns:
	//   - Entry: the stored entry
	RegisterFailure(name string, err error) Entry

	// Expect adds names to the set AllLoaded waits for.
	//
	// Parameters:
	//   - names: the requested animation names
	Expect(names ...string)

	// AllLoaded reports whether every expected name has been registered.
	//
	// Returns:
	//   - bool: true once nothing is pending
	AllLoaded() bool

	// Pending returns the expected names not yet registered, sorted.
	//
	// Returns:
	//   - []string: the pending names
	Pending() []string

	// Get looks up an entry by name.
	//
	// Parameters:
	//   - name: the logical animation name
	//
	// Returns:
	//   - Entry: the entry
	//   - bool: false if name is not registered
	Get(name string) (Entry, bool)

	// Names returns the registered names, sorted.
	//
	// Returns:
	//   - []string: the names
	Names() []string

	// Len returns the number of registered names.
	//
	// Returns:
	//   - int: the entry count
	Len() int

	// Mixer returns the mixer Actions are created on.
	//
	// Returns:
	//   - animator.Mixer: the mixer
	Mixer() animator.Mixer

	// OnRegister adds a listener called after every registration.
	//
	// Parameters:
	//   - listener: the function receiving the stored entry
	OnRegister(listener func(Entry))
}

var _ Registry = &registry{}

// NewRegistry creates a Registry for one model instance. The skeleton defaults to the
// mixer's skeleton when nil.
//
// Parameters:
//   - skeleton: the skeleton clips are checked against
//   - mixer: the mixer Actions are created on
//   - options: variadic list of RegistryBuilderOption functions to configure the Registry
//
// Returns:
//   - Registry: the new registry
func NewRegistry(skeleton *model.Skeleton, mixer animator.Mixer, options ...RegistryBuilderOption) Registry {
	if skeleton == nil && mixer != nil {
		skeleton = mixer.Skeleton()
	}
	if mixer == nil {
		mixer = animator.NewMixer(skeleton)
	}
	r := &registry{
		skeleton: skeleton,
		mixer:    mixer,
		checker:  NewChecker(),
		reporter: diagnostic.NewNop(),
		entries:  make(map[string]*Entry),
		expected: make(map[string]struct{}),
	}
	for _, opt := range options {
		opt(r)
	}
	// The warned set belongs to this registry alone.
	r.reporter = r.reporter.Scoped(zap.String("mixer", mixer.ID()))
	return r
}

func (r *registry) Register(name string, clip *model.AnimationClip, options ...animator.ActionOption) Entry {
	return r.store(name, clip, nil, options)
}

func (r *registry) RegisterFailure(name string, err error) Entry {
	if err == nil {
		err = fmt.Errorf("load of %q failed", name)
	}
	r.reporter.Warn(diagnostic.KindLoadFailure, name, "animation source failed to load", zap.Error(err))
	return r.store(name, model.EmptyClip(name), err, nil)
}

func (r *registry) store(name string, clip *model.AnimationClip, loadErr error, options []animator.ActionOption) Entry {
	if clip == nil {
		clip = model.EmptyClip(name)
	}
	if prev, ok := r.entries[name]; ok {
		if prev.Action != nil {
			r.mixer.DisposeAction(prev.Action)
		}
		if prev.Clip != clip && !r.usesClip(name, prev.Clip) {
			r.checker.Forget(r.skeleton, prev.Clip)
		}
	}

	e := &Entry{
		Name:       name,
		Clip:       clip,
		Compatible: r.checker.Check(r.skeleton, clip),
		Loaded:     true,
		Err:        loadErr,
	}
	if e.Compatible {
		opts := append([]animator.ActionOption{animator.WithActionName(name)}, options...)
		e.Action = r.mixer.CreateAction(clip, opts...)
	} else {
		r.reporter.WarnOnce(fmt.Sprintf("%s\x00%p", name, clip), diagnostic.KindIncompatibleClip, name,
			"animation clip shares no joints with the skeleton",
			zap.Int("tracks", len(clip.Tracks)),
		)
	}
	r.entries[name] = e

	r.reporter.Logger().Debug("animation registered",
		zap.String("animation", name),
		zap.Bool("compatible", e.Compatible),
		zap.Int("pending", len(r.Pending())),
	)
	for _, l := range r.listeners {
		l(*e)
	}
	return *e
}

// usesClip reports whether any entry other than name still holds clip.
func (r *registry) usesClip(name string, clip *model.AnimationClip) bool {
	for n, e := range r.entries {
		if n != name && e.Clip == clip {
			return true
		}
	}
	return false
}

func (r *registry) Expect(names ...string) {
	for _, n := range names {
		if n != "" {
			r.expected[n] = struct{}{}
		}
	}
}

func (r *registry) AllLoaded() bool {
	for n := range r.expected {
		if _, ok := r.entries[n]; !ok {
			return false
		}
	}
	return true
}

func (r *registry) Pending() []string {
	pending := make([]string, 0, len(r.expected))
	for _, n := range common.SortedKeys(r.expected) {
		if _, ok := r.entries[n]; !ok {
			pending = append(pending, n)
		}
	}
	return pending
}

func (r *registry) Get(name string) (Entry, bool) {
	e, ok := r.entries[name]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

func (r *registry) Names() []string {
	return common.SortedKeys(r.entries)
}

func (r *registry) Len() int {
	return len(r.entries)
}

func (r *registry) Mixer() animator.Mixer {
	return r.mixer
}

func (r *registry) OnRegister(listener func(Entry)) {
	if listener != nil {
		r.listeners = append(r.listeners, listener)
	}
}
