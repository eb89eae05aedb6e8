// Package avatar is the command surface UI code talks to. An Avatar owns one mixer, its
// clip registry, the crossfade controller and the sentiment router, and moves loader
// completions onto the tick thread.
package avatar

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-avatar/engine/animator"
	"github.com/Carmen-Shannon/oxy-avatar/engine/config"
	"github.com/Carmen-Shannon/oxy-avatar/engine/crossfade"
	"github.com/Carmen-Shannon/oxy-avatar/engine/diagnostic"
	"github.com/Carmen-Shannon/oxy-avatar/engine/loader"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"github.com/Carmen-Shannon/oxy-avatar/engine/registry"
	"github.com/Carmen-Shannon/oxy-avatar/engine/sentiment"
	"go.uber.org/zap"
)

// avatar is the implementation of the Avatar interface.
type avatar struct {
	model    model.Model
	manifest *config.Manifest
	reporter diagnostic.Reporter

	loader     loader.Loader
	mixer      animator.Mixer
	registry   registry.Registry
	controller crossfade.Controller
	router     sentiment.Router

	mixerOptions  []animator.MixerBuilderOption
	routerOptions []sentiment.RouterBuilderOption
	listeners     []func(crossfade.Snapshot)

	loops    map[string]animator.LoopMode
	results  chan loader.ClipResult
	done     chan struct{}
	buffer   int
	autoIdle bool
	closed   bool
}

// Avatar drives the animations of one model instance. Every method must be called from
// the tick thread. Loads complete on loader workers and are applied by the next Advance.
type Avatar interface {
	// PlayIdle crossfades to the idle animation with the default duration.
	//
	// Returns:
	//   - bool: true if the request was accepted, false if idle is missing or unplayable
	PlayIdle() bool

	// PlaySentimentAnimation resolves a sentiment keyword to a clip and plays it with the
	// resolved loop mode and crossfade duration. Unknown sentiments play the fallback.
	//
	// Parameters:
	//   - sentiment: the sentiment keyword, matched case-insensitively
	//
	// Returns:
	//   - bool: true if the request was accepted
	PlaySentimentAnimation(sentiment string) bool

	// PlayEventClip plays a registered animation directly.
	//
	// Parameters:
	//   - name: the registered animation name
	//   - loop: the loop mode applied to the action
	//   - duration: the crossfade length in seconds, <= 0 for an instant switch
	//
	// Returns:
	//   - bool: true if the request was accepted
	PlayEventClip(name string, loop animator.LoopMode, duration float32) bool

	// Register binds a clip already in memory to a logical name. The manifest loop mode
	// for that name is applied.
	//
	// Parameters:
	//   - name: the logical animation name
	//   - clip: the clip
	//
	// Returns:
	//   - registry.Entry: the stored entry
	Register(name string, clip *model.AnimationClip) registry.Entry

	// Load submits every manifest animation to the loader. Each result is registered at
	// the start of a later Advance, in completion order.
	Load()

	// Advance registers pending loader results and advances the mixer by deltaSeconds.
	//
	// Parameters:
	//   - deltaSeconds: elapsed time since the previous call
	Advance(deltaSeconds float32)

	// Ready reports whether every manifest animation has been registered.
	//
	// Returns:
	//   - bool: true once nothing is pending
	Ready() bool

	// Snapshot returns the controller state.
	//
	// Returns:
	//   - crossfade.Snapshot: the current state
	Snapshot() crossfade.Snapshot

	// Model returns the model the avatar poses, nil if none was given.
	Model() model.Model

	// Mixer returns the avatar's mixer.
	Mixer() animator.Mixer

	// Registry returns the avatar's clip registry.
	Registry() registry.Registry

	// Controller returns the avatar's crossfade controller.
	Controller() crossfade.Controller

	// Router returns the avatar's sentiment router.
	Router() sentiment.Router

	// Close stops every action and shuts the loader down. Safe to call more than once.
	Close()
}

var _ Avatar = &avatar{}

// NewAvatar creates an Avatar for a model and its manifest. A nil manifest behaves like
// an empty one, and a nil model yields an avatar with an empty skeleton on which nothing
// is compatible.
//
// Parameters:
//   - m: the model instance to animate
//   - manifest: the avatar manifest
//   - options: variadic list of AvatarBuilderOption functions to configure the Avatar
//
// Returns:
//   - Avatar: the new avatar
func NewAvatar(m model.Model, manifest *config.Manifest, options ...AvatarBuilderOption) Avatar {
	if manifest == nil {
		manifest = &config.Manifest{Idle: config.DefaultIdle}
	}
	a := &avatar{
		model:    m,
		manifest: manifest,
		reporter: diagnostic.NewNop(),
		loops:    make(map[string]animator.LoopMode, len(manifest.Animations)),
		done:     make(chan struct{}),
		buffer:   64,
		autoIdle: true,
	}
	for _, opt := range options {
		opt(a)
	}

	var skeleton *model.Skeleton
	if m != nil {
		skeleton = m.Skeleton()
	}
	if skeleton == nil {
		skeleton = model.NewSkeleton(nil)
	}
	if a.buffer < len(manifest.Animations) {
		a.buffer = len(manifest.Animations)
	}
	a.results = make(chan loader.ClipResult, a.buffer)

	for _, anim := range manifest.Animations {
		if _, seen := a.loops[anim.Name]; !seen {
			a.loops[anim.Name] = anim.LoopMode()
		}
	}

	a.mixer = animator.NewMixer(skeleton, append([]animator.MixerBuilderOption{
		animator.WithReporter(a.reporter),
	}, a.mixerOptions...)...)
	a.registry = registry.NewRegistry(skeleton, a.mixer, registry.WithReporter(a.reporter))
	a.router = sentiment.NewRouter(append(manifest.SentimentOptions(), a.routerOptions...)...)

	ctrlOptions := []crossfade.ControllerBuilderOption{
		crossfade.WithReporter(a.reporter),
		crossfade.WithDefaultDuration(manifest.Crossfade()),
		crossfade.WithIdleName(manifest.Idle),
	}
	for _, l := range a.listeners {
		ctrlOptions = append(ctrlOptions, crossfade.OnStateChange(l))
	}
	a.controller = crossfade.NewController(a.mixer, a.registry, ctrlOptions...)
	a.registry.OnRegister(a.handleRegister)

	a.reporter.Logger().Debug("avatar created",
		zap.String("mixer", a.mixer.ID()),
		zap.Int("joints", len(skeleton.Bones)),
		zap.Strings("animations", manifest.Names()),
	)
	return a
}

// Open loads the manifest model through l and builds an Avatar for it. A nil loader is
// replaced by a glTF loader. The avatar owns the loader from then on.
//
// Parameters:
//   - manifest: the avatar manifest, already validated
//   - l: the loader used for the model and every clip
//   - options: variadic list of AvatarBuilderOption functions to configure the Avatar
//
// Returns:
//   - Avatar: the new avatar, Load not yet called
//   - error: error if the model cannot be loaded
func Open(manifest *config.Manifest, l loader.Loader, options ...AvatarBuilderOption) (Avatar, error) {
	if manifest == nil {
		return nil, fmt.Errorf("avatar: nil manifest")
	}
	if l == nil {
		l = loader.NewLoader(loader.BackendTypeGLTF)
	}
	var m model.Model
	if path := manifest.ModelPath(); path != "" {
		loaded, err := l.LoadModel(path)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("failed to load avatar model: %w", err)
		}
		m = loaded
	}
	return NewAvatar(m, manifest, append(options, WithLoader(l))...), nil
}

func (a *avatar) PlayIdle() bool {
	return a.controller.Play(a.controller.IdleName(), a.controller.DefaultDuration())
}

func (a *avatar) PlaySentimentAnimation(sentiment string) bool {
	res := a.router.Resolve(sentiment)
	a.reporter.Logger().Debug("sentiment resolved",
		zap.String("sentiment", sentiment),
		zap.String("clip", res.Clip),
		zap.Stringer("loop", res.Loop),
		zap.Float32("duration", res.Duration),
	)
	return a.controller.PlayWithLoop(res.Clip, res.Loop, res.Duration)
}

func (a *avatar) PlayEventClip(name string, loop animator.LoopMode, duration float32) bool {
	return a.controller.PlayWithLoop(name, loop, duration)
}

func (a *avatar) Register(name string, clip *model.AnimationClip) registry.Entry {
	return a.registry.Register(name, clip, animator.WithLoop(a.loopFor(name)))
}

func (a *avatar) Load() {
	if a.closed {
		return
	}
	if a.loader == nil {
		a.loader = loader.NewLoader(loader.BackendTypeGLTF, loader.WithLogger(a.reporter.Logger()))
	}

	names := a.manifest.Names()
	a.registry.Expect(names...)

	requests := make([]loader.ClipRequest, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, anim := range a.manifest.Animations {
		if anim.Name == "" || seen[anim.Name] {
			continue
		}
		seen[anim.Name] = true
		requests = append(requests, loader.ClipRequest{
			Name: anim.Name,
			Path: a.manifest.SourcePath(anim),
			Clip: anim.Clip,
		})
	}
	a.loader.LoadClipsAsync(requests, a.enqueue)
}

func (a *avatar) Advance(deltaSeconds float32) {
	a.drain()
	a.mixer.Advance(deltaSeconds)
}

func (a *avatar) Ready() bool {
	return a.registry.AllLoaded()
}

func (a *avatar) Snapshot() crossfade.Snapshot {
	return a.controller.Snapshot()
}

func (a *avatar) Model() model.Model {
	return a.model
}

func (a *avatar) Mixer() animator.Mixer {
	return a.mixer
}

func (a *avatar) Registry() registry.Registry {
	return a.registry
}

func (a *avatar) Controller() crossfade.Controller {
	return a.controller
}

func (a *avatar) Router() sentiment.Router {
	return a.router
}

func (a *avatar) Close() {
	if a.closed {
		return
	}
	a.closed = true
	close(a.done)
	a.controller.StopAll()
	if a.loader != nil {
		a.loader.Close()
	}
}

// enqueue runs on loader workers. Results arriving after Close are dropped.
func (a *avatar) enqueue(r loader.ClipResult) {
	select {
	case a.results <- r:
	case <-a.done:
	}
}

// drain registers every queued loader result without blocking.
func (a *avatar) drain() {
	for {
		select {
		case r := <-a.results:
			a.apply(r)
		default:
			return
		}
	}
}

func (a *avatar) apply(r loader.ClipResult) {
	if r.Err != nil {
		a.registry.RegisterFailure(r.Name, r.Err)
		return
	}
	a.Register(r.Name, r.Clip)
}

// handleRegister starts idle as soon as a playable idle clip arrives while nothing plays.
func (a *avatar) handleRegister(e registry.Entry) {
	if !a.autoIdle || a.closed || e.Name != a.controller.IdleName() || !e.Playable() {
		return
	}
	if a.controller.State() == crossfade.StateIdle {
		a.PlayIdle()
	}
}

func (a *avatar) loopFor(name string) animator.LoopMode {
	if loop, ok := a.loops[name]; ok {
		return loop
	}
	return animator.LoopRepeat
}
