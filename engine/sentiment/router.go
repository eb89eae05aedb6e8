// Package sentiment maps semantic intents such as "happy" or "greeting" to a registered
// animation and its playback policy.
package sentiment

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/animator"
)

// Resolution is the playback a sentiment maps to.
type Resolution struct {
	// Clip is the registry name to play.
	Clip string

	// Loop is the loop mode applied before playing.
	Loop animator.LoopMode

	// Duration is the crossfade length in seconds.
	Duration float32
}

// Fallback is the resolution of every unrecognized sentiment.
var Fallback = Resolution{Clip: "idle", Loop: animator.LoopRepeat, Duration: 0.5}

// defaultRules is the built-in sentiment table.
var defaultRules = []struct {
	res        Resolution
	sentiments []string
}{
	{Resolution{"happy_dance", animator.LoopOnce, 0.4}, []string{"happy", "success", "celebration"}},
	{Resolution{"sad", animator.LoopOnce, 0.5}, []string{"sad", "loss", "disappointed"}},
	{Resolution{"idle", animator.LoopRepeat, 0.5}, []string{"greeting", "hello"}},
	{Resolution{"walking", animator.LoopRepeat, 0.3}, []string{"walking", "moving"}},
	{Resolution{"backflip", animator.LoopOnce, 0.3}, []string{"excited", "pump", "moon"}},
	{Resolution{"turn", animator.LoopOnce, 0.35}, []string{"thinking", "confused"}},
	{Resolution{"idle", animator.LoopRepeat, 0.5}, []string{"neutral", "idle"}},
}

// router is the implementation of the Router interface.
type router struct {
	rules    map[string]Resolution
	fallback Resolution
}

// Router resolves sentiment strings to a Resolution. Resolve is total: every input,
// including the empty string, yields a playable Resolution. A Router is immutable after
// construction and safe for concurrent use.
type Router interface {
	// Resolve maps a sentiment to its Resolution. Matching ignores case and surrounding
	// spaces; unknown input yields the fallback.
	//
	// Parameters:
	//   - sentiment: the semantic intent
	//
	// Returns:
	//   - Resolution: the clip, loop mode and crossfade duration to play
	Resolve(sentiment string) Resolution

	// Known reports whether sentiment matches a table row rather than the fallback.
	//
	// Parameters:
	//   - sentiment: the semantic intent
	//
	// Returns:
	//   - bool: true if a row matched
	Known(sentiment string) bool

	// Sentiments returns every recognized sentiment, sorted.
	//
	// Returns:
	//   - []string: the normalized sentiment keys
	Sentiments() []string

	// Clips returns the distinct clip names the router can resolve to, including the
	// fallback, sorted.
	//
	// Returns:
	//   - []string: the clip names
	Clips() []string
}

var _ Router = &router{}

// NewRouter creates a Router with the built-in sentiment table, to which the options add
// or override rows.
//
// Parameters:
//   - options: variadic list of RouterBuilderOption functions to configure the Router
//
// Returns:
//   - Router: the new router
func NewRouter(options ...RouterBuilderOption) Router {
	r := &router{
		rules:    make(map[string]Resolution),
		fallback: Fallback,
	}
	for _, rule := range defaultRules {
		for _, s := range rule.sentiments {
			r.rules[normalize(s)] = rule.res
		}
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *router) Resolve(sentiment string) Resolution {
	if res, ok := r.rules[normalize(sentiment)]; ok {
		return res
	}
	return r.fallback
}

func (r *router) Known(sentiment string) bool {
	_, ok := r.rules[normalize(sentiment)]
	return ok
}

func (r *router) Sentiments() []string {
	return common.SortedKeys(r.rules)
}

func (r *router) Clips() []string {
	clips := map[string]struct{}{r.fallback.Clip: {}}
	for _, res := range r.rules {
		clips[res.Clip] = struct{}{}
	}
	return common.SortedKeys(clips)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
