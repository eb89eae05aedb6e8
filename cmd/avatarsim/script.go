package main

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-avatar/engine/animator"
	"github.com/Carmen-Shannon/oxy-avatar/engine/avatar"
)

// clipPrefix marks a script step that plays a registered animation directly.
const clipPrefix = "clip:"

var errEmptyStep = errors.New("script step has no sentiment")

// scriptStep is one timed command of a run script.
type scriptStep struct {
	// At is the simulated time the step fires at.
	At time.Duration

	// Sentiment is routed through the sentiment router unless Clip is set.
	Sentiment string

	// Clip names an animation played once with the default crossfade.
	Clip string
}

// parseScript parses "happy@1s,sad@2.5s,clip:wave@4s". Steps are returned sorted by time;
// steps at the same time keep their written order. A step without "@" fires at 0.
func parseScript(s string) ([]scriptStep, error) {
	var steps []scriptStep
	for i, raw := range strings.Split(s, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		name, at, hasAt := strings.Cut(raw, "@")
		step := scriptStep{}
		if hasAt {
			d, err := time.ParseDuration(strings.TrimSpace(at))
			if err != nil {
				return nil, fmt.Errorf("script step %d %q: %w", i+1, raw, err)
			}
			if d < 0 {
				return nil, fmt.Errorf("script step %d %q: negative time", i+1, raw)
			}
			step.At = d
		}

		name = strings.TrimSpace(name)
		if clip, ok := strings.CutPrefix(name, clipPrefix); ok {
			step.Clip = strings.TrimSpace(clip)
			if step.Clip == "" {
				return nil, fmt.Errorf("script step %d %q: %w", i+1, raw, errEmptyStep)
			}
		} else {
			if name == "" {
				return nil, fmt.Errorf("script step %d %q: %w", i+1, raw, errEmptyStep)
			}
			step.Sentiment = name
		}
		steps = append(steps, step)
	}
	slices.SortStableFunc(steps, func(a, b scriptStep) int {
		return cmp.Compare(a.At, b.At)
	})
	return steps, nil
}

// apply sends the step to the avatar.
func (s scriptStep) apply(av avatar.Avatar) bool {
	if s.Clip != "" {
		return av.PlayEventClip(s.Clip, animator.LoopOnce, av.Controller().DefaultDuration())
	}
	return av.PlaySentimentAnimation(s.Sentiment)
}

func (s scriptStep) String() string {
	if s.Clip != "" {
		return clipPrefix + s.Clip + "@" + s.At.String()
	}
	return s.Sentiment + "@" + s.At.String()
}

// scriptPlayer fires steps as simulated time passes.
type scriptPlayer struct {
	steps   []scriptStep
	next    int
	elapsed time.Duration
}

// advance adds delta to the clock and returns the steps that became due, in order.
func (p *scriptPlayer) advance(delta time.Duration) []scriptStep {
	p.elapsed += delta
	start := p.next
	for p.next < len(p.steps) && p.steps[p.next].At <= p.elapsed {
		p.next++
	}
	return p.steps[start:p.next]
}

func (p *scriptPlayer) done() bool {
	return p.next >= len(p.steps)
}
