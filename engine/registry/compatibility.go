package registry

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
)

// IsCompatible reports whether clip can drive skeleton: true iff at least one track
// targets a joint present in the skeleton. Partial coverage is accepted. A nil skeleton,
// a nil clip or a clip without tracks is incompatible.
//
// Parameters:
//   - skeleton: the target skeleton
//   - clip: the candidate clip
//
// Returns:
//   - bool: true if the clip shares at least one joint with the skeleton
func IsCompatible(skeleton *model.Skeleton, clip *model.AnimationClip) bool {
	if skeleton == nil || clip == nil || len(clip.Tracks) == 0 {
		return false
	}
	joints := skeleton.JointNames()
	for _, t := range clip.Tracks {
		j := t.JointName()
		if j == "" {
			continue
		}
		if _, ok := joints[j]; ok {
			return true
		}
	}
	return false
}

type checkKey struct {
	skeleton *model.Skeleton
	clip     *model.AnimationClip
}

// checker is the implementation of the Checker interface.
type checker struct {
	mu    *sync.Mutex
	cache map[checkKey]bool
}

// Checker memoizes IsCompatible per (skeleton, clip) pair. Both are immutable after load,
// so a cached result never goes stale. A Checker may be shared between registries and is
// safe for concurrent use.
type Checker interface {
	// Check returns the cached compatibility of clip against skeleton, computing it on
	// first use.
	//
	// Parameters:
	//   - skeleton: the target skeleton
	//   - clip: the candidate clip
	//
	// Returns:
	//   - bool: the compatibility result
	Check(skeleton *model.Skeleton, clip *model.AnimationClip) bool

	// Forget drops the cached result for the pair so the clip can be released. A later
	// Check recomputes it.
	//
	// Parameters:
	//   - skeleton: the target skeleton
	//   - clip: the clip to drop
	Forget(skeleton *model.Skeleton, clip *model.AnimationClip)

	// Len returns how many pairs are cached.
	//
	// Returns:
	//   - int: the cache size
	Len() int
}

var _ Checker = &checker{}

// NewChecker creates an empty Checker.
//
// Returns:
//   - Checker: the checker
func NewChecker() Checker {
	return &checker{
		mu:    &sync.Mutex{},
		cache: make(map[checkKey]bool),
	}
}

func (c *checker) Check(skeleton *model.Skeleton, clip *model.AnimationClip) bool {
	if skeleton == nil || clip == nil {
		return false
	}
	key := checkKey{skeleton: skeleton, clip: clip}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ok, hit := c.cache[key]; hit {
		return ok
	}
	ok := IsCompatible(skeleton, clip)
	c.cache[key] = ok
	return ok
}

func (c *checker) Forget(skeleton *model.Skeleton, clip *model.AnimationClip) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, checkKey{skeleton: skeleton, clip: clip})
}

func (c *checker) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
