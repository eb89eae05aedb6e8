// Package loader decodes model and animation assets into engine types. It is the
// external collaborator that feeds the clip registry; nothing in the animation core
// depends on it.
package loader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"go.uber.org/zap"
)

// LoaderBackendType identifies the asset file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

var (
	// ErrUnsupportedFormat is returned for asset paths no backend can decode.
	ErrUnsupportedFormat = errors.New("unsupported asset format")

	// ErrNoAnimations is returned when a clip is requested from an asset without animations.
	ErrNoAnimations = errors.New("asset has no animations")

	// ErrClipNotFound is returned when the requested clip name is not in the asset.
	ErrClipNotFound = errors.New("clip not found in asset")

	// ErrClosed is returned by loads submitted after Close.
	ErrClosed = errors.New("loader is closed")
)

// ClipRequest asks for one clip to be loaded under a logical animation name.
type ClipRequest struct {
	// Name is the logical animation name the result is reported under.
	Name string

	// Path is the asset path.
	Path string

	// Clip selects an animation inside the asset by name. Empty means the first one.
	Clip string
}

// ClipResult is the outcome of one ClipRequest.
type ClipResult struct {
	Name string
	Clip *model.AnimationClip
	Err  error
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu *sync.RWMutex

	modelCache map[string]model.Model

	backend loaderBackend
	logger  *zap.Logger

	// pools holds one single-worker pool per worker. A pool's Stop only reliably ends its
	// goroutines when it owns exactly one worker.
	pools       []worker.DynamicWorkerPool
	stopPools   *sync.Once
	workers     int
	queueSize   int
	idleTimeout time.Duration
	inflight    *sync.WaitGroup
	nextTaskID  int
	closed      bool
}

// Loader loads and caches model assets and the animation clips inside them.
// Assets are cached by path (or by the key passed to the reader variants), so every clip
// pointer handed out for the same asset is shared and must be treated as read-only.
// A Loader is safe for concurrent use.
type Loader interface {
	// LoadModel imports an asset and caches the result. If the asset is already cached (by
	// file path), the cached version is returned. The backend is selected based on the file
	// extension (.gltf/.glb → glTF backend).
	//
	// Parameters:
	//   - path: the file path to the asset
	//
	// Returns:
	//   - model.Model: the loaded and cached model
	//   - error: error if loading fails
	LoadModel(path string) (model.Model, error)

	// LoadModelReader imports an asset from a reader stream and caches it by key.
	//
	// Parameters:
	//   - key: the cache key for the loaded model
	//   - r: the reader providing asset data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if loading fails
	LoadModelReader(key string, r io.Reader, isGLB bool) (model.Model, error)

	// LoadClip returns one animation clip of the asset at path.
	//
	// Parameters:
	//   - path: the file path to the asset
	//   - clipName: the animation name inside the asset, or "" for the first one
	//
	// Returns:
	//   - *model.AnimationClip: the shared clip
	//   - error: error if loading fails or the clip is missing
	LoadClip(path, clipName string) (*model.AnimationClip, error)

	// LoadClipReader is LoadClip for a reader stream cached by key.
	//
	// Parameters:
	//   - key: the cache key for the asset
	//   - r: the reader providing asset data
	//   - isGLB: true if the reader provides GLB binary data
	//   - clipName: the animation name inside the asset, or "" for the first one
	//
	// Returns:
	//   - *model.AnimationClip: the shared clip
	//   - error: error if loading fails or the clip is missing
	LoadClipReader(key string, r io.Reader, isGLB bool, clipName string) (*model.AnimationClip, error)

	// LoadClipsAsync loads every request on the worker pool and reports each outcome to
	// onReady as it completes, in no particular order. onReady runs on a pool goroutine and
	// must hand results to the tick thread itself.
	//
	// Parameters:
	//   - requests: the clips to load
	//   - onReady: the function receiving each result
	LoadClipsAsync(requests []ClipRequest, onReady func(ClipResult))

	// Get retrieves a cached model by key. Returns nil if not found.
	//
	// Parameters:
	//   - key: the cache key to look up
	//
	// Returns:
	//   - model.Model: the cached model or nil
	Get(key string) model.Model

	// Models returns a copy of the model cache.
	//
	// Returns:
	//   - map[string]model.Model: all cached models keyed by path or key
	Models() map[string]model.Model

	// Close rejects further async loads, waits for in-flight ones to report, then stops the
	// workers. It is safe to call more than once.
	Close()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:          &sync.RWMutex{},
		modelCache:  make(map[string]model.Model),
		logger:      zap.NewNop(),
		workers:     4,
		queueSize:   64,
		idleTimeout: 250 * time.Millisecond,
		inflight:    &sync.WaitGroup{},
		stopPools:   &sync.Once{},
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	perPool := max(1, (l.queueSize+l.workers-1)/l.workers)
	l.pools = make([]worker.DynamicWorkerPool, l.workers)
	for i := range l.pools {
		l.pools[i] = worker.NewDynamicWorkerPool(1, perPool, l.idleTimeout)
	}
	return l
}

func (l *loader) LoadModel(path string) (model.Model, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	imported, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	m := l.importedToModel(imported, path)
	l.logger.Debug("asset loaded",
		zap.String("path", path),
		zap.Int("joints", len(m.Skeleton().Bones)),
		zap.Strings("animations", m.AnimationNames()),
		zap.Duration("took", time.Since(start)),
	)
	return l.store(path, m), nil
}

func (l *loader) LoadModelReader(key string, r io.Reader, isGLB bool) (model.Model, error) {
	if cached := l.Get(key); cached != nil {
		return cached, nil
	}
	if l.backend == nil {
		return nil, fmt.Errorf("%w: no backend configured", ErrUnsupportedFormat)
	}

	var err error
	if isGLB {
		if r, err = requireGLBMagic(r); err != nil {
			return nil, fmt.Errorf("failed to load from reader %q: %w", key, err)
		}
	}
	imported, err := l.backend.LoadReader(key, r)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", key, err)
	}
	return l.store(key, l.importedToModel(imported, "")), nil
}

func (l *loader) LoadClip(path, clipName string) (*model.AnimationClip, error) {
	m, err := l.LoadModel(path)
	if err != nil {
		return nil, err
	}
	return pickClip(m, clipName)
}

func (l *loader) LoadClipReader(key string, r io.Reader, isGLB bool, clipName string) (*model.AnimationClip, error) {
	m, err := l.LoadModelReader(key, r, isGLB)
	if err != nil {
		return nil, err
	}
	return pickClip(m, clipName)
}

func (l *loader) LoadClipsAsync(requests []ClipRequest, onReady func(ClipResult)) {
	if onReady == nil {
		onReady = func(ClipResult) {}
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		for _, req := range requests {
			onReady(ClipResult{Name: req.Name, Err: ErrClosed})
		}
		return
	}
	l.inflight.Add(len(requests))
	firstID := l.nextTaskID
	l.nextTaskID += len(requests)
	l.mu.Unlock()

	for i, req := range requests {
		req := req
		id := firstID + i
		l.pools[id%len(l.pools)].SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer l.inflight.Done()
				clip, err := l.LoadClip(req.Path, req.Clip)
				if err != nil {
					l.logger.Debug("clip load failed",
						zap.String("animation", req.Name),
						zap.String("path", req.Path),
						zap.Error(err),
					)
				}
				onReady(ClipResult{Name: req.Name, Clip: clip, Err: err})
				return clip, err
			},
		})
	}
}

func (l *loader) Get(key string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[key]
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

func (l *loader) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.inflight.Wait()
	l.stopPools.Do(func() {
		for _, p := range l.pools {
			p.Stop()
		}
	})
}

// store caches m under key unless a concurrent load got there first, in which case the
// earlier model wins so clip pointers stay stable.
func (l *loader) store(key string, m model.Model) model.Model {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.modelCache[key]; ok {
		return existing
	}
	l.modelCache[key] = m
	return m
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only glTF/GLB is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		if l.backend != nil {
			return l.backend, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// importedToModel converts an importedAsset (decoded data) into a Model.
func (l *loader) importedToModel(imported *importedAsset, path string) model.Model {
	return model.NewModel(
		model.WithName(imported.name),
		model.WithSourcePath(path),
		model.WithSkeleton(imported.skeleton),
		model.WithAnimations(imported.clips...),
	)
}

// pickClip returns the named clip of m, or its first clip when name is empty.
func pickClip(m model.Model, name string) (*model.AnimationClip, error) {
	if m.AnimationCount() == 0 {
		return nil, fmt.Errorf("%q: %w", m.Name(), ErrNoAnimations)
	}
	if name == "" {
		return m.Animations()[0], nil
	}
	if clip := m.Animation(name); clip != nil {
		return clip, nil
	}
	return nil, fmt.Errorf("%q in %q (have %v): %w", name, m.Name(), m.AnimationNames(), ErrClipNotFound)
}

// requireGLBMagic checks that r starts with the GLB header magic without consuming it.
func requireGLBMagic(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	if !bytes.Equal(magic, []byte("glTF")) {
		return nil, fmt.Errorf("%w: missing GLB header", ErrUnsupportedFormat)
	}
	return br, nil
}
