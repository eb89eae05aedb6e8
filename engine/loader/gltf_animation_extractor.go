package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	doc *gltf.Document

	// times caches sampler inputs, which glTF exporters commonly share between channels.
	times map[uint32][]float32
}

// gltfAnimationExtractor converts glTF animations into clips whose tracks target
// "<nodeName>.<property>". Channels are kept per node and path in authoring order; the
// clip is not tied to any skeleton, so compatibility is decided by the caller.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//
	// Returns:
	//   - *model.AnimationClip: the extracted animation clip
	//   - error: error if extraction fails
	ExtractAnimation(animIndex int) (*model.AnimationClip, error)

	// ExtractAllAnimations extracts every animation from the document.
	//
	// Returns:
	//   - []*model.AnimationClip: all extracted animation clips
	//   - error: error if extraction fails
	ExtractAllAnimations() ([]*model.AnimationClip, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded document
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(doc *gltf.Document) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{doc: doc, times: make(map[uint32][]float32)}
}

func (e *gltfAnimationExtractorImpl) ExtractAllAnimations() ([]*model.AnimationClip, error) {
	clips := make([]*model.AnimationClip, 0, len(e.doc.Animations))
	for i := range e.doc.Animations {
		clip, err := e.ExtractAnimation(i)
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int) (*model.AnimationClip, error) {
	if animIndex < 0 || animIndex >= len(e.doc.Animations) {
		return nil, fmt.Errorf("animation index %d out of range", animIndex)
	}
	anim := e.doc.Animations[animIndex]
	name := anim.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", animIndex)
	}

	tracks := make([]model.Track, 0, len(anim.Channels))
	for i, ch := range anim.Channels {
		// Skip channels with no target node (e.g. KHR_animation_pointer)
		if ch.Target.Node == nil || ch.Sampler == nil {
			continue
		}
		prop := gltfTrackProperty(ch.Target.Path)
		if prop == model.PropertyUnknown {
			continue
		}
		if int(*ch.Sampler) >= len(anim.Samplers) {
			return nil, fmt.Errorf("animation %q channel %d: invalid sampler index %d", name, i, *ch.Sampler)
		}
		sampler := anim.Samplers[*ch.Sampler]

		times, err := e.readTimes(sampler.Input)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: failed to read timestamps: %w", name, i, err)
		}
		values, err := e.readValues(sampler.Output, prop)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: failed to read values: %w", name, i, err)
		}
		if sampler.Interpolation == gltf.InterpolationCubicSpline {
			values = gltfCubicSplineValues(values, prop.Stride())
		}

		tracks = append(tracks, model.Track{
			Target: model.TrackTarget(gltfNodeName(e.doc, *ch.Target.Node), prop),
			Times:  times,
			Values: values,
		})
	}
	return model.NewAnimationClip(name, 0, tracks...), nil
}

func (e *gltfAnimationExtractorImpl) readTimes(accessor uint32) ([]float32, error) {
	if cached, ok := e.times[accessor]; ok {
		return cached, nil
	}
	if int(accessor) >= len(e.doc.Accessors) {
		return nil, fmt.Errorf("invalid accessor %d", accessor)
	}
	var buf []float32
	data, err := modeler.ReadAccessor(e.doc, e.doc.Accessors[accessor], buf)
	if err != nil {
		return nil, err
	}
	times, ok := data.([]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected timestamp type %T", data)
	}
	e.times[accessor] = times
	return times, nil
}

// readValues reads a sampler output accessor and flattens it into a float slice.
func (e *gltfAnimationExtractorImpl) readValues(accessor uint32, prop model.TrackProperty) ([]float32, error) {
	if int(accessor) >= len(e.doc.Accessors) {
		return nil, fmt.Errorf("invalid accessor %d", accessor)
	}
	acc := e.doc.Accessors[accessor]

	switch prop {
	case model.PropertyRotation:
		var buf [][4]float32
		data, err := modeler.ReadAccessor(e.doc, acc, buf)
		if err != nil {
			return nil, err
		}
		quats, ok := data.([][4]float32)
		if !ok {
			return nil, fmt.Errorf("unsupported rotation type %T", data)
		}
		out := make([]float32, 0, len(quats)*4)
		for _, q := range quats {
			out = append(out, q[0], q[1], q[2], q[3])
		}
		return out, nil
	default:
		var buf [][3]float32
		data, err := modeler.ReadAccessor(e.doc, acc, buf)
		if err != nil {
			return nil, err
		}
		vecs, ok := data.([][3]float32)
		if !ok {
			return nil, fmt.Errorf("unsupported %s type %T", prop, data)
		}
		out := make([]float32, 0, len(vecs)*3)
		for _, v := range vecs {
			out = append(out, v[0], v[1], v[2])
		}
		return out, nil
	}
}

// gltfTrackProperty maps a glTF channel path to a track property. Morph target weights
// are not animated by the mixer.
func gltfTrackProperty(path gltf.TRSProperty) model.TrackProperty {
	switch path {
	case gltf.TRSTranslation:
		return model.PropertyTranslation
	case gltf.TRSRotation:
		return model.PropertyRotation
	case gltf.TRSScale:
		return model.PropertyScale
	default:
		return model.PropertyUnknown
	}
}

// gltfCubicSplineValues keeps the value of each (in-tangent, value, out-tangent) triplet.
func gltfCubicSplineValues(values []float32, stride int) []float32 {
	key := stride * 3
	out := make([]float32, 0, len(values)/3)
	for i := 0; i+key <= len(values); i += key {
		out = append(out, values[i+stride:i+2*stride]...)
	}
	return out
}
