package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct{}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
// Decoding is delegated to qmuntal/gltf; the skeleton and animation extractors turn the
// document into engine types.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend() gltfLoaderBackend {
	return &gltfLoaderBackendImpl{}
}

func (b *gltfLoaderBackendImpl) Load(path string) (*importedAsset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Relative buffer URIs resolve against the asset directory.
	doc := new(gltf.Document)
	if err := gltf.NewDecoderFS(f, os.DirFS(filepath.Dir(path))).Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode gltf: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return b.extract(name, doc)
}

func (b *gltfLoaderBackendImpl) LoadReader(name string, r io.Reader) (*importedAsset, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode gltf: %w", err)
	}
	return b.extract(name, doc)
}

func (b *gltfLoaderBackendImpl) extract(name string, doc *gltf.Document) (*importedAsset, error) {
	skeleton, err := newGLTFSkeletonExtractor(doc).ExtractSkeleton()
	if err != nil {
		return nil, fmt.Errorf("failed to extract skeleton: %w", err)
	}
	clips, err := newGLTFAnimationExtractor(doc).ExtractAllAnimations()
	if err != nil {
		return nil, fmt.Errorf("failed to extract animations: %w", err)
	}
	return &importedAsset{name: name, skeleton: skeleton, clips: clips}, nil
}
