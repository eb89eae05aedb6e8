package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
)

// importedAsset is the CPU-side result of decoding one asset file.
type importedAsset struct {
	name     string
	skeleton *model.Skeleton
	clips    []*model.AnimationClip
}

// loaderBackend defines the generic interface for decoding assets from files or streams.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load decodes the asset at the given file path, extracting its skeleton and clips.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *importedAsset: the decoded asset
	//   - error: error if decoding fails
	Load(path string) (*importedAsset, error)

	// LoadReader decodes an asset from a reader stream. External resources cannot be
	// resolved; buffers must be embedded or use data URIs.
	//
	// Parameters:
	//   - name: the asset name recorded on the result
	//   - r: the reader providing asset data
	//
	// Returns:
	//   - *importedAsset: the decoded asset
	//   - error: error if decoding fails
	LoadReader(name string, r io.Reader) (*importedAsset, error)
}
