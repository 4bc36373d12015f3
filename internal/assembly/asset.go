package assembly

import (
	"fmt"

	"github.com/slidereel/api/internal/model"
)

// Asset references one staged input blob by storage key.
type Asset struct {
	Key  string
	Size int64
}

// AssetSet is the validated, ordered collection of inputs for one run.
// Image order is significant: it defines screen-time order and is preserved
// exactly as submitted.
type AssetSet struct {
	ProjectID    string
	Name         string
	Images       []Asset
	Narration    Asset
	SoundtrackID string
	FilterID     string
	Thumbnail    *Asset
}

// Validate checks the structural invariants of a candidate asset set and
// returns a ValidationError naming every unmet constraint, or nil. It is
// synchronous, allocates no workspace resources, and must pass before any
// encode work is scheduled.
func Validate(set AssetSet) *ValidationError {
	fields := make(map[string]string)

	if len(set.Images) != RequiredImageCount {
		fields["images"] = fmt.Sprintf("expected %d, got %d", RequiredImageCount, len(set.Images))
	}
	for i, img := range set.Images {
		if img.Key == "" || img.Size == 0 {
			fields[fmt.Sprintf("images[%d]", i)] = "missing or empty"
		}
	}

	if set.Narration.Key == "" || set.Narration.Size == 0 {
		fields["narration"] = "missing or empty"
	}

	if set.Thumbnail != nil && (set.Thumbnail.Key == "" || set.Thumbnail.Size == 0) {
		fields["thumbnail"] = "missing or empty"
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// AssetSetFromPayload rebuilds the asset set a worker receives in its task
// payload. Sizes are not carried in the payload; the set was validated at
// submission and keys alone identify the staged blobs.
func AssetSetFromPayload(p model.AssemblyJobPayload) AssetSet {
	set := AssetSet{
		ProjectID:    p.ProjectID,
		Name:         p.Name,
		SoundtrackID: p.SoundtrackID,
		FilterID:     p.FilterID,
	}
	for _, key := range p.ImageKeys {
		set.Images = append(set.Images, Asset{Key: key, Size: -1})
	}
	set.Narration = Asset{Key: p.NarrationKey, Size: -1}
	if p.ThumbnailKey != "" {
		set.Thumbnail = &Asset{Key: p.ThumbnailKey, Size: -1}
	}
	return set
}
