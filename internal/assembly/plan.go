package assembly

// Timeline and mix constants. These are product-level contracts, not tuning
// knobs: the output of every run is exactly this shape.
const (
	RequiredImageCount       = 30
	PerImageDurationSeconds  = 2.0
	SlideshowDurationSeconds = RequiredImageCount * PerImageDurationSeconds
	FadeOutDurationSeconds   = 1.5
	ThumbnailDurationSeconds = 0.2

	NarrationMixWeight  = 1.0
	SoundtrackMixWeight = 0.3

	OutputWidth     = 1920
	OutputHeight    = 1080
	OutputFrameRate = 30

	// Extra soundtrack tail looped past the total duration before trimming,
	// so the mix never runs dry at the fade boundary.
	soundtrackLoopMarginSeconds = 2.0
)

// Step names one encode step of the processing phase.
type Step string

const (
	StepSlideshow Step = "slideshow"
	StepThumbnail Step = "thumbnail"
	StepOverlay   Step = "overlay"
	StepFade      Step = "fade"
	StepAudio     Step = "audio"
	StepMux       Step = "mux"
)

// RenderPlan is the immutable timing/mix derivation for one asset set. It is
// fully determined by which optional fields are present; compiling the same
// set twice yields identical plans.
type RenderPlan struct {
	PerImageDurationSeconds  float64
	SlideshowDurationSeconds float64
	ThumbnailDurationSeconds float64
	FadeOutDurationSeconds   float64
	TotalDurationSeconds     float64

	NarrationWeight  float64
	SoundtrackWeight float64

	HasThumbnail  bool
	HasSoundtrack bool
	HasFilter     bool

	Steps []Step
}

// CompilePlan derives the render plan for a validated asset set. Pure: no
// side effects, no I/O, no randomness.
func CompilePlan(set AssetSet) RenderPlan {
	plan := RenderPlan{
		PerImageDurationSeconds:  PerImageDurationSeconds,
		SlideshowDurationSeconds: SlideshowDurationSeconds,
		FadeOutDurationSeconds:   FadeOutDurationSeconds,
		NarrationWeight:          NarrationMixWeight,
		HasThumbnail:             set.Thumbnail != nil,
		HasSoundtrack:            set.SoundtrackID != "",
		HasFilter:                set.FilterID != "",
	}

	if plan.HasThumbnail {
		plan.ThumbnailDurationSeconds = ThumbnailDurationSeconds
	}
	if plan.HasSoundtrack {
		plan.SoundtrackWeight = SoundtrackMixWeight
	}
	plan.TotalDurationSeconds = plan.ThumbnailDurationSeconds + plan.SlideshowDurationSeconds + plan.FadeOutDurationSeconds

	plan.Steps = append(plan.Steps, StepSlideshow)
	if plan.HasThumbnail {
		plan.Steps = append(plan.Steps, StepThumbnail)
	}
	if plan.HasFilter {
		plan.Steps = append(plan.Steps, StepOverlay)
	}
	plan.Steps = append(plan.Steps, StepFade, StepAudio, StepMux)

	return plan
}

// FadeOutWindow returns the trailing interval over which video and audio ramp
// to black/silence, relative to the start of the final timeline.
func (p RenderPlan) FadeOutWindow() (start, end float64) {
	return p.TotalDurationSeconds - p.FadeOutDurationSeconds, p.TotalDurationSeconds
}
