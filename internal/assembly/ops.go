package assembly

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/slidereel/api/internal/engine"
)

// Blob names inside a run's namespace. Deterministic so a failed run leaves
// an inspectable trail and tests can assert on exact engine traffic.
const (
	blobNarrationSrc  = "narration.src"
	blobNarrationWav  = "narration.wav"
	blobSoundtrackSrc = "soundtrack.src"
	blobThumbnailSrc  = "thumbnail.src"
	blobFilterSrc     = "filter.src"
	blobSlideshowList = "slideshow.txt"
	blobSlideshow     = "slideshow.mp4"
	blobThumbnailClip = "thumbnail.mp4"
	blobVisualList    = "visual.txt"
	blobVisual        = "visual.mp4"
	blobOverlay       = "overlay.mp4"
	blobFaded         = "faded.mp4"
	blobAudio         = "audio.wav"
	blobOutput        = "output.mp4"
)

// imageBlobName yields zero-padded, order-preserving names for the staged
// images, keeping the uploaded extension so ffmpeg probes the right decoder.
func imageBlobName(index int, key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("img_%02d%s", index, ext)
}

// scalePad letterboxes/pillarboxes any input into the fixed output frame
// while preserving aspect ratio, then locks the frame rate.
func scalePad() string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black,fps=%d",
		OutputWidth, OutputHeight, OutputWidth, OutputHeight, OutputFrameRate)
}

func secs(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// slideshowListBlob renders the concat-demuxer playlist: each image shown for
// the fixed per-image duration, last image repeated so the demuxer honours
// the final duration directive.
func slideshowListBlob(imageNames []string, plan RenderPlan) []byte {
	var b strings.Builder
	for _, name := range imageNames {
		fmt.Fprintf(&b, "file '%s'\n", name)
		fmt.Fprintf(&b, "duration %s\n", secs(plan.PerImageDurationSeconds))
	}
	if len(imageNames) > 0 {
		fmt.Fprintf(&b, "file '%s'\n", imageNames[len(imageNames)-1])
	}
	return []byte(b.String())
}

// slideshowOp builds the base clip from the ordered image sequence, clamped
// to the slideshow duration.
func slideshowOp(plan RenderPlan) engine.Operation {
	return engine.Operation{
		Name: string(StepSlideshow),
		Args: []string{
			"-y", "-f", "concat", "-safe", "0", "-i", blobSlideshowList,
			"-vf", scalePad(),
			"-t", secs(plan.SlideshowDurationSeconds),
			"-c:v", "libx264", "-pix_fmt", "yuv420p",
			blobSlideshow,
		},
		Output: blobSlideshow,
	}
}

// thumbnailClipOp builds the short intro still clip.
func thumbnailClipOp(plan RenderPlan) engine.Operation {
	return engine.Operation{
		Name: string(StepThumbnail),
		Args: []string{
			"-y", "-loop", "1", "-i", blobThumbnailSrc,
			"-t", secs(plan.ThumbnailDurationSeconds),
			"-vf", scalePad(),
			"-c:v", "libx264", "-pix_fmt", "yuv420p",
			blobThumbnailClip,
		},
		Output: blobThumbnailClip,
	}
}

// visualListBlob is the playlist concatenating the thumbnail clip before the
// slideshow (video-only at this stage).
func visualListBlob() []byte {
	return []byte(fmt.Sprintf("file '%s'\nfile '%s'\n", blobThumbnailClip, blobSlideshow))
}

// concatVisualOp stitches thumbnail + slideshow without re-encoding; both
// clips share the exact codec parameters by construction.
func concatVisualOp() engine.Operation {
	return engine.Operation{
		Name: string(StepThumbnail),
		Args: []string{
			"-y", "-f", "concat", "-safe", "0", "-i", blobVisualList,
			"-c", "copy",
			blobVisual,
		},
		Output: blobVisual,
	}
}

// overlayOp composites the selected chroma-key filter clip over the visual
// timeline.
func overlayOp(input string) engine.Operation {
	return engine.Operation{
		Name: string(StepOverlay),
		Args: []string{
			"-y", "-i", input, "-i", blobFilterSrc,
			"-filter_complex", "[1:v]colorkey=green:0.3:0.2[fg];[0:v][fg]overlay[v]",
			"-map", "[v]",
			"-c:v", "libx264", "-pix_fmt", "yuv420p",
			blobOverlay,
		},
		Output: blobOverlay,
	}
}

// fadeOp extends the visual clip by the fade duration (cloning the last
// frame) and ramps it to black over exactly the fade-out window.
func fadeOp(input string, plan RenderPlan) engine.Operation {
	fadeStart, _ := plan.FadeOutWindow()
	return engine.Operation{
		Name: string(StepFade),
		Args: []string{
			"-y", "-i", input,
			"-vf", fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s,fade=t=out:st=%s:d=%s",
				secs(plan.FadeOutDurationSeconds), secs(fadeStart), secs(plan.FadeOutDurationSeconds)),
			"-c:v", "libx264", "-pix_fmt", "yuv420p",
			blobFaded,
		},
		Output: blobFaded,
	}
}

// normalizeNarrationOp re-encodes the uploaded narration to a known PCM
// layout before mixing.
func normalizeNarrationOp() engine.Operation {
	return engine.Operation{
		Name: string(StepAudio),
		Args: []string{
			"-y", "-i", blobNarrationSrc,
			"-acodec", "pcm_s16le", "-ar", "44100", "-ac", "2",
			blobNarrationWav,
		},
		Output: blobNarrationWav,
	}
}

// audioPadOp pads the narration with silence to the total duration and
// applies the fade-out envelope — the no-soundtrack audio path.
func audioPadOp(plan RenderPlan) engine.Operation {
	fadeStart, _ := plan.FadeOutWindow()
	return engine.Operation{
		Name: string(StepAudio),
		Args: []string{
			"-y", "-i", blobNarrationWav,
			"-af", fmt.Sprintf("apad,afade=t=out:st=%s:d=%s", secs(fadeStart), secs(plan.FadeOutDurationSeconds)),
			"-t", secs(plan.TotalDurationSeconds),
			"-acodec", "pcm_s16le", "-ar", "44100", "-ac", "2",
			blobAudio,
		},
		Output: blobAudio,
	}
}

// audioMixOp loops the soundtrack past the total duration, attenuates it
// under the narration at the fixed weights, trims to the total duration and
// applies the same fade-out envelope as the visual track.
//
// loops is the -stream_loop count when the catalog knows the soundtrack
// duration, or -1 to tile indefinitely and rely on the output trim.
func audioMixOp(plan RenderPlan, loops int) engine.Operation {
	fadeStart, _ := plan.FadeOutWindow()
	filter := fmt.Sprintf(
		"[0:a]volume=%s[voice];[1:a]volume=%s[bg];[voice][bg]amix=inputs=2:duration=longest:normalize=0,apad[mix];[mix]afade=t=out:st=%s:d=%s[a]",
		secs(plan.NarrationWeight), secs(plan.SoundtrackWeight), secs(fadeStart), secs(plan.FadeOutDurationSeconds))
	return engine.Operation{
		Name: string(StepAudio),
		Args: []string{
			"-y", "-i", blobNarrationWav,
			"-stream_loop", strconv.Itoa(loops), "-i", blobSoundtrackSrc,
			"-filter_complex", filter,
			"-map", "[a]",
			"-t", secs(plan.TotalDurationSeconds),
			"-acodec", "pcm_s16le", "-ar", "44100", "-ac", "2",
			blobAudio,
		},
		Output: blobAudio,
	}
}

// soundtrackLoops computes the explicit loop count that tiles a soundtrack of
// the given duration past the total duration plus the safety margin. Unknown
// durations yield -1 (infinite tiling, bounded by the output trim).
func soundtrackLoops(plan RenderPlan, soundtrackDuration float64) int {
	if soundtrackDuration <= 0 {
		return -1
	}
	target := plan.TotalDurationSeconds + soundtrackLoopMarginSeconds
	loops := 0
	for covered := soundtrackDuration; covered < target; covered += soundtrackDuration {
		loops++
	}
	return loops
}

// muxOp combines the faded visual clip with the faded audio track, trimming
// to the shorter input. Both equal the total duration by construction; the
// clamp is defensive.
func muxOp() engine.Operation {
	return engine.Operation{
		Name: string(StepMux),
		Args: []string{
			"-y", "-i", blobFaded, "-i", blobAudio,
			"-map", "0:v:0", "-map", "1:a:0",
			"-c:v", "copy", "-c:a", "aac",
			"-shortest",
			blobOutput,
		},
		Output: blobOutput,
	}
}
