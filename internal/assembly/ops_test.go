package assembly

import (
	"strings"
	"testing"
)

func TestImageBlobName(t *testing.T) {
	cases := []struct {
		index int
		key   string
		want  string
	}{
		{0, "projects/p/images/beach.JPG", "img_00.jpg"},
		{7, "projects/p/images/a.png", "img_07.png"},
		{29, "projects/p/images/noext", "img_29.jpg"},
	}
	for _, tc := range cases {
		if got := imageBlobName(tc.index, tc.key); got != tc.want {
			t.Errorf("imageBlobName(%d, %q): expected %q, got %q", tc.index, tc.key, tc.want, got)
		}
	}
}

func TestSlideshowListBlob(t *testing.T) {
	plan := CompilePlan(validSet())
	list := string(slideshowListBlob([]string{"img_00.jpg", "img_01.jpg"}, plan))

	if !strings.Contains(list, "file 'img_00.jpg'\nduration 2\n") {
		t.Errorf("playlist missing first entry with duration:\n%s", list)
	}
	// Last image repeated so the demuxer honours the final duration.
	if !strings.HasSuffix(list, "file 'img_01.jpg'\n") {
		t.Errorf("playlist should end with repeated last image:\n%s", list)
	}
}

func TestSoundtrackLoops(t *testing.T) {
	plan := CompilePlan(validSet()) // total 61.5, margin 2 => target 63.5

	cases := []struct {
		duration float64
		want     int
	}{
		{0, -1},     // unknown duration: tile indefinitely
		{-3, -1},    // corrupt catalog entry
		{200, 0},    // already longer than target
		{63.5, 0},   // exactly at target
		{45.2, 1},   // one extra pass covers 90.4
		{20, 3},     // 4 passes cover 80
		{2, 31},     // short sting loops many times
	}
	for _, tc := range cases {
		if got := soundtrackLoops(plan, tc.duration); got != tc.want {
			t.Errorf("soundtrackLoops(%v): expected %d, got %d", tc.duration, tc.want, got)
		}
	}
}

func TestAudioOps_ShareTheFadeWindow(t *testing.T) {
	set := validSet()
	set.SoundtrackID = "gentle-piano"
	plan := CompilePlan(set)

	pad := strings.Join(audioPadOp(plan).Args, " ")
	mix := strings.Join(audioMixOp(plan, 1).Args, " ")

	for _, args := range []string{pad, mix} {
		if !strings.Contains(args, "afade=t=out:st=60:d=1.5") {
			t.Errorf("audio op missing fade envelope over [60, 61.5]: %s", args)
		}
		if !strings.Contains(args, "-t 61.5") {
			t.Errorf("audio op missing trim to total duration: %s", args)
		}
	}

	// Background attenuated under narration at the fixed weights.
	if !strings.Contains(mix, "volume=1") || !strings.Contains(mix, "volume=0.3") {
		t.Errorf("mix op missing fixed weights: %s", mix)
	}
}

func TestMuxOp_DefensiveClamp(t *testing.T) {
	args := strings.Join(muxOp().Args, " ")
	if !strings.Contains(args, "-shortest") {
		t.Errorf("mux op missing -shortest clamp: %s", args)
	}
	if !strings.Contains(args, "-c:v copy") {
		t.Errorf("mux op should pass the already-encoded video through: %s", args)
	}
}
