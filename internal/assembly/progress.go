package assembly

import (
	"math"

	"github.com/slidereel/api/internal/model"
)

// Each transient phase owns a fixed share of the 0–100 scale so overall
// progress stays monotonic even though phases issue different numbers of
// engine calls.
var phaseBands = map[model.RunPhase][2]int{
	model.PhaseQueued:     {0, 0},
	model.PhaseLoading:    {0, 10},
	model.PhasePreparing:  {10, 40},
	model.PhaseProcessing: {40, 90},
	model.PhaseFinalizing: {90, 100},
	model.PhaseCompleted:  {100, 100},
}

// Reporter maps (phase, fraction-within-phase) to a normalized percentage.
// The percentage is clamped to be non-decreasing over the reporter's
// lifetime, which is exactly one run.
type Reporter struct {
	last int
}

func NewReporter() *Reporter {
	return &Reporter{}
}

// Report returns the overall percentage for frac (0..1) of the given phase.
func (r *Reporter) Report(phase model.RunPhase, frac float64) int {
	band, ok := phaseBands[phase]
	if !ok {
		return r.last
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	computed := band[0] + int(math.Round(frac*float64(band[1]-band[0])))
	if computed < r.last {
		computed = r.last
	}
	r.last = computed
	return computed
}

// Percent returns the last reported value.
func (r *Reporter) Percent() int {
	return r.last
}
