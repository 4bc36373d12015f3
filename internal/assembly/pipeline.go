// Package assembly implements the media assembly pipeline: it validates an
// asset set, compiles a deterministic render plan, drives the encode engine
// through a fixed sequence of operations and reports normalized progress.
package assembly

import (
	"context"
	"fmt"
	"log"

	"github.com/slidereel/api/internal/catalog"
	"github.com/slidereel/api/internal/engine"
	"github.com/slidereel/api/internal/model"
	"github.com/slidereel/api/internal/workspace"
)

// Storage fetches staged input blobs and stores the final artifact.
type Storage interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Catalogs resolves soundtrack/filter selections against the read-only lists.
type Catalogs interface {
	Soundtrack(id string) (catalog.SoundtrackEntry, bool)
	Filter(id string) (catalog.FilterEntry, bool)
}

// EngineFactory opens an engine instance bound to one run's namespace.
// Engines are never shared across concurrent runs.
type EngineFactory interface {
	Open(scope *workspace.Scope) engine.Engine
}

// Observer receives every phase/progress transition of a run. Implementations
// persist the run record and push updates to subscribers.
type Observer interface {
	RunProgress(runID string, snap PhaseSnapshot)
}

// PhaseSnapshot is one observed transition.
type PhaseSnapshot struct {
	Phase       model.RunPhase
	Percent     int
	CurrentStep string
}

// CancelPoller reports whether an external cancellation has been requested
// for a run. Polled between encode steps, not only at the start.
type CancelPoller interface {
	CancelRequested(ctx context.Context, runID string) bool
}

// Result is the successful outcome of a run.
type Result struct {
	OutputRef       string
	DurationSeconds float64
	SizeBytes       int64
	Width           int
	Height          int
	FrameRate       int
}

// Pipeline runs one asset set to completion or failure inside a workspace
// scope. A Pipeline value is stateless and safe to share; all per-run state
// lives in locals, the engine and the run record.
type Pipeline struct {
	engines  EngineFactory
	storage  Storage
	catalogs Catalogs
	observer Observer
	cancels  CancelPoller
}

// NewPipeline wires the pipeline's collaborators. observer and cancels may be
// nil for callers that do not track progress or support cancellation.
func NewPipeline(engines EngineFactory, storage Storage, catalogs Catalogs, observer Observer, cancels CancelPoller) *Pipeline {
	return &Pipeline{
		engines:  engines,
		storage:  storage,
		catalogs: catalogs,
		observer: observer,
		cancels:  cancels,
	}
}

// Run executes the state machine for one validated asset set. It returns the
// result or the RunError that moved the run to the terminal error state.
// Workspace teardown is the caller's scope guarantee; engine-side blobs are
// torn down here on every exit path.
func (p *Pipeline) Run(ctx context.Context, scope *workspace.Scope, set AssetSet) (*Result, *RunError) {
	runID := scope.RunID()
	plan := CompilePlan(set)
	reporter := NewReporter()

	// loading
	p.observe(runID, reporter, model.PhaseLoading, 0, "")
	eng := p.engines.Open(scope)
	if err := eng.Init(ctx); err != nil {
		return nil, engineUnavailable(err)
	}
	defer func() {
		if err := eng.Teardown(context.WithoutCancel(ctx)); err != nil {
			log.Printf("run %s: engine teardown: %v", runID, err)
		}
	}()
	p.observe(runID, reporter, model.PhaseLoading, 1, "")

	// preparing
	soundtrack, runErr := p.prepare(ctx, runID, reporter, eng, set, plan)
	if runErr != nil {
		return nil, runErr
	}

	// processing
	if runErr := p.process(ctx, runID, reporter, eng, set, plan, soundtrack); runErr != nil {
		return nil, runErr
	}

	// finalizing
	p.observe(runID, reporter, model.PhaseFinalizing, 0, "")
	data, err := eng.ReadBlob(blobOutput)
	if err != nil {
		return nil, &RunError{Kind: model.ErrKindEncodeStep, Step: "finalize", Err: err}
	}
	outputKey := fmt.Sprintf("outputs/%s.mp4", runID)
	ref, err := p.storage.Store(ctx, outputKey, data, "video/mp4")
	if err != nil {
		return nil, &RunError{Kind: model.ErrKindEncodeStep, Step: "finalize", Err: err}
	}

	p.observe(runID, reporter, model.PhaseCompleted, 1, "")
	return &Result{
		OutputRef:       ref,
		DurationSeconds: plan.TotalDurationSeconds,
		SizeBytes:       int64(len(data)),
		Width:           OutputWidth,
		Height:          OutputHeight,
		FrameRate:       OutputFrameRate,
	}, nil
}

// prepare materializes every input blob into the namespace under
// deterministic, order-preserving names. Returns the resolved soundtrack
// entry when one is selected.
func (p *Pipeline) prepare(ctx context.Context, runID string, reporter *Reporter, eng engine.Engine, set AssetSet, plan RenderPlan) (*catalog.SoundtrackEntry, *RunError) {
	total := len(set.Images) + 1 // images + narration
	if set.SoundtrackID != "" {
		total++
	}
	if set.FilterID != "" {
		total++
	}
	if set.Thumbnail != nil {
		total++
	}
	done := 0
	tick := func(step string) {
		done++
		p.observe(runID, reporter, model.PhasePreparing, float64(done)/float64(total), step)
	}

	if runErr := p.checkInterrupt(ctx, runID, "prepare"); runErr != nil {
		return nil, runErr
	}

	for i, img := range set.Images {
		name := imageBlobName(i, img.Key)
		if runErr := p.stage(ctx, eng, img.Key, name); runErr != nil {
			return nil, runErr
		}
		tick(fmt.Sprintf("staging image %d/%d", i+1, len(set.Images)))
	}

	if runErr := p.stage(ctx, eng, set.Narration.Key, blobNarrationSrc); runErr != nil {
		return nil, runErr
	}
	tick("staging narration")

	var soundtrack *catalog.SoundtrackEntry
	if set.SoundtrackID != "" {
		entry, ok := p.catalogs.Soundtrack(set.SoundtrackID)
		if !ok {
			return nil, assetWriteFailed(set.SoundtrackID, fmt.Errorf("soundtrack %q not in catalog", set.SoundtrackID))
		}
		if runErr := p.stage(ctx, eng, entry.FileRef, blobSoundtrackSrc); runErr != nil {
			return nil, runErr
		}
		soundtrack = &entry
		tick("staging soundtrack")
	}

	if set.FilterID != "" {
		entry, ok := p.catalogs.Filter(set.FilterID)
		if !ok {
			return nil, assetWriteFailed(set.FilterID, fmt.Errorf("filter %q not in catalog", set.FilterID))
		}
		if runErr := p.stage(ctx, eng, entry.FileRef, blobFilterSrc); runErr != nil {
			return nil, runErr
		}
		tick("staging filter")
	}

	if set.Thumbnail != nil {
		if runErr := p.stage(ctx, eng, set.Thumbnail.Key, blobThumbnailSrc); runErr != nil {
			return nil, runErr
		}
		tick("staging thumbnail")
	}

	return soundtrack, nil
}

// process runs the encode steps in the plan's fixed order. Each step consumes
// only blobs already materialized; cancellation and deadline are checked
// before every step.
func (p *Pipeline) process(ctx context.Context, runID string, reporter *Reporter, eng engine.Engine, set AssetSet, plan RenderPlan, soundtrack *catalog.SoundtrackEntry) *RunError {
	visual := blobSlideshow
	stepCount := len(plan.Steps)

	for i, step := range plan.Steps {
		if runErr := p.checkInterrupt(ctx, runID, string(step)); runErr != nil {
			return runErr
		}
		p.observe(runID, reporter, model.PhaseProcessing, float64(i)/float64(stepCount), string(step))

		var err error
		switch step {
		case StepSlideshow:
			imageNames := make([]string, len(set.Images))
			for j, img := range set.Images {
				imageNames[j] = imageBlobName(j, img.Key)
			}
			if err = eng.WriteBlob(blobSlideshowList, slideshowListBlob(imageNames, plan)); err == nil {
				err = eng.Execute(ctx, slideshowOp(plan))
			}

		case StepThumbnail:
			if err = eng.Execute(ctx, thumbnailClipOp(plan)); err == nil {
				if err = eng.WriteBlob(blobVisualList, visualListBlob()); err == nil {
					err = eng.Execute(ctx, concatVisualOp())
				}
			}
			if err == nil {
				visual = blobVisual
			}

		case StepOverlay:
			if err = eng.Execute(ctx, overlayOp(visual)); err == nil {
				visual = blobOverlay
			}

		case StepFade:
			err = eng.Execute(ctx, fadeOp(visual, plan))

		case StepAudio:
			if err = eng.Execute(ctx, normalizeNarrationOp()); err == nil {
				if plan.HasSoundtrack {
					loops := soundtrackLoops(plan, soundtrack.DurationSeconds)
					err = eng.Execute(ctx, audioMixOp(plan, loops))
				} else {
					err = eng.Execute(ctx, audioPadOp(plan))
				}
			}

		case StepMux:
			err = eng.Execute(ctx, muxOp())
		}

		if err != nil {
			return encodeStepFailed(step, err)
		}
		p.observe(runID, reporter, model.PhaseProcessing, float64(i+1)/float64(stepCount), string(step))
	}
	return nil
}

// stage copies one storage blob into the run namespace.
func (p *Pipeline) stage(ctx context.Context, eng engine.Engine, key, name string) *RunError {
	data, err := p.storage.Fetch(ctx, key)
	if err != nil {
		if isInterrupt(err) {
			return interrupted(err, "prepare")
		}
		return assetWriteFailed(name, err)
	}
	if len(data) == 0 {
		return assetWriteFailed(name, fmt.Errorf("asset %q is empty", key))
	}
	if err := eng.WriteBlob(name, data); err != nil {
		return assetWriteFailed(name, err)
	}
	return nil
}

// checkInterrupt maps context expiry and external cancel requests onto the
// Cancelled/TimedOut error kinds.
func (p *Pipeline) checkInterrupt(ctx context.Context, runID string, step string) *RunError {
	if err := ctx.Err(); err != nil {
		return interrupted(err, Step(step))
	}
	if p.cancels != nil && p.cancels.CancelRequested(ctx, runID) {
		return &RunError{Kind: model.ErrKindCancelled, Step: step}
	}
	return nil
}

func (p *Pipeline) observe(runID string, reporter *Reporter, phase model.RunPhase, frac float64, step string) {
	percent := reporter.Report(phase, frac)
	if p.observer == nil {
		return
	}
	p.observer.RunProgress(runID, PhaseSnapshot{Phase: phase, Percent: percent, CurrentStep: step})
}
