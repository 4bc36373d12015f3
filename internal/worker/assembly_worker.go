package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/slidereel/api/internal/assembly"
	"github.com/slidereel/api/internal/catalog"
	"github.com/slidereel/api/internal/config"
	"github.com/slidereel/api/internal/engine"
	"github.com/slidereel/api/internal/model"
	"github.com/slidereel/api/internal/service"
	"github.com/slidereel/api/internal/websocket"
	"github.com/slidereel/api/internal/workspace"
)

// AssemblyWorker consumes queued assembly tasks. One task is one run,
// processed sequentially; concurrent runs are independent pipeline instances
// with their own workspace scope and engine.
type AssemblyWorker struct {
	runs       *service.RunService
	assets     *service.AssetService
	workspaces *workspace.Manager
	catalogs   *catalog.Catalog
	hub        *websocket.Hub
	engines    engineFactory
	runTimeout time.Duration
}

// NewAssemblyWorker creates a worker using the engine backend selected in cfg.
func NewAssemblyWorker(
	cfg *config.Config,
	runs *service.RunService,
	assets *service.AssetService,
	workspaces *workspace.Manager,
	catalogs *catalog.Catalog,
	hub *websocket.Hub,
) *AssemblyWorker {
	return &AssemblyWorker{
		runs:       runs,
		assets:     assets,
		workspaces: workspaces,
		catalogs:   catalogs,
		hub:        hub,
		engines:    engineFactory{cfg: cfg.Encoder},
		runTimeout: time.Duration(cfg.Assembly.RunTimeout) * time.Second,
	}
}

// ProcessTask handles one assembly run end to end.
func (w *AssemblyWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		RunID   string          `json:"runId"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	runID := taskPayload.RunID
	log.Printf("Starting assembly run: %s", runID)

	var payload model.AssemblyJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failRun(ctx, runID, &model.RunErrorDetail{
			Kind:    model.ErrKindAssetWrite,
			Message: "invalid run payload",
		})
		return fmt.Errorf("failed to unmarshal assembly payload: %w", err)
	}

	set := assembly.AssetSetFromPayload(payload)

	runCtx, cancel := context.WithTimeout(ctx, w.runTimeout)
	defer cancel()

	pipeline := assembly.NewPipeline(w.engines, w.assets, w.catalogs, &progressRelay{worker: w}, w.runs)

	var result *assembly.Result
	var runErr *assembly.RunError
	err := w.workspaces.WithScope(runID, func(scope *workspace.Scope) error {
		result, runErr = pipeline.Run(runCtx, scope, set)
		return nil
	})
	if err != nil {
		// Scope acquisition itself failed; nothing was written.
		w.failRun(ctx, runID, &model.RunErrorDetail{
			Kind:    model.ErrKindEngine,
			Message: "workspace unavailable",
		})
		return err
	}

	if runErr != nil {
		log.Printf("Assembly run %s failed: %v", runID, runErr)
		w.failRun(ctx, runID, runErr.Detail())
		// The run is terminally failed; returning nil keeps asynq from
		// retrying a run the design says is never resumed.
		return nil
	}

	resp := &model.AssemblyResultResponse{
		RunID:           runID,
		OutputRef:       result.OutputRef,
		DurationSeconds: result.DurationSeconds,
		SizeBytes:       result.SizeBytes,
		Width:           result.Width,
		Height:          result.Height,
		FrameRate:       result.FrameRate,
		CompletedAt:     time.Now(),
	}
	if err := w.runs.CompleteRun(ctx, runID, resp); err != nil {
		w.failRun(ctx, runID, &model.RunErrorDetail{
			Kind:    model.ErrKindEncodeStep,
			Message: "failed to save result",
		})
		return err
	}

	w.hub.BroadcastComplete(runID, resp)
	log.Printf("Assembly run %s completed", runID)
	return nil
}

func (w *AssemblyWorker) failRun(ctx context.Context, runID string, detail *model.RunErrorDetail) {
	if err := w.runs.FailRun(ctx, runID, detail); err != nil {
		log.Printf("Failed to mark run %s as failed: %v", runID, err)
	}
	w.hub.BroadcastError(runID, detail)
}

// progressRelay forwards pipeline transitions to the run record and the
// websocket hub.
type progressRelay struct {
	worker *AssemblyWorker
}

func (r *progressRelay) RunProgress(runID string, snap assembly.PhaseSnapshot) {
	if err := r.worker.runs.UpdateRunProgress(context.Background(), runID, snap.Phase, snap.Percent, snap.CurrentStep); err != nil {
		log.Printf("Failed to update progress for run %s: %v", runID, err)
	}
	r.worker.hub.BroadcastProgress(runID, snap.Phase, snap.Percent, snap.CurrentStep)
}

// engineFactory opens one engine per run, bound to that run's namespace.
type engineFactory struct {
	cfg config.EncoderConfig
}

func (f engineFactory) Open(scope *workspace.Scope) engine.Engine {
	if f.cfg.Mode == "remote" {
		return engine.NewRemoteEngine(f.cfg.ServiceURL, scope.RunID(), time.Duration(f.cfg.Timeout)*time.Second)
	}
	return engine.NewFFmpegEngine(scope.Dir(), engine.WithBinary(f.cfg.FFmpegBin))
}
