package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/slidereel/api/internal/assembly"
	"github.com/slidereel/api/internal/model"
)

const (
	TaskTypeAssembly = "assembly:run"

	runRetention = 24 * time.Hour
)

// RunService owns the persisted run descriptors. The descriptor is written to
// Redis at every phase transition so status survives process restarts; the
// worker is the only writer once a run leaves queued.
type RunService struct {
	redis       *redis.Client
	asynqClient *asynq.Client
}

func NewRunService(redisClient *redis.Client, asynqClient *asynq.Client) *RunService {
	return &RunService{
		redis:       redisClient,
		asynqClient: asynqClient,
	}
}

// StartRun persists a queued run for an already-validated asset set and
// enqueues the assembly task. Encode steps are never retried: a failed run
// fails for good and the caller resubmits.
func (s *RunService) StartRun(ctx context.Context, set assembly.AssetSet) (*model.AssemblyStartResponse, error) {
	runID := uuid.New().String()
	now := time.Now()

	run := &model.PipelineRun{
		ID:        runID,
		ProjectID: set.ProjectID,
		Name:      set.Name,
		Phase:     model.PhaseQueued,
		Progress:  0,
		CreatedAt: now,
	}

	if err := s.saveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	payload := model.AssemblyJobPayload{
		ProjectID:    set.ProjectID,
		Name:         set.Name,
		NarrationKey: set.Narration.Key,
		SoundtrackID: set.SoundtrackID,
		FilterID:     set.FilterID,
	}
	for _, img := range set.Images {
		payload.ImageKeys = append(payload.ImageKeys, img.Key)
	}
	if set.Thumbnail != nil {
		payload.ThumbnailKey = set.Thumbnail.Key
	}

	task, err := newAssemblyTask(runID, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("assembly"),
		asynq.MaxRetry(0),
		asynq.Retention(runRetention),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.AssemblyStartResponse{
		RunID:     runID,
		Status:    string(model.PhaseQueued),
		CreatedAt: now,
	}, nil
}

// GetStatus returns the current snapshot of a run
func (s *RunService) GetStatus(ctx context.Context, runID string) (*model.AssemblyStatusResponse, error) {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	return &model.AssemblyStatusResponse{
		RunID:       run.ID,
		Phase:       run.Phase,
		Progress:    run.Progress,
		CurrentStep: run.CurrentStep,
		Error:       run.Error,
		OutputRef:   run.OutputRef,
		CreatedAt:   run.CreatedAt,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
	}, nil
}

// GetResult returns the artifact descriptor of a completed run
func (s *RunService) GetResult(ctx context.Context, runID string) (*model.AssemblyResultResponse, error) {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	if run.Phase != model.PhaseCompleted {
		return nil, fmt.Errorf("run not completed")
	}

	var result model.AssemblyResultResponse
	if err := json.Unmarshal(run.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}

// RequestCancel flags a run for cancellation. The worker observes the flag
// between encode steps, so the run reaches its error state a step boundary
// later, not instantly.
func (s *RunService) RequestCancel(ctx context.Context, runID string) (*model.AssemblyCancelResponse, error) {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	if run.Phase.Terminal() {
		return nil, fmt.Errorf("run already completed")
	}

	if err := s.redis.Set(ctx, cancelKey(runID), "1", runRetention).Err(); err != nil {
		return nil, fmt.Errorf("failed to flag cancellation: %w", err)
	}

	return &model.AssemblyCancelResponse{
		Success: true,
		RunID:   runID,
	}, nil
}

// CancelRequested reports whether a cancellation flag is set for the run.
// Polled by the pipeline between encode steps.
func (s *RunService) CancelRequested(ctx context.Context, runID string) bool {
	val, err := s.redis.Get(ctx, cancelKey(runID)).Result()
	return err == nil && val == "1"
}

// UpdateRunProgress records a phase/progress transition (called by worker).
// Progress never decreases and terminal runs are never touched again.
func (s *RunService) UpdateRunProgress(ctx context.Context, runID string, phase model.RunPhase, progress int, step string) error {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Phase.Terminal() {
		return nil
	}

	run.Phase = phase
	if progress > run.Progress {
		run.Progress = progress
	}
	run.CurrentStep = step

	if run.StartedAt == nil {
		now := time.Now()
		run.StartedAt = &now
	}

	return s.saveRun(ctx, run)
}

// CompleteRun pins the run at completed/100 and stores the artifact
// descriptor (called by worker).
func (s *RunService) CompleteRun(ctx context.Context, runID string, result *model.AssemblyResultResponse) error {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Phase.Terminal() {
		return nil
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return err
	}

	run.Phase = model.PhaseCompleted
	run.Progress = 100
	run.CurrentStep = ""
	run.OutputRef = result.OutputRef
	run.Result = resultBytes
	now := time.Now()
	run.CompletedAt = &now

	return s.saveRun(ctx, run)
}

// FailRun moves the run to the terminal error state. Progress stays at its
// last known value (called by worker).
func (s *RunService) FailRun(ctx context.Context, runID string, detail *model.RunErrorDetail) error {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Phase.Terminal() {
		return nil
	}

	run.Phase = model.PhaseError
	run.CurrentStep = ""
	run.Error = detail
	now := time.Now()
	run.CompletedAt = &now

	return s.saveRun(ctx, run)
}

// Helper methods

func (s *RunService) saveRun(ctx context.Context, run *model.PipelineRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fmt.Sprintf("run:%s", run.ID), data, runRetention).Err()
}

func (s *RunService) getRun(ctx context.Context, runID string) (*model.PipelineRun, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("run:%s", runID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("run not found")
		}
		return nil, err
	}

	var run model.PipelineRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}

	return &run, nil
}

func cancelKey(runID string) string {
	return fmt.Sprintf("run:cancel:%s", runID)
}

func newAssemblyTask(runID string, payload model.AssemblyJobPayload) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	taskPayload := map[string]interface{}{
		"runId":   runID,
		"payload": json.RawMessage(payloadBytes),
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAssembly, data), nil
}
