package model

import (
	"encoding/json"
	"time"
)

// RunPhase identifies where an assembly run is in its lifecycle. All but the
// two terminal phases are transient, visited at most once, strictly ordered.
type RunPhase string

const (
	PhaseQueued     RunPhase = "queued"
	PhaseLoading    RunPhase = "loading"
	PhasePreparing  RunPhase = "preparing"
	PhaseProcessing RunPhase = "processing"
	PhaseFinalizing RunPhase = "finalizing"
	PhaseCompleted  RunPhase = "completed"
	PhaseError      RunPhase = "error"
)

// Terminal reports whether the phase admits no further transitions.
func (p RunPhase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseError
}

// ErrorKind classifies why a run failed.
type ErrorKind string

const (
	ErrKindValidation  ErrorKind = "VALIDATION_FAILED"
	ErrKindEngine      ErrorKind = "ENGINE_UNAVAILABLE"
	ErrKindAssetWrite  ErrorKind = "ASSET_WRITE_FAILED"
	ErrKindEncodeStep  ErrorKind = "ENCODE_STEP_FAILED"
	ErrKindCancelled   ErrorKind = "CANCELLED"
	ErrKindTimedOut    ErrorKind = "TIMED_OUT"
)

// RunErrorDetail is the user-visible failure record. Only the structured kind,
// an optional step name and a human-readable message are exposed.
type RunErrorDetail struct {
	Kind    ErrorKind `json:"kind"`
	Step    string    `json:"step,omitempty"`
	Message string    `json:"message"`
}

// PipelineRun is the mutable record for one submitted asset set. It is written
// only by the assembly worker that owns the run; everyone else reads
// snapshots. Once Phase is terminal the record no longer changes.
type PipelineRun struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"projectId"`
	Name        string          `json:"name"`
	Phase       RunPhase        `json:"phase"`
	Progress    int             `json:"progress"`
	CurrentStep string          `json:"currentStep,omitempty"`
	Error       *RunErrorDetail `json:"error,omitempty"`
	OutputRef   string          `json:"outputRef,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// AssemblyJobPayload travels inside the queued task and references the staged
// input blobs by storage key. Image order is significant and preserved.
type AssemblyJobPayload struct {
	ProjectID    string   `json:"projectId"`
	Name         string   `json:"name"`
	ImageKeys    []string `json:"imageKeys"`
	NarrationKey string   `json:"narrationKey"`
	ThumbnailKey string   `json:"thumbnailKey,omitempty"`
	SoundtrackID string   `json:"soundtrackId,omitempty"`
	FilterID     string   `json:"filterId,omitempty"`
}
