package model

import "time"

// AssemblyStartResponse is returned when a run has been accepted.
type AssemblyStartResponse struct {
	RunID     string    `json:"runId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// AssemblyStatusResponse is the polling snapshot for one run.
type AssemblyStatusResponse struct {
	RunID       string          `json:"runId"`
	Phase       RunPhase        `json:"phase"`
	Progress    int             `json:"progress"`
	CurrentStep string          `json:"currentStep,omitempty"`
	Error       *RunErrorDetail `json:"error,omitempty"`
	OutputRef   string          `json:"outputRef,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// AssemblyResultResponse describes the finished artifact of a completed run.
type AssemblyResultResponse struct {
	RunID           string    `json:"runId"`
	OutputRef       string    `json:"outputRef"`
	DurationSeconds float64   `json:"durationSeconds"`
	SizeBytes       int64     `json:"sizeBytes"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	FrameRate       int       `json:"frameRate"`
	CompletedAt     time.Time `json:"completedAt"`
}

// AssemblyCancelResponse acknowledges a cancellation request.
type AssemblyCancelResponse struct {
	Success bool   `json:"success"`
	RunID   string `json:"runId"`
}
