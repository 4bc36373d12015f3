package assembly

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/slidereel/api/internal/model"
)

// ValidationError reports every unmet constraint of a candidate asset set,
// keyed by field name. It is returned synchronously to the caller and never
// enters the pipeline state machine.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, constraint := range e.Fields {
		parts = append(parts, field+": "+constraint)
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

// RunError is a failure that transitions a run to the terminal error state.
type RunError struct {
	Kind model.ErrorKind
	Step string
	Name string
	Err  error
}

func (e *RunError) Error() string {
	msg := string(e.Kind)
	if e.Step != "" {
		msg += " step=" + e.Step
	}
	if e.Name != "" {
		msg += " name=" + e.Name
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RunError) Unwrap() error { return e.Err }

// Detail builds the user-visible failure record: structured kind, optional
// step name and a human-readable reason. Engine internals stay in the logs.
func (e *RunError) Detail() *model.RunErrorDetail {
	var msg string
	switch e.Kind {
	case model.ErrKindEngine:
		msg = "encoding engine unavailable"
	case model.ErrKindAssetWrite:
		msg = fmt.Sprintf("failed to stage asset %q", e.Name)
	case model.ErrKindEncodeStep:
		msg = fmt.Sprintf("encode step %q failed", e.Step)
	case model.ErrKindCancelled:
		msg = "run cancelled"
	case model.ErrKindTimedOut:
		msg = "run exceeded its deadline"
	default:
		msg = "run failed"
	}
	return &model.RunErrorDetail{Kind: e.Kind, Step: e.Step, Message: msg}
}

func engineUnavailable(err error) *RunError {
	return &RunError{Kind: model.ErrKindEngine, Err: err}
}

func assetWriteFailed(name string, err error) *RunError {
	return &RunError{Kind: model.ErrKindAssetWrite, Name: name, Err: err}
}

func encodeStepFailed(step Step, err error) *RunError {
	if isInterrupt(err) {
		return interrupted(err, step)
	}
	return &RunError{Kind: model.ErrKindEncodeStep, Step: string(step), Err: err}
}

// interrupted maps a context error (or an explicit cancel request, err nil)
// onto the Cancelled/TimedOut kinds.
func interrupted(err error, step Step) *RunError {
	kind := model.ErrKindCancelled
	if errors.Is(err, context.DeadlineExceeded) {
		kind = model.ErrKindTimedOut
	}
	return &RunError{Kind: kind, Step: string(step), Err: err}
}

func isInterrupt(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
