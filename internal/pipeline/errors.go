package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrRunComplete    = errors.New("RUN_COMPLETE")
	ErrInvalidRequest = errors.New("INVALID_RUN_REQUEST")
)

// StageFailure halts a run when an analyzer fails or returns output that
// violates its schema.
type StageFailure struct {
	Stage    Stage
	Analyzer string
	Cause    string
	Err      error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("%s stage failed: %s", e.Analyzer, e.Cause)
}

func (e *StageFailure) Unwrap() error { return e.Err }

// SystemFailure is a fault in the orchestrator itself, such as a missing
// prior-stage output.
type SystemFailure struct {
	Stage Stage
	Err   error
}

func (e *SystemFailure) Error() string {
	return fmt.Sprintf("system failure at %s: %v", e.Stage, e.Err)
}

func (e *SystemFailure) Unwrap() error { return e.Err }
