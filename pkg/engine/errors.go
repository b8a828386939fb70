package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrStepLimitExceeded indicates a run walked more node steps than the
	// configured ceiling, which in practice means the graph cycles.
	ErrStepLimitExceeded = errors.New("step limit exceeded")

	// ErrExecutionNotClaimed indicates Run was asked to drive an execution
	// that is not in the running state.
	ErrExecutionNotClaimed = errors.New("execution is not claimed")

	// ErrExecutionFinished indicates an operation targeted an execution that
	// already reached a terminal status.
	ErrExecutionFinished = errors.New("execution already finished")
)

// StepLimitError reports a run aborted by the step ceiling.
type StepLimitError struct {
	ExecutionID string
	Limit       int
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("execution %s exceeded step limit of %d", e.ExecutionID, e.Limit)
}

// Is matches StepLimitError against the ErrStepLimitExceeded sentinel.
func (e *StepLimitError) Is(target error) bool {
	return target == ErrStepLimitExceeded
}

// IsStepLimitExceeded checks whether err means a run hit the step ceiling.
func IsStepLimitExceeded(err error) bool {
	return errors.Is(err, ErrStepLimitExceeded)
}

// IsExecutionFinished checks whether err means the execution already reached
// a terminal status.
func IsExecutionFinished(err error) bool {
	return errors.Is(err, ErrExecutionFinished)
}
