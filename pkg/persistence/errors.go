// Package persistence provides standardized error types for storage
// operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrFlowNotFound indicates a flow was not found by the given identifier.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrExecutionNotFound indicates an execution was not found.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrArtifactNotFound indicates an artifact was not found.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrClaimConflict indicates another worker won the atomic claim race.
	// Not a failure: claimants observing it skip to the next candidate.
	ErrClaimConflict = errors.New("execution already claimed")

	// ErrArtifactConflict indicates the artifact was already finalized by a
	// different execution; the compare-and-set commit did not apply.
	ErrArtifactConflict = errors.New("artifact already finalized")

	// ErrDuplicateFeedItem indicates a feed item with the same natural
	// identity key already exists.
	ErrDuplicateFeedItem = errors.New("duplicate feed item")

	// ErrExecutionNotRunning indicates a guarded save found the execution no
	// longer running: a cancel or reset transitioned the record out from
	// under the worker, whose copy is now stale.
	ErrExecutionNotRunning = errors.New("execution is not running")
)

// ExecutionError wraps execution-related storage errors with context.
type ExecutionError struct {
	Op          string
	ExecutionID string
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for execution errors.
func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExecutionError creates a new execution storage error.
func NewExecutionError(op, executionID string, err error) *ExecutionError {
	return &ExecutionError{Op: op, ExecutionID: executionID, Err: err}
}

// IsClaimConflict checks whether err means the claim race was lost.
func IsClaimConflict(err error) bool {
	return errors.Is(err, ErrClaimConflict)
}

// IsFlowNotFound checks if an error indicates a flow was not found.
func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsArtifactNotFound checks if an error indicates an artifact was not found.
func IsArtifactNotFound(err error) bool {
	return errors.Is(err, ErrArtifactNotFound)
}

// IsArtifactConflict checks if an error indicates a lost result commit race.
func IsArtifactConflict(err error) bool {
	return errors.Is(err, ErrArtifactConflict)
}

// IsDuplicateFeedItem checks if an error indicates a natural-key duplicate.
func IsDuplicateFeedItem(err error) bool {
	return errors.Is(err, ErrDuplicateFeedItem)
}

// IsExecutionNotRunning checks whether err means a guarded save lost to an
// external cancel or reset.
func IsExecutionNotRunning(err error) bool {
	return errors.Is(err, ErrExecutionNotRunning)
}
