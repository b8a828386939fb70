package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports every structural violation found in a flow
// definition. It is raised at flow-save time so malformed graphs never reach
// the run controller.
type ValidationError struct {
	FlowID     string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("flow %s is invalid: %s", e.FlowID, strings.Join(e.Violations, "; "))
}

// AmbiguousEntryError indicates the flow has zero or multiple entry
// candidates (nodes with no incoming edges).
type AmbiguousEntryError struct {
	FlowID     string
	Candidates []string
}

func (e *AmbiguousEntryError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("flow %s has no entry node", e.FlowID)
	}

	return fmt.Sprintf("flow %s has %d entry candidates: %s",
		e.FlowID, len(e.Candidates), strings.Join(e.Candidates, ", "))
}

// IsValidationError reports whether err is a flow validation error.
func IsValidationError(err error) bool {
	var valErr *ValidationError

	return errors.As(err, &valErr)
}

// IsAmbiguousEntry reports whether err is an ambiguous-entry error.
func IsAmbiguousEntry(err error) bool {
	var entryErr *AmbiguousEntryError

	return errors.As(err, &entryErr)
}
