// Package protocol provides the shared error taxonomy for node execution.
package protocol

import (
	"errors"
	"fmt"
)

// FaultKind classifies node execution failures.
type FaultKind string

const (
	// FaultScript indicates a sandbox timeout or unhandled script fault.
	FaultScript FaultKind = "script_fault"

	// FaultProvider indicates an inference provider failure (quota, invalid
	// model, provider timeout).
	FaultProvider FaultKind = "provider_failure"

	// FaultNetwork indicates a network failure reaching an external service.
	FaultNetwork FaultKind = "network_failure"
)

// NodeExecutionError wraps a node failure with its fault classification.
// These errors abort the run and are persisted as the execution's error
// message; they are never retried mid-graph.
type NodeExecutionError struct {
	NodeID string
	Kind   FaultKind
	Err    error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %s failed (%s): %v", e.NodeID, e.Kind, e.Err)
}

func (e *NodeExecutionError) Unwrap() error {
	return e.Err
}

// NewNodeExecutionError creates a classified node execution error.
func NewNodeExecutionError(nodeID string, kind FaultKind, err error) *NodeExecutionError {
	return &NodeExecutionError{NodeID: nodeID, Kind: kind, Err: err}
}

// ConfigError indicates a bad node configuration, detected before any
// external call is made.
type ConfigError struct {
	NodeID string
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("node %s has invalid configuration for %q: %s", e.NodeID, e.Field, e.Reason)
}

// NewConfigError creates a node configuration error.
func NewConfigError(nodeID, field, reason string) *ConfigError {
	return &ConfigError{NodeID: nodeID, Field: field, Reason: reason}
}

// MissingContextVariableError indicates a node referenced a context variable
// that was absent at entry. Nodes fail with this rather than silently
// defaulting.
type MissingContextVariableError struct {
	NodeID   string
	Variable string
}

func (e *MissingContextVariableError) Error() string {
	return fmt.Sprintf("node %s requires context variable %q which is not set", e.NodeID, e.Variable)
}

// NewMissingContextVariableError creates a missing-variable error.
func NewMissingContextVariableError(nodeID, variable string) *MissingContextVariableError {
	return &MissingContextVariableError{NodeID: nodeID, Variable: variable}
}

// IsNodeExecutionError reports whether err is a classified node failure, and
// returns it if so.
func IsNodeExecutionError(err error) (*NodeExecutionError, bool) {
	var nodeErr *NodeExecutionError
	if errors.As(err, &nodeErr) {
		return nodeErr, true
	}

	return nil, false
}

// IsConfigError reports whether err is a node configuration error.
func IsConfigError(err error) bool {
	var confErr *ConfigError

	return errors.As(err, &confErr)
}

// IsMissingContextVariable reports whether err is a missing-variable error.
func IsMissingContextVariable(err error) bool {
	var missErr *MissingContextVariableError

	return errors.As(err, &missErr)
}
