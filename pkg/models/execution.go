package models

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus represents the lifecycle state of an execution.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// IsTerminal reports whether the status is a final state.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// ResumeContext captures the minimal state needed to re-enter a run
// mid-graph. It is written only on a deliberate suspend, never on a crash;
// crash recovery always restarts from the graph entry node.
type ResumeContext struct {
	NodeID  string         `json:"node_id"`
	Context map[string]any `json:"context,omitempty"`
}

// ExecutionLogEntry records one node step of an execution attempt.
type ExecutionLogEntry struct {
	NodeID  string    `json:"node_id"`
	Kind    NodeKind  `json:"kind"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// Execution is one instantiation of a flow against a specific input context.
//
// Invariants: StartedAt is set exactly once per attempt, on the
// pending->running transition; CompletedAt is set exactly once, on the
// transition into completed or failed. A watchdog or operator reset clears
// both (and the log) to erase the previous attempt's footprint, leaving
// Context intact.
type Execution struct {
	ID                string              `json:"id"`
	FlowID            string              `json:"flow_id"`
	UserID            string              `json:"user_id,omitempty"`
	Status            ExecutionStatus     `json:"status"`
	Context           map[string]any      `json:"context"`
	ArtifactID        *string             `json:"artifact_id,omitempty"`
	ParentExecutionID *string             `json:"parent_execution_id,omitempty"`
	ResumeContext     *ResumeContext      `json:"resume_context,omitempty"`
	StartedAt         *time.Time          `json:"started_at,omitempty"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
	HeartbeatAt       *time.Time          `json:"heartbeat_at,omitempty"`
	ErrorMessage      string              `json:"error_message,omitempty"`
	ExecutionLog      []ExecutionLogEntry `json:"execution_log,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

// NewExecution creates a pending execution for the given flow, seeded with
// the triggering context.
func NewExecution(flowID, userID string, seed map[string]any) *Execution {
	if seed == nil {
		seed = make(map[string]any)
	}

	return &Execution{
		ID:        GenerateExecutionID(),
		FlowID:    flowID,
		UserID:    userID,
		Status:    ExecutionStatusPending,
		Context:   seed,
		CreatedAt: time.Now().UTC(),
	}
}

// GenerateExecutionID generates a unique execution ID.
func GenerateExecutionID() string {
	return "exec-" + uuid.New().String()[:8]
}

// LivenessAt returns the most recent proof of life for a running execution:
// the later of StartedAt and HeartbeatAt.
func (e *Execution) LivenessAt() time.Time {
	var at time.Time
	if e.StartedAt != nil {
		at = *e.StartedAt
	}

	if e.HeartbeatAt != nil && e.HeartbeatAt.After(at) {
		at = *e.HeartbeatAt
	}

	return at
}

// AppendLog appends a step entry to the execution log.
func (e *Execution) AppendLog(nodeID string, kind NodeKind, message string) {
	e.ExecutionLog = append(e.ExecutionLog, ExecutionLogEntry{
		NodeID:  nodeID,
		Kind:    kind,
		Message: message,
		At:      time.Now().UTC(),
	})
}
