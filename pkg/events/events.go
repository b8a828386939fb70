// Package events defines the execution lifecycle notifications published on
// the event bus. Consumers observe state transitions; the authoritative state
// always lives in the store.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the bus topic carrying execution lifecycle events.
const Topic = "warroom.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionCreatedEvent   EventType = "execution.created"
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionSuspendedEvent EventType = "execution.suspended"
	ExecutionResetEvent     EventType = "execution.reset"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	FlowID    string         `json:"flow_id"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type ExecutionCreated struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e ExecutionCreated) GetType() EventType {
	return ExecutionCreatedEvent
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	Result      map[string]any `json:"result,omitempty"`
	DurationMs  int64          `json:"duration_ms"`
	StepsRun    int            `json:"steps_run"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id,omitempty"`
	Error       string `json:"error"`
	DurationMs  int64  `json:"duration_ms"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionSuspended struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	Reason      string `json:"reason,omitempty"`
}

func (e ExecutionSuspended) GetType() EventType {
	return ExecutionSuspendedEvent
}

type ExecutionReset struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Reason      string `json:"reason"`
	ResetBy     string `json:"reset_by,omitempty"`
}

func (e ExecutionReset) GetType() EventType {
	return ExecutionResetEvent
}

func NewBaseEvent(eventType EventType, flowID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		FlowID:    flowID,
		Metadata:  make(map[string]any),
	}
}
