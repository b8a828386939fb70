package web

import "github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"

// CreateFlowRequest is the POST /flows payload.
type CreateFlowRequest struct {
	ID       string             `json:"id"`
	Owner    string             `json:"owner"    validate:"required"`
	Name     string             `json:"name"     validate:"required,min=3"`
	Active   bool               `json:"active"`
	Schedule string             `json:"schedule"`
	Nodes    []*models.FlowNode `json:"nodes"    validate:"required,min=1"`
	Edges    []*models.Edge     `json:"edges"`
}

// TriggerExecutionRequest is the POST /executions payload.
type TriggerExecutionRequest struct {
	FlowID     string         `json:"flow_id"     validate:"required"`
	UserID     string         `json:"user_id"`
	ArtifactID string         `json:"artifact_id"`
	Context    map[string]any `json:"context"`
}

// CancelExecutionRequest is the POST /executions/:id/cancel payload.
type CancelExecutionRequest struct {
	Reason      string `json:"reason"`
	CancelledBy string `json:"cancelled_by"`
}
