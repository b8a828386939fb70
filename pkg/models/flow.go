// Package models defines the core domain models for graph-based flow execution.
package models

import "time"

// NodeKind identifies the behavior variant of a flow node.
type NodeKind string

const (
	NodeKindScript            NodeKind = "script"
	NodeKindAI                NodeKind = "ai"
	NodeKindConditional       NodeKind = "conditional"
	NodeKindLinkCheck         NodeKind = "link_check"
	NodeKindMediaOutletFilter NodeKind = "media_outlet_filter"
	NodeKindTerminal          NodeKind = "terminal"
)

// KnownNodeKinds lists every node kind the engine can execute.
var KnownNodeKinds = []NodeKind{
	NodeKindScript,
	NodeKindAI,
	NodeKindConditional,
	NodeKindLinkCheck,
	NodeKindMediaOutletFilter,
	NodeKindTerminal,
}

// IsKnownNodeKind reports whether kind is one of the executable node kinds.
func IsKnownNodeKind(kind NodeKind) bool {
	for _, k := range KnownNodeKinds {
		if k == kind {
			return true
		}
	}

	return false
}

// Edge labels used to disambiguate conditional branches.
const (
	EdgeLabelTrue  = "true"
	EdgeLabelFalse = "false"
)

// Flow represents a stored graph definition of nodes and edges.
//
// A flow is owned by its creator and is treated as immutable once referenced
// by a running execution: the run controller snapshots the graph at start, so
// structural edits never affect in-flight runs.
type Flow struct {
	ID         string      `json:"id"`
	Owner      string      `json:"owner"`
	Name       string      `json:"name"        validate:"required,min=3"`
	Active     bool        `json:"active"`
	IsTemplate bool        `json:"is_template"`
	Nodes      []*FlowNode `json:"nodes"`
	Edges      []*Edge     `json:"edges"`
	// Schedule holds an optional cron expression; active flows with a
	// schedule are activated by the schedule trigger.
	Schedule  string    `json:"schedule,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FlowNode is a single typed processing node inside a flow.
type FlowNode struct {
	ID     string         `json:"id"   validate:"required"`
	Kind   NodeKind       `json:"kind" validate:"required"`
	Config map[string]any `json:"config"`
}

// Edge is a directed connection between two nodes of the same flow. Label
// disambiguates conditional branches ("true"/"false").
type Edge struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Label  string `json:"label,omitempty"`
}
