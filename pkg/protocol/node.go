// Package protocol defines the interfaces and contracts for flow node
// executors and the external capabilities they invoke.
package protocol

import (
	"context"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
)

// NodeOutput is the result of a single node execution.
type NodeOutput struct {
	// Delta holds context keys produced by the node; the run controller
	// merges it into the execution context and persists the merge before
	// advancing.
	Delta map[string]any

	// Branch disambiguates outgoing edges for branching nodes
	// (models.EdgeLabelTrue / models.EdgeLabelFalse). Empty for linear nodes.
	Branch string

	// Suspend requests that the run yield back to the scheduler and be
	// re-entered at this node later. The controller writes the execution's
	// resume context and returns it to pending.
	Suspend bool
}

// Node is a single executable unit of a flow graph.
//
// Executors must route all side effects through the returned Delta or a
// declared capability. Every implementation must be safe to re-run from a
// fresh entry with the same seed context: crash recovery restarts a
// reclaimed run from the graph entry node, so an executor's externally
// visible effects must overwrite, never accumulate.
type Node interface {
	ID() string
	Kind() models.NodeKind
	Execute(ctx context.Context, execution *models.Execution) (*NodeOutput, error)
}

// NodeFactory creates node instances from their stored configuration and
// provides the configuration schema used for validation at creation time.
type NodeFactory interface {
	Create(id string, config map[string]any) (Node, error)
	Kind() models.NodeKind
	Schema() map[string]any
}
