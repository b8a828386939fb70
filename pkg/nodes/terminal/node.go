// Package terminal provides the node that closes a run and selects its
// result payload. The run controller commits the result to the owning
// artifact when a run reaches a node with no successors.
package terminal

import (
	"context"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

// ResultKey is the context key the run controller reads the final result
// payload from.
const ResultKey = "result"

// Node copies the configured context variable (or, absent configuration,
// nothing) into the result slot.
type Node struct {
	id        string
	resultVar string
}

// NewNode creates a terminal node from its stored configuration.
func NewNode(id string, config map[string]any) (*Node, error) {
	resultVar, _ := config["result_var"].(string)

	return &Node{id: id, resultVar: resultVar}, nil
}

// ID returns the node ID.
func (n *Node) ID() string {
	return n.id
}

// Kind returns the node kind.
func (n *Node) Kind() models.NodeKind {
	return models.NodeKindTerminal
}

// Execute selects the result payload. A configured but absent result
// variable fails the run rather than committing an empty result. Scalar and
// list payloads are wrapped under "value" so the committed result is always
// an object.
func (n *Node) Execute(_ context.Context, execution *models.Execution) (*protocol.NodeOutput, error) {
	if n.resultVar == "" {
		return &protocol.NodeOutput{}, nil
	}

	value, present := execution.Context[n.resultVar]
	if !present {
		return nil, protocol.NewMissingContextVariableError(n.id, n.resultVar)
	}

	result, ok := value.(map[string]any)
	if !ok {
		result = map[string]any{"value": value}
	}

	return &protocol.NodeOutput{
		Delta: map[string]any{ResultKey: result},
	}, nil
}
