// Package script provides the node that runs caller-supplied logic against
// the execution context inside the script sandbox capability.
package script

import (
	"context"
	"errors"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

const defaultResultKey = "script_result"

// Node executes a stored script source through the sandbox capability. A
// timeout or unhandled fault is classified as a script fault and aborts the
// run.
type Node struct {
	id        string
	source    string
	resultKey string
	sandbox   protocol.ScriptSandbox
}

// NewNode creates a script node from its stored configuration.
func NewNode(id string, config map[string]any, sandbox protocol.ScriptSandbox) (*Node, error) {
	source, ok := config["source"].(string)
	if !ok || source == "" {
		return nil, errors.New("missing required field 'source'")
	}

	resultKey, _ := config["result_key"].(string)
	if resultKey == "" {
		resultKey = defaultResultKey
	}

	return &Node{
		id:        id,
		source:    source,
		resultKey: resultKey,
		sandbox:   sandbox,
	}, nil
}

// ID returns the node ID.
func (n *Node) ID() string {
	return n.id
}

// Kind returns the node kind.
func (n *Node) Kind() models.NodeKind {
	return models.NodeKindScript
}

// Execute runs the script against a copy of the current context. A map
// result is merged into the context wholesale; any other value lands under
// the configured result key.
func (n *Node) Execute(ctx context.Context, execution *models.Execution) (*protocol.NodeOutput, error) {
	env := make(map[string]any, len(execution.Context))
	for k, v := range execution.Context {
		env[k] = v
	}

	value, err := n.sandbox.Run(ctx, n.source, env)
	if err != nil {
		return nil, protocol.NewNodeExecutionError(n.id, protocol.FaultScript, err)
	}

	delta := map[string]any{}
	if asMap, ok := value.(map[string]any); ok {
		for k, v := range asMap {
			delta[k] = v
		}
	} else {
		delta[n.resultKey] = value
	}

	return &protocol.NodeOutput{Delta: delta}, nil
}
