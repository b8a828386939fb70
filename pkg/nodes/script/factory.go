package script

import (
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

// Factory creates script nodes bound to a sandbox capability.
type Factory struct {
	sandbox protocol.ScriptSandbox
}

// NewFactory creates a script node factory.
func NewFactory(sandbox protocol.ScriptSandbox) *Factory {
	return &Factory{sandbox: sandbox}
}

// Create creates a script node instance.
func (f *Factory) Create(id string, config map[string]any) (protocol.Node, error) {
	return NewNode(id, config, f.sandbox)
}

// Kind returns the node kind this factory produces.
func (f *Factory) Kind() models.NodeKind {
	return models.NodeKindScript
}

// Schema returns the JSON schema for script node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"source": map[string]any{
				"type":        "string",
				"description": "Script source evaluated against the run context",
			},
			"result_key": map[string]any{
				"type":        "string",
				"description": "Context key for a non-map result (default script_result)",
			},
		},
		"required": []any{"source"},
	}
}
