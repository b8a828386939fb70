package terminal

import (
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

// Factory creates terminal nodes.
type Factory struct{}

// NewFactory creates a terminal node factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create creates a terminal node instance.
func (f *Factory) Create(id string, config map[string]any) (protocol.Node, error) {
	return NewNode(id, config)
}

// Kind returns the node kind this factory produces.
func (f *Factory) Kind() models.NodeKind {
	return models.NodeKindTerminal
}

// Schema returns the JSON schema for terminal node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"result_var": map[string]any{
				"type":        "string",
				"description": "Context variable committed as the processing result",
			},
		},
	}
}
