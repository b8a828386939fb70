package conditional

import (
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

// Factory creates conditional nodes.
type Factory struct{}

// NewFactory creates a conditional node factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create creates a conditional node instance.
func (f *Factory) Create(id string, config map[string]any) (protocol.Node, error) {
	return NewNode(id, config)
}

// Kind returns the node kind this factory produces.
func (f *Factory) Kind() models.NodeKind {
	return models.NodeKindConditional
}

// Schema returns the JSON schema for conditional node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"source": map[string]any{
				"type":        "string",
				"description": "Name of the context variable to compare",
			},
			"operator": map[string]any{
				"type": "string",
				"enum": []any{
					OperatorEq, OperatorNeq, OperatorGt, OperatorGte,
					OperatorLt, OperatorLte, OperatorContains, OperatorExists,
				},
			},
			"value": map[string]any{
				"description": "Literal to compare the source variable against",
			},
		},
		"required": []any{"source", "operator"},
	}
}
