package mediafilter

import (
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

// Factory creates media_outlet_filter nodes.
type Factory struct{}

// NewFactory creates a media_outlet_filter node factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create creates a media_outlet_filter node instance.
func (f *Factory) Create(id string, config map[string]any) (protocol.Node, error) {
	return NewNode(id, config)
}

// Kind returns the node kind this factory produces.
func (f *Factory) Kind() models.NodeKind {
	return models.NodeKindMediaOutletFilter
}

// Schema returns the JSON schema for media_outlet_filter configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mode": map[string]any{
				"type": "string",
				"enum": []any{ModeInclude, ModeExclude},
			},
			"items_var": map[string]any{
				"type":        "string",
				"description": "Context variable holding the item list",
			},
			"outlets": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"result_key": map[string]any{
				"type":        "string",
				"description": "Context key for the filtered list (default filtered_items)",
			},
		},
		"required": []any{"mode", "items_var", "outlets"},
	}
}
