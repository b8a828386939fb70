package linkcheck

import (
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

// Factory creates link_check nodes bound to a link checker capability.
type Factory struct {
	checker protocol.LinkChecker
}

// NewFactory creates a link_check node factory.
func NewFactory(checker protocol.LinkChecker) *Factory {
	return &Factory{checker: checker}
}

// Create creates a link_check node instance.
func (f *Factory) Create(id string, config map[string]any) (protocol.Node, error) {
	return NewNode(id, config, f.checker)
}

// Kind returns the node kind this factory produces.
func (f *Factory) Kind() models.NodeKind {
	return models.NodeKindLinkCheck
}

// Schema returns the JSON schema for link_check node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url_var": map[string]any{
				"type":        "string",
				"description": "Context variable holding the URL to probe",
			},
			"blocking": map[string]any{
				"type":        "boolean",
				"description": "Treat a network error as fatal to the run",
			},
			"defer": map[string]any{
				"type":        "boolean",
				"description": "Suspend the run once before probing",
			},
		},
		"required": []any{"url_var"},
	}
}
