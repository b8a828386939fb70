package ai

import (
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

// Factory creates AI nodes bound to an inference provider.
type Factory struct {
	provider protocol.InferenceProvider
}

// NewFactory creates an AI node factory.
func NewFactory(provider protocol.InferenceProvider) *Factory {
	return &Factory{provider: provider}
}

// Create creates an AI node instance.
func (f *Factory) Create(id string, config map[string]any) (protocol.Node, error) {
	return NewNode(id, config, f.provider)
}

// Kind returns the node kind this factory produces.
func (f *Factory) Kind() models.NodeKind {
	return models.NodeKindAI
}

// Schema returns the JSON schema for AI node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"model": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Model identifier passed to the inference provider",
			},
			"prompt": map[string]any{
				"type":        "string",
				"description": "Prompt template; context variables available as {{.context.name}}",
			},
			"pre_prompt": map[string]any{
				"type":        "string",
				"description": "Optional preamble rendered before the prompt",
			},
			"result_key": map[string]any{
				"type":        "string",
				"description": "Context key for the model response (default ai_result)",
			},
		},
		"required": []any{"model", "prompt"},
	}
}
