// Package ai provides the node that renders a prompt from the run context
// and invokes the inference capability.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/template"
)

const defaultResultKey = "ai_result"

// Node formats its pre-prompt and prompt templates with context variables,
// calls the model capability, and merges the response into the context under
// the configured key.
type Node struct {
	id        string
	model     string
	prompt    string
	prePrompt string
	resultKey string
	provider  protocol.InferenceProvider
}

// NewNode creates an AI node from its stored configuration. A malformed or
// empty model identifier fails here, before any network call is possible.
func NewNode(id string, config map[string]any, provider protocol.InferenceProvider) (*Node, error) {
	model, _ := config["model"].(string)
	if strings.TrimSpace(model) == "" {
		return nil, protocol.NewConfigError(id, "model", "model identifier must be a non-empty string")
	}

	prompt, ok := config["prompt"].(string)
	if !ok || prompt == "" {
		return nil, errors.New("missing required field 'prompt'")
	}

	prePrompt, _ := config["pre_prompt"].(string)

	resultKey, _ := config["result_key"].(string)
	if resultKey == "" {
		resultKey = defaultResultKey
	}

	return &Node{
		id:        id,
		model:     model,
		prompt:    prompt,
		prePrompt: prePrompt,
		resultKey: resultKey,
		provider:  provider,
	}, nil
}

// ID returns the node ID.
func (n *Node) ID() string {
	return n.id
}

// Kind returns the node kind.
func (n *Node) Kind() models.NodeKind {
	return models.NodeKindAI
}

// Execute renders the prompts against the execution context and calls the
// provider. Provider failures abort the run as a provider fault.
func (n *Node) Execute(ctx context.Context, execution *models.Execution) (*protocol.NodeOutput, error) {
	rendered, err := n.renderPrompt(execution)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", n.id, err)
	}

	text, err := n.provider.Generate(ctx, n.model, rendered)
	if err != nil {
		return nil, protocol.NewNodeExecutionError(n.id, protocol.FaultProvider, err)
	}

	return &protocol.NodeOutput{
		Delta: map[string]any{n.resultKey: text},
	}, nil
}

func (n *Node) renderPrompt(execution *models.Execution) (string, error) {
	var parts []string

	if n.prePrompt != "" {
		pre, err := template.RenderWithExecution(n.prePrompt, execution)
		if err != nil {
			return "", err
		}

		parts = append(parts, pre)
	}

	main, err := template.RenderWithExecution(n.prompt, execution)
	if err != nil {
		return "", err
	}

	parts = append(parts, main)

	return strings.Join(parts, "\n\n"), nil
}
