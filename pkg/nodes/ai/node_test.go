package ai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/nodes/ai"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

type fakeProvider struct {
	lastModel  string
	lastPrompt string
	response   string
	err        error
}

func (f *fakeProvider) Generate(_ context.Context, model, prompt string) (string, error) {
	f.lastModel = model
	f.lastPrompt = prompt

	return f.response, f.err
}

func TestNewNode_EmptyModelFailsBeforeAnyCall(t *testing.T) {
	for _, model := range []any{"", "   ", nil, 42} {
		_, err := ai.NewNode("ai-1", map[string]any{
			"model":  model,
			"prompt": "Summarize {{ .context.topic }}",
		}, &fakeProvider{})
		require.Error(t, err)
		assert.True(t, protocol.IsConfigError(err), "model %v should be rejected as config error", model)
	}
}

func TestNewNode_RequiresPrompt(t *testing.T) {
	_, err := ai.NewNode("ai-1", map[string]any{"model": "gpt-4o"}, &fakeProvider{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt")
}

func TestExecute_RendersPromptFromContext(t *testing.T) {
	provider := &fakeProvider{response: "summary text"}

	node, err := ai.NewNode("ai-1", map[string]any{
		"model":      "gpt-4o",
		"pre_prompt": "You are a media analyst.",
		"prompt":     "Summarize coverage about {{ .context.topic }}.",
	}, provider)
	require.NoError(t, err)

	execution := models.NewExecution("flow-1", "", map[string]any{"topic": "water shortage"})

	output, err := node.Execute(context.Background(), execution)
	require.NoError(t, err)
	assert.Equal(t, "summary text", output.Delta["ai_result"])
	assert.Equal(t, "gpt-4o", provider.lastModel)
	assert.Equal(t, "You are a media analyst.\n\nSummarize coverage about water shortage.", provider.lastPrompt)
}

func TestExecute_ProviderFailureIsProviderFault(t *testing.T) {
	provider := &fakeProvider{err: errors.New("upstream 503")}

	node, err := ai.NewNode("ai-1", map[string]any{
		"model":  "gpt-4o",
		"prompt": "Summarize.",
	}, provider)
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), models.NewExecution("flow-1", "", nil))
	require.Error(t, err)

	var nodeErr *protocol.NodeExecutionError

	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, protocol.FaultProvider, nodeErr.Kind)
}

func TestExecute_CustomResultKey(t *testing.T) {
	provider := &fakeProvider{response: "ok"}

	node, err := ai.NewNode("ai-1", map[string]any{
		"model":      "gpt-4o",
		"prompt":     "Classify.",
		"result_key": "classification",
	}, provider)
	require.NoError(t, err)

	output, err := node.Execute(context.Background(), models.NewExecution("flow-1", "", nil))
	require.NoError(t, err)
	assert.Equal(t, "ok", output.Delta["classification"])
}
