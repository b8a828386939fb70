package terminal_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/nodes/terminal"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

func TestExecute_NoResultVar(t *testing.T) {
	node, err := terminal.NewNode("end", map[string]any{})
	require.NoError(t, err)

	output, err := node.Execute(context.Background(), models.NewExecution("flow-1", "", nil))
	require.NoError(t, err)
	assert.Empty(t, output.Delta)
	assert.False(t, output.Suspend)
}

func TestExecute_CopiesResultVarIntoResultSlot(t *testing.T) {
	node, err := terminal.NewNode("end", map[string]any{"result_var": "summary"})
	require.NoError(t, err)

	payload := map[string]any{"text": "all quiet", "score": 0.2}
	execution := models.NewExecution("flow-1", "", map[string]any{"summary": payload})

	output, err := node.Execute(context.Background(), execution)
	require.NoError(t, err)
	assert.Equal(t, payload, output.Delta[terminal.ResultKey])
}

func TestExecute_WrapsScalarResult(t *testing.T) {
	node, err := terminal.NewNode("end", map[string]any{"result_var": "score"})
	require.NoError(t, err)

	execution := models.NewExecution("flow-1", "", map[string]any{"score": 0.87})

	output, err := node.Execute(context.Background(), execution)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"value": 0.87}, output.Delta[terminal.ResultKey])
}

func TestExecute_WrapsListResult(t *testing.T) {
	node, err := terminal.NewNode("end", map[string]any{"result_var": "links"})
	require.NoError(t, err)

	links := []any{"https://a.example", "https://b.example"}
	execution := models.NewExecution("flow-1", "", map[string]any{"links": links})

	output, err := node.Execute(context.Background(), execution)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"value": links}, output.Delta[terminal.ResultKey])
}

func TestExecute_ConfiguredButAbsentVariableFails(t *testing.T) {
	node, err := terminal.NewNode("end", map[string]any{"result_var": "summary"})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), models.NewExecution("flow-1", "", nil))
	require.Error(t, err)
	assert.True(t, protocol.IsMissingContextVariable(err))
}
