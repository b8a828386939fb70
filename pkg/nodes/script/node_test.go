package script_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sandbox "github.com/paulosouza17/elege-ai-war-room-sub005/pkg/capabilities/script"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/nodes/script"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

func newSandbox(t *testing.T) *sandbox.Sandbox {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	return sandbox.NewSandbox(0, logger)
}

func TestNewNode_RequiresSource(t *testing.T) {
	_, err := script.NewNode("script-1", map[string]any{}, newSandbox(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source")
}

func TestExecute_ScalarResultUnderResultKey(t *testing.T) {
	node, err := script.NewNode("script-1", map[string]any{
		"source": "mentions * 2",
	}, newSandbox(t))
	require.NoError(t, err)

	execution := models.NewExecution("flow-1", "", map[string]any{"mentions": 21})

	output, err := node.Execute(context.Background(), execution)
	require.NoError(t, err)
	assert.Equal(t, 42, output.Delta["script_result"])
}

func TestExecute_CustomResultKey(t *testing.T) {
	node, err := script.NewNode("script-1", map[string]any{
		"source":     `upper(name)`,
		"result_key": "shout",
	}, newSandbox(t))
	require.NoError(t, err)

	execution := models.NewExecution("flow-1", "", map[string]any{"name": "crisis"})

	output, err := node.Execute(context.Background(), execution)
	require.NoError(t, err)
	assert.Equal(t, "CRISIS", output.Delta["shout"])
}

func TestExecute_MapResultMergesWholesale(t *testing.T) {
	node, err := script.NewNode("script-1", map[string]any{
		"source": `{"score": hits * 10, "grade": "high"}`,
	}, newSandbox(t))
	require.NoError(t, err)

	execution := models.NewExecution("flow-1", "", map[string]any{"hits": 3})

	output, err := node.Execute(context.Background(), execution)
	require.NoError(t, err)
	assert.Equal(t, 30, output.Delta["score"])
	assert.Equal(t, "high", output.Delta["grade"])
}

func TestExecute_CompileFaultIsScriptFault(t *testing.T) {
	node, err := script.NewNode("script-1", map[string]any{
		"source": "1 +",
	}, newSandbox(t))
	require.NoError(t, err)

	execution := models.NewExecution("flow-1", "", nil)

	_, err = node.Execute(context.Background(), execution)
	require.Error(t, err)
	_, ok := protocol.IsNodeExecutionError(err)
	require.True(t, ok)

	var nodeErr *protocol.NodeExecutionError

	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, protocol.FaultScript, nodeErr.Kind)
}

func TestExecute_DoesNotMutateContext(t *testing.T) {
	node, err := script.NewNode("script-1", map[string]any{
		"source": "value + 1",
	}, newSandbox(t))
	require.NoError(t, err)

	execution := models.NewExecution("flow-1", "", map[string]any{"value": 1})

	_, err = node.Execute(context.Background(), execution)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"value": 1}, execution.Context)
}
