package linkcheck_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/nodes/linkcheck"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

type fakeChecker struct {
	status protocol.LinkStatus
	err    error
	calls  int
}

func (f *fakeChecker) Check(_ context.Context, _ string) (protocol.LinkStatus, error) {
	f.calls++

	return f.status, f.err
}

func TestNewNode_RequiresURLVar(t *testing.T) {
	_, err := linkcheck.NewNode("link-1", map[string]any{}, &fakeChecker{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url_var")
}

func TestExecute_MissingVariableFailsRun(t *testing.T) {
	node, err := linkcheck.NewNode("link-1", map[string]any{"url_var": "article_url"}, &fakeChecker{})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), models.NewExecution("flow-1", "", nil))
	require.Error(t, err)
	assert.True(t, protocol.IsMissingContextVariable(err))
}

func TestExecute_ReachableURL(t *testing.T) {
	checker := &fakeChecker{status: protocol.LinkStatus{Reachable: true, StatusCode: 200}}

	node, err := linkcheck.NewNode("link-1", map[string]any{"url_var": "article_url"}, checker)
	require.NoError(t, err)

	execution := models.NewExecution("flow-1", "", map[string]any{"article_url": "https://example.com/a"})

	output, err := node.Execute(context.Background(), execution)
	require.NoError(t, err)
	assert.Equal(t, true, output.Delta["link-1_reachable"])
	assert.Equal(t, 200, output.Delta["link-1_status_code"])
	assert.False(t, output.Suspend)
}

func TestExecute_NetworkErrorNonFatalByDefault(t *testing.T) {
	checker := &fakeChecker{err: errors.New("connection refused")}

	node, err := linkcheck.NewNode("link-1", map[string]any{"url_var": "article_url"}, checker)
	require.NoError(t, err)

	execution := models.NewExecution("flow-1", "", map[string]any{"article_url": "https://example.com/a"})

	output, err := node.Execute(context.Background(), execution)
	require.NoError(t, err)
	assert.Equal(t, false, output.Delta["link-1_reachable"])
	assert.Contains(t, output.Delta["link-1_error"], "connection refused")
}

func TestExecute_NetworkErrorFatalWhenBlocking(t *testing.T) {
	checker := &fakeChecker{err: errors.New("connection refused")}

	node, err := linkcheck.NewNode("link-1", map[string]any{
		"url_var":  "article_url",
		"blocking": true,
	}, checker)
	require.NoError(t, err)

	execution := models.NewExecution("flow-1", "", map[string]any{"article_url": "https://example.com/a"})

	_, err = node.Execute(context.Background(), execution)
	require.Error(t, err)

	var nodeErr *protocol.NodeExecutionError

	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, protocol.FaultNetwork, nodeErr.Kind)
}

func TestExecute_DeferSuspendsOnceThenProbes(t *testing.T) {
	checker := &fakeChecker{status: protocol.LinkStatus{Reachable: true, StatusCode: 204}}

	node, err := linkcheck.NewNode("link-1", map[string]any{
		"url_var": "article_url",
		"defer":   true,
	}, checker)
	require.NoError(t, err)

	execution := models.NewExecution("flow-1", "", map[string]any{"article_url": "https://example.com/a"})

	// First pass yields the run without probing.
	output, err := node.Execute(context.Background(), execution)
	require.NoError(t, err)
	assert.True(t, output.Suspend)
	assert.Equal(t, 0, checker.calls)

	// The controller merges the delta before suspending; simulate that.
	for k, v := range output.Delta {
		execution.Context[k] = v
	}

	// Re-entry sees the marker and performs the probe.
	output, err = node.Execute(context.Background(), execution)
	require.NoError(t, err)
	assert.False(t, output.Suspend)
	assert.Equal(t, 1, checker.calls)
	assert.Equal(t, 204, output.Delta["link-1_status_code"])
}
