package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/graph"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
)

func linearFlow() *models.Flow {
	return &models.Flow{
		ID: "flow-1",
		Nodes: []*models.FlowNode{
			{ID: "start", Kind: models.NodeKindScript, Config: map[string]any{"source": "1"}},
			{ID: "check", Kind: models.NodeKindConditional},
			{ID: "yes", Kind: models.NodeKindTerminal},
			{ID: "no", Kind: models.NodeKindTerminal},
		},
		Edges: []*models.Edge{
			{Source: "start", Target: "check"},
			{Source: "check", Target: "yes", Label: models.EdgeLabelTrue},
			{Source: "check", Target: "no", Label: models.EdgeLabelFalse},
		},
	}
}

func TestLoad_ValidFlow(t *testing.T) {
	g, err := graph.Load(linearFlow())
	require.NoError(t, err)
	assert.Equal(t, 4, g.Len())

	entry, err := g.EntryNode()
	require.NoError(t, err)
	assert.Equal(t, "start", entry)
}

func TestLoad_CollectsAllViolations(t *testing.T) {
	flow := &models.Flow{
		ID: "flow-broken",
		Nodes: []*models.FlowNode{
			{ID: "a", Kind: "mystery"},
			{ID: "a", Kind: models.NodeKindScript},
			{ID: "", Kind: models.NodeKindTerminal},
		},
		Edges: []*models.Edge{
			{Source: "a", Target: "ghost"},
		},
	}

	_, err := graph.Load(flow)
	require.Error(t, err)
	require.True(t, graph.IsValidationError(err))

	var validationErr *graph.ValidationError

	require.ErrorAs(t, err, &validationErr)
	assert.GreaterOrEqual(t, len(validationErr.Violations), 3)
}

func TestLoad_ConditionalBranchInvariant(t *testing.T) {
	flow := linearFlow()
	// Drop the false branch: the conditional now has only one outgoing edge.
	flow.Edges = flow.Edges[:2]
	flow.Nodes = flow.Nodes[:3]

	_, err := graph.Load(flow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one true and one false branch")
}

func TestLoad_TerminalWithOutgoingEdge(t *testing.T) {
	flow := linearFlow()
	flow.Edges = append(flow.Edges, &models.Edge{Source: "yes", Target: "no"})

	_, err := graph.Load(flow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outgoing edges")
}

func TestLoad_EmptyFlow(t *testing.T) {
	_, err := graph.Load(&models.Flow{ID: "flow-empty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no nodes")
}

func TestEntryNode_AmbiguousWithTwoRoots(t *testing.T) {
	flow := &models.Flow{
		ID: "flow-two-roots",
		Nodes: []*models.FlowNode{
			{ID: "a", Kind: models.NodeKindScript},
			{ID: "b", Kind: models.NodeKindScript},
			{ID: "end", Kind: models.NodeKindTerminal},
		},
		Edges: []*models.Edge{
			{Source: "a", Target: "end"},
			{Source: "b", Target: "end"},
		},
	}

	g, err := graph.Load(flow)
	require.NoError(t, err)

	_, err = g.EntryNode()
	require.Error(t, err)
	assert.True(t, graph.IsAmbiguousEntry(err))
}

func TestSuccessors_BranchFiltering(t *testing.T) {
	g, err := graph.Load(linearFlow())
	require.NoError(t, err)

	assert.Equal(t, []string{"yes"}, g.Successors("check", models.EdgeLabelTrue))
	assert.Equal(t, []string{"no"}, g.Successors("check", models.EdgeLabelFalse))
	assert.Equal(t, []string{"check"}, g.Successors("start", ""))
	assert.Empty(t, g.Successors("yes", ""))
}

func TestLoad_SnapshotIsolation(t *testing.T) {
	flow := linearFlow()
	flow.Nodes[0].Config = map[string]any{"source": "1 + 1"}

	g, err := graph.Load(flow)
	require.NoError(t, err)

	// Mutating the flow after load must not leak into the graph.
	flow.Nodes[0].Config["source"] = "changed"

	node, ok := g.Node("start")
	require.True(t, ok)
	assert.Equal(t, "1 + 1", node.Config["source"])
}
