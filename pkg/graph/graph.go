// Package graph provides the validated in-memory representation of a flow's
// node graph, traversed by the run controller.
package graph

import (
	"fmt"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
)

// Graph is an immutable snapshot of a flow's nodes and edges. Load deep
// copies the flow's structure, so later edits to the flow never affect a
// graph already held by an in-flight run.
type Graph struct {
	flowID string
	nodes  map[string]*models.FlowNode
	out    map[string][]*models.Edge
	in     map[string]int
	entry  string
}

// Load validates the flow's structural invariants and builds a traversable
// graph. Validation collects every violation found, not just the first, and
// fails with a *ValidationError listing them all.
func Load(flow *models.Flow) (*Graph, error) {
	g := &Graph{
		flowID: flow.ID,
		nodes:  make(map[string]*models.FlowNode, len(flow.Nodes)),
		out:    make(map[string][]*models.Edge),
		in:     make(map[string]int),
	}

	var violations []string

	for _, node := range flow.Nodes {
		if node.ID == "" {
			violations = append(violations, "node with empty id")

			continue
		}

		if _, dup := g.nodes[node.ID]; dup {
			violations = append(violations, fmt.Sprintf("duplicate node id %q", node.ID))

			continue
		}

		if !models.IsKnownNodeKind(node.Kind) {
			violations = append(violations, fmt.Sprintf("node %q has unknown kind %q", node.ID, node.Kind))
		}

		copied := *node
		if node.Config != nil {
			copied.Config = make(map[string]any, len(node.Config))
			for k, v := range node.Config {
				copied.Config[k] = v
			}
		}

		g.nodes[node.ID] = &copied
		g.in[node.ID] = 0
	}

	if len(flow.Nodes) == 0 {
		violations = append(violations, "flow has no nodes")
	}

	for _, edge := range flow.Edges {
		if _, ok := g.nodes[edge.Source]; !ok {
			violations = append(violations, fmt.Sprintf("edge references unknown source node %q", edge.Source))

			continue
		}

		if _, ok := g.nodes[edge.Target]; !ok {
			violations = append(violations, fmt.Sprintf("edge references unknown target node %q", edge.Target))

			continue
		}

		copied := *edge
		g.out[edge.Source] = append(g.out[edge.Source], &copied)
		g.in[edge.Target]++
	}

	violations = append(violations, g.validateDegrees()...)

	if len(violations) > 0 {
		return nil, &ValidationError{FlowID: flow.ID, Violations: violations}
	}

	return g, nil
}

// validateDegrees checks per-kind edge invariants: every non-terminal node
// has at least one outgoing edge, terminal nodes have none, and conditional
// nodes have exactly two outgoing edges labeled true and false.
func (g *Graph) validateDegrees() []string {
	var violations []string

	for id, node := range g.nodes {
		edges := g.out[id]

		switch node.Kind {
		case models.NodeKindTerminal:
			if len(edges) > 0 {
				violations = append(violations, fmt.Sprintf("terminal node %q has outgoing edges", id))
			}
		case models.NodeKindConditional:
			labels := make(map[string]int)
			for _, e := range edges {
				labels[e.Label]++
			}

			if len(edges) != 2 || labels[models.EdgeLabelTrue] != 1 || labels[models.EdgeLabelFalse] != 1 {
				violations = append(violations,
					fmt.Sprintf("conditional node %q must have exactly one true and one false branch", id))
			}
		default:
			if len(edges) == 0 {
				violations = append(violations, fmt.Sprintf("non-terminal node %q has no outgoing edge", id))
			}
		}
	}

	return violations
}

// EntryNode returns the unique node with no incoming edges. Zero or multiple
// candidates fail with ErrAmbiguousEntry.
func (g *Graph) EntryNode() (string, error) {
	if g.entry != "" {
		return g.entry, nil
	}

	var candidates []string

	for id, degree := range g.in {
		if degree == 0 {
			candidates = append(candidates, id)
		}
	}

	if len(candidates) != 1 {
		return "", &AmbiguousEntryError{FlowID: g.flowID, Candidates: candidates}
	}

	g.entry = candidates[0]

	return g.entry, nil
}

// Successors resolves the outgoing edges of a node, filtered by branch label
// when the node is a conditional.
func (g *Graph) Successors(nodeID, branch string) []string {
	var targets []string

	for _, edge := range g.out[nodeID] {
		if branch != "" && edge.Label != "" && edge.Label != branch {
			continue
		}

		targets = append(targets, edge.Target)
	}

	return targets
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*models.FlowNode, bool) {
	node, ok := g.nodes[id]

	return node, ok
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}
