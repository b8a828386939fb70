// Package linkcheck provides the node that verifies HTTP reachability of a
// URL held in the run context.
package linkcheck

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

// Node resolves a URL from the configured context variable and probes it.
// A network error is non-fatal by default: the failure is recorded in the
// context and the run continues. With blocking: true, the error aborts the
// run. With defer: true, the node suspends the run once before probing,
// handing the slot back to the scheduler.
type Node struct {
	id       string
	urlVar   string
	blocking bool
	deferred bool
	checker  protocol.LinkChecker
}

// NewNode creates a link_check node from its stored configuration.
func NewNode(id string, config map[string]any, checker protocol.LinkChecker) (*Node, error) {
	urlVar, ok := config["url_var"].(string)
	if !ok || urlVar == "" {
		return nil, errors.New("missing required field 'url_var'")
	}

	blocking, _ := config["blocking"].(bool)
	deferred, _ := config["defer"].(bool)

	return &Node{
		id:       id,
		urlVar:   urlVar,
		blocking: blocking,
		deferred: deferred,
		checker:  checker,
	}, nil
}

// ID returns the node ID.
func (n *Node) ID() string {
	return n.id
}

// Kind returns the node kind.
func (n *Node) Kind() models.NodeKind {
	return models.NodeKindLinkCheck
}

// Execute probes the URL named by the configured context variable.
func (n *Node) Execute(ctx context.Context, execution *models.Execution) (*protocol.NodeOutput, error) {
	raw, present := execution.Context[n.urlVar]
	if !present {
		return nil, protocol.NewMissingContextVariableError(n.id, n.urlVar)
	}

	url, ok := raw.(string)
	if !ok || url == "" {
		return nil, fmt.Errorf("node %s: context variable %q does not hold a URL", n.id, n.urlVar)
	}

	// First pass of a deferred check yields the run; the marker makes the
	// re-entry perform the probe instead of suspending again.
	suspendMarker := n.id + "_deferred"
	if n.deferred {
		if _, resumed := execution.Context[suspendMarker]; !resumed {
			return &protocol.NodeOutput{
				Delta:   map[string]any{suspendMarker: true},
				Suspend: true,
			}, nil
		}
	}

	status, err := n.checker.Check(ctx, url)
	if err != nil {
		if n.blocking {
			return nil, protocol.NewNodeExecutionError(n.id, protocol.FaultNetwork, err)
		}

		return &protocol.NodeOutput{
			Delta: map[string]any{
				n.id + "_reachable": false,
				n.id + "_error":     err.Error(),
			},
		}, nil
	}

	return &protocol.NodeOutput{
		Delta: map[string]any{
			n.id + "_reachable":   status.Reachable,
			n.id + "_status_code": status.StatusCode,
		},
	}, nil
}
