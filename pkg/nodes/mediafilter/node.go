// Package mediafilter provides the node that filters context-held items
// against a configured media outlet id set. It is deterministic and pure.
package mediafilter

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

// Filter modes.
const (
	ModeInclude = "include"
	ModeExclude = "exclude"
)

const defaultResultKey = "filtered_items"

// Node intersects or excludes items from a context variable against the
// configured outlet identifiers. Items may be outlet id strings or maps
// carrying an "outlet_id" key.
type Node struct {
	id        string
	mode      string
	itemsVar  string
	resultKey string
	outlets   map[string]bool
}

// NewNode creates a media_outlet_filter node from its stored configuration.
func NewNode(id string, config map[string]any) (*Node, error) {
	mode, _ := config["mode"].(string)
	if mode != ModeInclude && mode != ModeExclude {
		return nil, fmt.Errorf("field 'mode' must be %q or %q", ModeInclude, ModeExclude)
	}

	itemsVar, ok := config["items_var"].(string)
	if !ok || itemsVar == "" {
		return nil, errors.New("missing required field 'items_var'")
	}

	rawOutlets, ok := config["outlets"].([]any)
	if !ok {
		return nil, errors.New("missing required field 'outlets'")
	}

	outlets := make(map[string]bool, len(rawOutlets))

	for _, raw := range rawOutlets {
		outlet, ok := raw.(string)
		if !ok || outlet == "" {
			return nil, errors.New("field 'outlets' must be a list of outlet identifiers")
		}

		outlets[outlet] = true
	}

	resultKey, _ := config["result_key"].(string)
	if resultKey == "" {
		resultKey = defaultResultKey
	}

	return &Node{
		id:        id,
		mode:      mode,
		itemsVar:  itemsVar,
		resultKey: resultKey,
		outlets:   outlets,
	}, nil
}

// ID returns the node ID.
func (n *Node) ID() string {
	return n.id
}

// Kind returns the node kind.
func (n *Node) Kind() models.NodeKind {
	return models.NodeKindMediaOutletFilter
}

// Execute filters the items held by the configured context variable.
func (n *Node) Execute(_ context.Context, execution *models.Execution) (*protocol.NodeOutput, error) {
	raw, present := execution.Context[n.itemsVar]
	if !present {
		return nil, protocol.NewMissingContextVariableError(n.id, n.itemsVar)
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("node %s: context variable %q does not hold a list", n.id, n.itemsVar)
	}

	kept := make([]any, 0, len(items))

	for _, item := range items {
		outlet := outletID(item)
		matched := n.outlets[outlet]

		if (n.mode == ModeInclude && matched) || (n.mode == ModeExclude && !matched) {
			kept = append(kept, item)
		}
	}

	return &protocol.NodeOutput{
		Delta: map[string]any{
			n.resultKey:           kept,
			n.id + "_kept_count":  len(kept),
			n.id + "_total_count": len(items),
		},
	}, nil
}

func outletID(item any) string {
	switch value := item.(type) {
	case string:
		return value
	case map[string]any:
		if outlet, ok := value["outlet_id"].(string); ok {
			return outlet
		}
	}

	return ""
}
