// Package conditional provides the branching node that routes a run to its
// true or false edge based on a context variable comparison.
package conditional

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

// Comparison operators supported by the conditional node.
const (
	OperatorEq       = "eq"
	OperatorNeq      = "neq"
	OperatorGt       = "gt"
	OperatorGte      = "gte"
	OperatorLt       = "lt"
	OperatorLte      = "lte"
	OperatorContains = "contains"
	OperatorExists   = "exists"
)

var operators = map[string]bool{
	OperatorEq:       true,
	OperatorNeq:      true,
	OperatorGt:       true,
	OperatorGte:      true,
	OperatorLt:       true,
	OperatorLte:      true,
	OperatorContains: true,
	OperatorExists:   true,
}

// Node evaluates a source context variable against a literal and produces
// the branch label for the run controller. Pure: it never touches external
// state.
type Node struct {
	id       string
	source   string
	operator string
	value    any
}

// NewNode creates a conditional node from its stored configuration.
func NewNode(id string, config map[string]any) (*Node, error) {
	source, ok := config["source"].(string)
	if !ok || source == "" {
		return nil, errors.New("missing required field 'source'")
	}

	operator, ok := config["operator"].(string)
	if !ok || operator == "" {
		return nil, errors.New("missing required field 'operator'")
	}

	if !operators[operator] {
		return nil, fmt.Errorf("unsupported operator %q", operator)
	}

	return &Node{
		id:       id,
		source:   source,
		operator: operator,
		value:    config["value"],
	}, nil
}

// ID returns the node ID.
func (n *Node) ID() string {
	return n.id
}

// Kind returns the node kind.
func (n *Node) Kind() models.NodeKind {
	return models.NodeKindConditional
}

// Execute resolves the source variable from the execution context and
// evaluates the comparison. An absent source variable fails the run rather
// than silently defaulting to a branch.
func (n *Node) Execute(_ context.Context, execution *models.Execution) (*protocol.NodeOutput, error) {
	actual, present := execution.Context[n.source]

	if n.operator == OperatorExists {
		return n.output(present), nil
	}

	if !present {
		return nil, protocol.NewMissingContextVariableError(n.id, n.source)
	}

	result, err := compare(n.operator, actual, n.value)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", n.id, err)
	}

	return n.output(result), nil
}

func (n *Node) output(result bool) *protocol.NodeOutput {
	branch := models.EdgeLabelFalse
	if result {
		branch = models.EdgeLabelTrue
	}

	return &protocol.NodeOutput{
		Delta:  map[string]any{n.id + "_result": result},
		Branch: branch,
	}
}

func compare(operator string, actual, expected any) (bool, error) {
	switch operator {
	case OperatorEq, OperatorNeq:
		equal := looseEqual(actual, expected)
		if operator == OperatorNeq {
			return !equal, nil
		}

		return equal, nil
	case OperatorContains:
		haystack, ok := actual.(string)
		if !ok {
			return false, fmt.Errorf("contains requires a string value, got %T", actual)
		}

		needle, ok := expected.(string)
		if !ok {
			return false, fmt.Errorf("contains requires a string literal, got %T", expected)
		}

		return strings.Contains(haystack, needle), nil
	case OperatorGt, OperatorGte, OperatorLt, OperatorLte:
		left, err := asNumber(actual)
		if err != nil {
			return false, err
		}

		right, err := asNumber(expected)
		if err != nil {
			return false, err
		}

		switch operator {
		case OperatorGt:
			return left > right, nil
		case OperatorGte:
			return left >= right, nil
		case OperatorLt:
			return left < right, nil
		default:
			return left <= right, nil
		}
	default:
		return false, fmt.Errorf("unsupported operator %q", operator)
	}
}

// looseEqual compares values after numeric normalization, so a JSON-decoded
// float64(3) equals int(3).
func looseEqual(a, b any) bool {
	if left, err := asNumber(a); err == nil {
		if right, err := asNumber(b); err == nil {
			return left == right
		}
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func asNumber(v any) (float64, error) {
	switch value := v.(type) {
	case float64:
		return value, nil
	case float32:
		return float64(value), nil
	case int:
		return float64(value), nil
	case int32:
		return float64(value), nil
	case int64:
		return float64(value), nil
	case string:
		num, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", value)
		}

		return num, nil
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", v)
	}
}
