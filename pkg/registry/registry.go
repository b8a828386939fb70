// Package registry holds the closed set of node factories and validates
// node configuration against each factory's schema before instantiation.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

// Registry maps node kinds to their factories.
type Registry struct {
	logger    *slog.Logger
	factories map[models.NodeKind]protocol.NodeFactory
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("module", "registry"),
		factories: make(map[models.NodeKind]protocol.NodeFactory),
	}
}

// Register adds a node factory, replacing any previous factory for the kind.
func (r *Registry) Register(factory protocol.NodeFactory) {
	r.factories[factory.Kind()] = factory
}

// Create validates config against the factory schema for kind and builds a
// node instance.
func (r *Registry) Create(kind models.NodeKind, id string, config map[string]any) (protocol.Node, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("node kind %q not registered", kind)
	}

	if err := validateConfig(factory.Schema(), config); err != nil {
		return nil, protocol.NewConfigError(id, "config", err.Error())
	}

	return factory.Create(id, config)
}

// Kinds returns the registered node kinds.
func (r *Registry) Kinds() []models.NodeKind {
	kinds := make([]models.NodeKind, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}

	return kinds
}

func validateConfig(schema, config map[string]any) error {
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("invalid configuration: %s", strings.Join(details, "; "))
	}

	return nil
}
