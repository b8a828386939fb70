// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/capabilities/inference"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/capabilities/linkcheck"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/capabilities/script"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/nodes/ai"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/nodes/conditional"
	linkchecknode "github.com/paulosouza17/elege-ai-war-room-sub005/pkg/nodes/linkcheck"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/nodes/mediafilter"
	scriptnode "github.com/paulosouza17/elege-ai-war-room-sub005/pkg/nodes/script"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/nodes/terminal"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/registry"
)

// RegistryConfig carries the capability settings for the node factories.
type RegistryConfig struct {
	InferenceURL    string
	InferenceAPIKey string

	// RedisURL enables the link-check result cache when set.
	RedisURL string
}

// NewRegistry builds the registry with every native node kind registered.
func NewRegistry(logger *slog.Logger, config RegistryConfig) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger)

	var cache *redis.Client

	if config.RedisURL != "" {
		options, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, err
		}

		cache = redis.NewClient(options)
	}

	sandbox := script.NewSandbox(0, logger)
	provider := inference.NewClient(config.InferenceURL, config.InferenceAPIKey, logger)
	checker := linkcheck.NewChecker(cache, logger)

	reg.Register(scriptnode.NewFactory(sandbox))
	reg.Register(ai.NewFactory(provider))
	reg.Register(conditional.NewFactory())
	reg.Register(linkchecknode.NewFactory(checker))
	reg.Register(mediafilter.NewFactory())
	reg.Register(terminal.NewFactory())

	return reg, nil
}
