package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence/memory"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence/postgresql"
)

// NewPersistence selects the store from the database URL scheme:
// postgres:// for the authoritative store, memory:// for development.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case databaseURL == "" || strings.HasPrefix(databaseURL, "memory://"):
		return memory.NewPersistence(), nil
	default:
		return nil, fmt.Errorf("unsupported database URL: %s", databaseURL)
	}
}
