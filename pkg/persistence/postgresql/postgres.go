// Package postgresql provides the PostgreSQL persistence implementation.
// It is the authoritative store: execution claiming and the artifact result
// commit both rely on single-statement conditional updates for cross-process
// atomicity.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db            *sql.DB
	logger        *slog.Logger
	flowRepo      *FlowRepository
	executionRepo *ExecutionRepository
	artifactRepo  *ArtifactRepository
	feedItemRepo  *FeedItemRepository
}

// NewPersistence opens a connection, runs migrations, and wires the
// repositories.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:            database,
		logger:        logger,
		flowRepo:      NewFlowRepository(database, logger),
		executionRepo: NewExecutionRepository(database, logger),
		artifactRepo:  NewArtifactRepository(database, logger),
		feedItemRepo:  NewFeedItemRepository(database, logger),
	}, nil
}

// Flows returns the flow repository.
func (p *Persistence) Flows() persistence.FlowRepository { return p.flowRepo }

// Executions returns the execution repository.
func (p *Persistence) Executions() persistence.ExecutionRepository { return p.executionRepo }

// Artifacts returns the artifact repository.
func (p *Persistence) Artifacts() persistence.ArtifactRepository { return p.artifactRepo }

// FeedItems returns the feed item repository.
func (p *Persistence) FeedItems() persistence.FeedItemRepository { return p.feedItemRepo }

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
