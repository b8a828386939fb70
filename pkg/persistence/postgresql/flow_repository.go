package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence"
)

// FlowRepository handles flow-related database operations.
type FlowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(db *sql.DB, logger *slog.Logger) *FlowRepository {
	return &FlowRepository{db: db, logger: logger}
}

const flowColumns = `id, owner, name, active, is_template, nodes, edges, schedule, created_at, updated_at`

// Save upserts a flow.
func (fr *FlowRepository) Save(ctx context.Context, flow *models.Flow) error {
	nodesJSON, err := json.Marshal(flow.Nodes)
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}

	edgesJSON, err := json.Marshal(flow.Edges)
	if err != nil {
		return fmt.Errorf("failed to marshal edges: %w", err)
	}

	query := `
		INSERT INTO flows (id, owner, name, active, is_template, nodes, edges, schedule, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			owner = EXCLUDED.owner,
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			is_template = EXCLUDED.is_template,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			schedule = EXCLUDED.schedule,
			updated_at = EXCLUDED.updated_at
	`

	_, err = fr.db.ExecContext(ctx, query,
		flow.ID,
		flow.Owner,
		flow.Name,
		flow.Active,
		flow.IsTemplate,
		nodesJSON,
		edgesJSON,
		flow.Schedule,
		flow.CreatedAt,
		flow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save flow: %w", err)
	}

	return nil
}

// ByID returns a flow by its ID.
func (fr *FlowRepository) ByID(ctx context.Context, id string) (*models.Flow, error) {
	row := fr.db.QueryRowContext(ctx, `SELECT `+flowColumns+` FROM flows WHERE id = $1`, id)

	flow, err := scanFlow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrFlowNotFound
		}

		return nil, fmt.Errorf("failed to scan flow: %w", err)
	}

	return flow, nil
}

// All returns every flow.
func (fr *FlowRepository) All(ctx context.Context) ([]*models.Flow, error) {
	return fr.query(ctx, `SELECT `+flowColumns+` FROM flows ORDER BY created_at`)
}

// ActiveScheduled returns active flows carrying a cron schedule.
func (fr *FlowRepository) ActiveScheduled(ctx context.Context) ([]*models.Flow, error) {
	return fr.query(ctx, `SELECT `+flowColumns+` FROM flows WHERE active AND schedule <> '' ORDER BY created_at`)
}

// Delete removes a flow.
func (fr *FlowRepository) Delete(ctx context.Context, id string) error {
	result, err := fr.db.ExecContext(ctx, `DELETE FROM flows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrFlowNotFound
	}

	return nil
}

func (fr *FlowRepository) query(ctx context.Context, query string, args ...any) ([]*models.Flow, error) {
	rows, err := fr.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			fr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var flows []*models.Flow

	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}

		flows = append(flows, flow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flows: %w", err)
	}

	return flows, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlow(row rowScanner) (*models.Flow, error) {
	var (
		flow      models.Flow
		nodesJSON []byte
		edgesJSON []byte
	)

	err := row.Scan(
		&flow.ID,
		&flow.Owner,
		&flow.Name,
		&flow.Active,
		&flow.IsTemplate,
		&nodesJSON,
		&edgesJSON,
		&flow.Schedule,
		&flow.CreatedAt,
		&flow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodesJSON, &flow.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	if err := json.Unmarshal(edgesJSON, &flow.Edges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edges: %w", err)
	}

	return &flow, nil
}
