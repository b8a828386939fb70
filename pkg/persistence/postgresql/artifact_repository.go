package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence"
)

// ArtifactRepository handles artifact-related database operations. The
// result commit is a compare-and-set UPDATE: only a still-unfinalized
// artifact accepts a result, so concurrent executions over the same
// artifact converge on a single outcome.
type ArtifactRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewArtifactRepository creates a new artifact repository.
func NewArtifactRepository(db *sql.DB, logger *slog.Logger) *ArtifactRepository {
	return &ArtifactRepository{db: db, logger: logger}
}

const artifactColumns = `id, activation_id, status, processing_result, feed_item_id, created_at, updated_at`

// Save upserts an artifact.
func (ar *ArtifactRepository) Save(ctx context.Context, artifact *models.Artifact) error {
	resultJSON, err := marshalResult(artifact.ProcessingResult)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO artifacts (id, activation_id, status, processing_result, feed_item_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			activation_id = EXCLUDED.activation_id,
			status = EXCLUDED.status,
			processing_result = EXCLUDED.processing_result,
			feed_item_id = EXCLUDED.feed_item_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err = ar.db.ExecContext(ctx, query,
		artifact.ID,
		artifact.ActivationID,
		artifact.Status,
		resultJSON,
		artifact.FeedItemID,
		artifact.CreatedAt,
		artifact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}

	return nil
}

// ByID returns an artifact by its ID.
func (ar *ArtifactRepository) ByID(ctx context.Context, id string) (*models.Artifact, error) {
	row := ar.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = $1`, id)

	artifact, err := scanArtifact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrArtifactNotFound
		}

		return nil, fmt.Errorf("failed to scan artifact: %w", err)
	}

	return artifact, nil
}

// MarkProcessing moves a pending artifact to processing. Already-processing
// or finalized artifacts are left untouched.
func (ar *ArtifactRepository) MarkProcessing(ctx context.Context, id string) error {
	query := `
		UPDATE artifacts
		SET status = 'processing', updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`

	result, err := ar.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark artifact processing: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		if _, lookupErr := ar.ByID(ctx, id); errors.Is(lookupErr, persistence.ErrArtifactNotFound) {
			return persistence.ErrArtifactNotFound
		}
	}

	return nil
}

// CommitResult finalizes the artifact. The status guard makes the commit
// idempotent across re-runs: the first writer wins, later writers get
// ErrArtifactConflict.
func (ar *ArtifactRepository) CommitResult(ctx context.Context, id string, result map[string]any) error {
	resultJSON, err := marshalResult(result)
	if err != nil {
		return err
	}

	query := `
		UPDATE artifacts
		SET status = 'completed', processing_result = $2, updated_at = $3
		WHERE id = $1 AND status IN ('pending', 'processing')
	`

	res, err := ar.db.ExecContext(ctx, query, id, resultJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to commit artifact result: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		if _, lookupErr := ar.ByID(ctx, id); errors.Is(lookupErr, persistence.ErrArtifactNotFound) {
			return persistence.ErrArtifactNotFound
		}

		return persistence.ErrArtifactConflict
	}

	return nil
}

// Page scans artifacts in stable id order.
func (ar *ArtifactRepository) Page(ctx context.Context, offset, limit int) ([]*models.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts ORDER BY id OFFSET $1 LIMIT $2`

	rows, err := ar.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			ar.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var artifacts []*models.Artifact

	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}

		artifacts = append(artifacts, artifact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artifacts: %w", err)
	}

	return artifacts, nil
}

// ClearFeedItemRef nulls every artifact reference to the given feed item.
func (ar *ArtifactRepository) ClearFeedItemRef(ctx context.Context, feedItemID string) error {
	query := `UPDATE artifacts SET feed_item_id = NULL, updated_at = $2 WHERE feed_item_id = $1`

	_, err := ar.db.ExecContext(ctx, query, feedItemID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to clear feed item references: %w", err)
	}

	return nil
}

func marshalResult(result map[string]any) ([]byte, error) {
	if result == nil {
		return nil, nil
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal processing result: %w", err)
	}

	return resultJSON, nil
}

func scanArtifact(row rowScanner) (*models.Artifact, error) {
	var (
		artifact   models.Artifact
		resultJSON []byte
	)

	err := row.Scan(
		&artifact.ID,
		&artifact.ActivationID,
		&artifact.Status,
		&resultJSON,
		&artifact.FeedItemID,
		&artifact.CreatedAt,
		&artifact.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &artifact.ProcessingResult); err != nil {
			return nil, fmt.Errorf("failed to unmarshal processing result: %w", err)
		}
	}

	return &artifact, nil
}
