package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolation = "23505"

// FeedItemRepository handles feed item database operations. Natural-key
// deduplication is enforced by the unique index on
// (activation_id, normalized_title).
type FeedItemRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFeedItemRepository creates a new feed item repository.
func NewFeedItemRepository(db *sql.DB, logger *slog.Logger) *FeedItemRepository {
	return &FeedItemRepository{db: db, logger: logger}
}

const feedItemColumns = `id, activation_id, title, normalized_title, url, created_at`

// Insert adds a feed item, reporting ErrDuplicateFeedItem when another item
// with the same natural identity already exists.
func (fr *FeedItemRepository) Insert(ctx context.Context, item *models.FeedItem) error {
	query := `
		INSERT INTO feed_items (id, activation_id, title, normalized_title, url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := fr.db.ExecContext(ctx, query,
		item.ID,
		item.ActivationID,
		item.Title,
		item.NormalizedTitle,
		item.URL,
		item.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return persistence.ErrDuplicateFeedItem
		}

		return fmt.Errorf("failed to insert feed item: %w", err)
	}

	return nil
}

// Page scans feed items in creation order.
func (fr *FeedItemRepository) Page(ctx context.Context, offset, limit int) ([]*models.FeedItem, error) {
	query := `SELECT ` + feedItemColumns + ` FROM feed_items ORDER BY created_at, id OFFSET $1 LIMIT $2`

	rows, err := fr.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed items: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			fr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var items []*models.FeedItem

	for rows.Next() {
		var item models.FeedItem

		err := rows.Scan(
			&item.ID,
			&item.ActivationID,
			&item.Title,
			&item.NormalizedTitle,
			&item.URL,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed item: %w", err)
		}

		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed items: %w", err)
	}

	return items, nil
}

// Delete removes a feed item.
func (fr *FeedItemRepository) Delete(ctx context.Context, id string) error {
	_, err := fr.db.ExecContext(ctx, `DELETE FROM feed_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feed item: %w", err)
	}

	return nil
}
