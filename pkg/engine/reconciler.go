package engine

import (
	"context"
	"log/slog"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence"
)

// DefaultPageSize is the reconciler's scan page size.
const DefaultPageSize = 200

// ReconcileStats summarizes one reconciler pass.
type ReconcileStats struct {
	DuplicateFeedItemsRemoved int
	StalledArtifactIDs        []string
	ExecutionsReset           int
}

// Reconciler repairs cross-record inconsistencies left behind by historical
// bugs or partial failures: duplicate feed items predating the natural-key
// index, artifacts stuck pending with no live owner, and executions that
// completed without advancing their artifact. Every phase is idempotent, so
// a second pass over a consistent store changes nothing.
type Reconciler struct {
	persistence persistence.Persistence
	logger      *slog.Logger
	pageSize    int
}

// NewReconciler creates a reconciler.
func NewReconciler(persist persistence.Persistence, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		persistence: persist,
		logger:      logger.With("module", "reconciler"),
		pageSize:    DefaultPageSize,
	}
}

// Run executes one full reconciliation pass.
func (r *Reconciler) Run(ctx context.Context) (*ReconcileStats, error) {
	stats := &ReconcileStats{}

	if err := r.removeDuplicateFeedItems(ctx, stats); err != nil {
		return stats, err
	}

	if err := r.sweepArtifacts(ctx, stats); err != nil {
		return stats, err
	}

	r.logger.InfoContext(ctx, "Reconciliation pass finished",
		"duplicates_removed", stats.DuplicateFeedItemsRemoved,
		"stalled_artifacts", len(stats.StalledArtifactIDs),
		"executions_reset", stats.ExecutionsReset)

	return stats, nil
}

// removeDuplicateFeedItems groups feed items by natural key, keeps the
// earliest of each group, and deletes the rest after nulling artifact
// references to them.
func (r *Reconciler) removeDuplicateFeedItems(ctx context.Context, stats *ReconcileStats) error {
	seen := make(map[string]*models.FeedItem)

	var duplicates []*models.FeedItem

	for offset := 0; ; offset += r.pageSize {
		page, err := r.persistence.FeedItems().Page(ctx, offset, r.pageSize)
		if err != nil {
			return err
		}

		if len(page) == 0 {
			break
		}

		for _, item := range page {
			key := item.NaturalKey()

			kept, ok := seen[key]
			if !ok {
				seen[key] = item

				continue
			}

			// Keep the earliest of the group; everything else is a duplicate.
			if item.CreatedAt.Before(kept.CreatedAt) {
				seen[key] = item
				duplicates = append(duplicates, kept)
			} else {
				duplicates = append(duplicates, item)
			}
		}
	}

	for _, duplicate := range duplicates {
		if err := r.persistence.Artifacts().ClearFeedItemRef(ctx, duplicate.ID); err != nil {
			return err
		}

		if err := r.persistence.FeedItems().Delete(ctx, duplicate.ID); err != nil {
			return err
		}

		stats.DuplicateFeedItemsRemoved++

		r.logger.InfoContext(ctx, "Removed duplicate feed item",
			"feed_item_id", duplicate.ID, "activation_id", duplicate.ActivationID)
	}

	return nil
}

// sweepArtifacts walks every artifact once, surfacing those stuck pending
// with no completed owner and resetting executions that completed without
// advancing their artifact.
func (r *Reconciler) sweepArtifacts(ctx context.Context, stats *ReconcileStats) error {
	for offset := 0; ; offset += r.pageSize {
		page, err := r.persistence.Artifacts().Page(ctx, offset, r.pageSize)
		if err != nil {
			return err
		}

		if len(page) == 0 {
			return nil
		}

		for _, artifact := range page {
			if artifact.Status == models.ArtifactStatusCompleted || artifact.Status == models.ArtifactStatusError {
				continue
			}

			if err := r.reconcileArtifact(ctx, artifact, stats); err != nil {
				return err
			}
		}
	}
}

func (r *Reconciler) reconcileArtifact(ctx context.Context, artifact *models.Artifact, stats *ReconcileStats) error {
	owners, err := r.persistence.Executions().ByArtifact(ctx, artifact.ID)
	if err != nil {
		return err
	}

	anyCompleted := false

	for _, owner := range owners {
		if owner.Status == models.ExecutionStatusCompleted {
			anyCompleted = true

			// The owner finished but the artifact never advanced: send the
			// execution back through the flow so the commit is retried. The
			// compare-and-set commit keeps this safe to repeat.
			err := r.persistence.Executions().Reset(ctx, owner.ID)
			if err != nil {
				if persistence.IsExecutionNotFound(err) {
					continue
				}

				return err
			}

			stats.ExecutionsReset++

			r.logger.WarnContext(ctx, "Reset execution with unadvanced artifact",
				"execution_id", owner.ID, "artifact_id", artifact.ID)
		}
	}

	if !anyCompleted {
		stats.StalledArtifactIDs = append(stats.StalledArtifactIDs, artifact.ID)

		r.logger.WarnContext(ctx, "Artifact stuck without completed execution",
			"artifact_id", artifact.ID, "status", artifact.Status, "owners", len(owners))
	}

	return nil
}
