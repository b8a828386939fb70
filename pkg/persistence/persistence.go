// Package persistence provides the data storage abstraction for flows,
// executions, artifacts, and feed items. The execution repository's Claim is
// the engine's sole cross-process concurrency primitive: it must be an
// atomic conditional update that succeeds for exactly one concurrent
// claimant.
package persistence

import (
	"context"
	"time"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
)

// Persistence is the storage handle passed into each component at
// construction, opened at process start and closed at shutdown.
type Persistence interface {
	Flows() FlowRepository
	Executions() ExecutionRepository
	Artifacts() ArtifactRepository
	FeedItems() FeedItemRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// FlowRepository stores flow definitions.
type FlowRepository interface {
	Save(ctx context.Context, flow *models.Flow) error
	ByID(ctx context.Context, id string) (*models.Flow, error)
	All(ctx context.Context) ([]*models.Flow, error)
	ActiveScheduled(ctx context.Context) ([]*models.Flow, error)
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores execution records and implements the atomic
// state transitions the scheduler and watchdog rely on.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.Execution) error
	ByID(ctx context.Context, id string) (*models.Execution, error)

	// Save persists the full record unconditionally. Reserved for operator
	// transitions (cancel) that must win over the owning worker.
	Save(ctx context.Context, execution *models.Execution) error

	// SaveRunning persists the full record only while the stored status is
	// still running. A cancel or reset that landed since the worker last read
	// the record yields ErrExecutionNotRunning, telling the worker its copy
	// is stale and the run must be abandoned.
	SaveRunning(ctx context.Context, execution *models.Execution) error

	// Pending lists pending executions ordered by creation time (best-effort
	// FIFO dispatch order).
	Pending(ctx context.Context, limit int) ([]*models.Execution, error)

	// Claim transitions id from pending to running, stamping started_at and
	// the first heartbeat. Exactly one concurrent claimant succeeds; losers
	// get ErrClaimConflict.
	Claim(ctx context.Context, id, workerID string, now time.Time) (*models.Execution, error)

	// Heartbeat extends the liveness deadline of a running execution.
	Heartbeat(ctx context.Context, id string, at time.Time) error

	// Reset returns an execution to pending, clearing started_at,
	// completed_at, heartbeat_at, the error message, and the execution log,
	// leaving context intact. Used by the watchdog and by operator action.
	Reset(ctx context.Context, id string) error

	// StaleRunning lists running executions whose liveness timestamp is
	// older than the cutoff.
	StaleRunning(ctx context.Context, cutoff time.Time) ([]*models.Execution, error)

	// ByArtifact lists executions whose artifact reference matches.
	ByArtifact(ctx context.Context, artifactID string) ([]*models.Execution, error)
}

// ArtifactRepository stores result artifacts.
type ArtifactRepository interface {
	Save(ctx context.Context, artifact *models.Artifact) error
	ByID(ctx context.Context, id string) (*models.Artifact, error)

	// MarkProcessing moves a pending artifact to processing.
	MarkProcessing(ctx context.Context, id string) error

	// CommitResult finalizes the artifact with a compare-and-set guard: the
	// update applies only while the artifact is still pending or processing.
	// An artifact already finalized by another execution yields
	// ErrArtifactConflict.
	CommitResult(ctx context.Context, id string, result map[string]any) error

	// Page scans artifacts in stable order for the reconciler.
	Page(ctx context.Context, offset, limit int) ([]*models.Artifact, error)

	// ClearFeedItemRef nulls artifact references to the given feed item so a
	// duplicate can be deleted without dangling pointers.
	ClearFeedItemRef(ctx context.Context, feedItemID string) error
}

// FeedItemRepository stores derivative feed items with natural-key
// deduplication.
type FeedItemRepository interface {
	// Insert adds the item unless one with the same natural identity
	// (activation id, normalized title) exists, in which case it returns
	// ErrDuplicateFeedItem.
	Insert(ctx context.Context, item *models.FeedItem) error

	Page(ctx context.Context, offset, limit int) ([]*models.FeedItem, error)
	Delete(ctx context.Context, id string) error
}
