package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/engine"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence/memory"
)

func putLegacyItem(p *memory.Persistence, id, activationID, title string, createdAt time.Time) {
	p.PutFeedItem(&models.FeedItem{
		ID:              id,
		ActivationID:    activationID,
		Title:           title,
		NormalizedTitle: models.NormalizeTitle(title),
		CreatedAt:       createdAt,
	})
}

func TestReconcile_RemovesDuplicateFeedItems(t *testing.T) {
	ctx := context.Background()
	persist := memory.NewPersistence()

	base := time.Now().UTC().Add(-time.Hour)

	// Three records sharing one natural key, inserted before the key guard
	// existed. Only the earliest survives.
	putLegacyItem(persist, "feed-c", "act-1", "Mayor Denies Allegations", base.Add(2*time.Minute))
	putLegacyItem(persist, "feed-a", "act-1", "mayor denies  allegations", base)
	putLegacyItem(persist, "feed-b", "act-1", "MAYOR DENIES ALLEGATIONS", base.Add(time.Minute))
	putLegacyItem(persist, "feed-d", "act-2", "Mayor Denies Allegations", base)

	// An artifact still pointing at one of the doomed records.
	doomedRef := "feed-b"
	require.NoError(t, persist.Artifacts().Save(ctx, &models.Artifact{
		ID:           "art-1",
		ActivationID: "act-1",
		Status:       models.ArtifactStatusCompleted,
		FeedItemID:   &doomedRef,
		CreatedAt:    base,
	}))

	reconciler := engine.NewReconciler(persist, testLogger())

	stats, err := reconciler.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DuplicateFeedItemsRemoved)

	items, err := persist.FeedItems().Page(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "feed-a", items[0].ID)
	assert.Equal(t, "feed-d", items[1].ID)

	// The dangling reference was nulled before the delete.
	artifact, err := persist.Artifacts().ByID(ctx, "art-1")
	require.NoError(t, err)
	assert.Nil(t, artifact.FeedItemID)
}

func TestReconcile_SecondPassIsNoop(t *testing.T) {
	ctx := context.Background()
	persist := memory.NewPersistence()

	base := time.Now().UTC().Add(-time.Hour)
	putLegacyItem(persist, "feed-a", "act-1", "Same Story", base)
	putLegacyItem(persist, "feed-b", "act-1", "same story", base.Add(time.Minute))

	reconciler := engine.NewReconciler(persist, testLogger())

	first, err := reconciler.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.DuplicateFeedItemsRemoved)

	second, err := reconciler.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.DuplicateFeedItemsRemoved)
	assert.Equal(t, 0, second.ExecutionsReset)
	assert.Empty(t, second.StalledArtifactIDs)
}

func TestReconcile_ResetsExecutionWithUnadvancedArtifact(t *testing.T) {
	ctx := context.Background()
	persist := memory.NewPersistence()

	artifactID := "art-1"
	require.NoError(t, persist.Artifacts().Save(ctx, &models.Artifact{
		ID:           artifactID,
		ActivationID: "act-1",
		Status:       models.ArtifactStatusPending,
		CreatedAt:    time.Now().UTC(),
	}))

	// The owning execution completed but its artifact never advanced: the
	// worker died between the execution save and the artifact commit.
	execution := models.NewExecution("flow-1", "user-1", nil)
	execution.ArtifactID = &artifactID
	require.NoError(t, persist.Executions().Create(ctx, execution))

	claimed, err := persist.Executions().Claim(ctx, execution.ID, "worker-1", time.Now().UTC())
	require.NoError(t, err)

	now := time.Now().UTC()
	claimed.Status = models.ExecutionStatusCompleted
	claimed.CompletedAt = &now
	require.NoError(t, persist.Executions().Save(ctx, claimed))

	reconciler := engine.NewReconciler(persist, testLogger())

	stats, err := reconciler.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ExecutionsReset)
	assert.Empty(t, stats.StalledArtifactIDs)

	requeued, err := persist.Executions().ByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPending, requeued.Status)
}

func TestReconcile_SurfacesStalledArtifact(t *testing.T) {
	ctx := context.Background()
	persist := memory.NewPersistence()

	artifactID := "art-stuck"
	require.NoError(t, persist.Artifacts().Save(ctx, &models.Artifact{
		ID:           artifactID,
		ActivationID: "act-1",
		Status:       models.ArtifactStatusProcessing,
		CreatedAt:    time.Now().UTC(),
	}))

	// The only owner failed, so nothing will ever finalize this artifact.
	execution := models.NewExecution("flow-1", "user-1", nil)
	execution.ArtifactID = &artifactID
	execution.Status = models.ExecutionStatusFailed
	require.NoError(t, persist.Executions().Create(ctx, execution))

	reconciler := engine.NewReconciler(persist, testLogger())

	stats, err := reconciler.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{artifactID}, stats.StalledArtifactIDs)
	assert.Equal(t, 0, stats.ExecutionsReset)
}

func TestReconcile_SkipsFinalizedArtifacts(t *testing.T) {
	ctx := context.Background()
	persist := memory.NewPersistence()

	require.NoError(t, persist.Artifacts().Save(ctx, &models.Artifact{
		ID: "art-done", ActivationID: "act-1",
		Status: models.ArtifactStatusCompleted, CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, persist.Artifacts().Save(ctx, &models.Artifact{
		ID: "art-errored", ActivationID: "act-2",
		Status: models.ArtifactStatusError, CreatedAt: time.Now().UTC(),
	}))

	reconciler := engine.NewReconciler(persist, testLogger())

	stats, err := reconciler.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats.StalledArtifactIDs)
	assert.Equal(t, 0, stats.ExecutionsReset)
}
