package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/engine"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
)

func waitForStatus(t *testing.T, f *runnerFixture, executionID string, want models.ExecutionStatus) *models.Execution {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)

	for time.Now().Before(deadline) {
		execution, err := f.persistence.Executions().ByID(context.Background(), executionID)
		require.NoError(t, err)

		if execution.Status == want {
			return execution
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("execution %s never reached status %s", executionID, want)

	return nil
}

func TestScheduler_ClaimsAndRunsPendingWork(t *testing.T) {
	f := newRunnerFixture(t)
	f.saveFlow(t, summaryFlow())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := engine.NewScheduler(f.persistence, f.runner, testLogger(), "worker-test").
		WithPollInterval(20 * time.Millisecond)

	first := models.NewExecution("flow-summary", "user-1", map[string]any{"title": "first"})
	second := models.NewExecution("flow-summary", "user-1", map[string]any{"title": "second"})
	require.NoError(t, f.persistence.Executions().Create(ctx, first))
	require.NoError(t, f.persistence.Executions().Create(ctx, second))

	done := make(chan error, 1)

	go func() { done <- scheduler.Start(ctx) }()

	scheduler.Wake()

	waitForStatus(t, f, first.ID, models.ExecutionStatusCompleted)
	waitForStatus(t, f, second.ID, models.ExecutionStatusCompleted)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestScheduler_SkipsAlreadyClaimedWork(t *testing.T) {
	f := newRunnerFixture(t)
	f.saveFlow(t, summaryFlow())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := engine.NewScheduler(f.persistence, f.runner, testLogger(), "worker-test").
		WithPollInterval(20 * time.Millisecond)

	mine := models.NewExecution("flow-summary", "user-1", map[string]any{"title": "mine"})
	theirs := models.NewExecution("flow-summary", "user-1", map[string]any{"title": "theirs"})
	require.NoError(t, f.persistence.Executions().Create(ctx, mine))
	require.NoError(t, f.persistence.Executions().Create(ctx, theirs))

	// Another worker already holds the second execution.
	_, err := f.persistence.Executions().Claim(ctx, theirs.ID, "worker-other", time.Now().UTC())
	require.NoError(t, err)

	done := make(chan error, 1)

	go func() { done <- scheduler.Start(ctx) }()

	scheduler.Wake()

	waitForStatus(t, f, mine.ID, models.ExecutionStatusCompleted)

	held, err := f.persistence.Executions().ByID(ctx, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, held.Status)

	cancel()
	<-done
}

func TestScheduler_WakeTriggersImmediatePoll(t *testing.T) {
	f := newRunnerFixture(t)
	f.saveFlow(t, summaryFlow())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A poll interval far beyond the test budget: only Wake can dispatch.
	scheduler := engine.NewScheduler(f.persistence, f.runner, testLogger(), "worker-test").
		WithPollInterval(time.Hour)

	execution := models.NewExecution("flow-summary", "user-1", map[string]any{"title": "woken"})
	require.NoError(t, f.persistence.Executions().Create(ctx, execution))

	done := make(chan error, 1)

	go func() { done <- scheduler.Start(ctx) }()

	scheduler.Wake()

	waitForStatus(t, f, execution.ID, models.ExecutionStatusCompleted)

	cancel()
	<-done
}
