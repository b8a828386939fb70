package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/engine"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/events"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence/memory"
)

func TestSweep_ResetsAbandonedExecution(t *testing.T) {
	ctx := context.Background()
	persist := memory.NewPersistence()
	publisher := &capturingPublisher{}
	watchdog := engine.NewWatchdog(persist, publisher, testLogger())

	execution := models.NewExecution("flow-1", "user-1", map[string]any{"seed": "value"})
	require.NoError(t, persist.Executions().Create(ctx, execution))

	now := time.Now().UTC()

	claimed, err := persist.Executions().Claim(ctx, execution.ID, "worker-dead", now.Add(-15*time.Minute))
	require.NoError(t, err)

	claimed.AppendLog("node-1", models.NodeKindScript, "ok")
	require.NoError(t, persist.Executions().Save(ctx, claimed))

	reset, err := watchdog.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, reset)

	recovered, err := persist.Executions().ByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPending, recovered.Status)
	assert.Nil(t, recovered.StartedAt)
	assert.Nil(t, recovered.HeartbeatAt)
	assert.Empty(t, recovered.ExecutionLog)
	assert.Equal(t, "value", recovered.Context["seed"])
	assert.Contains(t, publisher.types(), events.ExecutionResetEvent)
}

func TestSweep_RecentHeartbeatSparesExecution(t *testing.T) {
	ctx := context.Background()
	persist := memory.NewPersistence()
	watchdog := engine.NewWatchdog(persist, nil, testLogger())

	execution := models.NewExecution("flow-1", "user-1", nil)
	require.NoError(t, persist.Executions().Create(ctx, execution))

	now := time.Now().UTC()

	// Started long ago, but a heartbeat landed two minutes back.
	_, err := persist.Executions().Claim(ctx, execution.ID, "worker-slow", now.Add(-40*time.Minute))
	require.NoError(t, err)
	require.NoError(t, persist.Executions().Heartbeat(ctx, execution.ID, now.Add(-2*time.Minute)))

	reset, err := watchdog.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, reset)

	untouched, err := persist.Executions().ByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, untouched.Status)
}

func TestSweep_CustomThreshold(t *testing.T) {
	ctx := context.Background()
	persist := memory.NewPersistence()
	watchdog := engine.NewWatchdog(persist, nil, testLogger()).WithThreshold(time.Minute)

	execution := models.NewExecution("flow-1", "user-1", nil)
	require.NoError(t, persist.Executions().Create(ctx, execution))

	now := time.Now().UTC()

	_, err := persist.Executions().Claim(ctx, execution.ID, "worker-1", now.Add(-90*time.Second))
	require.NoError(t, err)

	reset, err := watchdog.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, reset)
}

func TestSweep_IgnoresPendingAndFinished(t *testing.T) {
	ctx := context.Background()
	persist := memory.NewPersistence()
	watchdog := engine.NewWatchdog(persist, nil, testLogger())

	pending := models.NewExecution("flow-1", "user-1", nil)
	require.NoError(t, persist.Executions().Create(ctx, pending))

	finished := models.NewExecution("flow-1", "user-1", nil)
	require.NoError(t, persist.Executions().Create(ctx, finished))

	now := time.Now().UTC()

	claimed, err := persist.Executions().Claim(ctx, finished.ID, "worker-1", now.Add(-30*time.Minute))
	require.NoError(t, err)

	completedAt := now.Add(-20 * time.Minute)
	claimed.Status = models.ExecutionStatusCompleted
	claimed.CompletedAt = &completedAt
	require.NoError(t, persist.Executions().Save(ctx, claimed))

	reset, err := watchdog.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, reset)
}
