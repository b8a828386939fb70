package schedule_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/eventbus"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/events"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence/memory"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/triggers/schedule"
)

type recordingPublisher struct {
	mu    sync.Mutex
	types []events.EventType
}

func (r *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.types = append(r.types, event.GetType())

	return nil
}

func (r *recordingPublisher) seen() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]events.EventType(nil), r.types...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func saveFlow(t *testing.T, persist *memory.Persistence, id, scheduleExpr string, active bool) {
	t.Helper()

	require.NoError(t, persist.Flows().Save(context.Background(), &models.Flow{
		ID:       id,
		Owner:    "user-1",
		Name:     "scheduled sweep",
		Active:   active,
		Schedule: scheduleExpr,
		Nodes: []*models.FlowNode{
			{ID: "step", Kind: models.NodeKindScript, Config: map[string]any{"source": `1`}},
			{ID: "end", Kind: models.NodeKindTerminal},
		},
		Edges: []*models.Edge{{Source: "step", Target: "end"}},
	}))
}

func TestStart_FiresActiveScheduledFlow(t *testing.T) {
	persist := memory.NewPersistence()
	publisher := &recordingPublisher{}

	saveFlow(t, persist, "flow-scheduled", "@every 20ms", true)
	saveFlow(t, persist, "flow-dormant", "@every 20ms", false)
	saveFlow(t, persist, "flow-unscheduled", "", true)

	var woken atomic.Int32

	trigger := schedule.NewTrigger(persist, publisher, testLogger(), func() { woken.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() { done <- trigger.Start(ctx) }()

	var pending []*models.Execution

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		var err error

		pending, err = persist.Executions().Pending(context.Background(), 10)
		require.NoError(t, err)

		if len(pending) > 0 {
			break
		}

		time.Sleep(10 * time.Millisecond)
	}

	require.NotEmpty(t, pending, "scheduled flow never fired")

	for _, execution := range pending {
		assert.Equal(t, "flow-scheduled", execution.FlowID)
		assert.Equal(t, "schedule", execution.Context["triggered_by"])
		assert.NotEmpty(t, execution.Context["triggered_at"])
	}

	assert.Positive(t, woken.Load())
	assert.Contains(t, publisher.seen(), events.ExecutionCreatedEvent)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestSync_SkipsInvalidScheduleExpression(t *testing.T) {
	persist := memory.NewPersistence()

	saveFlow(t, persist, "flow-broken", "not a cron expression", true)

	trigger := schedule.NewTrigger(persist, nil, testLogger(), nil)

	// A malformed expression is logged and skipped, never a sync failure.
	require.NoError(t, trigger.Sync(context.Background()))
}

func TestSync_ReflectsDeactivation(t *testing.T) {
	ctx := context.Background()
	persist := memory.NewPersistence()

	saveFlow(t, persist, "flow-scheduled", "@every 1h", true)

	trigger := schedule.NewTrigger(persist, nil, testLogger(), nil)
	require.NoError(t, trigger.Sync(ctx))

	// Deactivate and re-sync; a second sync over the emptied set must also
	// be clean.
	saveFlow(t, persist, "flow-scheduled", "@every 1h", false)
	require.NoError(t, trigger.Sync(ctx))
	require.NoError(t, trigger.Sync(ctx))
}
