// Package schedule creates pending executions for active flows on their
// cron schedules.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/eventbus"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/events"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence"
)

// DefaultRefreshInterval is how often the trigger re-reads the set of
// active scheduled flows.
const DefaultRefreshInterval = time.Minute

// Trigger runs a cron scheduler over every active flow carrying a schedule
// expression. Firing creates a pending execution; the dispatch itself stays
// with the engine scheduler, so a flow firing while its previous execution
// is still queued simply enqueues another run.
type Trigger struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	refresh     time.Duration

	// onEnqueue is invoked after each created execution, typically to wake
	// the engine scheduler.
	onEnqueue func()

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]scheduleEntry
}

type scheduleEntry struct {
	expr string
	id   cron.EntryID
}

// NewTrigger creates a schedule trigger.
func NewTrigger(persist persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger, onEnqueue func()) *Trigger {
	return &Trigger{
		persistence: persist,
		publisher:   publisher,
		logger:      logger.With("module", "schedule_trigger"),
		refresh:     DefaultRefreshInterval,
		onEnqueue:   onEnqueue,
		cron:        cron.New(),
		entries:     make(map[string]scheduleEntry),
	}
}

// Start syncs schedules and runs the cron loop until ctx is cancelled.
func (t *Trigger) Start(ctx context.Context) error {
	if err := t.Sync(ctx); err != nil {
		return err
	}

	t.cron.Start()
	defer t.cron.Stop()

	t.logger.InfoContext(ctx, "Schedule trigger started", "refresh_interval", t.refresh)

	ticker := time.NewTicker(t.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.InfoContext(ctx, "Schedule trigger stopped")

			return ctx.Err()
		case <-ticker.C:
			if err := t.Sync(ctx); err != nil {
				t.logger.ErrorContext(ctx, "Failed to refresh schedules", "error", err)
			}
		}
	}
}

// Sync reconciles cron entries with the current set of active scheduled
// flows: new flows are added, removed or deactivated flows are dropped, and
// changed expressions are re-registered.
func (t *Trigger) Sync(ctx context.Context) error {
	flows, err := t.persistence.Flows().ActiveScheduled(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	current := make(map[string]string, len(flows))
	for _, flow := range flows {
		current[flow.ID] = flow.Schedule
	}

	for flowID, entry := range t.entries {
		if expr, ok := current[flowID]; !ok || expr != entry.expr {
			t.cron.Remove(entry.id)
			delete(t.entries, flowID)
		}
	}

	for _, flow := range flows {
		if _, ok := t.entries[flow.ID]; ok {
			continue
		}

		flowID := flow.ID

		entryID, err := t.cron.AddFunc(flow.Schedule, func() {
			t.fire(context.Background(), flowID)
		})
		if err != nil {
			t.logger.WarnContext(ctx, "Skipping flow with invalid schedule",
				"flow_id", flow.ID, "schedule", flow.Schedule, "error", err)

			continue
		}

		t.entries[flow.ID] = scheduleEntry{expr: flow.Schedule, id: entryID}

		t.logger.InfoContext(ctx, "Scheduled flow", "flow_id", flow.ID, "schedule", flow.Schedule)
	}

	return nil
}

// fire creates one pending execution for the flow.
func (t *Trigger) fire(ctx context.Context, flowID string) {
	execution := models.NewExecution(flowID, "", map[string]any{
		"triggered_by": "schedule",
		"triggered_at": time.Now().UTC().Format(time.RFC3339),
	})

	if err := t.persistence.Executions().Create(ctx, execution); err != nil {
		t.logger.ErrorContext(ctx, "Failed to create scheduled execution",
			"flow_id", flowID, "error", err)

		return
	}

	t.logger.InfoContext(ctx, "Scheduled execution created",
		"flow_id", flowID, "execution_id", execution.ID)

	if t.publisher != nil {
		event := events.ExecutionCreated{
			BaseEvent:   events.NewBaseEvent(events.ExecutionCreatedEvent, flowID),
			ExecutionID: execution.ID,
			TriggerData: execution.Context,
		}

		if err := t.publisher.Publish(ctx, execution.ID, event); err != nil {
			t.logger.WarnContext(ctx, "Failed to publish creation event",
				"execution_id", execution.ID, "error", err)
		}
	}

	if t.onEnqueue != nil {
		t.onEnqueue()
	}
}
