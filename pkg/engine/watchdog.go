package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/eventbus"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/events"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence"
)

const (
	// DefaultLivenessThreshold is how long a running execution may go without
	// a liveness pulse before it is presumed abandoned.
	DefaultLivenessThreshold = 10 * time.Minute

	// DefaultSweepInterval is the cadence of watchdog sweeps.
	DefaultSweepInterval = time.Minute
)

// Watchdog recovers executions abandoned by crashed workers. Recovery is
// deliberately coarse: the run is reset to pending and restarts from the
// graph entry with its seed context, relying on node idempotency rather than
// on mid-run checkpoints.
type Watchdog struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	threshold   time.Duration
	interval    time.Duration
}

// NewWatchdog creates a watchdog with the default liveness threshold.
func NewWatchdog(persist persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Watchdog {
	return &Watchdog{
		persistence: persist,
		publisher:   publisher,
		logger:      logger.With("module", "watchdog"),
		threshold:   DefaultLivenessThreshold,
		interval:    DefaultSweepInterval,
	}
}

// WithThreshold overrides the liveness threshold.
func (w *Watchdog) WithThreshold(threshold time.Duration) *Watchdog {
	w.threshold = threshold

	return w
}

// Start sweeps on an interval until ctx is cancelled.
func (w *Watchdog) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Watchdog started", "threshold", w.threshold, "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Watchdog stopped")

			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Sweep(ctx, time.Now().UTC()); err != nil {
				w.logger.ErrorContext(ctx, "Watchdog sweep failed", "error", err)
			}
		}
	}
}

// Sweep resets every running execution whose last proof of life predates
// now minus the threshold. Returns the number of executions reset.
func (w *Watchdog) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-w.threshold)

	stale, err := w.persistence.Executions().StaleRunning(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	reset := 0

	for _, execution := range stale {
		err := w.persistence.Executions().Reset(ctx, execution.ID)
		if err != nil {
			if persistence.IsExecutionNotFound(err) {
				continue
			}

			return reset, err
		}

		reset++

		w.logger.WarnContext(ctx, "Reset abandoned execution",
			"execution_id", execution.ID,
			"flow_id", execution.FlowID,
			"last_liveness", execution.LivenessAt())

		w.publishReset(ctx, execution)
	}

	return reset, nil
}

func (w *Watchdog) publishReset(ctx context.Context, execution *models.Execution) {
	if w.publisher == nil {
		return
	}

	event := events.ExecutionReset{
		BaseEvent:   events.NewBaseEvent(events.ExecutionResetEvent, execution.FlowID),
		ExecutionID: execution.ID,
		Reason:      "liveness expired",
	}

	if err := w.publisher.Publish(ctx, execution.ID, event); err != nil {
		w.logger.WarnContext(ctx, "Failed to publish reset event",
			"execution_id", execution.ID, "error", err)
	}
}
