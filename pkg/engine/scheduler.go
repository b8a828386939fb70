package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence"
)

const (
	// DefaultPollInterval is the cadence of pending-queue polls between
	// explicit wake signals.
	DefaultPollInterval = 5 * time.Second

	// DefaultBatchSize bounds how many pending executions one poll considers.
	DefaultBatchSize = 20

	// DefaultMaxConcurrent bounds the worker pool.
	DefaultMaxConcurrent = 8
)

// Scheduler polls for pending executions, claims them atomically, and
// dispatches claimed work onto a bounded pool. Multiple scheduler processes
// may poll the same store: the claim is the only arbiter, so losers simply
// skip to the next candidate.
type Scheduler struct {
	persistence   persistence.Persistence
	runner        *Runner
	logger        *slog.Logger
	workerID      string
	pollInterval  time.Duration
	batchSize     int
	maxConcurrent int

	wake chan struct{}
	wg   sync.WaitGroup
}

// NewScheduler creates a scheduler dispatching onto the given runner.
func NewScheduler(persist persistence.Persistence, runner *Runner, logger *slog.Logger, workerID string) *Scheduler {
	return &Scheduler{
		persistence:   persist,
		runner:        runner,
		logger:        logger.With("module", "scheduler", "worker_id", workerID),
		workerID:      workerID,
		pollInterval:  DefaultPollInterval,
		batchSize:     DefaultBatchSize,
		maxConcurrent: DefaultMaxConcurrent,
		wake:          make(chan struct{}, 1),
	}
}

// WithPollInterval overrides the poll cadence.
func (s *Scheduler) WithPollInterval(interval time.Duration) *Scheduler {
	s.pollInterval = interval

	return s
}

// WithMaxConcurrent overrides the worker pool bound.
func (s *Scheduler) WithMaxConcurrent(limit int) *Scheduler {
	s.maxConcurrent = limit

	return s
}

// Wake asks the scheduler to poll immediately instead of waiting for the
// next tick. Non-blocking; a pending wake is collapsed into one poll.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start polls until ctx is cancelled, then waits for in-flight runs to
// finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Scheduler started",
		"poll_interval", s.pollInterval, "max_concurrent", s.maxConcurrent)

	slots := make(chan struct{}, s.maxConcurrent)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.InfoContext(ctx, "Scheduler stopped")

			return ctx.Err()
		case <-ticker.C:
		case <-s.wake:
		}

		if err := s.dispatch(ctx, slots); err != nil {
			s.logger.ErrorContext(ctx, "Dispatch pass failed", "error", err)
		}
	}
}

// dispatch claims as many pending executions as the pool has room for and
// runs each on its own goroutine.
func (s *Scheduler) dispatch(ctx context.Context, slots chan struct{}) error {
	pending, err := s.persistence.Executions().Pending(ctx, s.batchSize)
	if err != nil {
		return err
	}

	for _, candidate := range pending {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		claimed, err := s.claim(ctx, candidate.ID)
		if err != nil {
			<-slots

			if persistence.IsClaimConflict(err) || persistence.IsExecutionNotFound(err) {
				continue
			}

			return err
		}

		s.wg.Add(1)

		go func(execution *models.Execution) {
			defer s.wg.Done()
			defer func() { <-slots }()

			if err := s.runner.Run(ctx, execution.ID); err != nil {
				s.logger.WarnContext(ctx, "Execution run ended with error",
					"execution_id", execution.ID, "error", err)
			}
		}(claimed)
	}

	return nil
}

func (s *Scheduler) claim(ctx context.Context, executionID string) (*models.Execution, error) {
	claimed, err := s.persistence.Executions().Claim(ctx, executionID, s.workerID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "Execution claimed", "execution_id", executionID)

	return claimed, nil
}
