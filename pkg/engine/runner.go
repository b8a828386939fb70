// Package engine drives flow executions: the runner walks a claimed
// execution through its graph, the scheduler claims pending work, the
// watchdog recovers runs abandoned by dead workers, and the reconciler
// repairs cross-record inconsistencies.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/eventbus"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/events"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/graph"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/nodes/terminal"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/otelhelper"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/registry"
)

const (
	// DefaultStepLimit bounds the number of node steps a single run may take.
	// Graphs are expected to be acyclic; the ceiling turns an accidental
	// cycle into a failed run instead of a stuck worker.
	DefaultStepLimit = 250

	// DefaultHeartbeatInterval is the cadence of background liveness pulses
	// written while a node executes.
	DefaultHeartbeatInterval = 30 * time.Second
)

// Context keys read at finalization to produce a derivative feed item.
const (
	feedTitleKey = "feed_title"
	feedURLKey   = "feed_url"
)

// Runner executes a single claimed execution to its next rest state:
// completed, failed, or suspended back to pending.
type Runner struct {
	persistence       persistence.Persistence
	registry          *registry.Registry
	publisher         eventbus.EventPublisher
	logger            *slog.Logger
	tracer            trace.Tracer
	workerID          string
	stepLimit         int
	heartbeatInterval time.Duration
}

// NewRunner creates a runner bound to a worker identity.
func NewRunner(
	persist persistence.Persistence,
	reg *registry.Registry,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
	workerID string,
) *Runner {
	return &Runner{
		persistence:       persist,
		registry:          reg,
		publisher:         publisher,
		logger:            logger.With("module", "runner", "worker_id", workerID),
		tracer:            otel.Tracer("warroom.engine"),
		workerID:          workerID,
		stepLimit:         DefaultStepLimit,
		heartbeatInterval: DefaultHeartbeatInterval,
	}
}

// WithStepLimit overrides the step ceiling.
func (r *Runner) WithStepLimit(limit int) *Runner {
	r.stepLimit = limit

	return r
}

// Run drives the execution until it completes, fails, or suspends. The
// execution must already be claimed (status running); Run persists each
// step's merged context before advancing, so a crash at any point loses at
// most the in-flight node.
func (r *Runner) Run(ctx context.Context, executionID string) error {
	execution, err := r.persistence.Executions().ByID(ctx, executionID)
	if err != nil {
		return err
	}

	if execution.Status != models.ExecutionStatusRunning {
		return fmt.Errorf("%w: execution %s is %s", ErrExecutionNotClaimed, executionID, execution.Status)
	}

	flow, err := r.persistence.Flows().ByID(ctx, execution.FlowID)
	if err != nil {
		return r.fail(ctx, execution, "", fmt.Errorf("failed to load flow %s: %w", execution.FlowID, err))
	}

	g, err := graph.Load(flow)
	if err != nil {
		return r.fail(ctx, execution, "", err)
	}

	currentID, err := r.startNode(g, execution)
	if err != nil {
		return r.fail(ctx, execution, "", err)
	}

	runAttrs := []attribute.KeyValue{
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.FlowIDKey, execution.FlowID),
		attribute.String(otelhelper.FlowNameKey, flow.Name),
		attribute.String(otelhelper.WorkerIDKey, r.workerID),
	}
	if execution.ArtifactID != nil {
		runAttrs = append(runAttrs, attribute.String(otelhelper.ArtifactIDKey, *execution.ArtifactID))
	}

	ctx, runSpan := otelhelper.StartSpan(ctx, r.tracer, "execution.run", runAttrs...)
	defer runSpan.End()

	r.publish(ctx, execution, events.ExecutionStarted{
		BaseEvent:   r.baseEvent(events.ExecutionStartedEvent, execution.FlowID),
		ExecutionID: execution.ID,
	})

	stopHeartbeat := r.startHeartbeat(ctx, execution.ID)
	defer stopHeartbeat()

	started := time.Now()
	steps := 0

	for {
		steps++
		if steps > r.stepLimit {
			return r.fail(ctx, execution, currentID, &StepLimitError{ExecutionID: execution.ID, Limit: r.stepLimit})
		}

		nodeDef, ok := g.Node(currentID)
		if !ok {
			return r.fail(ctx, execution, currentID, fmt.Errorf("node %q not in flow graph", currentID))
		}

		instance, err := r.registry.Create(nodeDef.Kind, nodeDef.ID, nodeDef.Config)
		if err != nil {
			return r.fail(ctx, execution, currentID, err)
		}

		r.logger.DebugContext(ctx, "Executing node",
			"execution_id", execution.ID, "node_id", currentID, "kind", nodeDef.Kind, "step", steps)

		stepCtx, stepSpan := otelhelper.StartSpan(ctx, r.tracer, "node.execute",
			attribute.String(otelhelper.ExecutionIDKey, execution.ID),
			attribute.String(otelhelper.NodeIDKey, currentID),
			attribute.String(otelhelper.NodeKindKey, string(nodeDef.Kind)),
		)

		output, err := instance.Execute(stepCtx, execution)
		if err != nil {
			otelhelper.SetError(stepSpan, err)
			stepSpan.End()

			return r.fail(ctx, execution, currentID, err)
		}

		stepSpan.End()

		for key, value := range output.Delta {
			execution.Context[key] = value
		}

		now := time.Now().UTC()
		execution.HeartbeatAt = &now
		execution.AppendLog(currentID, nodeDef.Kind, stepMessage(output))

		if output.Suspend {
			return r.suspend(ctx, execution, currentID)
		}

		if nodeDef.Kind == models.NodeKindTerminal {
			return r.complete(ctx, execution, started, steps)
		}

		if err := r.persistence.Executions().SaveRunning(ctx, execution); err != nil {
			if persistence.IsExecutionNotRunning(err) {
				return r.abandon(ctx, execution, currentID, err)
			}

			return fmt.Errorf("failed to persist step: %w", err)
		}

		successors := g.Successors(currentID, output.Branch)
		if len(successors) == 0 {
			return r.fail(ctx, execution, currentID,
				fmt.Errorf("node %q has no successor for branch %q", currentID, output.Branch))
		}

		if len(successors) > 1 {
			r.logger.WarnContext(ctx, "Node has multiple successors, following the first",
				"execution_id", execution.ID, "node_id", currentID)
		}

		currentID = successors[0]
	}
}

// abandon stops a run whose record was transitioned externally (operator
// cancel, watchdog reset) while a node was executing. The worker's copy is
// stale and must not be written back: the external transition wins and the
// in-flight work is discarded.
func (r *Runner) abandon(ctx context.Context, execution *models.Execution, nodeID string, cause error) error {
	r.logger.WarnContext(ctx, "Execution transitioned externally, abandoning run",
		"execution_id", execution.ID, "node_id", nodeID)

	otelhelper.SetError(trace.SpanFromContext(ctx), cause)

	return fmt.Errorf("run abandoned at node %q: %w", nodeID, cause)
}

// Cancel forces a non-terminal execution into failed with a designated
// reason. The owning worker's in-flight capability calls observe the ctx
// cancellation best-effort; the record transition is immediate.
func (r *Runner) Cancel(ctx context.Context, executionID, reason, cancelledBy string) error {
	execution, err := r.persistence.Executions().ByID(ctx, executionID)
	if err != nil {
		return err
	}

	if execution.Status.IsTerminal() {
		return fmt.Errorf("%w: execution %s is %s", ErrExecutionFinished, executionID, execution.Status)
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusFailed
	execution.ErrorMessage = "cancelled: " + reason
	execution.CompletedAt = &now

	if err := r.persistence.Executions().Save(ctx, execution); err != nil {
		return fmt.Errorf("failed to persist cancellation: %w", err)
	}

	event := events.ExecutionFailed{
		BaseEvent:   r.baseEvent(events.ExecutionFailedEvent, execution.FlowID),
		ExecutionID: execution.ID,
		Error:       execution.ErrorMessage,
	}
	event.Metadata["cancelled_by"] = cancelledBy
	r.publish(ctx, execution, event)

	return nil
}

// startNode resolves the node the run enters at: the resume node when a
// suspend wrote one, the graph entry otherwise. A consumed resume context is
// cleared so a later crash recovery restarts from the entry.
func (r *Runner) startNode(g *graph.Graph, execution *models.Execution) (string, error) {
	if execution.ResumeContext == nil {
		return g.EntryNode()
	}

	resume := execution.ResumeContext
	if _, ok := g.Node(resume.NodeID); !ok {
		return "", fmt.Errorf("resume node %q not in flow graph", resume.NodeID)
	}

	for key, value := range resume.Context {
		execution.Context[key] = value
	}

	execution.ResumeContext = nil

	return resume.NodeID, nil
}

func (r *Runner) suspend(ctx context.Context, execution *models.Execution, nodeID string) error {
	execution.ResumeContext = &models.ResumeContext{NodeID: nodeID}
	execution.Status = models.ExecutionStatusPending
	execution.StartedAt = nil
	execution.HeartbeatAt = nil

	if err := r.persistence.Executions().SaveRunning(ctx, execution); err != nil {
		if persistence.IsExecutionNotRunning(err) {
			return r.abandon(ctx, execution, nodeID, err)
		}

		return fmt.Errorf("failed to persist suspension: %w", err)
	}

	r.logger.InfoContext(ctx, "Execution suspended",
		"execution_id", execution.ID, "node_id", nodeID)

	r.publish(ctx, execution, events.ExecutionSuspended{
		BaseEvent:   r.baseEvent(events.ExecutionSuspendedEvent, execution.FlowID),
		ExecutionID: execution.ID,
		NodeID:      nodeID,
	})

	return nil
}

func (r *Runner) complete(ctx context.Context, execution *models.Execution, started time.Time, steps int) error {
	result, _ := execution.Context[terminal.ResultKey].(map[string]any)

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &now

	// The completion save goes first: if a cancel landed while the terminal
	// node ran, the guarded save loses and the artifact stays untouched. A
	// crash between this save and the commit leaves an unadvanced artifact,
	// which the reconciler repairs.
	if err := r.persistence.Executions().SaveRunning(ctx, execution); err != nil {
		if persistence.IsExecutionNotRunning(err) {
			return r.abandon(ctx, execution, "", err)
		}

		return fmt.Errorf("failed to persist completion: %w", err)
	}

	if execution.ArtifactID != nil {
		if err := r.commitArtifact(ctx, execution, *execution.ArtifactID, result); err != nil {
			r.logger.ErrorContext(ctx, "Failed to commit artifact, leaving repair to reconciliation",
				"execution_id", execution.ID, "artifact_id", *execution.ArtifactID, "error", err)

			return err
		}
	}

	r.logger.InfoContext(ctx, "Execution completed",
		"execution_id", execution.ID, "steps", steps, "duration", time.Since(started))

	r.publish(ctx, execution, events.ExecutionCompleted{
		BaseEvent:   r.baseEvent(events.ExecutionCompletedEvent, execution.FlowID),
		ExecutionID: execution.ID,
		Result:      result,
		DurationMs:  time.Since(started).Milliseconds(),
		StepsRun:    steps,
	})

	return nil
}

// commitArtifact finalizes the owning artifact and inserts the derivative
// feed item. Both writes are idempotent: a re-run over an already finalized
// artifact observes the conflict and moves on, and a duplicate feed item is
// rejected by its natural key.
func (r *Runner) commitArtifact(ctx context.Context, execution *models.Execution, artifactID string, result map[string]any) error {
	artifacts := r.persistence.Artifacts()

	if err := artifacts.MarkProcessing(ctx, artifactID); err != nil {
		return fmt.Errorf("failed to mark artifact processing: %w", err)
	}

	err := artifacts.CommitResult(ctx, artifactID, result)
	if persistence.IsArtifactConflict(err) {
		r.logger.InfoContext(ctx, "Artifact already finalized, skipping commit",
			"execution_id", execution.ID, "artifact_id", artifactID)

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to commit artifact result: %w", err)
	}

	return r.insertFeedItem(ctx, execution, artifactID)
}

func (r *Runner) insertFeedItem(ctx context.Context, execution *models.Execution, artifactID string) error {
	title, _ := execution.Context[feedTitleKey].(string)
	if title == "" {
		return nil
	}

	artifact, err := r.persistence.Artifacts().ByID(ctx, artifactID)
	if err != nil {
		return fmt.Errorf("failed to load artifact for feed item: %w", err)
	}

	url, _ := execution.Context[feedURLKey].(string)
	item := &models.FeedItem{
		ID:              models.GenerateFeedItemID(),
		ActivationID:    artifact.ActivationID,
		Title:           title,
		NormalizedTitle: models.NormalizeTitle(title),
		URL:             url,
		CreatedAt:       time.Now().UTC(),
	}

	err = r.persistence.FeedItems().Insert(ctx, item)
	if persistence.IsDuplicateFeedItem(err) {
		r.logger.InfoContext(ctx, "Feed item already exists, skipping insert",
			"execution_id", execution.ID, "activation_id", item.ActivationID)

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to insert feed item: %w", err)
	}

	artifact.FeedItemID = &item.ID
	artifact.UpdatedAt = time.Now().UTC()

	if err := r.persistence.Artifacts().Save(ctx, artifact); err != nil {
		return fmt.Errorf("failed to link feed item to artifact: %w", err)
	}

	return nil
}

func (r *Runner) fail(ctx context.Context, execution *models.Execution, nodeID string, cause error) error {
	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusFailed
	execution.ErrorMessage = cause.Error()
	execution.CompletedAt = &now

	otelhelper.SetError(trace.SpanFromContext(ctx), cause)

	if saveErr := r.persistence.Executions().SaveRunning(ctx, execution); saveErr != nil {
		if persistence.IsExecutionNotRunning(saveErr) {
			return r.abandon(ctx, execution, nodeID, cause)
		}

		r.logger.ErrorContext(ctx, "Failed to persist execution failure",
			"execution_id", execution.ID, "error", saveErr)
	}

	r.logger.WarnContext(ctx, "Execution failed",
		"execution_id", execution.ID, "node_id", nodeID, "error", cause)

	r.publish(ctx, execution, events.ExecutionFailed{
		BaseEvent:   r.baseEvent(events.ExecutionFailedEvent, execution.FlowID),
		ExecutionID: execution.ID,
		NodeID:      nodeID,
		Error:       cause.Error(),
	})

	return cause
}

// startHeartbeat writes periodic liveness pulses while the run loop works
// through nodes, keeping the watchdog off long-running executions.
func (r *Runner) startHeartbeat(ctx context.Context, executionID string) func() {
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(r.heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.persistence.Executions().Heartbeat(ctx, executionID, time.Now().UTC()); err != nil {
					r.logger.WarnContext(ctx, "Failed to write heartbeat",
						"execution_id", executionID, "error", err)
				}
			}
		}
	}()

	return func() { close(done) }
}

func (r *Runner) baseEvent(eventType events.EventType, flowID string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, flowID)
	base.WorkerID = r.workerID

	return base
}

func (r *Runner) publish(ctx context.Context, execution *models.Execution, event eventbus.Event) {
	if r.publisher == nil {
		return
	}

	if err := r.publisher.Publish(ctx, execution.ID, event); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish event",
			"execution_id", execution.ID, "event_type", event.GetType(), "error", err)
	}
}

func stepMessage(output *protocol.NodeOutput) string {
	switch {
	case output.Suspend:
		return "suspended"
	case output.Branch != "":
		return "branch " + output.Branch
	default:
		return "ok"
	}
}
