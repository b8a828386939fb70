// Package memory provides an in-memory persistence implementation for
// development and tests. Claim semantics match the storage contract: the
// conditional pending->running transition is atomic under the store mutex.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence"
)

// Persistence is an in-memory implementation of persistence.Persistence.
type Persistence struct {
	mu         sync.Mutex
	flows      map[string]*models.Flow
	executions map[string]*models.Execution
	artifacts  map[string]*models.Artifact
	feedItems  map[string]*models.FeedItem
}

// NewPersistence creates an empty in-memory store.
func NewPersistence() *Persistence {
	return &Persistence{
		flows:      make(map[string]*models.Flow),
		executions: make(map[string]*models.Execution),
		artifacts:  make(map[string]*models.Artifact),
		feedItems:  make(map[string]*models.FeedItem),
	}
}

// Flows returns the flow repository.
func (p *Persistence) Flows() persistence.FlowRepository { return &flowRepo{p} }

// Executions returns the execution repository.
func (p *Persistence) Executions() persistence.ExecutionRepository { return &executionRepo{p} }

// Artifacts returns the artifact repository.
func (p *Persistence) Artifacts() persistence.ArtifactRepository { return &artifactRepo{p} }

// FeedItems returns the feed item repository.
func (p *Persistence) FeedItems() persistence.FeedItemRepository { return &feedItemRepo{p} }

// HealthCheck always succeeds for the in-memory store.
func (p *Persistence) HealthCheck(_ context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (p *Persistence) Close(_ context.Context) error { return nil }

// clone round-trips a value through JSON so callers never share mutable
// state with the store, mirroring a real database boundary.
func clone[T any](value *T) *T {
	raw, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}

	copied := new(T)
	if err := json.Unmarshal(raw, copied); err != nil {
		panic(err)
	}

	return copied
}

type flowRepo struct{ p *Persistence }

func (r *flowRepo) Save(_ context.Context, flow *models.Flow) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	r.p.flows[flow.ID] = clone(flow)

	return nil
}

func (r *flowRepo) ByID(_ context.Context, id string) (*models.Flow, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	flow, ok := r.p.flows[id]
	if !ok {
		return nil, persistence.ErrFlowNotFound
	}

	return clone(flow), nil
}

func (r *flowRepo) All(_ context.Context) ([]*models.Flow, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	flows := make([]*models.Flow, 0, len(r.p.flows))
	for _, flow := range r.p.flows {
		flows = append(flows, clone(flow))
	}

	sort.Slice(flows, func(i, j int) bool { return flows[i].ID < flows[j].ID })

	return flows, nil
}

func (r *flowRepo) ActiveScheduled(_ context.Context) ([]*models.Flow, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var flows []*models.Flow

	for _, flow := range r.p.flows {
		if flow.Active && flow.Schedule != "" {
			flows = append(flows, clone(flow))
		}
	}

	sort.Slice(flows, func(i, j int) bool { return flows[i].ID < flows[j].ID })

	return flows, nil
}

func (r *flowRepo) Delete(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.flows[id]; !ok {
		return persistence.ErrFlowNotFound
	}

	delete(r.p.flows, id)

	return nil
}

type executionRepo struct{ p *Persistence }

func (r *executionRepo) Create(_ context.Context, execution *models.Execution) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	r.p.executions[execution.ID] = clone(execution)

	return nil
}

func (r *executionRepo) ByID(_ context.Context, id string) (*models.Execution, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	execution, ok := r.p.executions[id]
	if !ok {
		return nil, persistence.ErrExecutionNotFound
	}

	return clone(execution), nil
}

func (r *executionRepo) Save(_ context.Context, execution *models.Execution) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.executions[execution.ID]; !ok {
		return persistence.ErrExecutionNotFound
	}

	r.p.executions[execution.ID] = clone(execution)

	return nil
}

func (r *executionRepo) SaveRunning(_ context.Context, execution *models.Execution) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	stored, ok := r.p.executions[execution.ID]
	if !ok {
		return persistence.ErrExecutionNotFound
	}

	// A cancel or reset owns the record now; the worker's copy is stale.
	if stored.Status != models.ExecutionStatusRunning {
		return persistence.ErrExecutionNotRunning
	}

	r.p.executions[execution.ID] = clone(execution)

	return nil
}

func (r *executionRepo) Pending(_ context.Context, limit int) ([]*models.Execution, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var pending []*models.Execution

	for _, execution := range r.p.executions {
		if execution.Status == models.ExecutionStatusPending {
			pending = append(pending, clone(execution))
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}

	return pending, nil
}

func (r *executionRepo) Claim(_ context.Context, id, _ string, now time.Time) (*models.Execution, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	execution, ok := r.p.executions[id]
	if !ok {
		return nil, persistence.ErrExecutionNotFound
	}

	if execution.Status != models.ExecutionStatusPending {
		return nil, persistence.ErrClaimConflict
	}

	execution.Status = models.ExecutionStatusRunning
	startedAt := now.UTC()
	execution.StartedAt = &startedAt
	execution.HeartbeatAt = &startedAt

	return clone(execution), nil
}

func (r *executionRepo) Heartbeat(_ context.Context, id string, at time.Time) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	execution, ok := r.p.executions[id]
	if !ok {
		return persistence.ErrExecutionNotFound
	}

	// Liveness pulses only apply to running executions.
	if execution.Status != models.ExecutionStatusRunning {
		return nil
	}

	stamp := at.UTC()
	execution.HeartbeatAt = &stamp

	return nil
}

func (r *executionRepo) Reset(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	execution, ok := r.p.executions[id]
	if !ok {
		return persistence.ErrExecutionNotFound
	}

	execution.Status = models.ExecutionStatusPending
	execution.StartedAt = nil
	execution.CompletedAt = nil
	execution.HeartbeatAt = nil
	execution.ErrorMessage = ""
	execution.ExecutionLog = nil

	return nil
}

func (r *executionRepo) StaleRunning(_ context.Context, cutoff time.Time) ([]*models.Execution, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var stale []*models.Execution

	for _, execution := range r.p.executions {
		if execution.Status == models.ExecutionStatusRunning && execution.LivenessAt().Before(cutoff) {
			stale = append(stale, clone(execution))
		}
	}

	sort.Slice(stale, func(i, j int) bool { return stale[i].ID < stale[j].ID })

	return stale, nil
}

func (r *executionRepo) ByArtifact(_ context.Context, artifactID string) ([]*models.Execution, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var matched []*models.Execution

	for _, execution := range r.p.executions {
		if execution.ArtifactID != nil && *execution.ArtifactID == artifactID {
			matched = append(matched, clone(execution))
		}
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	return matched, nil
}

type artifactRepo struct{ p *Persistence }

func (r *artifactRepo) Save(_ context.Context, artifact *models.Artifact) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	r.p.artifacts[artifact.ID] = clone(artifact)

	return nil
}

func (r *artifactRepo) ByID(_ context.Context, id string) (*models.Artifact, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	artifact, ok := r.p.artifacts[id]
	if !ok {
		return nil, persistence.ErrArtifactNotFound
	}

	return clone(artifact), nil
}

func (r *artifactRepo) MarkProcessing(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	artifact, ok := r.p.artifacts[id]
	if !ok {
		return persistence.ErrArtifactNotFound
	}

	if artifact.Status == models.ArtifactStatusPending {
		artifact.Status = models.ArtifactStatusProcessing
		artifact.UpdatedAt = time.Now().UTC()
	}

	return nil
}

func (r *artifactRepo) CommitResult(_ context.Context, id string, result map[string]any) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	artifact, ok := r.p.artifacts[id]
	if !ok {
		return persistence.ErrArtifactNotFound
	}

	if artifact.Status != models.ArtifactStatusPending && artifact.Status != models.ArtifactStatusProcessing {
		return persistence.ErrArtifactConflict
	}

	artifact.Status = models.ArtifactStatusCompleted
	artifact.ProcessingResult = result
	artifact.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *artifactRepo) Page(_ context.Context, offset, limit int) ([]*models.Artifact, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	artifacts := make([]*models.Artifact, 0, len(r.p.artifacts))
	for _, artifact := range r.p.artifacts {
		artifacts = append(artifacts, clone(artifact))
	}

	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].ID < artifacts[j].ID })

	if offset >= len(artifacts) {
		return nil, nil
	}

	artifacts = artifacts[offset:]
	if limit > 0 && len(artifacts) > limit {
		artifacts = artifacts[:limit]
	}

	return artifacts, nil
}

func (r *artifactRepo) ClearFeedItemRef(_ context.Context, feedItemID string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	for _, artifact := range r.p.artifacts {
		if artifact.FeedItemID != nil && *artifact.FeedItemID == feedItemID {
			artifact.FeedItemID = nil
			artifact.UpdatedAt = time.Now().UTC()
		}
	}

	return nil
}

// PutFeedItem stores an item without the natural-key guard. Fixture helper
// for exercising reconciliation over legacy duplicates.
func (p *Persistence) PutFeedItem(item *models.FeedItem) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.feedItems[item.ID] = clone(item)
}

type feedItemRepo struct{ p *Persistence }

func (r *feedItemRepo) Insert(_ context.Context, item *models.FeedItem) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	for _, existing := range r.p.feedItems {
		if existing.NaturalKey() == item.NaturalKey() {
			return persistence.ErrDuplicateFeedItem
		}
	}

	r.p.feedItems[item.ID] = clone(item)

	return nil
}

func (r *feedItemRepo) Page(_ context.Context, offset, limit int) ([]*models.FeedItem, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	items := make([]*models.FeedItem, 0, len(r.p.feedItems))
	for _, item := range r.p.feedItems {
		items = append(items, clone(item))
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	if offset >= len(items) {
		return nil, nil
	}

	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}

func (r *feedItemRepo) Delete(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	delete(r.p.feedItems, id)

	return nil
}
