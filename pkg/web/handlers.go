// Package web provides the REST API for flow management and execution
// control.
package web

import (
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/engine"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/eventbus"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/events"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/graph"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence"
)

type APIHandlers struct {
	persistence persistence.Persistence
	runner      *engine.Runner
	publisher   eventbus.EventPublisher
	validator   *validator.Validate
	logger      *slog.Logger

	// onEnqueue is invoked after a new execution is created, typically to
	// wake the scheduler.
	onEnqueue func()
}

func NewAPIHandlers(
	persist persistence.Persistence,
	runner *engine.Runner,
	publisher eventbus.EventPublisher,
	validate *validator.Validate,
	logger *slog.Logger,
	onEnqueue func(),
) *APIHandlers {
	return &APIHandlers{
		persistence: persist,
		runner:      runner,
		publisher:   publisher,
		validator:   validate,
		logger:      logger.With("module", "web"),
		onEnqueue:   onEnqueue,
	}
}

// RegisterRoutes mounts every API route on the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.Health)

	app.Post("/flows", h.CreateFlow)
	app.Get("/flows/:id", h.GetFlow)

	app.Post("/executions", h.TriggerExecution)
	app.Get("/executions/:id", h.GetExecution)
	app.Post("/executions/:id/reset", h.ResetExecution)
	app.Post("/executions/:id/cancel", h.CancelExecution)

	app.Get("/artifacts/:id", h.GetArtifact)
}

func (h *APIHandlers) Health(c fiber.Ctx) error {
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy"})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// CreateFlow validates the payload and the graph structure before saving.
// Structural violations are reported all at once.
func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req CreateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON payload: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	now := time.Now().UTC()
	flow := &models.Flow{
		ID:        req.ID,
		Owner:     req.Owner,
		Name:      req.Name,
		Active:    req.Active,
		Schedule:  req.Schedule,
		Nodes:     req.Nodes,
		Edges:     req.Edges,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if flow.ID == "" {
		flow.ID = "flow-" + uuid.New().String()[:8]
	}

	if _, err := graph.Load(flow); err != nil {
		return handleStorageError(c, err)
	}

	if err := h.persistence.Flows().Save(c.Context(), flow); err != nil {
		return internalError(c, err)
	}

	h.logger.InfoContext(c.Context(), "Flow created", "flow_id", flow.ID, "owner", flow.Owner)

	return c.Status(fiber.StatusCreated).JSON(flow)
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	flow, err := h.persistence.Flows().ByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleStorageError(c, err)
	}

	return c.JSON(flow)
}

// TriggerExecution creates a pending execution for an active flow.
func (h *APIHandlers) TriggerExecution(c fiber.Ctx) error {
	var req TriggerExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON payload: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	flow, err := h.persistence.Flows().ByID(c.Context(), req.FlowID)
	if err != nil {
		return handleStorageError(c, err)
	}

	if !flow.Active {
		return notFound(c, "flow is not active")
	}

	execution := models.NewExecution(flow.ID, req.UserID, req.Context)
	if req.ArtifactID != "" {
		execution.ArtifactID = &req.ArtifactID
	}

	if err := h.persistence.Executions().Create(c.Context(), execution); err != nil {
		return internalError(c, err)
	}

	h.logger.InfoContext(c.Context(), "Execution triggered",
		"execution_id", execution.ID, "flow_id", flow.ID)

	h.publishCreated(c, execution)

	if h.onEnqueue != nil {
		h.onEnqueue()
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":     execution.ID,
		"status": execution.Status,
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.persistence.Executions().ByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleStorageError(c, err)
	}

	return c.JSON(execution)
}

// ResetExecution is the operator reset: the execution returns to pending and
// restarts from the graph entry with its seed context.
func (h *APIHandlers) ResetExecution(c fiber.Ctx) error {
	id := c.Params("id")

	if err := h.persistence.Executions().Reset(c.Context(), id); err != nil {
		return handleStorageError(c, err)
	}

	h.logger.InfoContext(c.Context(), "Execution reset by operator", "execution_id", id)

	if h.onEnqueue != nil {
		h.onEnqueue()
	}

	return c.JSON(fiber.Map{"id": id, "status": models.ExecutionStatusPending})
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	var req CancelExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON payload: "+err.Error())
	}

	if req.Reason == "" {
		req.Reason = "cancelled via API"
	}

	id := c.Params("id")

	if err := h.runner.Cancel(c.Context(), id, req.Reason, req.CancelledBy); err != nil {
		return handleStorageError(c, err)
	}

	return c.JSON(fiber.Map{"id": id, "status": models.ExecutionStatusFailed})
}

func (h *APIHandlers) GetArtifact(c fiber.Ctx) error {
	artifact, err := h.persistence.Artifacts().ByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleStorageError(c, err)
	}

	return c.JSON(artifact)
}

func (h *APIHandlers) publishCreated(c fiber.Ctx, execution *models.Execution) {
	if h.publisher == nil {
		return
	}

	event := events.ExecutionCreated{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCreatedEvent, execution.FlowID),
		ExecutionID: execution.ID,
		TriggerData: execution.Context,
	}

	if err := h.publisher.Publish(c.Context(), execution.ID, event); err != nil {
		h.logger.WarnContext(c.Context(), "Failed to publish creation event",
			"execution_id", execution.ID, "error", err)
	}
}
