package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/orchid-run/orchid/pkg/eventbus"
	"github.com/orchid-run/orchid/pkg/events"
	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/persistence"
	"github.com/orchid-run/orchid/pkg/registry"
	"github.com/orchid-run/orchid/pkg/workflow"
)

// APIHandlers serves the workflow management and triggering endpoints. Runs
// are never executed in-process: triggering creates a pending execution row
// and publishes an event for the workers.
type APIHandlers struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	publishing  *workflow.PublishingService
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validator   *validator.Validate
}

func NewAPIHandlers(
	logger *slog.Logger,
	p persistence.Persistence,
	publishing *workflow.PublishingService,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
) *APIHandlers {
	return &APIHandlers{
		logger:      logger.With("module", "web"),
		persistence: p,
		publishing:  publishing,
		registry:    reg,
		eventBus:    eventBus,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *APIHandlers) ListWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.WorkflowRepository().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	wf, err := h.persistence.WorkflowRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	graph := req.Graph
	if graph == nil {
		graph = &models.Graph{Nodes: []*models.GraphNode{}, Edges: []*models.GraphEdge{}}
	}

	wf := &models.Workflow{
		ID:           uuid.NewString(),
		TenantID:     req.TenantID,
		Name:         req.Name,
		Description:  req.Description,
		Status:       models.WorkflowStatusDraft,
		Graph:        graph,
		WebhookToken: uuid.NewString(),
		Variables:    req.Variables,
		Metadata:     req.Metadata,
	}

	if err := h.persistence.WorkflowRepository().Save(c.Context(), wf); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(wf)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	wf, err := h.persistence.WorkflowRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	if wf.Status == models.WorkflowStatusArchived {
		return conflict(c, "archived workflows cannot be edited")
	}

	if req.Name != nil {
		wf.Name = *req.Name
	}

	if req.Description != nil {
		wf.Description = *req.Description
	}

	if req.Graph != nil {
		wf.Graph = req.Graph
	}

	if req.Variables != nil {
		wf.Variables = req.Variables
	}

	if req.Metadata != nil {
		wf.Metadata = req.Metadata
	}

	if err := h.persistence.WorkflowRepository().Save(c.Context(), wf); err != nil {
		return internalError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.persistence.WorkflowRepository().Delete(c.Context(), c.Params("id")); err != nil {
		return handlePersistenceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// PublishWorkflow snapshots the draft graph into the next immutable version.
func (h *APIHandlers) PublishWorkflow(c fiber.Ctx) error {
	version, err := h.publishing.Publish(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "workflow not found")
		}

		return badRequest(c, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(version)
}

// TriggerExecution enqueues a manual run of the workflow.
func (h *APIHandlers) TriggerExecution(c fiber.Ctx) error {
	var req TriggerExecutionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	wf, err := h.persistence.WorkflowRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	if req.VersionNumber > 0 {
		_, err := h.persistence.VersionRepository().GetByNumber(c.Context(), wf.ID, req.VersionNumber)
		if err != nil {
			return handlePersistenceError(c, err)
		}
	}

	return h.enqueueExecution(c, wf, req.VersionNumber, models.TriggeredByManual, req.TriggerData)
}

// TriggerWebhook enqueues a run of the workflow owning the webhook token.
// The request body, when present, becomes the run's trigger data.
func (h *APIHandlers) TriggerWebhook(c fiber.Ctx) error {
	wf, err := h.persistence.WorkflowRepository().GetByWebhookToken(c.Context(), c.Params("token"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	if !wf.Active {
		return conflict(c, "workflow is not active")
	}

	triggerData := map[string]any{}
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&triggerData); err != nil {
			return badRequest(c, "invalid JSON body")
		}
	}

	return h.enqueueExecution(c, wf, 0, models.TriggeredByWebhook, triggerData)
}

func (h *APIHandlers) enqueueExecution(c fiber.Ctx, wf *models.Workflow, versionNumber int, triggeredBy models.TriggeredBy, triggerData map[string]any) error {
	execution := &models.Execution{
		ID:            uuid.NewString(),
		WorkflowID:    wf.ID,
		VersionNumber: versionNumber,
		Status:        models.ExecutionStatusPending,
		TriggeredBy:   triggeredBy,
		TriggerData:   triggerData,
	}

	if err := h.persistence.ExecutionRepository().Create(c.Context(), execution); err != nil {
		return internalError(c, err)
	}

	event := events.ExecutionRequested{
		BaseEvent: events.BaseEvent{
			ID:          h.eventBus.GenerateID(),
			Type:        events.ExecutionRequestedEvent,
			Timestamp:   time.Now().UTC(),
			WorkflowID:  wf.ID,
			ExecutionID: execution.ID,
		},
		TriggeredBy: triggeredBy,
	}

	if err := h.eventBus.Publish(c.Context(), wf.ID, event); err != nil {
		h.logger.ErrorContext(c.Context(), "failed to publish execution request",
			"execution_id", execution.ID, "error", err)

		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(ExecutionCreatedResponse{
		ExecutionID: execution.ID,
		WorkflowID:  wf.ID,
		Status:      string(execution.Status),
	})
}

// RetryExecution enqueues a fresh run with the same input as a finished one.
// The original row is never mutated.
func (h *APIHandlers) RetryExecution(c fiber.Ctx) error {
	execution, err := h.persistence.ExecutionRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	if !execution.Status.IsTerminal() {
		return conflict(c, "execution has not finished yet")
	}

	wf, err := h.persistence.WorkflowRepository().GetByID(c.Context(), execution.WorkflowID)
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return h.enqueueExecution(c, wf, execution.VersionNumber, models.TriggeredByRetry, execution.TriggerData)
}

func (h *APIHandlers) ListExecutions(c fiber.Ctx) error {
	executions, err := h.persistence.ExecutionRepository().ListByWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  executions,
		"total_count": len(executions),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.persistence.ExecutionRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetExecutionLogs(c fiber.Ctx) error {
	executionID := c.Params("id")

	if _, err := h.persistence.ExecutionRepository().GetByID(c.Context(), executionID); err != nil {
		return handlePersistenceError(c, err)
	}

	logs, err := h.persistence.NodeLogRepository().ListByExecution(c.Context(), executionID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"logs":        logs,
		"total_count": len(logs),
	})
}

// ListNodeKinds returns every registered handler kind, sorted.
func (h *APIHandlers) ListNodeKinds(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"kinds": h.registry.Kinds(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
