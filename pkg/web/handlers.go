package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/gpu"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/persistence"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/registry"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/scheduler"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/workflow"
)

type APIHandlers struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	validator   *validator.Validate
	registry    *registry.Registry
	executor    *workflow.Executor
	estimator   *workflow.Estimator
	ledger      protocol.CreditLedger
	gpuRouter   *gpu.Router
	pool        *scheduler.WorkerPool
}

func NewAPIHandlers(
	logger *slog.Logger,
	persist persistence.Persistence,
	validate *validator.Validate,
	reg *registry.Registry,
	executor *workflow.Executor,
	estimator *workflow.Estimator,
	ledger protocol.CreditLedger,
	gpuRouter *gpu.Router,
	pool *scheduler.WorkerPool,
) *APIHandlers {
	return &APIHandlers{
		logger:      logger.With("module", "api"),
		persistence: persist,
		validator:   validate,
		registry:    reg,
		executor:    executor,
		estimator:   estimator,
		ledger:      ledger,
		gpuRouter:   gpuRouter,
		pool:        pool,
	}
}

// RegisterRoutes mounts every API route on the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.HealthCheck)
	app.Get("/node-types", h.GetNodeTypes)

	w := app.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Patch("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/execute", h.ExecuteWorkflow)
	w.Get("/:id/executions", h.GetWorkflowExecutions)

	app.Get("/executions/:id", h.GetExecution)
	app.Get("/jobs/:id", h.GetJobStatus)

	s := app.Group("/schedules")
	s.Get("/", h.GetSchedules)
	s.Post("/", h.CreateSchedule)
	s.Delete("/:id", h.DeleteSchedule)

	g := app.Group("/gpu")
	g.Get("/status", h.GetGPUStatus)
	g.Post("/reset", h.ResetGPUState)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "vixxxen engine is healthy"
	httpStatus := http.StatusOK

	repositoryCheck := "ok"

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "vixxxen engine is unhealthy"
		httpStatus = http.StatusInternalServerError
		repositoryCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"node_types": h.registry.NodeTypes()})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.WorkflowRepository().GetAll(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	wf, err := h.persistence.WorkflowRepository().GetByID(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	now := time.Now().UTC()
	wf := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		UserID:      req.UserID,
		Nodes:       toNodes(req.Nodes),
		Edges:       toEdges(req.Edges),
		IsActive:    req.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.registry.ValidateWorkflow(wf); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.WorkflowRepository().Save(c.Context(), wf); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(wf)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.persistence.WorkflowRepository().GetByID(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Nodes != nil {
		existing.Nodes = toNodes(req.Nodes)
	}

	if req.Edges != nil {
		existing.Edges = toEdges(req.Edges)
	}

	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	if err := h.registry.ValidateWorkflow(existing); err != nil {
		return badRequest(c, err.Error())
	}

	existing.UpdatedAt = time.Now().UTC()

	if err := h.persistence.WorkflowRepository().Save(c.Context(), existing); err != nil {
		return internalError(c, err)
	}

	return c.JSON(existing)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.persistence.WorkflowRepository().Delete(c.Context(), id); err != nil {
		return handleRepositoryError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteWorkflow fires a manual run. The credit pre-check uses the static
// per-type estimate; actual deduction happens per node during the run.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	wf, err := h.persistence.WorkflowRepository().GetByID(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err)
	}

	estimate := h.estimator.Estimate(wf)

	balance, err := h.ledger.Balance(c.Context(), wf.UserID)
	if err != nil {
		return internalError(c, err)
	}

	if balance < estimate {
		return paymentRequired(c, "insufficient credits for this workflow")
	}

	execution := &models.Execution{
		ID:               uuid.New().String(),
		WorkflowID:       wf.ID,
		UserID:           wf.UserID,
		Status:           models.ExecutionStatusPending,
		Context:          make(models.ExecutionContext),
		CreditsEstimated: estimate,
		CreatedAt:        time.Now().UTC(),
	}

	if err := h.persistence.ExecutionRepository().CreateExecution(c.Context(), execution); err != nil {
		return internalError(c, err)
	}

	submitted := h.pool.Submit(func(ctx context.Context) {
		if err := h.executor.Run(ctx, wf, execution); err != nil {
			h.logger.ErrorContext(ctx, "Manual execution failed",
				"execution_id", execution.ID, "error", err)
		}
	})
	if !submitted {
		failedAt := time.Now().UTC()
		execution.Status = models.ExecutionStatusFailed
		execution.ErrorMessage = "worker pool full, execution never started"
		execution.CompletedAt = &failedAt

		if updateErr := h.persistence.ExecutionRepository().UpdateExecution(c.Context(), execution); updateErr != nil {
			h.logger.ErrorContext(c.Context(), "Failed to mark unstarted execution failed",
				"execution_id", execution.ID, "error", updateErr)
		}

		return unavailable(c, "execution queue is full, try again shortly")
	}

	return c.Status(fiber.StatusAccepted).JSON(ExecuteResponse{
		ExecutionID:      execution.ID,
		Status:           string(execution.Status),
		CreditsEstimated: estimate,
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.persistence.ExecutionRepository().ExecutionByID(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err)
	}

	steps, err := h.persistence.ExecutionRepository().StepResultsByExecution(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"execution": execution,
		"steps":     steps,
	})
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	executions, err := h.persistence.ExecutionRepository().ExecutionsByWorkflow(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

// GetJobStatus polls the backend a GPU job was submitted to.
func (h *APIHandlers) GetJobStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Job ID is required")
	}

	result := h.gpuRouter.JobStatus(c.Context(), id)
	if !result.Success {
		return badGateway(c, result.Error)
	}

	return c.JSON(fiber.Map{
		"job_id":   id,
		"endpoint": result.Endpoint,
		"data":     result.Data,
	})
}

func (h *APIHandlers) GetSchedules(c fiber.Ctx) error {
	schedules, err := h.persistence.ScheduleRepository().GetAll(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"schedules": schedules})
}

func (h *APIHandlers) CreateSchedule(c fiber.Ctx) error {
	var req CreateScheduleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if _, err := h.persistence.WorkflowRepository().GetByID(c.Context(), req.WorkflowID); err != nil {
		return handleRepositoryError(c, err)
	}

	schedule, err := models.NewSchedule(uuid.New().String(), req.WorkflowID, req.UserID, req.CronExpression, req.Timezone)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.ScheduleRepository().Save(c.Context(), schedule); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(schedule)
}

func (h *APIHandlers) DeleteSchedule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Schedule ID is required")
	}

	if err := h.persistence.ScheduleRepository().Delete(c.Context(), id); err != nil {
		return handleRepositoryError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetGPUStatus(c fiber.Ctx) error {
	settings := h.gpuRouter.Settings(c.Context())

	return c.JSON(fiber.Map{
		"mode":                 settings.Mode,
		"dedicated_configured": settings.DedicatedURL != "",
		"current_lora":         h.gpuRouter.State().CurrentLoRA(),
	})
}

// ResetGPUState clears the tracked LoRA after a known pod restart.
func (h *APIHandlers) ResetGPUState(c fiber.Ctx) error {
	h.gpuRouter.State().Reset()
	h.logger.InfoContext(c.Context(), "GPU affinity state reset")

	return c.SendStatus(fiber.StatusNoContent)
}

func toNodes(inputs []NodeInput) []*models.Node {
	nodes := make([]*models.Node, 0, len(inputs))
	for _, input := range inputs {
		nodes = append(nodes, &models.Node{ID: input.ID, Type: input.Type, Config: input.Config})
	}

	return nodes
}

func toEdges(inputs []EdgeInput) []*models.Edge {
	edges := make([]*models.Edge, 0, len(inputs))
	for _, input := range inputs {
		edges = append(edges, &models.Edge{
			ID:           input.ID,
			Source:       input.Source,
			Target:       input.Target,
			SourceHandle: input.SourceHandle,
			TargetHandle: input.TargetHandle,
		})
	}

	return edges
}
