// Package web provides HTTP handlers and REST API endpoints for workflow
// execution.
package web

import (
	"net/http"
	"time"

	"github.com/conductor-labs/conductor/pkg/engine"
	"github.com/conductor-labs/conductor/pkg/executor"
	"github.com/conductor-labs/conductor/pkg/models"
	"github.com/conductor-labs/conductor/pkg/store"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	engine    *engine.Engine
	store     store.Store
	registry  *executor.Registry
	validator *validator.Validate
}

func NewAPIHandlers(
	eng *engine.Engine,
	st store.Store,
	registry *executor.Registry,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		engine:    eng,
		store:     st,
		registry:  registry,
		validator: validator,
	}
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.engine.CreateWorkflow(c.Context(), engine.CreateRequest{
		Goal:    req.Goal,
		OwnerID: req.OwnerID,
		Context: req.Context,
		Options: req.Options.ToModel(),
	})
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(NewCreateWorkflowResponse(workflow))
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.engine.GetStatus(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(NewWorkflowStatusResponse(workflow))
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.store.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	ownerID := c.Query("owner_id")
	status := c.Query("status")

	filtered := make([]*models.Workflow, 0, len(workflows))

	for _, workflow := range workflows {
		if ownerID != "" && workflow.OwnerID != ownerID {
			continue
		}

		if status != "" && workflow.Status != models.WorkflowStatus(status) {
			continue
		}

		filtered = append(filtered, workflow)
	}

	return c.JSON(fiber.Map{
		"workflows":   filtered,
		"total_count": len(filtered),
	})
}

func (h *APIHandlers) ResolveApproval(c fiber.Ctx) error {
	id := c.Params("id")
	approvalID := c.Params("approvalId")

	if id == "" || approvalID == "" {
		return badRequest(c, "Workflow ID and approval ID are required")
	}

	var req ApprovalDecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	record, err := h.engine.Approve(c.Context(), id, approvalID, models.ApprovalStatus(req.Decision), req.Responder, req.Comment)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) CancelWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.engine.Cancel(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(NewWorkflowStatusResponse(workflow))
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()

	storeCheck := "ok"
	stOk := true

	if err := h.store.HealthCheck(c.Context()); err != nil {
		storeCheck = err.Error()
		stOk = false
	}

	status := "unhealthy"
	message := "Conductor API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && stOk {
		status = "healthy"
		message = "Conductor API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry": registryCheck,
			"store":    storeCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
