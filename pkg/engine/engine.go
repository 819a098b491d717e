package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/conductor-labs/conductor/pkg/approval"
	"github.com/conductor-labs/conductor/pkg/eventbus"
	"github.com/conductor-labs/conductor/pkg/events"
	"github.com/conductor-labs/conductor/pkg/executor"
	"github.com/conductor-labs/conductor/pkg/models"
	"github.com/conductor-labs/conductor/pkg/planner"
	"github.com/conductor-labs/conductor/pkg/store"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultMaxGoalLength = 4096
	approvalPollInterval = 5 * time.Second
)

// CompletionNotice is handed to the completion hook exactly once per
// terminal transition.
type CompletionNotice struct {
	WorkflowID string
	Status     models.WorkflowStatus
	Artifacts  map[string]any
	Metrics    models.Metrics
}

// CompletionHook notifies the external collaborator responsible for
// delivering results.
type CompletionHook func(ctx context.Context, notice CompletionNotice)

// Config wires the engine's collaborators. Store, Registry, Planner and
// Gateway are required; the rest are optional.
type Config struct {
	Store    store.Store
	Registry *executor.Registry
	Planner  planner.Planner
	Gateway  approval.Gateway
	EventBus eventbus.EventBus
	Logger   *slog.Logger
	Tracer   trace.Tracer

	MaxConcurrentWorkflows int
	MaxGoalLength          int
	CompletionHook         CompletionHook

	// SweepSchedule is a cron expression for the orphan recovery sweep.
	// Empty disables the periodic sweep (the startup sweep still runs).
	SweepSchedule string
}

// Engine owns workflow state transitions. It is constructed once at process
// start and passed by reference; there are no package-level singletons.
type Engine struct {
	store      store.Store
	registry   *executor.Registry
	planner    planner.Planner
	gateway    approval.Gateway
	eventBus   eventbus.EventBus
	logger     *slog.Logger
	tracer     trace.Tracer
	hook       CompletionHook
	maxGoalLen int

	supervisor *Supervisor
	waiters    *waiterRegistry
	janitor    *janitor
}

func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine requires a store")
	}

	if cfg.Registry == nil {
		return nil, fmt.Errorf("engine requires an executor registry")
	}

	if cfg.Planner == nil {
		return nil, fmt.Errorf("engine requires a planner")
	}

	if cfg.Gateway == nil {
		return nil, fmt.Errorf("engine requires an approval gateway")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxGoalLen := cfg.MaxGoalLength
	if maxGoalLen <= 0 {
		maxGoalLen = DefaultMaxGoalLength
	}

	e := &Engine{
		store:      cfg.Store,
		registry:   cfg.Registry,
		planner:    cfg.Planner,
		gateway:    cfg.Gateway,
		eventBus:   cfg.EventBus,
		logger:     logger.With("module", "engine"),
		tracer:     cfg.Tracer,
		hook:       cfg.CompletionHook,
		maxGoalLen: maxGoalLen,
		waiters:    newWaiterRegistry(),
	}

	e.supervisor = NewSupervisor(cfg.MaxConcurrentWorkflows, e.run, logger)
	e.janitor = newJanitor(e, cfg.SweepSchedule, logger)

	return e, nil
}

// Start launches the supervisor pool, runs the startup orphan sweep, and
// schedules the periodic sweep.
func (e *Engine) Start(ctx context.Context) error {
	e.supervisor.Start(ctx)

	if err := e.janitor.start(ctx); err != nil {
		return fmt.Errorf("failed to start janitor: %w", err)
	}

	e.logger.InfoContext(ctx, "Engine started")

	return nil
}

// Stop drains in-flight workflows and stops the sweep.
func (e *Engine) Stop(ctx context.Context) {
	e.janitor.stop()
	e.supervisor.Stop()
	e.logger.InfoContext(ctx, "Engine stopped")
}

// CreateRequest carries the inputs of a workflow creation call. Context is
// passed through to the planner and to every step executor unchanged.
type CreateRequest struct {
	Goal    string
	OwnerID string
	Context map[string]any
	Options models.ExecutionOptions
}

// CreateWorkflow plans the goal synchronously, persists the initial state and
// hands the workflow to the supervisor. It returns immediately; no step runs
// before it returns.
func (e *Engine) CreateWorkflow(ctx context.Context, req CreateRequest) (*models.Workflow, error) {
	goal := strings.TrimSpace(req.Goal)
	if goal == "" {
		return nil, fmt.Errorf("%w: goal is empty", ErrInvalidGoal)
	}

	if len(goal) > e.maxGoalLen {
		return nil, fmt.Errorf("%w: goal exceeds %d characters", ErrInvalidGoal, e.maxGoalLen)
	}

	planned, err := e.planner.GeneratePlan(ctx, goal, req.Context)
	if err != nil {
		return nil, fmt.Errorf("plan generation failed: %w", err)
	}

	if len(planned) == 0 {
		return nil, ErrEmptyPlan
	}

	options := req.Options
	options.Normalize()

	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:        "wf-" + uuid.New().String(),
		OwnerID:   req.OwnerID,
		Status:    models.WorkflowStatusCreated,
		Goal:      goal,
		Plan:      make([]*models.Step, 0, len(planned)),
		Context:   req.Context,
		Options:   options,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for i, step := range planned {
		workflow.Plan = append(workflow.Plan, &models.Step{
			StepID:           i + 1,
			Description:      step.Description,
			AssignedExecutor: planner.Classify(step.Description, step.SuggestedExecutor),
			Status:           models.StepStatusPending,
		})
	}

	if err := e.store.Put(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to persist workflow: %w", err)
	}

	if !e.supervisor.Enqueue(workflow.ID) {
		// No runner will ever pick it up; leave no state behind.
		if derr := e.store.Delete(ctx, workflow.ID); derr != nil {
			e.logger.ErrorContext(ctx, "Failed to delete unschedulable workflow",
				"workflow_id", workflow.ID,
				"error", derr,
			)
		}

		return nil, ErrEngineStopped
	}

	e.publish(ctx, workflow.ID, events.WorkflowCreated{
		BaseEvent:      events.NewBaseEvent(events.WorkflowCreatedEvent, workflow.ID),
		OwnerID:        workflow.OwnerID,
		Goal:           workflow.Goal,
		EstimatedSteps: len(workflow.Plan),
	})

	e.logger.InfoContext(ctx, "Workflow created",
		"workflow_id", workflow.ID,
		"owner_id", workflow.OwnerID,
		"steps", len(workflow.Plan),
	)

	return workflow, nil
}

// GetStatus returns the current workflow snapshot. The engine may advance it
// immediately after; callers must not assume the snapshot is still current.
func (e *Engine) GetStatus(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, _, err := e.store.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// Approve records a human decision for a pending approval and wakes the
// waiting runner. Idempotent: a second call on an already-resolved approval
// returns the existing record without error, to tolerate duplicate
// deliveries. An approval left pending on a terminal workflow is likewise a
// no-op; the workflow is never reopened.
func (e *Engine) Approve(ctx context.Context, workflowID, approvalID string, decision models.ApprovalStatus, responder, comment string) (*models.ApprovalRecord, error) {
	if decision != models.ApprovalStatusApproved && decision != models.ApprovalStatusRejected {
		return nil, ErrInvalidDecision
	}

	for {
		workflow, version, err := e.store.Get(ctx, workflowID)
		if err != nil {
			return nil, err
		}

		record := workflow.FindApproval(approvalID)
		if record == nil {
			return nil, fmt.Errorf("%w: %s", ErrApprovalNotFound, approvalID)
		}

		if record.Status.Resolved() {
			return record, nil
		}

		if workflow.IsTerminal() {
			// Stale approval on a finished workflow; nothing to reopen.
			return record, nil
		}

		now := time.Now().UTC()
		record.Status = decision
		record.Responder = responder
		record.Comment = comment
		record.RespondedAt = &now
		workflow.UpdatedAt = now

		err = e.store.CompareAndPut(ctx, workflow, version)
		if store.IsVersionConflict(err) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to persist approval decision: %w", err)
		}

		e.waiters.notify(workflowID)

		e.publish(ctx, workflowID, events.ApprovalResolved{
			BaseEvent:  events.NewBaseEvent(events.ApprovalResolvedEvent, workflowID),
			ApprovalID: approvalID,
			StepID:     record.StepID,
			Status:     record.Status,
			Responder:  responder,
		})

		e.logger.InfoContext(ctx, "Approval resolved",
			"workflow_id", workflowID,
			"approval_id", approvalID,
			"decision", decision,
		)

		return record, nil
	}
}

// Cancel requests cooperative cancellation. Allowed while the workflow is
// running, waiting for approval, or still queued in created; the owning
// runner stops at its next safe checkpoint and discards any in-flight step
// result.
func (e *Engine) Cancel(ctx context.Context, workflowID string) (*models.Workflow, error) {
	for {
		workflow, version, err := e.store.Get(ctx, workflowID)
		if err != nil {
			return nil, err
		}

		switch workflow.Status {
		case models.WorkflowStatusRunning, models.WorkflowStatusWaitingApproval, models.WorkflowStatusCreated:
		case models.WorkflowStatusCompleted, models.WorkflowStatusFailed, models.WorkflowStatusCancelled:
			return nil, fmt.Errorf("%w: cannot cancel a %s workflow", ErrInvalidState, workflow.Status)
		default:
			return nil, fmt.Errorf("%w: cannot cancel a %s workflow", ErrInvalidState, workflow.Status)
		}

		workflow.Status = models.WorkflowStatusCancelled
		workflow.UpdatedAt = time.Now().UTC()

		err = e.store.CompareAndPut(ctx, workflow, version)
		if store.IsVersionConflict(err) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to persist cancellation: %w", err)
		}

		e.waiters.notify(workflowID)

		e.logger.InfoContext(ctx, "Workflow cancelled", "workflow_id", workflowID)

		return workflow, nil
	}
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(),
			"error", err,
		)
	}
}

// finalize fires the terminal notifications. Called exactly once per
// terminal transition, always by the goroutine that observed it.
func (e *Engine) finalize(ctx context.Context, workflow *models.Workflow, startedAt time.Time) {
	// workflow is nil when the state store became unreachable mid-run; the
	// janitor recovers the orphan on the next sweep.
	if workflow == nil {
		return
	}

	durationMs := time.Since(startedAt).Milliseconds()

	switch workflow.Status {
	case models.WorkflowStatusCompleted:
		e.publish(ctx, workflow.ID, events.WorkflowCompleted{
			BaseEvent:  events.NewBaseEvent(events.WorkflowCompletedEvent, workflow.ID),
			Artifacts:  workflow.Artifacts,
			Metrics:    workflow.Metrics,
			DurationMs: durationMs,
		})
	case models.WorkflowStatusFailed:
		failedStep := 0
		if step := workflow.CurrentStep(); step != nil {
			failedStep = step.StepID
		}

		e.publish(ctx, workflow.ID, events.WorkflowFailed{
			BaseEvent:   events.NewBaseEvent(events.WorkflowFailedEvent, workflow.ID),
			ErrorDetail: workflow.ErrorDetail,
			FailedStep:  failedStep,
			DurationMs:  durationMs,
		})
	case models.WorkflowStatusCancelled:
		e.publish(ctx, workflow.ID, events.WorkflowCancelled{
			BaseEvent:  events.NewBaseEvent(events.WorkflowCancelledEvent, workflow.ID),
			DurationMs: durationMs,
		})
	case models.WorkflowStatusCreated, models.WorkflowStatusRunning, models.WorkflowStatusWaitingApproval:
		return
	}

	if e.hook != nil {
		e.hook(ctx, CompletionNotice{
			WorkflowID: workflow.ID,
			Status:     workflow.Status,
			Artifacts:  workflow.Artifacts,
			Metrics:    workflow.Metrics,
		})
	}

	e.logger.InfoContext(ctx, "Workflow finished",
		"workflow_id", workflow.ID,
		"status", workflow.Status,
		"steps_completed", workflow.Metrics.StepsCompleted,
	)
}
