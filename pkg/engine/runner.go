package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conductor-labs/conductor/pkg/approval"
	"github.com/conductor-labs/conductor/pkg/events"
	"github.com/conductor-labs/conductor/pkg/executor"
	"github.com/conductor-labs/conductor/pkg/models"
	"github.com/conductor-labs/conductor/pkg/otelhelper"
	"github.com/conductor-labs/conductor/pkg/planner"
	"github.com/conductor-labs/conductor/pkg/store"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Step-level errors. Timeouts and executor failures are retried up to the
// configured limit; they never surface to callers directly.
var (
	ErrExecutorTimeout = errors.New("executor timed out")
	ErrExecutorFailure = errors.New("executor failed")
)

// update applies a mutation under optimistic concurrency: read, mutate,
// compare-and-put, retry on conflict. apply returns false to abort without
// writing (typically because the stored state turned terminal); the stored
// workflow is returned either way.
func (e *Engine) update(ctx context.Context, workflowID string, apply func(*models.Workflow) bool) (*models.Workflow, bool, error) {
	for {
		workflow, version, err := e.store.Get(ctx, workflowID)
		if err != nil {
			return nil, false, err
		}

		if !apply(workflow) {
			return workflow, false, nil
		}

		workflow.UpdatedAt = time.Now().UTC()

		err = e.store.CompareAndPut(ctx, workflow, version)
		if store.IsVersionConflict(err) {
			continue
		}

		if err != nil {
			return nil, false, err
		}

		return workflow, true, nil
	}
}

// run executes one workflow to a terminal state. It is the single writer for
// the aggregate apart from Approve and Cancel, whose writes it observes
// through compare-and-put conflicts and wake signals.
func (e *Engine) run(ctx context.Context, workflowID string) {
	logger := e.logger.With("workflow_id", workflowID)
	startedAt := time.Now()

	workflow, applied, err := e.update(ctx, workflowID, func(w *models.Workflow) bool {
		if w.Status != models.WorkflowStatusCreated {
			return false
		}

		w.Status = models.WorkflowStatusRunning

		return true
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to start workflow", "error", err)

		return
	}

	if !applied {
		// Cancelled (or otherwise finished) before the first step ran.
		if workflow.IsTerminal() {
			e.finalize(ctx, workflow, startedAt)
		}

		return
	}

	logger.InfoContext(ctx, "Starting execution of workflow", "steps", len(workflow.Plan))

	e.publish(ctx, workflowID, events.WorkflowStarted{
		BaseEvent: events.NewBaseEvent(events.WorkflowStartedEvent, workflowID),
		Goal:      workflow.Goal,
	})

	if workflow.Options.WorkflowTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, workflow.Options.WorkflowTimeout)
		defer cancel()
	}

	for workflow.CurrentStepIndex < len(workflow.Plan) {
		step := workflow.Plan[workflow.CurrentStepIndex]

		next, done := e.runStep(ctx, logger, workflow, step.StepID)
		if done {
			e.finalize(ctx, next, startedAt)

			return
		}

		workflow = next
	}

	workflow, applied, err = e.update(ctx, workflowID, func(w *models.Workflow) bool {
		if w.IsTerminal() {
			return false
		}

		w.Status = models.WorkflowStatusCompleted

		return true
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to persist completion", "error", err)

		return
	}

	e.finalize(ctx, workflow, startedAt)
}

// runStep drives one step through its retry loop and, when demanded, its
// approval gate. It returns the refreshed workflow and done=true when the
// workflow reached a terminal state.
func (e *Engine) runStep(ctx context.Context, logger *slog.Logger, workflow *models.Workflow, stepID int) (*models.Workflow, bool) {
	workflowID := workflow.ID
	stepIndex := stepID - 1
	logger = logger.With("step_id", stepID)

	for {
		current, applied, err := e.update(ctx, workflowID, func(w *models.Workflow) bool {
			if w.IsTerminal() {
				return false
			}

			step := w.Plan[stepIndex]
			step.Status = models.StepStatusRunning

			if step.StartedAt == nil {
				now := time.Now().UTC()
				step.StartedAt = &now
			}

			w.Status = models.WorkflowStatusRunning

			return true
		})
		if err != nil {
			logger.ErrorContext(ctx, "Failed to persist step start", "error", err)

			return e.failWorkflow(ctx, workflowID, stepIndex, "state store write failed: "+err.Error())
		}

		if !applied {
			return current, true
		}

		step := current.Plan[stepIndex]

		e.publish(ctx, workflowID, events.StepStarted{
			BaseEvent:   events.NewBaseEvent(events.StepStartedEvent, workflowID),
			StepID:      stepID,
			Description: step.Description,
			Executor:    step.AssignedExecutor,
			Attempt:     step.Attempt,
		})

		result, execErr := e.dispatch(ctx, current, step)
		if execErr == nil {
			return e.commitStepSuccess(ctx, logger, current, stepIndex, result)
		}

		logger.ErrorContext(ctx, "Step execution failed", "attempt", step.Attempt, "error", execErr)

		current, applied, err = e.update(ctx, workflowID, func(w *models.Workflow) bool {
			if w.IsTerminal() {
				return false
			}

			failing := w.Plan[stepIndex]
			failing.Attempt++
			failing.Error = execErr.Error()
			failing.Status = models.StepStatusPending

			return true
		})
		if err != nil || !applied {
			return current, true
		}

		step = current.Plan[stepIndex]

		e.publish(ctx, workflowID, events.StepFailed{
			BaseEvent: events.NewBaseEvent(events.StepFailedEvent, workflowID),
			StepID:    stepID,
			Attempt:   step.Attempt,
			Error:     execErr.Error(),
		})

		if step.Attempt >= current.Options.MaxRetries {
			detail := fmt.Sprintf("step %d failed after %d attempts: %s", stepID, step.Attempt, execErr.Error())

			return e.failWorkflow(ctx, workflowID, stepIndex, detail)
		}

		select {
		case <-time.After(current.Options.RetryBackoff):
		case <-ctx.Done():
			return e.failWorkflow(ctx, workflowID, stepIndex, "workflow timed out")
		}
	}
}

// dispatch resolves the executor and awaits a bounded result. The per-step
// timeout converts a hung executor into a retryable failure; its eventual
// result is discarded.
func (e *Engine) dispatch(ctx context.Context, workflow *models.Workflow, step *models.Step) (result *executor.Result, err error) {
	exec, err := e.registry.ExecutorFor(step.AssignedExecutor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutorFailure, err)
	}

	if err = e.registry.ValidateInput(step.AssignedExecutor, workflow.Context); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutorFailure, err)
	}

	stepCtx, cancel := context.WithTimeout(ctx, workflow.Options.StepTimeout)
	defer cancel()

	if e.tracer != nil {
		var span trace.Span

		stepCtx, span = otelhelper.StartSpan(stepCtx, e.tracer, "step.execute",
			attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
			attribute.Int(otelhelper.StepIDKey, step.StepID),
			attribute.String(otelhelper.ExecutorTagKey, step.AssignedExecutor),
			attribute.Int(otelhelper.AttemptKey, step.Attempt),
		)
		defer span.End()

		defer func() {
			if err != nil {
				otelhelper.SetError(span, err)
			}
		}()
	}

	type outcome struct {
		result *executor.Result
		err    error
	}

	resultCh := make(chan outcome, 1)

	go func() {
		result, execErr := exec.Execute(stepCtx, executor.Request{
			WorkflowID: workflow.ID,
			Step:       step,
			Goal:       workflow.Goal,
			Context:    workflow.Context,
			Artifacts:  workflow.Artifacts,
		})

		resultCh <- outcome{result: result, err: execErr}
	}()

	select {
	case out := <-resultCh:
		if out.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExecutorFailure, out.err)
		}

		if out.result == nil {
			return &executor.Result{}, nil
		}

		return out.result, nil
	case <-stepCtx.Done():
		return nil, fmt.Errorf("%w after %s", ErrExecutorTimeout, workflow.Options.StepTimeout)
	}
}

// commitStepSuccess merges the executor's artifacts, marks the step
// completed and either advances the cursor or parks the workflow on an
// approval gate.
func (e *Engine) commitStepSuccess(ctx context.Context, logger *slog.Logger, workflow *models.Workflow, stepIndex int, result *executor.Result) (*models.Workflow, bool) {
	workflowID := workflow.ID
	requiresApproval := result.RequiresApproval || workflow.Options.RequireApproval
	approvalID := ""

	current, applied, err := e.update(ctx, workflowID, func(w *models.Workflow) bool {
		if w.IsTerminal() {
			return false
		}

		step := w.Plan[stepIndex]
		now := time.Now().UTC()

		w.MergeArtifacts(result.Artifacts)
		step.Status = models.StepStatusCompleted
		step.CompletedAt = &now
		step.Error = ""

		if requiresApproval {
			approvalID = "apr-" + uuid.New().String()
			w.Approvals = append(w.Approvals, &models.ApprovalRecord{
				ApprovalID:  approvalID,
				StepID:      step.StepID,
				Status:      models.ApprovalStatusPending,
				RequestedAt: now,
			})
			w.Status = models.WorkflowStatusWaitingApproval
		} else {
			e.completeStep(w, stepIndex)
		}

		return true
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to persist step result", "error", err)

		next, _ := e.failWorkflow(ctx, workflowID, stepIndex, "state store write failed: "+err.Error())

		return next, true
	}

	if !applied {
		// Cancelled mid-step; the in-flight result is discarded.
		return current, true
	}

	step := current.Plan[stepIndex]

	if !requiresApproval {
		e.publish(ctx, workflowID, events.StepCompleted{
			BaseEvent:  events.NewBaseEvent(events.StepCompletedEvent, workflowID),
			StepID:     step.StepID,
			DurationMs: stepDurationMs(step),
		})

		return current, false
	}

	return e.gateOnApproval(ctx, logger, current, stepIndex, approvalID)
}

// gateOnApproval submits the approval request and blocks the runner until a
// decision, a timeout or cancellation.
func (e *Engine) gateOnApproval(ctx context.Context, logger *slog.Logger, workflow *models.Workflow, stepIndex int, approvalID string) (*models.Workflow, bool) {
	workflowID := workflow.ID
	step := workflow.Plan[stepIndex]
	timeout := workflow.Options.ApprovalTimeout

	err := e.gateway.RequestApproval(ctx, approval.Request{
		ApprovalID:      approvalID,
		WorkflowID:      workflowID,
		StepID:          step.StepID,
		StepDescription: step.Description,
		RiskContext:     map[string]any{"executor": step.AssignedExecutor, "goal": workflow.Goal},
		Timeout:         timeout,
	})
	if err != nil {
		// The poll fallback still resolves the gate if a human finds it
		// through another channel; otherwise the approval times out.
		logger.ErrorContext(ctx, "Failed to submit approval request", "approval_id", approvalID, "error", err)
	}

	logger.InfoContext(ctx, "Waiting for approval", "approval_id", approvalID, "timeout", timeout)

	decision, current := e.awaitApproval(ctx, workflowID, approvalID, timeout)

	switch decision {
	case models.ApprovalStatusApproved:
		current, applied, err := e.update(ctx, workflowID, func(w *models.Workflow) bool {
			if w.IsTerminal() {
				return false
			}

			e.completeStep(w, stepIndex)
			w.Status = models.WorkflowStatusRunning

			return true
		})
		if err != nil || !applied {
			return current, true
		}

		e.publish(ctx, workflowID, events.StepCompleted{
			BaseEvent:  events.NewBaseEvent(events.StepCompletedEvent, workflowID),
			StepID:     step.StepID,
			DurationMs: stepDurationMs(current.Plan[stepIndex]),
		})

		return current, false

	case models.ApprovalStatusRejected:
		next, _ := e.failWorkflowKeepStep(ctx, workflowID, "approval rejected")

		return next, true

	case models.ApprovalStatusTimedOut:
		next, _, _ := e.update(ctx, workflowID, func(w *models.Workflow) bool {
			if w.IsTerminal() {
				return false
			}

			if record := w.FindApproval(approvalID); record != nil && !record.Status.Resolved() {
				now := time.Now().UTC()
				record.Status = models.ApprovalStatusTimedOut
				record.RespondedAt = &now
			}

			w.Status = models.WorkflowStatusFailed
			w.ErrorDetail = "approval timed out"

			return true
		})

		return next, true

	default:
		// Workflow turned terminal while waiting (cancellation), or the
		// runner is shutting down and abandons the gate untouched.
		return current, true
	}
}

// awaitApproval blocks until the approval resolves, the workflow turns
// terminal, the timeout elapses, or the runner's context ends. Push wakes
// from Approve/Cancel arrive on the waiter channel; a bounded poll covers
// decisions written by another process. A context end returns an empty
// decision so shutdown is never recorded as a human timeout.
func (e *Engine) awaitApproval(ctx context.Context, workflowID, approvalID string, timeout time.Duration) (models.ApprovalStatus, *models.Workflow) {
	wake, cleanup := e.waiters.register(workflowID)
	defer cleanup()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	poll := time.NewTicker(approvalPollInterval)
	defer poll.Stop()

	for {
		workflow, _, err := e.store.Get(ctx, workflowID)
		if err != nil {
			// Transient store trouble: keep waiting, bounded by the
			// approval deadline.
			e.logger.ErrorContext(ctx, "Failed to read workflow while waiting for approval",
				"workflow_id", workflowID,
				"error", err,
			)
		} else {
			if workflow.IsTerminal() {
				return "", workflow
			}

			if record := workflow.FindApproval(approvalID); record != nil && record.Status.Resolved() {
				return record.Status, workflow
			}
		}

		select {
		case <-wake:
		case <-poll.C:
		case <-deadline.C:
			return models.ApprovalStatusTimedOut, workflow
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				// The workflow-level deadline expired at the gate.
				return models.ApprovalStatusTimedOut, workflow
			}

			// Process shutdown, not a human timeout. The workflow stays
			// waiting_approval; the next startup sweep recovers it.
			return "", workflow
		}
	}
}

// completeStep performs a step's completion handling: metrics and cursor
// advancement. The caller persists.
func (e *Engine) completeStep(w *models.Workflow, stepIndex int) {
	step := w.Plan[stepIndex]

	if step.Status != models.StepStatusCompleted {
		step.Status = models.StepStatusCompleted

		if step.CompletedAt == nil {
			now := time.Now().UTC()
			step.CompletedAt = &now
		}
	}

	w.Metrics.StepsCompleted++

	if w.CurrentStepIndex == stepIndex {
		w.CurrentStepIndex++
	}

	recomputeTestSuccessRate(w)
}

// failWorkflow marks the current step and the workflow failed.
func (e *Engine) failWorkflow(ctx context.Context, workflowID string, stepIndex int, detail string) (*models.Workflow, bool) {
	workflow, _, err := e.update(ctx, workflowID, func(w *models.Workflow) bool {
		if w.IsTerminal() {
			return false
		}

		step := w.Plan[stepIndex]
		step.Status = models.StepStatusFailed

		if step.CompletedAt == nil {
			now := time.Now().UTC()
			step.CompletedAt = &now
		}

		w.Status = models.WorkflowStatusFailed
		w.ErrorDetail = detail
		recomputeTestSuccessRate(w)

		return true
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to persist workflow failure",
			"workflow_id", workflowID,
			"error", err,
		)

		return workflow, true
	}

	return workflow, true
}

// failWorkflowKeepStep fails the workflow without touching step status; used
// for approval rejection, where the step itself completed and its artifacts
// are kept.
func (e *Engine) failWorkflowKeepStep(ctx context.Context, workflowID, detail string) (*models.Workflow, bool) {
	workflow, _, err := e.update(ctx, workflowID, func(w *models.Workflow) bool {
		if w.IsTerminal() {
			return false
		}

		w.Status = models.WorkflowStatusFailed
		w.ErrorDetail = detail

		return true
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to persist workflow failure",
			"workflow_id", workflowID,
			"error", err,
		)
	}

	return workflow, true
}

// recomputeTestSuccessRate derives the running average over finished testing
// steps.
func recomputeTestSuccessRate(w *models.Workflow) {
	var finished, passed int

	for _, step := range w.Plan {
		if step.AssignedExecutor != planner.ExecutorTesting {
			continue
		}

		switch step.Status {
		case models.StepStatusCompleted:
			finished++
			passed++
		case models.StepStatusFailed:
			finished++
		case models.StepStatusPending, models.StepStatusRunning, models.StepStatusSkipped:
		}
	}

	if finished > 0 {
		w.Metrics.TestSuccessRate = float64(passed) / float64(finished)
	}
}

func stepDurationMs(step *models.Step) int64 {
	if step.StartedAt == nil || step.CompletedAt == nil {
		return 0
	}

	return step.CompletedAt.Sub(*step.StartedAt).Milliseconds()
}
