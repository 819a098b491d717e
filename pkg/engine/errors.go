// Package engine implements the durable workflow execution engine: state
// transitions, step dispatch, approval gates, retries, cancellation and
// terminal finalization.
package engine

import (
	"errors"

	"github.com/conductor-labs/conductor/pkg/planner"
	"github.com/conductor-labs/conductor/pkg/store"
)

// Operation-level errors returned synchronously to callers. Step-level
// failures never surface here; they are discovered through GetStatus.
var (
	// ErrInvalidGoal indicates an empty goal or one exceeding the configured
	// maximum length.
	ErrInvalidGoal = errors.New("invalid goal")

	// ErrEmptyPlan indicates the planner produced zero steps.
	ErrEmptyPlan = planner.ErrEmptyPlan

	// ErrWorkflowNotFound indicates the workflow id is absent or expired.
	ErrWorkflowNotFound = store.ErrWorkflowNotFound

	// ErrApprovalNotFound indicates no approval record matches the given id.
	ErrApprovalNotFound = errors.New("approval not found")

	// ErrInvalidState indicates the operation is not allowed in the
	// workflow's current state.
	ErrInvalidState = errors.New("operation not allowed in current workflow state")

	// ErrInvalidDecision indicates an approval decision other than approved
	// or rejected.
	ErrInvalidDecision = errors.New("decision must be approved or rejected")

	// ErrEngineStopped indicates the engine is shutting down and accepts no
	// new workflows.
	ErrEngineStopped = errors.New("engine stopped")
)

// IsNotFound checks if an error indicates a missing workflow or approval.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) || errors.Is(err, ErrApprovalNotFound)
}

// IsInvalidState checks if an error indicates a state-machine violation.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsValidationError checks if an error indicates a rejected creation request.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidGoal) ||
		errors.Is(err, ErrEmptyPlan) ||
		errors.Is(err, ErrInvalidDecision)
}
