// Package executor defines the pluggable step executor contract and the
// registry that resolves a step's classified type to an executor.
package executor

import (
	"context"

	"github.com/conductor-labs/conductor/pkg/models"
)

// Request carries everything an executor may need: the step's instruction
// plus the workflow's accumulated context and artifacts.
type Request struct {
	WorkflowID string
	Step       *models.Step
	Goal       string
	Context    map[string]any
	Artifacts  map[string]any
}

// Result is the bounded outcome of one executor invocation.
type Result struct {
	// Artifacts is the delta to merge into the workflow's artifact set.
	Artifacts map[string]any
	// RequiresApproval pauses the workflow on a human gate before the step
	// is considered done.
	RequiresApproval bool
	// Output is free-form diagnostic data, not persisted as an artifact.
	Output map[string]any
}

// StepExecutor performs the actual work for one step type.
//
// The engine retries failed steps, so executors are invoked at-least-once
// and must be idempotent-safe. This is a documented requirement placed on
// implementations, not enforced here.
type StepExecutor interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

// Func adapts a plain function to the StepExecutor interface.
type Func func(ctx context.Context, req Request) (*Result, error)

func (f Func) Execute(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}
