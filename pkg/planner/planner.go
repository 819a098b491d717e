// Package planner defines the plan generation boundary consumed by the
// execution engine.
package planner

import (
	"context"
	"errors"
)

// ErrEmptyPlan indicates the planner produced zero steps for a goal.
var ErrEmptyPlan = errors.New("planner returned an empty plan")

// PlannedStep is one entry of a generated plan: an opaque instruction plus an
// optional executor hint. The engine treats both as advisory and classifies
// unrecognized hints itself.
type PlannedStep struct {
	Description       string `json:"description"`
	SuggestedExecutor string `json:"suggested_executor,omitempty"`
}

// Planner turns a natural-language goal into an ordered step list. It is an
// external collaborator; implementations may call out to an LLM or return a
// canned plan.
type Planner interface {
	GeneratePlan(ctx context.Context, goal string, planContext map[string]any) ([]PlannedStep, error)
}

// Func adapts a plain function to the Planner interface.
type Func func(ctx context.Context, goal string, planContext map[string]any) ([]PlannedStep, error)

func (f Func) GeneratePlan(ctx context.Context, goal string, planContext map[string]any) ([]PlannedStep, error) {
	return f(ctx, goal, planContext)
}
