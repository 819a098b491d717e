// Package echo provides a builtin generic executor used by the development
// bootstrap and tests. It performs no real work: it records the step
// description as an artifact and succeeds.
package echo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conductor-labs/conductor/pkg/executor"
)

type Executor struct {
	logger *slog.Logger
}

func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{
		logger: logger.With("module", "echo_executor"),
	}
}

func (e *Executor) Execute(ctx context.Context, req executor.Request) (*executor.Result, error) {
	e.logger.InfoContext(ctx, "Echoing step",
		"workflow_id", req.WorkflowID,
		"step_id", req.Step.StepID,
		"description", req.Step.Description,
	)

	artifactName := fmt.Sprintf("step_%d_output", req.Step.StepID)

	return &executor.Result{
		Artifacts: map[string]any{
			artifactName: req.Step.Description,
		},
		Output: map[string]any{
			"executed_at": time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}
