package cmd

import (
	"log/slog"

	"github.com/conductor-labs/conductor/pkg/executor"
	"github.com/conductor-labs/conductor/pkg/executors/echo"
	"github.com/conductor-labs/conductor/pkg/planner"
)

// NewRegistry builds an executor registry with the builtin executors. Real
// deployments register their own executors on top; the echo executor under
// the generic tag keeps every classified step dispatchable out of the box.
func NewRegistry(logger *slog.Logger) *executor.Registry {
	registry := executor.NewRegistry(logger)

	registerBuiltinExecutors(registry, logger)

	return registry
}

func registerBuiltinExecutors(registry *executor.Registry, logger *slog.Logger) {
	registry.Register(planner.ExecutorGeneric, echo.NewExecutor(logger))
}
