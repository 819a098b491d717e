package executor

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/conductor-labs/conductor/pkg/planner"
	"github.com/xeipuuv/gojsonschema"
)

// Registry maps executor tags to registered StepExecutors. An unregistered
// tag resolves to the generic executor when one is present.
type Registry struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	executors map[string]StepExecutor
	schemas   map[string]map[string]any
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("module", "executor_registry"),
		executors: make(map[string]StepExecutor),
		schemas:   make(map[string]map[string]any),
	}
}

// Register binds an executor to a tag, replacing any previous binding.
func (r *Registry) Register(tag string, exec StepExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.executors[tag] = exec
}

// RegisterWithSchema binds an executor together with a JSON schema its
// request context must satisfy before dispatch.
func (r *Registry) RegisterWithSchema(tag string, exec StepExecutor, schema map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.executors[tag] = exec
	r.schemas[tag] = schema
}

// ExecutorFor resolves a tag to a registered executor, falling back to the
// generic executor for unknown tags.
func (r *Registry) ExecutorFor(tag string) (StepExecutor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if exec, ok := r.executors[tag]; ok {
		return exec, nil
	}

	if exec, ok := r.executors[planner.ExecutorGeneric]; ok {
		r.logger.Warn("No executor registered for tag, falling back to generic", "tag", tag)

		return exec, nil
	}

	return nil, fmt.Errorf("executor tag '%s' not registered", tag)
}

// Tags returns all registered executor tags.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.executors))
	for tag := range r.executors {
		tags = append(tags, tag)
	}

	return tags
}

// HealthCheck reports whether the registry can serve dispatches.
func (r *Registry) HealthCheck() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.executors) == 0 {
		return "No executors registered", false
	}

	return fmt.Sprintf("%d executors registered", len(r.executors)), true
}

// ValidateInput checks a request's context against the executor's registered
// schema, if any.
func (r *Registry) ValidateInput(tag string, input map[string]any) error {
	r.mu.RLock()
	schema, ok := r.schemas[tag]
	r.mu.RUnlock()

	if !ok {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(input)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}

		return fmt.Errorf("input validation for '%s' failed: %s", tag, strings.Join(errs, "; "))
	}

	return nil
}
