package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/conductor-labs/conductor/pkg/approval"
	"github.com/conductor-labs/conductor/pkg/engine"
	"github.com/conductor-labs/conductor/pkg/executor"
	"github.com/conductor-labs/conductor/pkg/models"
	"github.com/conductor-labs/conductor/pkg/planner"
	"github.com/conductor-labs/conductor/pkg/store/memory"
	"github.com/conductor-labs/conductor/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app   *fiber.App
	store *memory.Store
}

func setupTestApp(t *testing.T, gateEverySteps bool) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memory.NewStore(time.Hour)

	registry := executor.NewRegistry(logger)
	registry.Register(planner.ExecutorGeneric, executor.Func(func(_ context.Context, req executor.Request) (*executor.Result, error) {
		return &executor.Result{
			Artifacts:        map[string]any{req.Step.Description: "done"},
			RequiresApproval: gateEverySteps,
		}, nil
	}))

	testPlanner := planner.Func(func(_ context.Context, goal string, _ map[string]any) ([]planner.PlannedStep, error) {
		return []planner.PlannedStep{{Description: "work on " + goal}}, nil
	})

	eng, err := engine.New(engine.Config{
		Store:    st,
		Registry: registry,
		Planner:  testPlanner,
		Gateway:  approval.NewLogGateway(logger),
		Logger:   logger,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, eng.Start(ctx))

	t.Cleanup(func() {
		cancel()
		eng.Stop(context.Background())
	})

	handlers := web.NewAPIHandlers(eng, st, registry, validator.New(validator.WithRequiredStructEnabled()))
	app := fiber.New()

	w := app.Group("/workflows")
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/", handlers.GetWorkflows)
	w.Get("/:id", handlers.GetWorkflow)
	w.Post("/:id/approvals/:approvalId", handlers.ResolveApproval)
	w.Post("/:id/cancel", handlers.CancelWorkflow)
	app.Get("/health", handlers.HealthCheck)

	return &testEnv{app: app, store: st}
}

func (e *testEnv) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer

	if body != nil {
		if str, ok := body.(string); ok {
			buf.WriteString(str)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	var out T

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out))

	return out
}

func (e *testEnv) waitForStatus(t *testing.T, workflowID string, status models.WorkflowStatus) *models.Workflow {
	t.Helper()

	var workflow *models.Workflow

	require.Eventually(t, func() bool {
		current, _, err := e.store.Get(context.Background(), workflowID)
		if err != nil {
			return false
		}

		workflow = current

		return current.Status == status
	}, 5*time.Second, 5*time.Millisecond)

	return workflow
}

func TestAPIHandlers_CreateWorkflow(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
	}{
		{
			name: "successful creation",
			requestBody: web.CreateWorkflowRequest{
				Goal:    "ship the release",
				OwnerID: "test-user",
				Context: map[string]any{"env": "test"},
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "validation error - missing goal",
			requestBody: web.CreateWorkflowRequest{
				OwnerID: "test-user",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "validation error - goal too short",
			requestBody: web.CreateWorkflowRequest{
				Goal:    "go",
				OwnerID: "test-user",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "validation error - missing owner",
			requestBody: web.CreateWorkflowRequest{
				Goal: "ship the release",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not-json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestApp(t, false)

			resp := env.request(t, http.MethodPost, "/workflows", tt.requestBody)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestAPIHandlers_CreateWorkflow_ReturnsAcknowledgement(t *testing.T) {
	env := setupTestApp(t, false)

	resp := env.request(t, http.MethodPost, "/workflows", web.CreateWorkflowRequest{
		Goal:    "ship the release",
		OwnerID: "test-user",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeBody[web.CreateWorkflowResponse](t, resp)
	assert.NotEmpty(t, created.WorkflowID)
	assert.Equal(t, models.WorkflowStatusCreated, created.Status)
	assert.Equal(t, 1, created.EstimatedSteps)
	require.Len(t, created.Plan, 1)
	assert.Equal(t, "work on ship the release", created.Plan[0].Description)

	env.waitForStatus(t, created.WorkflowID, models.WorkflowStatusCompleted)
}

func TestAPIHandlers_GetWorkflow(t *testing.T) {
	env := setupTestApp(t, false)

	resp := env.request(t, http.MethodGet, "/workflows/wf-missing", nil)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	created := decodeBody[web.CreateWorkflowResponse](t, env.request(t, http.MethodPost, "/workflows", web.CreateWorkflowRequest{
		Goal:    "ship the release",
		OwnerID: "test-user",
	}))

	fetched := decodeBody[web.WorkflowStatusResponse](t, env.request(t, http.MethodGet, "/workflows/"+created.WorkflowID, nil))
	assert.Equal(t, created.WorkflowID, fetched.ID)
	assert.Empty(t, fetched.PendingApprovals)
}

func TestAPIHandlers_GetWorkflows_Filters(t *testing.T) {
	env := setupTestApp(t, false)

	for _, owner := range []string{"alice", "bob"} {
		resp := env.request(t, http.MethodPost, "/workflows", web.CreateWorkflowRequest{
			Goal:    "ship something for " + owner,
			OwnerID: owner,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		_ = resp.Body.Close()
	}

	type listResponse struct {
		Workflows  []*models.Workflow `json:"workflows"`
		TotalCount int                `json:"total_count"`
	}

	all := decodeBody[listResponse](t, env.request(t, http.MethodGet, "/workflows/", nil))
	assert.Equal(t, 2, all.TotalCount)

	filtered := decodeBody[listResponse](t, env.request(t, http.MethodGet, "/workflows/?owner_id=alice", nil))
	require.Equal(t, 1, filtered.TotalCount)
	assert.Equal(t, "alice", filtered.Workflows[0].OwnerID)
}

func TestAPIHandlers_ResolveApproval(t *testing.T) {
	env := setupTestApp(t, true)

	created := decodeBody[web.CreateWorkflowResponse](t, env.request(t, http.MethodPost, "/workflows", web.CreateWorkflowRequest{
		Goal:    "risky deployment",
		OwnerID: "test-user",
	}))

	env.waitForStatus(t, created.WorkflowID, models.WorkflowStatusWaitingApproval)

	// The status projection surfaces the open gate.
	waiting := decodeBody[web.WorkflowStatusResponse](t, env.request(t, http.MethodGet, "/workflows/"+created.WorkflowID, nil))
	require.Len(t, waiting.PendingApprovals, 1)
	pending := waiting.PendingApprovals

	badResp := env.request(t, http.MethodPost, "/workflows/"+created.WorkflowID+"/approvals/"+pending[0].ApprovalID, web.ApprovalDecisionRequest{
		Decision:  "maybe",
		Responder: "alice",
	})
	defer func() { _ = badResp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, badResp.StatusCode)

	missingResp := env.request(t, http.MethodPost, "/workflows/"+created.WorkflowID+"/approvals/apr-missing", web.ApprovalDecisionRequest{
		Decision:  "approved",
		Responder: "alice",
	})
	defer func() { _ = missingResp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, missingResp.StatusCode)

	record := decodeBody[models.ApprovalRecord](t, env.request(t, http.MethodPost, "/workflows/"+created.WorkflowID+"/approvals/"+pending[0].ApprovalID, web.ApprovalDecisionRequest{
		Decision:  "approved",
		Responder: "alice",
		Comment:   "lgtm",
	}))
	assert.Equal(t, models.ApprovalStatusApproved, record.Status)

	env.waitForStatus(t, created.WorkflowID, models.WorkflowStatusCompleted)

	resolved := decodeBody[web.WorkflowStatusResponse](t, env.request(t, http.MethodGet, "/workflows/"+created.WorkflowID, nil))
	assert.Empty(t, resolved.PendingApprovals)
}

func TestAPIHandlers_CancelWorkflow(t *testing.T) {
	env := setupTestApp(t, true)

	created := decodeBody[web.CreateWorkflowResponse](t, env.request(t, http.MethodPost, "/workflows", web.CreateWorkflowRequest{
		Goal:    "cancel me please",
		OwnerID: "test-user",
	}))

	env.waitForStatus(t, created.WorkflowID, models.WorkflowStatusWaitingApproval)

	cancelled := decodeBody[web.WorkflowStatusResponse](t, env.request(t, http.MethodPost, "/workflows/"+created.WorkflowID+"/cancel", nil))
	assert.Equal(t, models.WorkflowStatusCancelled, cancelled.Status)

	// A second cancel conflicts with the terminal state.
	conflict := env.request(t, http.MethodPost, "/workflows/"+created.WorkflowID+"/cancel", nil)
	defer func() { _ = conflict.Body.Close() }()
	assert.Equal(t, http.StatusConflict, conflict.StatusCode)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	env := setupTestApp(t, false)

	resp := env.request(t, http.MethodGet, "/health", nil)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
