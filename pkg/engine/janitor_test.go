package engine

import (
	"context"
	"testing"
	"time"

	"github.com/conductor-labs/conductor/pkg/approval"
	"github.com/conductor-labs/conductor/pkg/executor"
	"github.com/conductor-labs/conductor/pkg/models"
	"github.com/conductor-labs/conductor/pkg/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newIdleEngine builds an engine whose supervisor never started, so no
// workflow counts as active.
func newIdleEngine(t *testing.T, st *memory.Store) *Engine {
	t.Helper()

	logger := testLogger()
	registry := executor.NewRegistry(logger)
	registry.Register("generic", succeedingExecutor("out"))

	e, err := New(Config{
		Store:    st,
		Registry: registry,
		Planner:  stepsPlanner("step"),
		Gateway:  approval.NewLogGateway(logger),
		Logger:   logger,
	})
	require.NoError(t, err)

	return e
}

func orphanWorkflow(id string, status models.WorkflowStatus) *models.Workflow {
	now := time.Now().UTC()

	workflow := &models.Workflow{
		ID:     id,
		Status: status,
		Goal:   "interrupted work",
		Plan: []*models.Step{
			{StepID: 1, Description: "step", AssignedExecutor: "generic", Status: models.StepStatusRunning},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	workflow.Options.Normalize()

	return workflow
}

func TestJanitor_SweepFailsOrphans(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore(time.Hour)
	e := newIdleEngine(t, st)

	running := orphanWorkflow("wf-running", models.WorkflowStatusRunning)
	require.NoError(t, st.Put(ctx, running))

	waiting := orphanWorkflow("wf-waiting", models.WorkflowStatusWaitingApproval)
	waiting.Approvals = []*models.ApprovalRecord{
		{ApprovalID: "apr-1", StepID: 1, Status: models.ApprovalStatusPending, RequestedAt: time.Now().UTC()},
	}
	require.NoError(t, st.Put(ctx, waiting))

	done := orphanWorkflow("wf-done", models.WorkflowStatusCompleted)
	require.NoError(t, st.Put(ctx, done))

	require.NoError(t, e.janitor.sweep(ctx))

	swept, _, err := st.Get(ctx, "wf-running")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusFailed, swept.Status)
	assert.Equal(t, "orphaned on restart", swept.ErrorDetail)

	swept, _, err = st.Get(ctx, "wf-waiting")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusFailed, swept.Status)
	require.Len(t, swept.Approvals, 1)
	assert.Equal(t, models.ApprovalStatusTimedOut, swept.Approvals[0].Status)

	untouched, _, err := st.Get(ctx, "wf-done")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusCompleted, untouched.Status)
}

func TestJanitor_SweepSkipsActiveWorkflows(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore(time.Hour)
	e := newIdleEngine(t, st)

	active := orphanWorkflow("wf-active", models.WorkflowStatusRunning)
	require.NoError(t, st.Put(ctx, active))

	// Queue the workflow without starting workers; IsActive sees it queued.
	require.True(t, e.supervisor.Enqueue("wf-active"))

	require.NoError(t, e.janitor.sweep(ctx))

	current, _, err := st.Get(ctx, "wf-active")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusRunning, current.Status)
}

func TestJanitor_RejectsInvalidSchedule(t *testing.T) {
	st := memory.NewStore(time.Hour)
	e := newIdleEngine(t, st)
	e.janitor.schedule = "not a cron expression"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := e.janitor.start(ctx)
	require.Error(t, err)
}
