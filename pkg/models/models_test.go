package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkflow_IsTerminal(t *testing.T) {
	cases := []struct {
		status   WorkflowStatus
		terminal bool
	}{
		{WorkflowStatusCreated, false},
		{WorkflowStatusRunning, false},
		{WorkflowStatusWaitingApproval, false},
		{WorkflowStatusCompleted, true},
		{WorkflowStatusFailed, true},
		{WorkflowStatusCancelled, true},
	}

	for _, c := range cases {
		t.Run(string(c.status), func(t *testing.T) {
			workflow := &Workflow{Status: c.status}
			assert.Equal(t, c.terminal, workflow.IsTerminal())
		})
	}
}

func TestWorkflow_CurrentStep(t *testing.T) {
	workflow := &Workflow{
		Plan: []*Step{
			{StepID: 1, Description: "generate code"},
			{StepID: 2, Description: "run tests"},
		},
	}

	assert.Equal(t, 1, workflow.CurrentStep().StepID)

	workflow.CurrentStepIndex = 1
	assert.Equal(t, 2, workflow.CurrentStep().StepID)

	workflow.CurrentStepIndex = 2
	assert.Nil(t, workflow.CurrentStep())
}

func TestWorkflow_MergeArtifacts(t *testing.T) {
	workflow := &Workflow{}

	workflow.MergeArtifacts(map[string]any{"generatedCode": "package main"})
	workflow.MergeArtifacts(map[string]any{"testResults": "ok"})
	workflow.MergeArtifacts(nil)

	assert.Len(t, workflow.Artifacts, 2)
	assert.Equal(t, "package main", workflow.Artifacts["generatedCode"])

	// A later producer overwrites its own artifact name.
	workflow.MergeArtifacts(map[string]any{"generatedCode": "package main // v2"})
	assert.Equal(t, "package main // v2", workflow.Artifacts["generatedCode"])
	assert.Len(t, workflow.Artifacts, 2)
}

func TestWorkflow_PendingApprovals(t *testing.T) {
	workflow := &Workflow{
		Approvals: []*ApprovalRecord{
			{ApprovalID: "apr-1", Status: ApprovalStatusApproved},
			{ApprovalID: "apr-2", Status: ApprovalStatusPending},
			{ApprovalID: "apr-3", Status: ApprovalStatusPending},
		},
	}

	pending := workflow.PendingApprovals()
	assert.Len(t, pending, 2)
	assert.Equal(t, "apr-2", pending[0].ApprovalID)

	assert.NotNil(t, workflow.FindApproval("apr-1"))
	assert.Nil(t, workflow.FindApproval("apr-9"))
}

func TestExecutionOptions_Normalize(t *testing.T) {
	options := ExecutionOptions{}
	options.Normalize()

	assert.Equal(t, DefaultMaxRetries, options.MaxRetries)
	assert.Equal(t, DefaultStepTimeout, options.StepTimeout)
	assert.Equal(t, DefaultRetryBackoff, options.RetryBackoff)
	assert.Equal(t, DefaultApprovalTimeout, options.ApprovalTimeout)

	custom := ExecutionOptions{MaxRetries: 5, StepTimeout: time.Minute}
	custom.Normalize()

	assert.Equal(t, 5, custom.MaxRetries)
	assert.Equal(t, time.Minute, custom.StepTimeout)
}
