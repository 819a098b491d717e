// Package web provides HTTP request and response types for the workflow API.
package web

import (
	"time"

	"github.com/conductor-labs/conductor/pkg/models"
)

// CreateWorkflowRequest represents the request body for submitting a goal.
type CreateWorkflowRequest struct {
	Goal    string                  `json:"goal"              validate:"required,min=3"`
	OwnerID string                  `json:"owner_id"          validate:"required"`
	Context map[string]any          `json:"context,omitempty"`
	Options ExecutionOptionsRequest `json:"options,omitempty"`
}

// ExecutionOptionsRequest carries per-workflow execution preferences in
// transport-friendly units. Zero fields fall back to engine defaults.
type ExecutionOptionsRequest struct {
	RequireApproval        bool `json:"require_approval"`
	MaxRetries             int  `json:"max_retries,omitempty"              validate:"omitempty,min=1,max=10"`
	StepTimeoutSeconds     int  `json:"step_timeout_seconds,omitempty"     validate:"omitempty,min=1"`
	RetryBackoffSeconds    int  `json:"retry_backoff_seconds,omitempty"    validate:"omitempty,min=1"`
	ApprovalTimeoutMinutes int  `json:"approval_timeout_minutes,omitempty" validate:"omitempty,min=1"`
	WorkflowTimeoutMinutes int  `json:"workflow_timeout_minutes,omitempty" validate:"omitempty,min=1"`
}

// ToModel converts request options into engine options.
func (r ExecutionOptionsRequest) ToModel() models.ExecutionOptions {
	return models.ExecutionOptions{
		RequireApproval: r.RequireApproval,
		MaxRetries:      r.MaxRetries,
		StepTimeout:     time.Duration(r.StepTimeoutSeconds) * time.Second,
		RetryBackoff:    time.Duration(r.RetryBackoffSeconds) * time.Second,
		ApprovalTimeout: time.Duration(r.ApprovalTimeoutMinutes) * time.Minute,
		WorkflowTimeout: time.Duration(r.WorkflowTimeoutMinutes) * time.Minute,
	}
}

// ApprovalDecisionRequest represents the request body for resolving a
// pending approval.
type ApprovalDecisionRequest struct {
	Decision  string `json:"decision"          validate:"required,oneof=approved rejected"`
	Responder string `json:"responder"         validate:"required"`
	Comment   string `json:"comment,omitempty"`
}

// CreateWorkflowResponse acknowledges an accepted goal. Execution starts
// after the response is sent; callers poll the status endpoint with the
// returned ID.
type CreateWorkflowResponse struct {
	WorkflowID     string                `json:"workflow_id"`
	Status         models.WorkflowStatus `json:"status"`
	EstimatedSteps int                   `json:"estimated_steps"`
	Plan           []*models.Step        `json:"plan"`
	CreatedAt      time.Time             `json:"created_at"`
}

func NewCreateWorkflowResponse(workflow *models.Workflow) CreateWorkflowResponse {
	return CreateWorkflowResponse{
		WorkflowID:     workflow.ID,
		Status:         workflow.Status,
		EstimatedSteps: len(workflow.Plan),
		Plan:           workflow.Plan,
		CreatedAt:      workflow.CreatedAt,
	}
}

// WorkflowStatusResponse is the full workflow projection with the approvals
// still awaiting a decision pulled out, so pollers need not scan the
// approval history.
type WorkflowStatusResponse struct {
	*models.Workflow
	PendingApprovals []*models.ApprovalRecord `json:"pending_approvals"`
}

func NewWorkflowStatusResponse(workflow *models.Workflow) WorkflowStatusResponse {
	return WorkflowStatusResponse{
		Workflow:         workflow,
		PendingApprovals: workflow.PendingApprovals(),
	}
}
