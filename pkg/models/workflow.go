// Package models defines the core domain models for supervised workflow execution.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusCreated         WorkflowStatus = "created"          // Planned, not yet picked up by the supervisor
	WorkflowStatusRunning         WorkflowStatus = "running"          // Step loop in progress
	WorkflowStatusWaitingApproval WorkflowStatus = "waiting_approval" // Paused on a human approval gate
	WorkflowStatusCompleted       WorkflowStatus = "completed"        // Terminal, all steps done
	WorkflowStatusFailed          WorkflowStatus = "failed"           // Terminal, see ErrorDetail
	WorkflowStatusCancelled       WorkflowStatus = "cancelled"        // Terminal, cancelled by caller
)

// Workflow is the root aggregate: one end-to-end execution of a planned goal.
// The plan is immutable in length and ordering once set; terminal states are
// write-once and the aggregate never mutates after entering one.
type Workflow struct {
	ID               string            `json:"id"`
	OwnerID          string            `json:"owner_id"`
	Status           WorkflowStatus    `json:"status"`
	Goal             string            `json:"goal"               validate:"required"`
	Plan             []*Step           `json:"plan"`
	CurrentStepIndex int               `json:"current_step_index"`
	Context          map[string]any    `json:"context,omitempty"`
	Artifacts        map[string]any    `json:"artifacts,omitempty"`
	Approvals        []*ApprovalRecord `json:"approvals,omitempty"`
	Metrics          Metrics           `json:"metrics"`
	Options          ExecutionOptions  `json:"options"`
	ErrorDetail      string            `json:"error_detail,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Metrics holds per-workflow counters. All fields are monotonic except
// TestSuccessRate, which is a running average.
type Metrics struct {
	StepsCompleted  int     `json:"steps_completed"`
	IssuesFound     int     `json:"issues_found"`
	IssuesResolved  int     `json:"issues_resolved"`
	TestSuccessRate float64 `json:"test_success_rate"`
	CostCents       int64   `json:"cost_cents"`
}

// IsTerminal reports whether the workflow reached a state that permits no
// further mutation.
func (w *Workflow) IsTerminal() bool {
	switch w.Status {
	case WorkflowStatusCompleted, WorkflowStatusFailed, WorkflowStatusCancelled:
		return true
	case WorkflowStatusCreated, WorkflowStatusRunning, WorkflowStatusWaitingApproval:
		return false
	}

	return false
}

// CurrentStep returns the step under the cursor, or nil when the cursor is
// past the end of the plan.
func (w *Workflow) CurrentStep() *Step {
	if w.CurrentStepIndex < 0 || w.CurrentStepIndex >= len(w.Plan) {
		return nil
	}

	return w.Plan[w.CurrentStepIndex]
}

// FindApproval returns the approval record with the given ID, or nil.
func (w *Workflow) FindApproval(approvalID string) *ApprovalRecord {
	for _, record := range w.Approvals {
		if record.ApprovalID == approvalID {
			return record
		}
	}

	return nil
}

// PendingApprovals returns the subsequence of approvals still awaiting a
// decision.
func (w *Workflow) PendingApprovals() []*ApprovalRecord {
	pending := make([]*ApprovalRecord, 0, len(w.Approvals))

	for _, record := range w.Approvals {
		if record.Status == ApprovalStatusPending {
			pending = append(pending, record)
		}
	}

	return pending
}

// MergeArtifacts overlays a step's artifact delta onto the accumulated set.
// Existing names are overwritten only by the step that produced them; the map
// never shrinks.
func (w *Workflow) MergeArtifacts(delta map[string]any) {
	if len(delta) == 0 {
		return
	}

	if w.Artifacts == nil {
		w.Artifacts = make(map[string]any, len(delta))
	}

	for name, value := range delta {
		w.Artifacts[name] = value
	}
}
