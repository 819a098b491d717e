package models

import "time"

// ApprovalStatus represents the state of one human approval gate.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
	ApprovalStatusTimedOut ApprovalStatus = "timed_out"
)

// Resolved reports whether a decision (or timeout) has been recorded.
func (s ApprovalStatus) Resolved() bool {
	return s != ApprovalStatusPending
}

// ApprovalRecord is one human-gate instance attached to a workflow.
type ApprovalRecord struct {
	ApprovalID  string         `json:"approval_id"`
	StepID      int            `json:"step_id"`
	Status      ApprovalStatus `json:"status"`
	Responder   string         `json:"responder,omitempty"`
	Comment     string         `json:"comment,omitempty"`
	RequestedAt time.Time      `json:"requested_at"`
	RespondedAt *time.Time     `json:"responded_at,omitempty"`
}
