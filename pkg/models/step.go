package models

import "time"

// StepStatus represents the lifecycle state of a single plan step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// Step is one unit of a workflow's plan. StepID is a 1-based sequence number
// unique within the workflow; Description and AssignedExecutor are fixed at
// plan time.
type Step struct {
	StepID           int        `json:"step_id"`
	Description      string     `json:"description"       validate:"required"`
	AssignedExecutor string     `json:"assigned_executor" validate:"required"`
	Status           StepStatus `json:"status"`
	Attempt          int        `json:"attempt"`
	Error            string     `json:"error,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}
