package models

import "time"

// Defaults applied by ExecutionOptions.Normalize.
const (
	DefaultMaxRetries      = 3
	DefaultStepTimeout     = 30 * time.Second
	DefaultRetryBackoff    = 2 * time.Second
	DefaultApprovalTimeout = 60 * time.Minute
	DefaultRetention       = 24 * time.Hour
)

// ExecutionOptions carries per-workflow execution preferences. Zero values
// are replaced with defaults by Normalize at creation time.
type ExecutionOptions struct {
	RequireApproval bool          `json:"require_approval"`
	MaxRetries      int           `json:"max_retries"      validate:"min=0,max=10"`
	StepTimeout     time.Duration `json:"step_timeout"`
	RetryBackoff    time.Duration `json:"retry_backoff"`
	ApprovalTimeout time.Duration `json:"approval_timeout"`
	WorkflowTimeout time.Duration `json:"workflow_timeout"`
}

// Normalize fills unset fields with their defaults.
func (o *ExecutionOptions) Normalize() {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}

	if o.StepTimeout <= 0 {
		o.StepTimeout = DefaultStepTimeout
	}

	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}

	if o.ApprovalTimeout <= 0 {
		o.ApprovalTimeout = DefaultApprovalTimeout
	}
}
