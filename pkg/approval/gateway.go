// Package approval defines the gateway boundary that delivers approval
// requests to a human channel.
package approval

import (
	"context"
	"time"
)

// Request describes one approval gate handed to the gateway. Decisions come
// back asynchronously through Engine.Approve (push) or by the waiting runner
// polling the store (fallback); the gateway only needs to deliver.
type Request struct {
	ApprovalID      string
	WorkflowID      string
	StepID          int
	StepDescription string
	RiskContext     map[string]any
	Timeout         time.Duration
}

// Gateway submits an approval request to whatever transport reaches humans.
type Gateway interface {
	RequestApproval(ctx context.Context, req Request) error
}
