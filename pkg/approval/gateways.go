package approval

import (
	"context"
	"log/slog"

	"github.com/conductor-labs/conductor/pkg/eventbus"
	"github.com/conductor-labs/conductor/pkg/events"
)

// LogGateway writes approval requests to the log. Development only; a real
// deployment pairs the engine with the BusGateway or a bespoke transport.
type LogGateway struct {
	logger *slog.Logger
}

func NewLogGateway(logger *slog.Logger) *LogGateway {
	return &LogGateway{
		logger: logger.With("module", "approval_log_gateway"),
	}
}

func (g *LogGateway) RequestApproval(ctx context.Context, req Request) error {
	g.logger.InfoContext(ctx, "Approval requested",
		"workflow_id", req.WorkflowID,
		"approval_id", req.ApprovalID,
		"step_id", req.StepID,
		"description", req.StepDescription,
		"timeout", req.Timeout,
	)

	return nil
}

// BusGateway publishes approval requests on the event bus so any subscribed
// transport (Slack bot, email bridge, dashboard) can deliver them.
type BusGateway struct {
	eventBus eventbus.EventPublisher
}

func NewBusGateway(eventBus eventbus.EventPublisher) *BusGateway {
	return &BusGateway{eventBus: eventBus}
}

func (g *BusGateway) RequestApproval(ctx context.Context, req Request) error {
	event := events.ApprovalRequested{
		BaseEvent:       events.NewBaseEvent(events.ApprovalRequestedEvent, req.WorkflowID),
		ApprovalID:      req.ApprovalID,
		StepID:          req.StepID,
		StepDescription: req.StepDescription,
		RiskContext:     req.RiskContext,
		TimeoutMinutes:  int(req.Timeout.Minutes()),
	}

	return g.eventBus.Publish(ctx, req.WorkflowID, event)
}
