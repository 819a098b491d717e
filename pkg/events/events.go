// Package events defines event types and structures for workflow lifecycle
// notifications.
package events

import (
	"time"

	"github.com/conductor-labs/conductor/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries all workflow lifecycle events.
const Topic = "conductor.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowCreatedEvent   EventType = "workflow.created"
	WorkflowStartedEvent   EventType = "workflow.started"
	WorkflowCompletedEvent EventType = "workflow.completed"
	WorkflowFailedEvent    EventType = "workflow.failed"
	WorkflowCancelledEvent EventType = "workflow.cancelled"

	StepStartedEvent   EventType = "step.started"
	StepCompletedEvent EventType = "step.completed"
	StepFailedEvent    EventType = "step.failed"

	ApprovalRequestedEvent EventType = "approval.requested"
	ApprovalResolvedEvent  EventType = "approval.resolved"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
}

type WorkflowCreated struct {
	BaseEvent

	OwnerID        string `json:"owner_id"`
	Goal           string `json:"goal"`
	EstimatedSteps int    `json:"estimated_steps"`
}

func (w WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

type WorkflowStarted struct {
	BaseEvent

	Goal string `json:"goal"`
}

func (w WorkflowStarted) GetType() EventType {
	return WorkflowStartedEvent
}

type WorkflowCompleted struct {
	BaseEvent

	Artifacts  map[string]any `json:"artifacts,omitempty"`
	Metrics    models.Metrics `json:"metrics"`
	DurationMs int64          `json:"duration_ms"`
}

func (w WorkflowCompleted) GetType() EventType {
	return WorkflowCompletedEvent
}

type WorkflowFailed struct {
	BaseEvent

	ErrorDetail string `json:"error_detail"`
	FailedStep  int    `json:"failed_step,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

func (w WorkflowFailed) GetType() EventType {
	return WorkflowFailedEvent
}

type WorkflowCancelled struct {
	BaseEvent

	DurationMs int64 `json:"duration_ms"`
}

func (w WorkflowCancelled) GetType() EventType {
	return WorkflowCancelledEvent
}

type StepStarted struct {
	BaseEvent

	StepID      int    `json:"step_id"`
	Description string `json:"description"`
	Executor    string `json:"executor"`
	Attempt     int    `json:"attempt"`
}

func (s StepStarted) GetType() EventType {
	return StepStartedEvent
}

type StepCompleted struct {
	BaseEvent

	StepID     int   `json:"step_id"`
	DurationMs int64 `json:"duration_ms"`
}

func (s StepCompleted) GetType() EventType {
	return StepCompletedEvent
}

type StepFailed struct {
	BaseEvent

	StepID  int    `json:"step_id"`
	Attempt int    `json:"attempt"`
	Error   string `json:"error"`
}

func (s StepFailed) GetType() EventType {
	return StepFailedEvent
}

type ApprovalRequested struct {
	BaseEvent

	ApprovalID      string         `json:"approval_id"`
	StepID          int            `json:"step_id"`
	StepDescription string         `json:"step_description"`
	RiskContext     map[string]any `json:"risk_context,omitempty"`
	TimeoutMinutes  int            `json:"timeout_minutes"`
}

func (a ApprovalRequested) GetType() EventType {
	return ApprovalRequestedEvent
}

type ApprovalResolved struct {
	BaseEvent

	ApprovalID string                `json:"approval_id"`
	StepID     int                   `json:"step_id"`
	Status     models.ApprovalStatus `json:"status"`
	Responder  string                `json:"responder,omitempty"`
}

func (a ApprovalResolved) GetType() EventType {
	return ApprovalResolvedEvent
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}
