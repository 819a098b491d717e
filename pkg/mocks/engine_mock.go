package mocks

import (
	"context"

	"github.com/conductor-labs/conductor/pkg/approval"
	"github.com/conductor-labs/conductor/pkg/executor"
	"github.com/conductor-labs/conductor/pkg/planner"
	"github.com/stretchr/testify/mock"
)

// MockPlanner is a mock implementation of planner.Planner interface.
type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) GeneratePlan(ctx context.Context, goal string, planContext map[string]any) ([]planner.PlannedStep, error) {
	args := m.Called(ctx, goal, planContext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]planner.PlannedStep), args.Error(1)
}

// MockStepExecutor is a mock implementation of executor.StepExecutor interface.
type MockStepExecutor struct {
	mock.Mock
}

func (m *MockStepExecutor) Execute(ctx context.Context, req executor.Request) (*executor.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*executor.Result), args.Error(1)
}

// MockApprovalGateway is a mock implementation of approval.Gateway interface.
type MockApprovalGateway struct {
	mock.Mock
}

func (m *MockApprovalGateway) RequestApproval(ctx context.Context, req approval.Request) error {
	args := m.Called(ctx, req)

	return args.Error(0)
}
