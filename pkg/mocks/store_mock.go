// Package mocks provides testify mock implementations of the engine's
// collaborator interfaces.
package mocks

import (
	"context"

	"github.com/conductor-labs/conductor/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of store.Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, workflowID string) (*models.Workflow, uint64, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}

	return args.Get(0).(*models.Workflow), args.Get(1).(uint64), args.Error(2)
}

func (m *MockStore) Put(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockStore) CompareAndPut(ctx context.Context, workflow *models.Workflow, version uint64) error {
	args := m.Called(ctx, workflow, version)

	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, workflowID string) error {
	args := m.Called(ctx, workflowID)

	return args.Error(0)
}

func (m *MockStore) List(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockStore) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockStore) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
