// Package memory provides an in-process store implementation for testing and
// development.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/conductor-labs/conductor/pkg/models"
	"github.com/conductor-labs/conductor/pkg/store"
)

type entry struct {
	payload   []byte
	version   uint64
	expiresAt time.Time
}

// Store keeps workflow blobs in a map with per-entry versions and deadlines.
// Records expire lazily on read and are swept on List.
type Store struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	retention time.Duration
}

// NewStore creates an in-memory store with the given retention window.
// A non-positive retention falls back to the default 24h.
func NewStore(retention time.Duration) *Store {
	if retention <= 0 {
		retention = models.DefaultRetention
	}

	return &Store{
		entries:   make(map[string]*entry),
		retention: retention,
	}
}

func (s *Store) Get(ctx context.Context, id string) (*models.Workflow, uint64, error) {
	s.mu.RLock()
	item, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok || time.Now().After(item.expiresAt) {
		return nil, 0, store.NewWorkflowError("Get", id, store.ErrWorkflowNotFound)
	}

	workflow := &models.Workflow{}
	if err := json.Unmarshal(item.payload, workflow); err != nil {
		return nil, 0, store.NewWorkflowError("Get", id, err)
	}

	return workflow, item.version, nil
}

func (s *Store) Put(ctx context.Context, workflow *models.Workflow) error {
	payload, err := json.Marshal(workflow)
	if err != nil {
		return store.NewWorkflowError("Put", workflow.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var version uint64
	if existing, ok := s.entries[workflow.ID]; ok {
		version = existing.version
	}

	s.entries[workflow.ID] = &entry{
		payload:   payload,
		version:   version + 1,
		expiresAt: time.Now().Add(s.retention),
	}

	return nil
}

func (s *Store) CompareAndPut(ctx context.Context, workflow *models.Workflow, version uint64) error {
	payload, err := json.Marshal(workflow)
	if err != nil {
		return store.NewWorkflowError("CompareAndPut", workflow.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[workflow.ID]
	if !ok || time.Now().After(existing.expiresAt) {
		return store.NewWorkflowError("CompareAndPut", workflow.ID, store.ErrWorkflowNotFound)
	}

	if existing.version != version {
		return store.NewWorkflowError("CompareAndPut", workflow.ID, store.ErrVersionConflict)
	}

	s.entries[workflow.ID] = &entry{
		payload:   payload,
		version:   version + 1,
		expiresAt: time.Now().Add(s.retention),
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)

	return nil
}

func (s *Store) List(ctx context.Context) ([]*models.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	workflows := make([]*models.Workflow, 0, len(s.entries))

	for id, item := range s.entries {
		if now.After(item.expiresAt) {
			delete(s.entries, id)

			continue
		}

		workflow := &models.Workflow{}
		if err := json.Unmarshal(item.payload, workflow); err != nil {
			return nil, store.NewWorkflowError("List", id, err)
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry)

	return nil
}
