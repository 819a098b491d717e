package redis_test

import (
	"os"
	"testing"

	"github.com/conductor-labs/conductor/pkg/log"
	"github.com/conductor-labs/conductor/pkg/models"
	"github.com/conductor-labs/conductor/pkg/store"
	redisstore "github.com/conductor-labs/conductor/pkg/store/redis"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests require a running Redis; set REDIS_URL to enable them.
func setupStore(t *testing.T) *redisstore.Store {
	t.Helper()

	databaseURL := os.Getenv("REDIS_URL")
	if databaseURL == "" {
		t.Skip("REDIS_URL not set, skipping Redis integration tests")
	}

	s, err := redisstore.NewStore(t.Context(), databaseURL, 0, log.WithModule("test"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close(t.Context())
	})

	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := setupStore(t)

	id := "wf-" + uuid.New().String()
	workflow := &models.Workflow{
		ID:     id,
		Goal:   "deploy the service",
		Status: models.WorkflowStatusCreated,
	}

	require.NoError(t, s.Put(t.Context(), workflow))

	fetched, version, err := s.Get(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, workflow.Goal, fetched.Goal)
	assert.Equal(t, uint64(1), version)

	fetched.Status = models.WorkflowStatusRunning
	require.NoError(t, s.CompareAndPut(t.Context(), fetched, version))

	// Stale version loses.
	err = s.CompareAndPut(t.Context(), fetched, version)
	assert.True(t, store.IsVersionConflict(err))
}

func TestStore_Delete(t *testing.T) {
	s := setupStore(t)

	id := "wf-" + uuid.New().String()
	require.NoError(t, s.Put(t.Context(), &models.Workflow{ID: id, Status: models.WorkflowStatusCreated}))

	require.NoError(t, s.Delete(t.Context(), id))

	_, _, err := s.Get(t.Context(), id)
	assert.True(t, store.IsWorkflowNotFound(err))

	// Deleting an absent record is a no-op.
	assert.NoError(t, s.Delete(t.Context(), id))
}

func TestStore_Get_NotFound(t *testing.T) {
	s := setupStore(t)

	_, _, err := s.Get(t.Context(), "wf-"+uuid.New().String())
	assert.True(t, store.IsWorkflowNotFound(err))
}

func TestStore_HealthCheck(t *testing.T) {
	s := setupStore(t)

	assert.NoError(t, s.HealthCheck(t.Context()))
}
