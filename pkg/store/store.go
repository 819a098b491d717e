// Package store provides the durable state abstraction backing workflow
// execution across restarts.
package store

import (
	"context"

	"github.com/conductor-labs/conductor/pkg/models"
)

// Store is a key-value style state store with per-record expiry. One record
// per workflow, keyed by its ID, serialized as a single blob.
//
// Get returns the workflow together with an opaque version token;
// CompareAndPut succeeds only if the stored version still matches, so a
// concurrent Cancel racing a step completion can never be silently
// overwritten. Every write refreshes the retention window. Delete removes a
// record unconditionally and is idempotent; deleting an absent ID is not an
// error.
type Store interface {
	Get(ctx context.Context, id string) (*models.Workflow, uint64, error)
	Put(ctx context.Context, workflow *models.Workflow) error
	CompareAndPut(ctx context.Context, workflow *models.Workflow, version uint64) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Workflow, error)
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
