// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/conductor-labs/conductor/pkg/models"
	"github.com/conductor-labs/conductor/pkg/store"
	"github.com/conductor-labs/conductor/pkg/store/memory"
	"github.com/conductor-labs/conductor/pkg/store/redis"
)

// NewStore builds a workflow store from a database URL. `redis://...` selects
// the Redis store; anything else falls back to the in-process store.
func NewStore(ctx context.Context, databaseURL string, retention time.Duration, logger *slog.Logger) (store.Store, error) {
	if retention <= 0 {
		retention = models.DefaultRetention
	}

	if strings.HasPrefix(databaseURL, "redis://") || strings.HasPrefix(databaseURL, "rediss://") {
		return redis.NewStore(ctx, databaseURL, retention, logger)
	}

	return memory.NewStore(retention), nil
}
