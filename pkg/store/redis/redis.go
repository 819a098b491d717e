// Package redis provides a Redis-backed store implementation with per-record
// expiry and optimistic concurrency.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/conductor-labs/conductor/pkg/models"
	"github.com/conductor-labs/conductor/pkg/store"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "conductor:workflow:"
	connectTimeout = 5 * time.Second
	scanBatchSize  = 100
)

// Store persists each workflow as a hash {payload, version} under
// conductor:workflow:<id>. CompareAndPut runs under WATCH so a concurrent
// writer invalidates the transaction instead of being overwritten. Every
// write refreshes the key's TTL.
type Store struct {
	client    redis.UniversalClient
	logger    *slog.Logger
	retention time.Duration
}

// NewStore connects to Redis using a redis:// URL and verifies the
// connection with a bounded Ping.
func NewStore(ctx context.Context, databaseURL string, retention time.Duration, logger *slog.Logger) (*Store, error) {
	options, err := redis.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if retention <= 0 {
		retention = models.DefaultRetention
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger = logger.With("module", "redis_store", "addr", options.Addr)
	logger.InfoContext(ctx, "Connected to Redis")

	return &Store{
		client:    client,
		logger:    logger,
		retention: retention,
	}, nil
}

func workflowKey(id string) string {
	return keyPrefix + id
}

func (s *Store) Get(ctx context.Context, id string) (*models.Workflow, uint64, error) {
	values, err := s.client.HMGet(ctx, workflowKey(id), "payload", "version").Result()
	if err != nil {
		return nil, 0, store.NewWorkflowError("Get", id, fmt.Errorf("%w: %w", store.ErrStoreUnavailable, err))
	}

	payload, ok := values[0].(string)
	if !ok || payload == "" {
		return nil, 0, store.NewWorkflowError("Get", id, store.ErrWorkflowNotFound)
	}

	versionStr, _ := values[1].(string)

	version, err := strconv.ParseUint(versionStr, 10, 64)
	if err != nil {
		return nil, 0, store.NewWorkflowError("Get", id, fmt.Errorf("corrupt version field: %w", err))
	}

	workflow := &models.Workflow{}
	if err := json.Unmarshal([]byte(payload), workflow); err != nil {
		return nil, 0, store.NewWorkflowError("Get", id, err)
	}

	return workflow, version, nil
}

func (s *Store) Put(ctx context.Context, workflow *models.Workflow) error {
	payload, err := json.Marshal(workflow)
	if err != nil {
		return store.NewWorkflowError("Put", workflow.ID, err)
	}

	key := workflowKey(workflow.ID)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "payload", payload)
		pipe.HIncrBy(ctx, key, "version", 1)
		pipe.Expire(ctx, key, s.retention)

		return nil
	})
	if err != nil {
		return store.NewWorkflowError("Put", workflow.ID, fmt.Errorf("%w: %w", store.ErrStoreUnavailable, err))
	}

	return nil
}

func (s *Store) CompareAndPut(ctx context.Context, workflow *models.Workflow, version uint64) error {
	payload, err := json.Marshal(workflow)
	if err != nil {
		return store.NewWorkflowError("CompareAndPut", workflow.ID, err)
	}

	key := workflowKey(workflow.ID)

	txn := func(tx *redis.Tx) error {
		currentStr, err := tx.HGet(ctx, key, "version").Result()
		if errors.Is(err, redis.Nil) {
			return store.ErrWorkflowNotFound
		}

		if err != nil {
			return err
		}

		current, err := strconv.ParseUint(currentStr, 10, 64)
		if err != nil {
			return fmt.Errorf("corrupt version field: %w", err)
		}

		if current != version {
			return store.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "payload", payload)
			pipe.HSet(ctx, key, "version", version+1)
			pipe.Expire(ctx, key, s.retention)

			return nil
		})

		return err
	}

	err = s.client.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		// The key changed between WATCH and EXEC.
		return store.NewWorkflowError("CompareAndPut", workflow.ID, store.ErrVersionConflict)
	}

	if err != nil {
		return store.NewWorkflowError("CompareAndPut", workflow.ID, err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, workflowKey(id)).Err(); err != nil {
		return store.NewWorkflowError("Delete", id, fmt.Errorf("%w: %w", store.ErrStoreUnavailable, err))
	}

	return nil
}

func (s *Store) List(ctx context.Context) ([]*models.Workflow, error) {
	var (
		workflows []*models.Workflow
		cursor    uint64
	)

	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", store.ErrStoreUnavailable, err)
		}

		for _, key := range keys {
			payload, err := s.client.HGet(ctx, key, "payload").Result()
			if errors.Is(err, redis.Nil) {
				// Expired between SCAN and HGET.
				continue
			}

			if err != nil {
				return nil, fmt.Errorf("%w: %w", store.ErrStoreUnavailable, err)
			}

			workflow := &models.Workflow{}
			if err := json.Unmarshal([]byte(payload), workflow); err != nil {
				s.logger.ErrorContext(ctx, "Skipping corrupt workflow record", "key", key, "error", err)

				continue
			}

			workflows = append(workflows, workflow)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return workflows, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrStoreUnavailable, err)
	}

	return nil
}

func (s *Store) Close(ctx context.Context) error {
	err := s.client.Close()
	if err != nil {
		s.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
	}

	return err
}
