package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conductor-labs/conductor/pkg/models"
	"github.com/conductor-labs/conductor/pkg/store"
	"github.com/robfig/cron/v3"
)

const DefaultSweepSchedule = "*/5 * * * *"

// janitor recovers orphaned workflows: aggregates stuck in running or
// waiting_approval with no live runner, typically left behind by a process
// restart. Orphans are failed rather than resumed; a step may have been
// mid-flight when the process died and replaying it is not safe without
// executor idempotency guarantees.
type janitor struct {
	engine   *Engine
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron
}

func newJanitor(engine *Engine, schedule string, logger *slog.Logger) *janitor {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	return &janitor{
		engine:   engine,
		schedule: schedule,
		logger:   logger.With("module", "janitor"),
	}
}

// start runs one sweep immediately, then schedules the periodic sweep.
func (j *janitor) start(ctx context.Context) error {
	if err := j.sweep(ctx); err != nil {
		// A failed startup sweep is not fatal; the periodic sweep retries.
		j.logger.ErrorContext(ctx, "Startup orphan sweep failed", "error", err)
	}

	j.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := j.cron.AddFunc(j.schedule, func() {
		if err := j.sweep(context.Background()); err != nil {
			j.logger.Error("Orphan sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", j.schedule, err)
	}

	j.cron.Start()

	return nil
}

func (j *janitor) stop() {
	if j.cron != nil {
		j.cron.Stop()
	}
}

// sweep fails every non-terminal workflow that no live runner owns.
func (j *janitor) sweep(ctx context.Context) error {
	workflows, err := j.engine.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	swept := 0

	for _, candidate := range workflows {
		switch candidate.Status {
		case models.WorkflowStatusRunning, models.WorkflowStatusWaitingApproval:
		case models.WorkflowStatusCreated, models.WorkflowStatusCompleted,
			models.WorkflowStatusFailed, models.WorkflowStatusCancelled:
			continue
		}

		if j.engine.supervisor.IsActive(candidate.ID) {
			continue
		}

		workflow, applied, err := j.engine.update(ctx, candidate.ID, func(w *models.Workflow) bool {
			if w.IsTerminal() {
				return false
			}

			// Re-check under the CAS read; a runner may have picked it up
			// between List and here.
			if j.engine.supervisor.IsActive(w.ID) {
				return false
			}

			if record := w.PendingApprovals(); len(record) > 0 {
				now := time.Now().UTC()
				for _, pending := range record {
					pending.Status = models.ApprovalStatusTimedOut
					pending.RespondedAt = &now
				}
			}

			w.Status = models.WorkflowStatusFailed
			w.ErrorDetail = "orphaned on restart"

			return true
		})
		if err != nil {
			if store.IsWorkflowNotFound(err) {
				continue
			}

			j.logger.ErrorContext(ctx, "Failed to recover orphaned workflow",
				"workflow_id", candidate.ID,
				"error", err,
			)

			continue
		}

		if !applied {
			continue
		}

		swept++

		j.engine.finalize(ctx, workflow, time.Now())

		j.logger.InfoContext(ctx, "Recovered orphaned workflow",
			"workflow_id", workflow.ID,
			"previous_status", candidate.Status,
		)
	}

	if swept > 0 {
		j.logger.InfoContext(ctx, "Orphan sweep finished", "recovered", swept)
	}

	return nil
}
