package engine

import (
	"context"
	"log/slog"
	"sync"
)

const DefaultMaxConcurrentWorkflows = 10

// Supervisor launches one goroutine per active workflow, bounded by a
// fixed-size worker pool. Creation requests beyond the pool size queue in
// FIFO order rather than being rejected.
type Supervisor struct {
	logger  *slog.Logger
	runner  func(ctx context.Context, workflowID string)
	workers int

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []string
	active  map[string]struct{}
	stopped bool

	wg sync.WaitGroup
}

func NewSupervisor(workers int, runner func(ctx context.Context, workflowID string), logger *slog.Logger) *Supervisor {
	if workers <= 0 {
		workers = DefaultMaxConcurrentWorkflows
	}

	s := &Supervisor{
		logger:  logger.With("module", "supervisor"),
		runner:  runner,
		workers: workers,
		active:  make(map[string]struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	return s
}

// Start spins up the worker pool. Workers exit when ctx is cancelled or Stop
// is called after the queue drains.
func (s *Supervisor) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)

		go s.work(ctx)
	}

	// Unblock workers parked on the condition variable when ctx ends.
	go func() {
		<-ctx.Done()

		s.mu.Lock()
		s.stopped = true
		s.cond.Broadcast()
		s.mu.Unlock()
	}()
}

// Enqueue schedules a workflow for execution. Returns false when the
// supervisor is shutting down.
func (s *Supervisor) Enqueue(workflowID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}

	s.queue = append(s.queue, workflowID)
	s.cond.Signal()

	return true
}

// IsActive reports whether a live runner currently owns the workflow.
func (s *Supervisor) IsActive(workflowID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[workflowID]; ok {
		return true
	}

	for _, queued := range s.queue {
		if queued == workflowID {
			return true
		}
	}

	return false
}

// ActiveCount returns the number of workflows currently executing.
func (s *Supervisor) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.active)
}

// Stop prevents new enqueues and waits for in-flight runners to finish.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.cond.Broadcast()
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Supervisor) work(ctx context.Context) {
	defer s.wg.Done()

	for {
		s.mu.Lock()

		for len(s.queue) == 0 && !s.stopped {
			s.cond.Wait()
		}

		if len(s.queue) == 0 && s.stopped {
			s.mu.Unlock()

			return
		}

		workflowID := s.queue[0]
		s.queue = s.queue[1:]
		s.active[workflowID] = struct{}{}
		s.mu.Unlock()

		s.runner(ctx, workflowID)

		s.mu.Lock()
		delete(s.active, workflowID)
		s.mu.Unlock()
	}
}
