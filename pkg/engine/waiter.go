package engine

import "sync"

// waiterRegistry wakes a workflow's runner when Approve or Cancel persisted a
// state change it is blocked on. Wakes are advisory; runners also poll the
// store at a bounded interval in case a signal is lost (e.g. the change was
// written by another process).
type waiterRegistry struct {
	mu      sync.Mutex
	waiters map[string]chan struct{}
}

func newWaiterRegistry() *waiterRegistry {
	return &waiterRegistry{
		waiters: make(map[string]chan struct{}),
	}
}

// register returns the wake channel for a workflow and a cleanup func. Only
// the owning runner registers; a second register for the same id replaces the
// previous channel.
func (r *waiterRegistry) register(workflowID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	r.mu.Lock()
	r.waiters[workflowID] = ch
	r.mu.Unlock()

	cleanup := func() {
		r.mu.Lock()
		if r.waiters[workflowID] == ch {
			delete(r.waiters, workflowID)
		}
		r.mu.Unlock()
	}

	return ch, cleanup
}

// notify wakes the runner waiting on a workflow, if any. Non-blocking: the
// channel holds at most one pending wake.
func (r *waiterRegistry) notify(workflowID string) {
	r.mu.Lock()
	ch, ok := r.waiters[workflowID]
	r.mu.Unlock()

	if !ok {
		return
	}

	select {
	case ch <- struct{}{}:
	default:
	}
}
