package core

import "sync"

type handoffState int

const (
	stateIdle handoffState = iota
	stateTaskPending
	stateTaskRunning
	stateCompleted
	stateShuttingDown
	statePoisoned
)

func (s handoffState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateTaskPending:
		return "task_pending"
	case stateTaskRunning:
		return "task_running"
	case stateCompleted:
		return "completed"
	case stateShuttingDown:
		return "shutting_down"
	case statePoisoned:
		return "poisoned"
	default:
		return "unknown"
	}
}

// task is one submission: the closure plus its outcome slot. It lives on the
// submitter's side and is only referenced by the handoff while give blocks.
type task struct {
	name string
	run  Task
	err  error
}

// handoff is a single-slot rendezvous between one submitter and the worker.
// At most one task is in flight; there is no queue.
type handoff struct {
	mu      sync.Mutex
	cond    *sync.Cond
	state   handoffState
	slot    *task
	closing bool
	cause   error
}

func newHandoff() *handoff {
	h := &handoff{}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// give hands t to the worker and blocks until the worker has completed it or
// the handoff is poisoned. A nil return means t ran and t.err holds its
// outcome; otherwise the error says why t did not complete.
func (h *handoff) give(t *task) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case h.state == statePoisoned:
		return h.cause
	case h.state == stateShuttingDown || h.closing:
		return ErrShutdown
	case h.state != stateIdle:
		return ErrTaskInFlight
	}

	h.slot = t
	h.state = stateTaskPending
	h.cond.Broadcast()

	for h.state == stateTaskPending || h.state == stateTaskRunning {
		h.cond.Wait()
	}

	if h.state == statePoisoned {
		h.slot = nil
		return h.cause
	}

	// Completed.
	h.slot = nil
	if h.closing {
		h.state = stateShuttingDown
		h.cond.Broadcast()
	} else {
		h.state = stateIdle
	}
	return nil
}

// take blocks until a task is pending or the worker must exit. It returns
// false when the worker should stop.
func (h *handoff) take() (*task, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for h.state != stateTaskPending && h.state != stateShuttingDown && h.state != statePoisoned {
		h.cond.Wait()
	}

	if h.state != stateTaskPending {
		return nil, false
	}
	h.state = stateTaskRunning
	return h.slot, true
}

// complete stores the outcome of the running task and wakes the submitter.
func (h *handoff) complete(t *task, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != stateTaskRunning || h.slot != t {
		return
	}
	t.err = err
	h.state = stateCompleted
	h.cond.Broadcast()
}

// poison moves the handoff to its terminal failure state. The first cause
// wins. Pending and future give calls fail with it.
func (h *handoff) poison(cause error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == statePoisoned {
		return
	}
	if cause == nil {
		cause = ErrPoisoned
	}
	h.cause = cause
	h.state = statePoisoned
	h.cond.Broadcast()
}

// shutdown asks the worker to exit once it is idle. A task in flight is
// allowed to finish first.
func (h *handoff) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case stateIdle:
		h.state = stateShuttingDown
		h.cond.Broadcast()
	case stateShuttingDown, statePoisoned:
	default:
		h.closing = true
	}
}

func (h *handoff) poisonCause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != statePoisoned {
		return nil
	}
	return h.cause
}

// closingRequested reports whether shutdown was asked for while a task was in
// flight.
func (h *handoff) closingRequested() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closing
}

func (h *handoff) currentState() handoffState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}
