package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Task is the unit of work (Closure) executed on a Thread.
//
// The closure may capture variables of the submitting goroutine's frame by
// reference: Run does not return until the closure has finished, so those
// variables stay live and every write the closure made is visible to the
// submitter once Run returns.
//
// ctx identifies the worker (see CurrentTag) and must not be handed to other
// goroutines.
type Task func(ctx context.Context) error

// Thread binds a dedicated goroutine to execute submitted tasks one at a time.
// With ThreadConfig.LockOSThread (the default) that goroutine owns one OS
// thread for its whole life, which makes Thread suitable for resources with
// OS-thread affinity: native device handles, cgo libraries using thread-local
// storage, UI toolkits.
//
// Submission is synchronous: Run, Submit and Call block until the task has
// completed on the worker. There is no queue. Callers that share a Thread
// across goroutines must serialize their submissions; a submission that
// overlaps another one fails with ErrWorkerBusy.
type Thread struct {
	id        string
	cfg       ThreadConfig
	tag       Tag
	goroutine uint64
	handoff   *handoff
	history   *executionHistory
	done      chan struct{}

	seq       atomic.Uint64
	submitted atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64

	joinOnce sync.Once
	joinErr  error
}

// Spawn starts a Thread with DefaultThreadConfig.
func Spawn() (*Thread, error) {
	return SpawnWithConfig(DefaultThreadConfig())
}

// SpawnWithConfig starts a Thread. It returns once the worker is running and
// has minted its Tag; the prelude, if any, may still be running.
func SpawnWithConfig(cfg ThreadConfig) (*Thread, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &SpawnError{Name: cfg.Name, Err: err}
	}
	cfg = cfg.withDefaults()

	t := &Thread{
		id:      uuid.NewString(),
		cfg:     cfg,
		handoff: newHandoff(),
		history: newExecutionHistory(cfg.HistoryCapacity),
		done:    make(chan struct{}),
	}

	ready := make(chan error, 1)
	go t.runLoop(ready)

	if err := <-ready; err != nil {
		<-t.done
		return nil, &SpawnError{Name: cfg.Name, Err: err}
	}
	return t, nil
}

// ID returns the unique instance id of the thread.
func (t *Thread) ID() string { return t.id }

// Name returns the configured name of the thread.
func (t *Thread) Name() string { return t.cfg.Name }

// Tag returns the tag of the worker. Values created with NewTagged inside
// tasks of this thread carry it.
func (t *Thread) Tag() Tag { return t.tag }

// Done is closed once the worker goroutine has exited.
func (t *Thread) Done() <-chan struct{} { return t.done }

// IsClosed returns true once the thread has been joined or poisoned. A Join
// waiting for an in-flight task already counts.
func (t *Thread) IsClosed() bool {
	switch t.handoff.currentState() {
	case stateShuttingDown, statePoisoned:
		return true
	}
	if t.handoff.closingRequested() {
		return true
	}
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Run executes task on the worker and blocks until it has returned.
//
// The error is nil on success, otherwise a *TaskError: TaskFailed wraps the
// task's error or a *PanicError, WorkerUnavailable reports a joined or
// poisoned thread, WorkerBusy an overlapping submission.
func (t *Thread) Run(task Task) error {
	return t.submit(resolveTaskName(task), task)
}

// Release tears r down on the worker. Use it for Tagged values and other
// thread-affine resources that must not be closed from another thread.
func (t *Thread) Release(r Releaser) error {
	if r == nil {
		return nil
	}
	return t.submit("release", r.Release)
}

// Submit executes fn on the worker and returns its result. It blocks until fn
// has returned. Errors are reported as in Run; on error the zero R is
// returned.
func Submit[R any](t *Thread, fn func(ctx context.Context) (R, error)) (R, error) {
	var out R
	if fn == nil {
		return out, t.submit("anonymous", nil)
	}
	err := t.submit(resolveTaskName(fn), func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return out, nil
}

// Call is Submit for closures that can only fail by panicking.
func Call[R any](t *Thread, fn func(ctx context.Context) R) (R, error) {
	var out R
	if fn == nil {
		return out, t.submit("anonymous", nil)
	}
	err := t.submit(resolveTaskName(fn), func(ctx context.Context) error {
		out = fn(ctx)
		return nil
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return out, nil
}

func (t *Thread) submit(name string, run Task) error {
	if run == nil {
		return &TaskError{Thread: t.cfg.Name, Kind: TaskFailed, Err: ErrNilTask}
	}

	tk := &task{name: name, run: run}
	if err := t.handoff.give(tk); err != nil {
		return t.reject(name, err)
	}
	t.submitted.Add(1)

	if tk.err != nil {
		return &TaskError{Thread: t.cfg.Name, Kind: TaskFailed, Err: tk.err}
	}
	return nil
}

func (t *Thread) reject(name string, cause error) error {
	kind := WorkerUnavailable
	reason := "shutdown"
	switch {
	case errors.Is(cause, ErrTaskInFlight):
		kind = WorkerBusy
		reason = "busy"
	case errors.Is(cause, ErrPoisoned):
		reason = "poisoned"
	}

	t.rejected.Add(1)
	t.cfg.Metrics.RecordTaskRejected(t.cfg.Name, reason)
	t.cfg.Logger.Warn("task rejected",
		F("thread", t.cfg.Name),
		F("task", name),
		F("reason", reason),
		F("error", cause),
	)
	return &TaskError{Thread: t.cfg.Name, Kind: kind, Err: cause}
}

// Join stops the worker and blocks until its goroutine has exited. A task in
// flight is allowed to finish first. If the thread had been poisoned, Join
// returns a *JoinError matching ErrAlreadyPoisoned.
//
// Join is idempotent: later calls return the first result without blocking.
// It must not be called from a task running on the same thread.
func (t *Thread) Join() error {
	t.joinOnce.Do(func() {
		t.handoff.shutdown()
		<-t.done

		if cause := t.handoff.poisonCause(); cause != nil {
			t.joinErr = &JoinError{Thread: t.cfg.Name, Err: cause}
		}
		t.cfg.Logger.Debug("thread joined",
			F("thread", t.cfg.Name),
			F("tag", t.tag),
			F("poisoned", t.joinErr != nil),
		)
	})
	return t.joinErr
}

// RecentTasks returns up to limit execution records, newest first.
// A limit <= 0 returns the whole history.
func (t *Thread) RecentTasks(limit int) []TaskExecutionRecord {
	return t.history.Recent(limit)
}

// LastTask returns the most recent execution record.
func (t *Thread) LastTask() (TaskExecutionRecord, bool) {
	return t.history.Last()
}

// Stats returns a snapshot of the thread's runtime state.
func (t *Thread) Stats() ThreadStats {
	state := t.handoff.currentState()
	stats := ThreadStats{
		ID:        t.id,
		Name:      t.cfg.Name,
		Tag:       t.tag,
		State:     state.String(),
		Submitted: t.submitted.Load(),
		Failed:    t.failed.Load(),
		Rejected:  t.rejected.Load(),
		Poisoned:  state == statePoisoned,
		Closed:    t.IsClosed(),
	}
	if last, ok := t.history.Last(); ok {
		stats.LastTaskName = last.Name
		stats.LastTaskAt = last.FinishedAt
	}
	return stats
}
