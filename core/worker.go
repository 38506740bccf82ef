package core

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// runLoop is the core of the Thread, it occupies a dedicated goroutine
// (and, with LockOSThread, a dedicated OS thread) until Join.
func (t *Thread) runLoop(ready chan<- error) {
	aborted := false
	defer func() {
		if !aborted {
			close(t.done)
		}
	}()

	if t.cfg.LockOSThread {
		// Never unlocked: the OS thread is terminated together with the
		// goroutine instead of being returned to the scheduler.
		runtime.LockOSThread()
	}

	tag, err := mintTag()
	if err != nil {
		ready <- err
		return
	}
	t.tag = tag
	t.goroutine = getGoroutineID()
	ready <- nil

	clean := false
	defer func() {
		if clean {
			return
		}
		// Reached through runtime.Goexit in a task or a panic that escaped
		// task capture; the loop cannot continue either way.
		rec := recover()
		if isTagViolation(rec) {
			// Nobody waiting on this thread is woken: the process goes down
			// with the violation.
			aborted = true
			panic(rec)
		}
		cause := ErrWorkerExited
		if rec != nil {
			cause = fmt.Errorf("%w: %v", ErrWorkerExited, rec)
		}
		t.poison(cause)
	}()

	t.cfg.Logger.Debug("worker started",
		F("thread", t.cfg.Name),
		F("id", t.id),
		F("tag", t.tag),
		F("locked_os_thread", t.cfg.LockOSThread),
	)

	if t.cfg.Prelude != nil {
		if err := t.runPrelude(); err != nil {
			t.poison(err)
			clean = true
			return
		}
	}

	for {
		tk, ok := t.handoff.take()
		if !ok {
			clean = true
			t.cfg.Logger.Debug("worker exiting", F("thread", t.cfg.Name), F("tag", t.tag))
			return
		}
		err := t.execute(tk)
		t.handoff.complete(tk, err)
	}
}

func (t *Thread) runPrelude() (err error) {
	ctx, scope := withTaskScope(context.Background(), t)
	defer scope.closed.Store(true)

	ok := false
	defer func() {
		if ok {
			return
		}
		if rec := recover(); rec != nil {
			if isTagViolation(rec) {
				t.abort(rec)
			}
			err = fmt.Errorf("prelude: %w", &PanicError{Value: rec, Stack: debug.Stack()})
		}
	}()
	t.cfg.Prelude(ctx)
	ok = true
	return nil
}

// execute runs one task on the worker, capturing any panic as a *PanicError.
// A runtime.Goexit from the task is not captured and ends the loop, and a
// tag violation is never captured at all (see abort).
func (t *Thread) execute(tk *task) (err error) {
	ctx, scope := withTaskScope(context.Background(), t)
	seq := t.seq.Add(1)
	startedAt := time.Now()
	panicked := false

	defer func() {
		scope.closed.Store(true)
		finishedAt := time.Now()
		failed := err != nil
		t.history.Add(TaskExecutionRecord{
			Seq:        seq,
			Name:       tk.name,
			ThreadName: t.cfg.Name,
			Tag:        t.tag,
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
			Duration:   finishedAt.Sub(startedAt),
			Failed:     failed,
			Panicked:   panicked,
		})
		t.cfg.Metrics.RecordTaskDuration(t.cfg.Name, finishedAt.Sub(startedAt))
		if failed {
			t.failed.Add(1)
			reason := "error"
			if panicked {
				reason = "panic"
			}
			t.cfg.Metrics.RecordTaskFailure(t.cfg.Name, reason)
		}
	}()

	ok := false
	func() {
		defer func() {
			if ok {
				return
			}
			rec := recover()
			if rec == nil {
				return
			}
			if isTagViolation(rec) {
				t.abort(rec)
			}
			panicked = true
			stack := debug.Stack()
			t.cfg.PanicHandler.HandlePanic(ctx, t.cfg.Name, rec, stack)
			err = &PanicError{Value: rec, Stack: stack}
		}()
		err = tk.run(ctx)
		ok = true
	}()
	return err
}

func (t *Thread) poison(cause error) {
	cause = fmt.Errorf("%w: %w", ErrPoisoned, cause)
	t.handoff.poison(cause)
	t.cfg.Metrics.RecordPoisoned(t.cfg.Name)
	t.cfg.Logger.Error("thread poisoned", F("thread", t.cfg.Name), F("tag", t.tag), F("error", cause))
}

// abort handles a tagged value touched from the wrong thread inside a worker
// task. rec is re-raised past the task capture and terminates the process;
// the submitter is never handed a result.
func (t *Thread) abort(rec any) {
	err, _ := rec.(error)
	t.cfg.Logger.Error("thread affinity violated, aborting",
		F("thread", t.cfg.Name),
		F("tag", t.tag),
		F("error", err),
	)
	panic(rec)
}

// isTagViolation reports whether a recovered value is a thread affinity
// defect rather than an ordinary task failure.
func isTagViolation(rec any) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	var mismatch *ThreadMismatchError
	return errors.As(err, &mismatch) || errors.Is(err, ErrNotOnTaggedThread)
}
