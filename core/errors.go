package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTaskFailed matches a TaskError whose closure panicked or returned an error.
	ErrTaskFailed = errors.New("task failed")

	// ErrWorkerUnavailable matches a TaskError raised because the worker was
	// joined or poisoned. The condition is permanent.
	ErrWorkerUnavailable = errors.New("worker unavailable")

	// ErrWorkerBusy matches a TaskError raised because another task was already
	// in flight. Callers must serialize their submissions.
	ErrWorkerBusy = errors.New("worker busy")

	ErrShutdown      = errors.New("thread has been joined")
	ErrPoisoned      = errors.New("thread is poisoned")
	ErrWorkerExited  = errors.New("worker exited without completing its task")
	ErrTaskInFlight  = errors.New("another task is already in flight")
	ErrNilTask       = errors.New("nil task")
	ErrTagsExhausted = errors.New("thread tag space exhausted")
	ErrInvalidConfig = errors.New("invalid thread config")

	// ErrAlreadyPoisoned matches a JoinError for a worker that had failed
	// before it was joined.
	ErrAlreadyPoisoned = errors.New("worker had already been poisoned")

	ErrNotOnTaggedThread = errors.New("not running on a tagged thread")
	ErrTaggedReleased    = errors.New("tagged value has been released")
)

// SpawnError is returned by Spawn when the worker could not be created.
type SpawnError struct {
	Name string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn thread %q: %v", e.Name, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// TaskErrorKind tells apart why a submission did not produce a value.
type TaskErrorKind int

const (
	// TaskFailed: the closure panicked or returned an error. The worker survives.
	TaskFailed TaskErrorKind = iota
	// WorkerUnavailable: the thread was joined or poisoned.
	WorkerUnavailable
	// WorkerBusy: a concurrent submission was already in flight.
	WorkerBusy
)

func (k TaskErrorKind) String() string {
	switch k {
	case TaskFailed:
		return "failed"
	case WorkerUnavailable:
		return "unavailable"
	case WorkerBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// TaskError is returned by Run, Submit and Call.
//
// Err holds the cause: the closure's own error, a *PanicError, ErrShutdown, or
// the poison cause of the worker.
type TaskError struct {
	Thread string
	Kind   TaskErrorKind
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("thread %q: task %s: %v", e.Thread, e.Kind, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// Is lets errors.Is match the kind sentinels.
func (e *TaskError) Is(target error) bool {
	switch target {
	case ErrTaskFailed:
		return e.Kind == TaskFailed
	case ErrWorkerUnavailable:
		return e.Kind == WorkerUnavailable
	case ErrWorkerBusy:
		return e.Kind == WorkerBusy
	}
	return false
}

// PanicError carries a panic captured on the worker back to the submitter.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "panic: %v", e.Value)
	if len(e.Stack) > 0 {
		b.WriteString("\n\n")
		b.Write(e.Stack)
	}
	return b.String()
}

// Unwrap exposes the panic value when it is itself an error, so a runtime
// error such as integer division by zero can be matched with errors.As.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// JoinError is returned by Join when the worker had been poisoned.
type JoinError struct {
	Thread string
	Err    error
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join thread %q: %v", e.Thread, e.Err)
}

func (e *JoinError) Unwrap() error { return e.Err }

func (e *JoinError) Is(target error) bool {
	return target == ErrAlreadyPoisoned
}

// ThreadMismatchError is the panic value raised when a tagged value is
// touched from a thread other than the one that created it. A worker never
// turns it into a TaskError: raised inside a task, it terminates the process.
type ThreadMismatchError struct {
	Got  Tag
	Want Tag
}

func (e *ThreadMismatchError) Error() string {
	return fmt.Sprintf("cannot operate on tagged element unless on the correct thread, got %v but expected %v", e.Got, e.Want)
}
