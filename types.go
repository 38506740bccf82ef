package threadrunner

import (
	"context"

	"github.com/Swind/go-thread-runner/core"
)

// Re-export commonly used types from core package for convenience.
// This allows users to import only the threadrunner package for most use cases.

// Task is the unit of work (Closure)
type Task = core.Task

// Thread is the handle to a dedicated worker
type Thread = core.Thread

// ThreadConfig holds configuration options for a Thread
type ThreadConfig = core.ThreadConfig

// ThreadStats is a runtime snapshot of a Thread
type ThreadStats = core.ThreadStats

// Tag identifies a live worker thread
type Tag = core.Tag

// Tagged binds a value to the worker that created it
type Tagged[T any] = core.Tagged[T]

// Releaser is implemented by values with thread-affine teardown
type Releaser = core.Releaser

// Error types
type (
	TaskError           = core.TaskError
	TaskErrorKind       = core.TaskErrorKind
	PanicError          = core.PanicError
	JoinError           = core.JoinError
	SpawnError          = core.SpawnError
	ThreadMismatchError = core.ThreadMismatchError
)

// Task error kinds
const (
	TaskFailed        = core.TaskFailed
	WorkerUnavailable = core.WorkerUnavailable
	WorkerBusy        = core.WorkerBusy
)

// Sentinel errors for errors.Is
var (
	ErrTaskFailed        = core.ErrTaskFailed
	ErrWorkerUnavailable = core.ErrWorkerUnavailable
	ErrWorkerBusy        = core.ErrWorkerBusy
	ErrAlreadyPoisoned   = core.ErrAlreadyPoisoned
	ErrNotOnTaggedThread = core.ErrNotOnTaggedThread
	ErrTaggedReleased    = core.ErrTaggedReleased
)

// Convenience functions
var (
	Spawn               = core.Spawn
	SpawnWithConfig     = core.SpawnWithConfig
	DefaultThreadConfig = core.DefaultThreadConfig
	CurrentTag          = core.CurrentTag
	CurrentThread       = core.CurrentThread
	MustCurrentTag      = core.MustCurrentTag
	NewNoOpLogger       = core.NewNoOpLogger
	NewDefaultLogger    = core.NewDefaultLogger
)

// Submit executes fn on t and returns its result.
func Submit[R any](t *Thread, fn func(ctx context.Context) (R, error)) (R, error) {
	return core.Submit(t, fn)
}

// Call executes fn on t and returns its result.
func Call[R any](t *Thread, fn func(ctx context.Context) R) (R, error) {
	return core.Call(t, fn)
}

// NewTagged binds v to the worker running ctx's task.
func NewTagged[T any](ctx context.Context, v T) *Tagged[T] {
	return core.NewTagged(ctx, v)
}
