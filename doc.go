// Package threadrunner runs closures on a dedicated, persistent OS thread.
//
// Some resources may only be touched from the OS thread that created them:
// native device handles, cgo libraries keeping thread-local state, UI
// toolkits. A Thread owns one worker goroutine that is locked to a single OS
// thread for its whole life; callers hand it closures and block until each
// one has run there.
//
// # Quick Start
//
//	th, err := threadrunner.Spawn()
//	if err != nil {
//		return err
//	}
//	defer th.Join()
//
//	sum, err := threadrunner.Call(th, func(ctx context.Context) int {
//		return 40 + 2
//	})
//
// # Key Concepts
//
// Thread: the handle to a worker. Run, Submit and Call block until the
// closure has returned on the worker, so closures may capture and mutate the
// caller's local variables. There is no queue: one submission at a time.
//
// Tag: identifies a live worker. Inside a task, CurrentTag(ctx) returns the
// worker's tag; everywhere else it returns the zero Tag.
//
// Tagged: a container bound to the worker that created it. Reading or writing
// it from any other goroutine panics with a *ThreadMismatchError. Outside a
// worker that is an ordinary panic; inside a task on another Thread it is
// never captured and terminates the process.
//
// # Failures
//
// A panic inside a closure is captured on the worker and returned to the
// submitter as a TaskError matching ErrTaskFailed; the worker keeps running.
// A closure that kills the worker goroutine (runtime.Goexit) poisons the
// thread: every later submission fails with ErrWorkerUnavailable and Join
// returns an error matching ErrAlreadyPoisoned.
//
// # Example
//
//	th, _ := threadrunner.Spawn()
//	defer th.Join()
//
//	dev, _ := threadrunner.Call(th, func(ctx context.Context) *threadrunner.Tagged[*Device] {
//		return threadrunner.NewTagged(ctx, openDevice())
//	})
//
//	// Only tasks on th may touch dev.
//	_ = th.Run(func(ctx context.Context) error {
//		return dev.Get(ctx).Start()
//	})
//	_ = th.Release(dev)
package threadrunner
