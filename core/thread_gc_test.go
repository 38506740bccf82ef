package core_test

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Swind/go-thread-runner/core"
)

type gcObject struct {
	ID   string
	Data []byte
}

func (o *gcObject) Process(ctx context.Context) error {
	o.Data[0] = 1
	return nil
}

// TestThread_GC_ClosureReleasedAfterRun verifies the worker keeps no reference
// to a task once Run has returned
// Given: an object with a finalizer captured by a task
// When: the task completes and the object goes out of scope
// Then: the object is garbage collected while the thread is still alive
func TestThread_GC_ClosureReleasedAfterRun(t *testing.T) {
	// Arrange
	cfg := core.DefaultThreadConfig()
	cfg.Logger = core.NewNoOpLogger()
	th, err := core.SpawnWithConfig(cfg)
	if err != nil {
		t.Fatalf("SpawnWithConfig failed: %v", err)
	}
	defer th.Join()

	var finalized atomic.Bool

	// Act
	func() {
		obj := &gcObject{ID: "captured", Data: make([]byte, 1024*1024)}
		runtime.SetFinalizer(obj, func(o *gcObject) { finalized.Store(true) })

		if err := th.Run(obj.Process); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	}()

	// Assert
	deadline := time.Now().Add(2 * time.Second)
	for !finalized.Load() && time.Now().Before(deadline) {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	if !finalized.Load() {
		t.Error("finalizer called: got = false, want = true")
	}
}

// TestThread_GC_TaggedValueReleasedAfterRelease verifies Release drops the value
func TestThread_GC_TaggedValueReleasedAfterRelease(t *testing.T) {
	cfg := core.DefaultThreadConfig()
	cfg.Logger = core.NewNoOpLogger()
	th, err := core.SpawnWithConfig(cfg)
	if err != nil {
		t.Fatalf("SpawnWithConfig failed: %v", err)
	}
	defer th.Join()

	var finalized atomic.Bool
	var v *core.Tagged[*gcObject]
	func() {
		v, err = core.Call(th, func(ctx context.Context) *core.Tagged[*gcObject] {
			obj := &gcObject{ID: "tagged", Data: make([]byte, 1024*1024)}
			runtime.SetFinalizer(obj, func(o *gcObject) { finalized.Store(true) })
			return core.NewTagged(ctx, obj)
		})
	}()
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	if err := th.Release(v); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !finalized.Load() && time.Now().Before(deadline) {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	if !finalized.Load() {
		t.Error("finalizer called: got = false, want = true")
	}
	runtime.KeepAlive(v)
}
