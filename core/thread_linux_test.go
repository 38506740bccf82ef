//go:build linux

package core

import (
	"context"
	"syscall"
	"testing"
)

// TestThread_LockOSThread verifies tasks keep running on one OS thread
// while the caller's goroutine is free to migrate.
func TestThread_LockOSThread(t *testing.T) {
	th := newTestThread(t)
	tids := make(map[int]bool)

	for i := 0; i < 50; i++ {
		tid, err := Call(th, func(ctx context.Context) int { return syscall.Gettid() })
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		tids[tid] = true
	}

	if len(tids) != 1 {
		t.Errorf("tasks ran on %d OS threads, want 1", len(tids))
	}
}
