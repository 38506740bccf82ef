package core

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
)

// Tag identifies one worker thread for its whole lifetime.
//
// Tags are minted from a process-wide counter that only ever grows, so a tag
// is never handed out twice, even after its thread has been joined and a new
// one spawned. The zero Tag means "not a tagged thread".
type Tag struct {
	id uint64
}

var lastTag atomic.Uint64

func mintTag() (Tag, error) {
	for {
		cur := lastTag.Load()
		if cur == math.MaxUint64 {
			return Tag{}, ErrTagsExhausted
		}
		if lastTag.CompareAndSwap(cur, cur+1) {
			return Tag{id: cur + 1}, nil
		}
	}
}

// IsZero reports whether t is the zero Tag.
func (t Tag) IsZero() bool { return t.id == 0 }

func (t Tag) String() string {
	return fmt.Sprintf("Tag(%#x)", t.id)
}

// OnThread reports whether ctx belongs to a task running on the thread that
// owns t.
func (t Tag) OnThread(ctx context.Context) bool {
	return !t.IsZero() && CurrentTag(ctx) == t
}

// EnsureOnThread panics with a *ThreadMismatchError unless ctx belongs to a
// task running on the thread that owns t.
func (t Tag) EnsureOnThread(ctx context.Context) {
	current := CurrentTag(ctx)
	if t.IsZero() || current != t {
		panic(&ThreadMismatchError{Got: current, Want: t})
	}
}

// taskScope is attached to the context of every task the worker executes.
// It only answers on the worker goroutine, and only until the task returns.
type taskScope struct {
	tag       Tag
	thread    *Thread
	goroutine uint64
	closed    atomic.Bool
}

type taskScopeKeyType struct{}

var taskScopeKey taskScopeKeyType

func withTaskScope(ctx context.Context, thread *Thread) (context.Context, *taskScope) {
	scope := &taskScope{tag: thread.tag, thread: thread, goroutine: thread.goroutine}
	return context.WithValue(ctx, taskScopeKey, scope), scope
}

// CurrentTag returns the Tag of the worker executing the task that ctx was
// handed to. It returns the zero Tag when ctx does not come from a task, when
// that task has already returned, or when the caller is not the worker
// goroutine itself (for example a goroutine started from inside the task).
func CurrentTag(ctx context.Context) Tag {
	scope := activeScope(ctx)
	if scope == nil {
		return Tag{}
	}
	return scope.tag
}

// CurrentThread returns the Thread executing the task that ctx was handed
// to, or nil outside of a task.
func CurrentThread(ctx context.Context) *Thread {
	scope := activeScope(ctx)
	if scope == nil {
		return nil
	}
	return scope.thread
}

func activeScope(ctx context.Context) *taskScope {
	if ctx == nil {
		return nil
	}
	scope, ok := ctx.Value(taskScopeKey).(*taskScope)
	if !ok || scope.closed.Load() {
		return nil
	}
	if scope.goroutine != getGoroutineID() {
		return nil
	}
	return scope
}

// getGoroutineID returns the current goroutine's ID, parsed from the
// "goroutine NNN [" header of its stack trace.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

// MustCurrentTag is like CurrentTag but panics with ErrNotOnTaggedThread
// instead of returning the zero Tag.
func MustCurrentTag(ctx context.Context) Tag {
	tag := CurrentTag(ctx)
	if tag.IsZero() {
		panic(ErrNotOnTaggedThread)
	}
	return tag
}
