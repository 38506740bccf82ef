package core

import (
	"context"
	"io"
)

// Tagged holds a value that may only be used on the thread that created it.
//
// The container carries the thread-safety contract, not the value: any type,
// including one wrapping a handle that must never cross threads, can be
// stored. Every accessor compares the tag of the calling task against the
// stored tag and panics with a *ThreadMismatchError on mismatch.
//
// A Tagged is created inside a task:
//
//	dev, err := core.Submit(thread, func(ctx context.Context) (*core.Tagged[*Device], error) {
//		d, err := openDevice()
//		if err != nil {
//			return nil, err
//		}
//		return core.NewTagged(ctx, d), nil
//	})
//
// and can afterwards be passed around freely but only dereferenced from tasks
// submitted to the same thread.
type Tagged[T any] struct {
	tag      Tag
	value    T
	released bool
}

// Releaser is implemented by values that own thread-affine resources and must
// be torn down on their own thread.
type Releaser interface {
	Release(ctx context.Context) error
}

// NewTagged wraps value with the tag of the thread running ctx's task.
// It panics with ErrNotOnTaggedThread when ctx is not a task context.
func NewTagged[T any](ctx context.Context, value T) *Tagged[T] {
	return &Tagged[T]{
		tag:   MustCurrentTag(ctx),
		value: value,
	}
}

// Tag returns the tag of the thread that owns the value.
func (t *Tagged[T]) Tag() Tag {
	return t.tag
}

func (t *Tagged[T]) ensure(ctx context.Context) {
	t.tag.EnsureOnThread(ctx)
	if t.released {
		panic(ErrTaggedReleased)
	}
}

// Get returns a copy of the value.
func (t *Tagged[T]) Get(ctx context.Context) T {
	t.ensure(ctx)
	return t.value
}

// Ptr returns a pointer to the stored value for in-place mutation. The pointer
// must not outlive the task it was obtained in.
func (t *Tagged[T]) Ptr(ctx context.Context) *T {
	t.ensure(ctx)
	return &t.value
}

// Set replaces the stored value.
func (t *Tagged[T]) Set(ctx context.Context, value T) {
	t.ensure(ctx)
	t.value = value
}

// Release tears the value down on its own thread. If the value implements
// Releaser or io.Closer it is released or closed. Any later access panics
// with ErrTaggedReleased; releasing twice is a no-op.
func (t *Tagged[T]) Release(ctx context.Context) error {
	t.tag.EnsureOnThread(ctx)
	if t.released {
		return nil
	}
	t.released = true

	var err error
	switch v := any(t.value).(type) {
	case Releaser:
		err = v.Release(ctx)
	case io.Closer:
		err = v.Close()
	}

	var zero T
	t.value = zero
	return err
}
