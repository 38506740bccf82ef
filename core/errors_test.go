package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTaskError_Is(t *testing.T) {
	tests := []struct {
		kind TaskErrorKind
		want error
		not  []error
	}{
		{TaskFailed, ErrTaskFailed, []error{ErrWorkerUnavailable, ErrWorkerBusy}},
		{WorkerUnavailable, ErrWorkerUnavailable, []error{ErrTaskFailed, ErrWorkerBusy}},
		{WorkerBusy, ErrWorkerBusy, []error{ErrTaskFailed, ErrWorkerUnavailable}},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &TaskError{Thread: "x", Kind: tt.kind, Err: ErrShutdown})
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.want)
			}
			if !errors.Is(err, ErrShutdown) {
				t.Errorf("cause not reachable through %v", err)
			}
			for _, other := range tt.not {
				if errors.Is(err, other) {
					t.Errorf("errors.Is(%v, %v) = true", err, other)
				}
			}
		})
	}

	if got := TaskErrorKind(9).String(); got != "unknown" {
		t.Errorf("String() = %q, want unknown", got)
	}
}

func TestTaskError_Message(t *testing.T) {
	err := &TaskError{Thread: "audio", Kind: TaskFailed, Err: errors.New("boom")}
	if got, want := err.Error(), `thread "audio": task failed: boom`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestPanicError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	withErr := &PanicError{Value: inner, Stack: []byte("goroutine 1")}
	if !errors.Is(withErr, inner) {
		t.Error("PanicError does not unwrap an error value")
	}
	if !strings.HasPrefix(withErr.Error(), "panic: inner\n\ngoroutine 1") {
		t.Errorf("Error() = %q", withErr.Error())
	}

	plain := &PanicError{Value: "text"}
	if plain.Unwrap() != nil {
		t.Error("Unwrap() of a non-error value is not nil")
	}
	if got := plain.Error(); got != "panic: text" {
		t.Errorf("Error() = %q, want %q", got, "panic: text")
	}
}

func TestJoinError_IsAlreadyPoisoned(t *testing.T) {
	err := &JoinError{Thread: "x", Err: fmt.Errorf("%w: %w", ErrPoisoned, ErrWorkerExited)}
	if !errors.Is(err, ErrAlreadyPoisoned) {
		t.Error("JoinError does not match ErrAlreadyPoisoned")
	}
	if !errors.Is(err, ErrWorkerExited) {
		t.Error("JoinError does not expose its cause")
	}
}

func TestSpawnError(t *testing.T) {
	err := &SpawnError{Name: "audio", Err: ErrTagsExhausted}
	if !errors.Is(err, ErrTagsExhausted) {
		t.Error("SpawnError does not unwrap")
	}
	if got, want := err.Error(), `spawn thread "audio": thread tag space exhausted`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestThreadMismatchError_Message(t *testing.T) {
	err := &ThreadMismatchError{Got: Tag{id: 1}, Want: Tag{id: 2}}
	want := "cannot operate on tagged element unless on the correct thread, got Tag(0x1) but expected Tag(0x2)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
