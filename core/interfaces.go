package core

import (
	"context"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called on the worker when a task panics, before the panic
// is transported back to the submitter.
//
// Implementations must not panic themselves; a panicking handler poisons the
// thread.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The context of the panicked task (carries the thread tag)
	// - threadName: The name of the thread where the panic occurred
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, threadName string, panicInfo any, stackTrace []byte)
}

// LoggingPanicHandler reports panics through a Logger.
type LoggingPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic value and stack at error level.
func (h *LoggingPanicHandler) HandlePanic(ctx context.Context, threadName string, panicInfo any, stackTrace []byte) {
	if h == nil || h.Logger == nil {
		return
	}
	h.Logger.Error("task panicked",
		F("thread", threadName),
		F("tag", CurrentTag(ctx)),
		F("panic", panicInfo),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting task execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods are called on the worker or the submitting goroutine and should be
// non-blocking and fast.
type Metrics interface {
	// RecordTaskDuration records how long a task ran on the worker.
	RecordTaskDuration(threadName string, duration time.Duration)

	// RecordTaskFailure records a task that panicked ("panic") or returned an
	// error ("error").
	RecordTaskFailure(threadName string, reason string)

	// RecordTaskRejected records a submission that never ran
	// ("shutdown", "poisoned", "busy").
	RecordTaskRejected(threadName string, reason string)

	// RecordPoisoned records that the thread entered its terminal failure state.
	RecordPoisoned(threadName string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(threadName string, duration time.Duration) {}

// RecordTaskFailure is a no-op.
func (m *NilMetrics) RecordTaskFailure(threadName string, reason string) {}

// RecordTaskRejected is a no-op.
func (m *NilMetrics) RecordTaskRejected(threadName string, reason string) {}

// RecordPoisoned is a no-op.
func (m *NilMetrics) RecordPoisoned(threadName string) {}
