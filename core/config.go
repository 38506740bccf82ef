package core

import (
	"context"
	"fmt"
)

const defaultThreadName = "thread-runner"

// ThreadConfig holds configuration options for a Thread.
// Handlers left nil are replaced with defaults by Spawn.
type ThreadConfig struct {
	// Name is used in logs, metrics and errors. Defaults to "thread-runner".
	Name string

	// LockOSThread pins the worker goroutine to a single OS thread for its
	// whole life. The OS thread is discarded when the worker exits.
	LockOSThread bool

	// Prelude runs on the worker before the first task. A panicking prelude
	// poisons the thread.
	Prelude func(ctx context.Context)

	// HistoryCapacity bounds the execution history kept for RecentTasks.
	HistoryCapacity int

	// Logger defaults to NewDefaultLogger.
	Logger Logger

	// Metrics defaults to NilMetrics.
	Metrics Metrics

	// PanicHandler defaults to a LoggingPanicHandler using Logger.
	PanicHandler PanicHandler
}

// DefaultThreadConfig returns a config with default handlers.
func DefaultThreadConfig() ThreadConfig {
	return ThreadConfig{
		Name:            defaultThreadName,
		LockOSThread:    true,
		HistoryCapacity: defaultTaskHistoryCapacity,
	}
}

// Validate reports configuration errors wrapped in ErrInvalidConfig.
func (c ThreadConfig) Validate() error {
	if c.HistoryCapacity < 0 {
		return fmt.Errorf("%w: history capacity %d is negative", ErrInvalidConfig, c.HistoryCapacity)
	}
	return nil
}

func (c ThreadConfig) withDefaults() ThreadConfig {
	if c.Name == "" {
		c.Name = defaultThreadName
	}
	if c.HistoryCapacity == 0 {
		c.HistoryCapacity = defaultTaskHistoryCapacity
	}
	if c.Logger == nil {
		c.Logger = NewDefaultLogger()
	}
	if c.Metrics == nil {
		c.Metrics = &NilMetrics{}
	}
	if c.PanicHandler == nil {
		c.PanicHandler = &LoggingPanicHandler{Logger: c.Logger}
	}
	return c
}
