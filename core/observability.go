package core

import "time"

// TaskExecutionRecord captures a completed task execution event.
type TaskExecutionRecord struct {
	Seq        uint64
	Name       string
	ThreadName string
	Tag        Tag
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Failed     bool
	Panicked   bool
}

// ThreadStats represents runtime observability state for a Thread.
type ThreadStats struct {
	ID           string
	Name         string
	Tag          Tag
	State        string
	Submitted    int64
	Failed       int64
	Rejected     int64
	Poisoned     bool
	Closed       bool
	LastTaskName string
	LastTaskAt   time.Time
}
