package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/Swind/go-thread-runner/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskDurationSeconds *prom.HistogramVec
	taskFailureTotal    *prom.CounterVec
	taskRejectedTotal   *prom.CounterVec
	poisonedTotal       *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
// Exporters created on the same registry share their collectors.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "threadrunner"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task execution duration on the worker in seconds.",
		Buckets:   buckets,
	}, []string{"thread"})
	failureVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_failure_total",
		Help:      "Total number of tasks that panicked or returned an error.",
	}, []string{"thread", "reason"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_rejected_total",
		Help:      "Total number of submissions that never reached the worker.",
	}, []string{"thread", "reason"})
	poisonedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "thread_poisoned_total",
		Help:      "Total number of threads that entered the poisoned state.",
	}, []string{"thread"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if failureVec, err = registerCollector(reg, failureVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if poisonedVec, err = registerCollector(reg, poisonedVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskDurationSeconds: durationVec,
		taskFailureTotal:    failureVec,
		taskRejectedTotal:   rejectedVec,
		poisonedTotal:       poisonedVec,
	}, nil
}

// RecordTaskDuration records task execution duration.
func (m *MetricsExporter) RecordTaskDuration(threadName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(normalizeLabel(threadName, "unknown")).Observe(duration.Seconds())
}

// RecordTaskFailure records failed task executions.
func (m *MetricsExporter) RecordTaskFailure(threadName string, reason string) {
	if m == nil {
		return
	}
	m.taskFailureTotal.WithLabelValues(normalizeLabel(threadName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordTaskRejected records task rejection events.
func (m *MetricsExporter) RecordTaskRejected(threadName string, reason string) {
	if m == nil {
		return
	}
	m.taskRejectedTotal.WithLabelValues(normalizeLabel(threadName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordPoisoned records a thread entering the poisoned state.
func (m *MetricsExporter) RecordPoisoned(threadName string) {
	if m == nil {
		return
	}
	m.poisonedTotal.WithLabelValues(normalizeLabel(threadName, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
