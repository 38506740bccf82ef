package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-thread-runner/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ThreadSnapshotProvider provides current thread stats snapshots.
type ThreadSnapshotProvider interface {
	Stats() core.ThreadStats
}

// SnapshotPoller periodically exports thread Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	threadsMu sync.RWMutex
	threads   map[string]ThreadSnapshotProvider

	threadSubmitted *prom.GaugeVec
	threadFailed    *prom.GaugeVec
	threadRejected  *prom.GaugeVec
	threadPoisoned  *prom.GaugeVec
	threadClosed    *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	submitted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "threadrunner",
		Name:      "thread_submitted",
		Help:      "Tasks executed per thread (snapshot).",
	}, []string{"thread"})
	failed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "threadrunner",
		Name:      "thread_failed",
		Help:      "Tasks that panicked or returned an error per thread (snapshot).",
	}, []string{"thread"})
	rejected := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "threadrunner",
		Name:      "thread_rejected",
		Help:      "Rejected submissions per thread (snapshot).",
	}, []string{"thread"})
	poisoned := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "threadrunner",
		Name:      "thread_poisoned",
		Help:      "Thread poisoned state (1=poisoned, 0=healthy).",
	}, []string{"thread"})
	closed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "threadrunner",
		Name:      "thread_closed",
		Help:      "Thread closed state (1=closed, 0=open).",
	}, []string{"thread"})

	var err error
	if submitted, err = registerCollector(reg, submitted); err != nil {
		return nil, err
	}
	if failed, err = registerCollector(reg, failed); err != nil {
		return nil, err
	}
	if rejected, err = registerCollector(reg, rejected); err != nil {
		return nil, err
	}
	if poisoned, err = registerCollector(reg, poisoned); err != nil {
		return nil, err
	}
	if closed, err = registerCollector(reg, closed); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:        interval,
		threads:         make(map[string]ThreadSnapshotProvider),
		threadSubmitted: submitted,
		threadFailed:    failed,
		threadRejected:  rejected,
		threadPoisoned:  poisoned,
		threadClosed:    closed,
	}, nil
}

// AddThread adds or replaces a thread snapshot provider by name.
func (p *SnapshotPoller) AddThread(name string, provider ThreadSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "thread")
	p.threadsMu.Lock()
	p.threads[name] = provider
	p.threadsMu.Unlock()
}

// RemoveThread stops exporting the named thread and drops its series.
func (p *SnapshotPoller) RemoveThread(name string) {
	if p == nil {
		return
	}
	name = normalizeLabel(name, "thread")
	p.threadsMu.Lock()
	delete(p.threads, name)
	p.threadsMu.Unlock()

	for _, vec := range []*prom.GaugeVec{p.threadSubmitted, p.threadFailed, p.threadRejected, p.threadPoisoned, p.threadClosed} {
		vec.DeleteLabelValues(name)
	}
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx, p.done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()

	cancel()
	<-done
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.threadsMu.RLock()
	defer p.threadsMu.RUnlock()

	for name, provider := range p.threads {
		stats := provider.Stats()
		p.threadSubmitted.WithLabelValues(name).Set(float64(stats.Submitted))
		p.threadFailed.WithLabelValues(name).Set(float64(stats.Failed))
		p.threadRejected.WithLabelValues(name).Set(float64(stats.Rejected))
		p.threadPoisoned.WithLabelValues(name).Set(boolGauge(stats.Poisoned))
		p.threadClosed.WithLabelValues(name).Set(boolGauge(stats.Closed))
	}
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
