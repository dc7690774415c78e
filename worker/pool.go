package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/kuleuven/nfs4xattr/logger"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"
)

var ErrPoolClosed = errors.New("worker pool closed")

var DefaultConcurrency = 64

var (
	poolPrometheusMetrics sync.Once

	poolJobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nfs4xattr",
			Subsystem: "worker",
			Name:      "jobs_in_flight",
			Help:      "Number of blocking module calls that are executing.",
		})
	poolJobsQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nfs4xattr",
			Subsystem: "worker",
			Name:      "jobs_queued",
			Help:      "Number of blocking module calls waiting for a slot.",
		})
)

// Pool executes blocking calls on their own goroutines, with at most
// a fixed number running at the same time.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	closed bool
	sync.Mutex
}

func New(concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	poolPrometheusMetrics.Do(func() {
		prometheus.MustRegister(poolJobsInFlight)
		prometheus.MustRegister(poolJobsQueued)
	})

	return &Pool{
		sem: semaphore.NewWeighted(int64(concurrency)),
	}
}

// Submit schedules fn and returns immediately.
func (p *Pool) Submit(fn func()) error {
	p.Lock()
	defer p.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	p.wg.Add(1)
	poolJobsQueued.Inc()

	go p.run(fn)

	return nil
}

func (p *Pool) run(fn func()) {
	defer p.wg.Done()

	err := p.sem.Acquire(context.Background(), 1)

	poolJobsQueued.Dec()

	if err != nil {
		logger.Logger.Errorf("worker pool: %v", err)

		return
	}

	defer p.sem.Release(1)

	poolJobsInFlight.Inc()
	defer poolJobsInFlight.Dec()

	fn()
}

// Close refuses new work and waits for submitted work to finish.
func (p *Pool) Close() error {
	p.Lock()
	p.closed = true
	p.Unlock()

	p.wg.Wait()

	return nil
}
