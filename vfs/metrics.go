package vfs

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	vfsPrometheusMetrics sync.Once

	vfsRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nfs4xattr",
			Subsystem: "vfs",
			Name:      "requests_total",
			Help:      "Number of VFS requests completed by a module.",
		},
		[]string{"module", "operation", "status"})
	vfsRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nfs4xattr",
			Subsystem: "vfs",
			Name:      "request_duration_seconds",
			Help:      "Time between dispatching a VFS request and its completion.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		},
		[]string{"module", "operation"})
	vfsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nfs4xattr",
			Subsystem: "vfs",
			Name:      "rejected_total",
			Help:      "Number of VFS requests rejected before reaching a module.",
		},
		[]string{"module", "operation", "status"})
	vfsBounceRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nfs4xattr",
			Subsystem: "vfs",
			Name:      "bounce_records_total",
			Help:      "Number of listing entries relayed through a bounce buffer.",
		})
	vfsBounceOverflows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nfs4xattr",
			Subsystem: "vfs",
			Name:      "bounce_overflows_total",
			Help:      "Number of listings cut short because the bounce buffer was full.",
		})
)

func registerMetrics() {
	vfsPrometheusMetrics.Do(func() {
		prometheus.MustRegister(vfsRequests)
		prometheus.MustRegister(vfsRequestDurationSeconds)
		prometheus.MustRegister(vfsRejected)
		prometheus.MustRegister(vfsBounceRecords)
		prometheus.MustRegister(vfsBounceOverflows)
	})
}

func (t *Thread) observe(req *Request) {
	name := req.Module.Name()

	vfsRequests.WithLabelValues(name, req.Opcode.String(), req.Status.Error()).Inc()
	vfsRequestDurationSeconds.WithLabelValues(name, req.Opcode.String()).Observe(time.Since(req.start).Seconds())
}

func reject(module Module, op Opcode, status Error) {
	vfsRejected.WithLabelValues(module.Name(), op.String(), status.Error()).Inc()
}
