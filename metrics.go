package nfs4xattr

import (
	"strconv"
	"sync"

	"github.com/kuleuven/nfs4xattr/msg"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	compoundPrometheusMetrics sync.Once

	compoundOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nfs4xattr",
			Subsystem: "nfsv4",
			Name:      "compound_operations_total",
			Help:      "Number of operations provided as part of calls to NFSv4 COMPOUND.",
		},
		[]string{"operation", "status"})
	compoundOperationsOK = map[uint32]prometheus.Counter{}
)

var servedOps = []uint32{
	msg.OP4_PUTFH,
	msg.OP4_PUTROOTFH,
	msg.OP4_PUTPUBFH,
	msg.OP4_GETFH,
	msg.OP4_SAVEFH,
	msg.OP4_RESTOREFH,
	msg.OP4_GETXATTR,
	msg.OP4_SETXATTR,
	msg.OP4_LISTXATTRS,
	msg.OP4_REMOVEXATTR,
}

func registerMetrics() {
	compoundPrometheusMetrics.Do(func() {
		prometheus.MustRegister(compoundOperations)

		// Counters for the common case are created up front.
		for _, op := range servedOps {
			compoundOperationsOK[op] = compoundOperations.WithLabelValues(msg.Proc4Name(op), "ok")
		}
	})
}

func observeOperation(op, status uint32) {
	if status == msg.NFS4_OK {
		if counter, ok := compoundOperationsOK[op]; ok {
			counter.Inc()

			return
		}
	}

	compoundOperations.WithLabelValues(msg.Proc4Name(op), statusLabel(status)).Inc()
}

func statusLabel(status uint32) string {
	if status == msg.NFS4_OK {
		return "ok"
	}

	return strconv.FormatUint(uint64(status), 10)
}
