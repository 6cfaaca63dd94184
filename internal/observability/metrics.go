package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	connectionOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yarp",
			Subsystem: "network",
			Name:      "connection_ops_total",
			Help:      "Connection arbitration outcomes.",
		},
		[]string{"mode", "result"},
	)
	adminWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yarp",
			Subsystem: "network",
			Name:      "admin_writes_total",
			Help:      "Administrative RPC attempts to peer ports.",
		},
		[]string{"result"},
	)
	adminWriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "yarp",
			Subsystem: "network",
			Name:      "admin_write_duration_seconds",
			Help:      "Administrative RPC duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	nameServerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yarp",
			Subsystem: "nameserver",
			Name:      "requests_total",
			Help:      "Requests handled by the embedded name server.",
		},
		[]string{"op", "result"},
	)
)

// RegisterMetrics installs the collectors once per process.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(connectionOps, adminWrites, adminWriteDuration, nameServerRequests)
	})
}

// RecordConnectionOp counts one arbitration outcome.
func RecordConnectionOp(mode string, ok bool) {
	RegisterMetrics()
	connectionOps.WithLabelValues(mode, resultLabel(ok)).Inc()
}

// RecordAdminWrite counts one admin RPC and its duration.
func RecordAdminWrite(ok bool, duration time.Duration) {
	RegisterMetrics()
	adminWrites.WithLabelValues(resultLabel(ok)).Inc()
	adminWriteDuration.Observe(duration.Seconds())
}

// RecordNameServerRequest counts one embedded name-server request.
func RecordNameServerRequest(op string, ok bool) {
	RegisterMetrics()
	nameServerRequests.WithLabelValues(op, resultLabel(ok)).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}
