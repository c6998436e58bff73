package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	operationsTotal *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	applyLatency    *prometheus.HistogramVec
	applyFailures   prometheus.Counter
	busyDrops       prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, *prometheus.HistogramVec, prometheus.Counter, prometheus.Counter) {
	ops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_changes_applied_total",
			Help: "Number of changes applied to the board",
		},
		[]string{"action", "kind"},
	)
	rej := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_rejections_total",
			Help: "Number of actions refused by a constraint check",
		},
		[]string{"reason"},
	)
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_apply_latency_seconds",
			Help:    "Latency of the external apply call",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)
	fail := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_apply_failures_total",
			Help: "Number of apply calls that returned an error",
		},
	)
	busy := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_busy_drops_total",
			Help: "Number of mutating actions dropped while an apply was in flight",
		},
	)
	return ops, rej, lat, fail, busy
}

func init() {
	operationsTotal, rejectionsTotal, applyLatency, applyFailures, busyDrops = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(operationsTotal, rejectionsTotal, applyLatency, applyFailures, busyDrops)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	operationsTotal, rejectionsTotal, applyLatency, applyFailures, busyDrops = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
