package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/dispatchboard/core/metrics"
)

// PromSink records dispatch operations in Prometheus metrics.
type PromSink struct {
	operations  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	rejections  *prometheus.CounterVec
	utilization *prometheus.GaugeVec
	guests      *prometheus.GaugeVec
}

// NewPromSink registers board metrics on the default Prometheus registerer.
// The scrape endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ops, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "board_operations_total",
		Help: "Dispatch operations applied to the board",
	}, []string{"action", "success"}))
	if err != nil {
		return nil, err
	}
	lat, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "board_operation_latency_seconds",
		Help:    "Time spent applying an operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"}))
	if err != nil {
		return nil, err
	}
	rej, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "board_rejections_total",
		Help: "Board actions refused by a constraint check",
	}, []string{"kind", "guide_id"}))
	if err != nil {
		return nil, err
	}
	util, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "guide_utilization_ratio",
		Help: "Share of vehicle seats in use per guide",
	}, []string{"guide_id"}))
	if err != nil {
		return nil, err
	}
	guests, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "guide_guests",
		Help: "Guests assigned per guide",
	}, []string{"guide_id"}))
	if err != nil {
		return nil, err
	}
	return &PromSink{operations: ops, latency: lat, rejections: rej, utilization: util, guests: guests}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordOperation counts the operation and observes its latency.
func (s *PromSink) RecordOperation(rec coremetrics.OperationRecord) error {
	s.operations.WithLabelValues(rec.Action, strconv.FormatBool(rec.Success)).Inc()
	s.latency.WithLabelValues(rec.Action).Observe(rec.Latency.Seconds())
	return nil
}

// RecordRejection counts a refused action.
func (s *PromSink) RecordRejection(ev coremetrics.RejectionEvent) error {
	s.rejections.WithLabelValues(ev.Kind, ev.GuideID).Inc()
	return nil
}

// RecordGuideLoad sets the per-guide gauges.
func (s *PromSink) RecordGuideLoad(loads []coremetrics.GuideLoad) error {
	for _, l := range loads {
		s.utilization.WithLabelValues(l.GuideID).Set(l.Utilization)
		s.guests.WithLabelValues(l.GuideID).Set(float64(l.Guests))
	}
	return nil
}
