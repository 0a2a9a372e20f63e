package modelc

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	xerrors "github.com/jacoelho/modelc/errors"
)

const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

// processMetrics records request-time processing. A nil value records
// nothing.
type processMetrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newProcessMetrics(reg prometheus.Registerer) (*processMetrics, error) {
	if reg == nil {
		return nil, nil
	}
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelc",
			Name:      "process_total",
			Help:      "Processed inputs by endpoint and outcome (ok, invalid, error)",
		},
		[]string{"endpoint", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "modelc",
			Name:      "process_duration_seconds",
			Help:      "Time taken to process one input",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"endpoint"},
	)
	var err error
	if total, err = register(reg, total); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return &processMetrics{total: total, duration: duration}, nil
}

// register adds c to reg, reusing a collector registered by an earlier
// compile with the same registerer.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

func (m *processMetrics) observe(endpoint string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.total.WithLabelValues(endpoint, outcome(err)).Inc()
	m.duration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	if _, ok := xerrors.AsValidations(err); ok {
		return outcomeInvalid
	}
	return outcomeError
}
