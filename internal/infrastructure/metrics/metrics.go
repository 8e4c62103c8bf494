package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/usecase"
)

const namespace = "gotransfer"

// Metrics holds the orchestrator's Prometheus metrics and implements
// usecase.MetricsRecorder.
type Metrics struct {
	// Operation metrics
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Remote ledger metrics
	RemoteCalls *prometheus.CounterVec

	// Saga metrics
	Compensations       *prometheus.CounterVec
	InconsistentStates  prometheus.Counter
	UnrecordedMutations prometheus.Counter
	UnpairedTransfers   prometheus.Gauge
}

var _ usecase.MetricsRecorder = (*Metrics)(nil)

// New creates the metrics and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Deposits, withdrawals and transfers by outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of orchestrated operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		RemoteCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_calls_total",
				Help:      "Calls to the remote ledger by step and result",
			},
			[]string{"step", "result"},
		),
		Compensations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compensations_total",
				Help:      "Compensating credits by whether they were acknowledged",
			},
			[]string{"succeeded"},
		),
		InconsistentStates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inconsistent_transfers_total",
			Help:      "Transfers that ended requiring manual reconciliation",
		}),
		UnrecordedMutations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unrecorded_mutations_total",
			Help:      "Acknowledged remote mutations whose local record could not be written",
		}),
		UnpairedTransfers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unpaired_transfers",
			Help:      "Correlation ids with only one transfer leg at the last consistency check",
		}),
	}
}

// RecordOperation implements usecase.MetricsRecorder.
func (m *Metrics) RecordOperation(operation, outcome string, duration time.Duration) {
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())

	switch outcome {
	case usecase.OutcomeInconsistent:
		m.InconsistentStates.Inc()
	case usecase.OutcomeStorage:
		m.UnrecordedMutations.Inc()
	}
}

// RecordRemoteCall implements usecase.MetricsRecorder.
func (m *Metrics) RecordRemoteCall(step domain.LedgerStep, result string) {
	m.RemoteCalls.WithLabelValues(string(step), result).Inc()
}

// RecordCompensation implements usecase.MetricsRecorder.
func (m *Metrics) RecordCompensation(succeeded bool) {
	m.Compensations.WithLabelValues(strconv.FormatBool(succeeded)).Inc()
}

// SetUnpairedTransfers records the result of a consistency check.
func (m *Metrics) SetUnpairedTransfers(n int64) {
	m.UnpairedTransfers.Set(float64(n))
}
