package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for the payment settlement flow
var (
	PaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payagent_payments_total",
			Help: "Total number of executed payments by chain, mode and final status",
		},
		[]string{"chain", "mode", "status"},
	)

	PaymentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payagent_payment_duration_seconds",
			Help:    "Duration of payment execution from intent to final status",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 180},
		},
		[]string{"chain", "mode"},
	)

	StatusChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payagent_status_checks_total",
			Help: "Total number of settlement status checks by reported status",
		},
		[]string{"status"},
	)

	BestEffortFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payagent_best_effort_failures_total",
			Help: "Total number of failed non-fatal backend calls",
		},
		[]string{"call"},
	)

	FacilitatorCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payagent_facilitator_cache_hits_total",
			Help: "Total number of facilitator config cache hits",
		},
	)

	ReconciledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payagent_reconciled_transactions_total",
			Help: "Total number of pending history records resolved by the reconcile job",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(PaymentsTotal)
		prometheus.MustRegister(PaymentDuration)
		prometheus.MustRegister(StatusChecksTotal)
		prometheus.MustRegister(BestEffortFailuresTotal)
		prometheus.MustRegister(FacilitatorCacheHitsTotal)
		prometheus.MustRegister(ReconciledTotal)
	})
}
