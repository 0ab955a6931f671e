package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_operations_total",
		Help: "Fund engine operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wallet_operation_retries_total",
		Help: "Fund engine retries after storage contention.",
	})

	invariantViolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wallet_invariant_violations_total",
		Help: "Detected conservation invariant violations. Always zero in a healthy system.",
	})
)

func recordOutcome(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
	}
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}
