package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics
var (
	transactionsCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_transactions_committed_total",
		Help: "Transfers that completed both commit legs",
	})

	transactionsAborted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_transactions_aborted_total",
		Help: "Transfers resolved to aborted",
	})

	duplicateSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_duplicate_submissions_total",
		Help: "Payment submissions answered from the idempotency log",
	})

	prepareFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_prepare_failures_total",
		Help: "2PC prepare phases that did not reach full readiness",
	})

	commitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_commit_failures_total",
		Help: "2PC commit phases with at least one failed leg",
	})

	compensatingCredits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_compensating_credits_total",
		Help: "Best-effort rollback credits issued after a partial commit",
	})
)
