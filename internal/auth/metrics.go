package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Namespace: "nita",
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Login attempts by identity source and result.",
	}, []string{"source", "result"})

	gateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Namespace: "nita",
		Subsystem: "auth",
		Name:      "gate_decisions_total",
		Help:      "Authorization decisions by capability kind and outcome.",
	}, []string{"capability", "outcome"})

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Namespace: "nita",
		Subsystem: "auth",
		Name:      "directory_breaker_state",
		Help:      "Directory circuit breaker state: 0 closed, 1 half-open, 2 open.",
	}, []string{"breaker"})
)
