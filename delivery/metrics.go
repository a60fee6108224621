package delivery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_delivery_attempts_total",
		Help: "The total number of delivery attempts by outcome",
	}, []string{"outcome"})

	claimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_events_claimed_total",
		Help: "The total number of events claimed for delivery",
	})

	claimErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_claim_errors_total",
		Help: "The total number of failed claim cycles",
	})

	staleReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_stale_events_reclaimed_total",
		Help: "The total number of stuck in_flight events returned to pending",
	})
)
