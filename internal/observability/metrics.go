package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resv_reservations_total",
			Help: "Engine operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	SettlementDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resv_settlement_seconds",
			Help:    "Duration of settlement including the payment wait",
			Buckets: prometheus.DefBuckets,
		},
	)

	UnitsHeld = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "resv_units_held",
			Help: "Units currently HELD by pending reservations",
		},
	)

	ExpirySweepReleases = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resv_expiry_releases_total",
			Help: "Reservations expired by the background sweep",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resv_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
