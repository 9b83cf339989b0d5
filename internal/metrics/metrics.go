package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gearbook",
			Name:      "decisions_total",
			Help:      "Count of engine decisions by outcome.",
		},
		[]string{"outcome"},
	)

	reservationCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gearbook",
			Name:      "reservation_created_total",
			Help:      "Count of reservations created by status.",
		},
		[]string{"status"},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gearbook",
			Name:      "reservation_status_changes_total",
			Help:      "Count of reservation lifecycle moves by target status.",
		},
		[]string{"to"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gearbook",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint and method.",
		},
		[]string{"endpoint", "method"},
	)

	snapshotCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gearbook",
			Name:      "snapshot_cache_total",
			Help:      "Count of snapshot cache lookups by result.",
		},
		[]string{"result"},
	)

	evaluateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "gearbook",
			Name:      "evaluate_duration_seconds",
			Help:      "Time to evaluate one reservation request.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5},
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(decisions, reservationCreated, statusChanges, httpRequests, snapshotCache, evaluateDuration)
	})
}

func IncDecision(outcome string) {
	decisions.WithLabelValues(outcome).Inc()
}

func IncReservationCreated(status string) {
	reservationCreated.WithLabelValues(status).Inc()
}

func IncStatusChange(to string) {
	statusChanges.WithLabelValues(to).Inc()
}

func IncHTTP(endpoint, method string) {
	httpRequests.WithLabelValues(endpoint, method).Inc()
}

func IncSnapshotCache(result string) {
	snapshotCache.WithLabelValues(result).Inc()
}

func ObserveEvaluateDuration(seconds float64) {
	evaluateDuration.Observe(seconds)
}
