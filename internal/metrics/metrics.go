package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stayhub",
			Name:      "booking_submitted_total",
			Help:      "Count of booking submissions by result.",
		},
		[]string{"result"},
	)

	paymentSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stayhub",
			Name:      "payment_submitted_total",
			Help:      "Count of payment submissions by result.",
		},
		[]string{"result"},
	)

	dateConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stayhub",
			Name:      "date_conflicts_total",
			Help:      "Count of booking attempts blocked by a local date conflict.",
		},
	)

	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stayhub",
			Name:      "upstream_requests_total",
			Help:      "Count of requests to the remote booking API by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stayhub",
			Name:      "active_booking_sessions",
			Help:      "Number of open booking sessions.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingSubmitted, paymentSubmitted, dateConflicts, upstreamRequests, activeSessions)
	})
}

func IncBookingSubmitted(result string) {
	bookingSubmitted.WithLabelValues(result).Inc()
}

func IncPaymentSubmitted(result string) {
	paymentSubmitted.WithLabelValues(result).Inc()
}

func IncDateConflict() {
	dateConflicts.Inc()
}

func IncUpstream(endpoint, outcome string) {
	upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
