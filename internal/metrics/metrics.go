package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "techslots",
			Name:      "booking_created_total",
			Help:      "Count of bookings created by availability mode.",
		},
		[]string{"mode"},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "techslots",
			Name:      "booking_conflicts_total",
			Help:      "Count of create attempts that lost the slot to another booking.",
		},
	)

	bookingRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "techslots",
			Name:      "booking_rejected_total",
			Help:      "Count of booking requests rejected by validation.",
		},
		[]string{"reason"},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "techslots",
			Name:      "booking_status_changes_total",
			Help:      "Count of booking status transitions by target status.",
		},
		[]string{"status"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "techslots",
			Name:      "http_requests_total",
			Help:      "Count of API requests by route.",
		},
		[]string{"route"},
	)

	storeTx = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "techslots",
			Name:      "store_transaction_seconds",
			Help:      "Latency of booking store transactions.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingConflicts, bookingRejected, statusChanges, httpRequests, storeTx)
	})
}

func IncBookingCreated(mode string) {
	bookingCreated.WithLabelValues(mode).Inc()
}

func IncBookingConflict() {
	bookingConflicts.Inc()
}

func IncBookingRejected(reason string) {
	bookingRejected.WithLabelValues(reason).Inc()
}

func IncStatusChange(status string) {
	statusChanges.WithLabelValues(status).Inc()
}

func IncHTTP(route string) {
	httpRequests.WithLabelValues(route).Inc()
}

func ObserveStoreTx(op string, seconds float64) {
	storeTx.WithLabelValues(op).Observe(seconds)
}
