package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "skirental"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status class.",
		},
		[]string{"endpoint", "status"},
	)

	rentalCommits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rental_commits_total",
			Help:      "Booking commit attempts by outcome.",
		},
		[]string{"outcome"},
	)

	stockConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_conflicts_total",
			Help:      "Reservations refused for insufficient stock.",
		},
	)

	pagesOutOfRange = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_pages_out_of_range_total",
			Help:      "Listing requests for a page past the last one.",
		},
		[]string{"listing"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by outcome.",
		},
		[]string{"outcome"},
	)

	failedNotifications = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifications_failed",
			Help:      "Outbox tasks that exhausted their retries.",
		},
	)

	listingLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "listing_query_seconds",
			Help:      "Count plus page query latency per listing.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"listing"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			rentalCommits,
			stockConflicts,
			pagesOutOfRange,
			notifications,
			failedNotifications,
			listingLatency,
		)
	})
}

func IncHTTP(endpoint string, status int) {
	httpRequests.WithLabelValues(endpoint, statusClass(status)).Inc()
}

// IncCommit records a commit outcome: committed, empty, stock or error.
func IncCommit(outcome string) {
	rentalCommits.WithLabelValues(outcome).Inc()
}

func IncStockConflict() {
	stockConflicts.Inc()
}

func IncPageOutOfRange(listing string) {
	pagesOutOfRange.WithLabelValues(listing).Inc()
}

// IncNotification records a delivery outcome: sent, retry, failed or enqueue_error.
func IncNotification(outcome string) {
	notifications.WithLabelValues(outcome).Inc()
}

func SetFailedNotifications(n int) {
	failedNotifications.Set(float64(n))
}

func IncFailedNotifications() {
	failedNotifications.Inc()
}

func ObserveListing(listing string, started time.Time) {
	listingLatency.WithLabelValues(listing).Observe(time.Since(started).Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
