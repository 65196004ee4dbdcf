package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	initiationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_initiations_total",
			Help: "Total number of payment initiation attempts",
		},
		[]string{"result"},
	)

	gatewayRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Duration of initiation requests to the payment gateway",
			Buckets: prometheus.DefBuckets,
		},
	)

	redirectReturnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redirect_returns_total",
			Help: "Total number of browser redirect returns from the gateway",
		},
		[]string{"result"},
	)

	postbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postbacks_total",
			Help: "Total number of server-to-server postbacks",
		},
		[]string{"result"},
	)
)

// Result labels. Handlers record one per request so the counters partition
// cleanly by outcome.
const (
	ResultApproved    = "approved"
	ResultDeclined    = "declined"
	ResultFailed      = "failed"
	ResultIgnored     = "ignored"
	ResultAuthFailed  = "auth_failed"
	ResultParseFailed = "parse_failed"
	ResultUnknown     = "unknown_session"
	ResultError       = "error"
)

// RecordInitiation counts an initiation attempt and its gateway round-trip.
func RecordInitiation(result string, elapsed time.Duration) {
	initiationsTotal.WithLabelValues(result).Inc()
	gatewayRequestDuration.Observe(elapsed.Seconds())
}

// RecordRedirectReturn counts a browser return outcome.
func RecordRedirectReturn(result string) {
	redirectReturnsTotal.WithLabelValues(result).Inc()
}

// RecordPostback counts a postback outcome.
func RecordPostback(result string) {
	postbacksTotal.WithLabelValues(result).Inc()
}
