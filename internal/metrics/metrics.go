// Package metrics provides Prometheus instrumentation for the storefront.
package metrics

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// DetectionsTotal counts detection requests by mode (ai, plagiarism,
	// public, demo) and outcome.
	DetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "detections_total",
			Help:      "Total detection requests by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	// DetectionDuration observes upstream detector latency.
	DetectionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "detection_duration_seconds",
			Help:      "Upstream detector latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"mode"},
	)

	// CheckoutSessionsTotal counts Stripe checkout sessions by plan.
	CheckoutSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkout_sessions_total",
			Help:      "Total checkout sessions by plan and outcome.",
		},
		[]string{"plan", "outcome"},
	)

	// EmailsSentTotal counts transactional emails by template and outcome.
	EmailsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "emails_sent_total",
			Help:      "Total transactional emails by template and outcome.",
		},
		[]string{"template", "outcome"},
	)

	// WebhookEventsTotal counts Stripe webhook events by type.
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "webhook_events_total",
			Help:      "Total Stripe webhook events received by type.",
		},
		[]string{"type"},
	)

	// DemoLimitHitsTotal counts anonymous requests refused by the daily cap.
	DemoLimitHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "demo_limit_hits_total",
			Help:      "Anonymous detection requests refused by the per-IP daily cap.",
		},
		[]string{"endpoint"},
	)

	// UpstreamRetriesTotal counts retried calls to the detection upstreams.
	UpstreamRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "upstream_retries_total",
			Help:      "Calls to a detection upstream that were retried.",
		},
		[]string{"upstream"},
	)

	// ResellerInfo is 1 for the reseller this process serves.
	ResellerInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "storefront", Name: "reseller_info",
		Help: "Reseller served by this process (value is always 1).",
	}, []string{"reseller", "domain"})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		DetectionsTotal,
		DetectionDuration,
		CheckoutSessionsTotal,
		EmailsSentTotal,
		WebhookEventsTotal,
		DemoLimitHitsTotal,
		UpstreamRetriesTotal,
		ResellerInfo,
	)
}

// RegisterDB exports db's connection pool stats as go_sql_* series
// labelled db_name="storefront". Registering twice is a no-op.
func RegisterDB(db *sql.DB) error {
	err := prometheus.Register(collectors.NewDBStatsCollector(db, "storefront"))
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return nil
	}
	return err
}

// Outcome maps an error to the outcome label used across counters.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Middleware records request count and latency per route pattern, so
// /api/plans/pro and /api/plans/student share one series. Requests that
// match no route are labelled "unmatched".
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, statusBucket(c.Writer.Status())).Inc()
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// statusBucket maps a status code to its class, e.g. 404 to "4xx".
func statusBucket(code int) string {
	class := min(max(code/100, 1), 5)
	return strconv.Itoa(class) + "xx"
}
