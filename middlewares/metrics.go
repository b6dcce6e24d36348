package middlewares

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	issuesReportedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusfix_issues_reported_total",
			Help: "Issues created through the report form",
		},
		[]string{"category", "with_image"},
	)

	upvoteTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusfix_upvote_toggles_total",
			Help: "Upvote toggles by resulting state",
		},
		[]string{"state"},
	)

	imageUploadFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campusfix_image_upload_failures_total",
			Help: "Image uploads that failed and left the issue without an image",
		},
	)

	boardDivergencesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusfix_board_divergences_total",
			Help: "Times the cached issue list disagreed with the store after a write",
		},
		[]string{"op"},
	)
)

// MetricsMiddleware records request count, latency and in-flight requests.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		httpRequestsInFlight.Dec()

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func RecordIssueReported(category string, withImage bool) {
	issuesReportedTotal.WithLabelValues(category, strconv.FormatBool(withImage)).Inc()
}

func RecordUpvoteToggle(upvoted bool) {
	state := "removed"
	if upvoted {
		state = "added"
	}
	upvoteTogglesTotal.WithLabelValues(state).Inc()
}

func RecordImageUploadFailure() {
	imageUploadFailuresTotal.Inc()
}

func RecordBoardDivergence(op string) {
	boardDivergencesTotal.WithLabelValues(op).Inc()
}
