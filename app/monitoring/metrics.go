package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	articlesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "content_pilot",
			Name:      "articles_generated_total",
			Help:      "Total articles produced by the generation pipeline",
		},
		[]string{"mode", "provider"},
	)

	generationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "content_pilot",
			Name:      "generation_failures_total",
			Help:      "Total failed generation attempts",
		},
		[]string{"mode"},
	)

	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "content_pilot",
			Name:      "generation_duration_seconds",
			Help:      "Duration of generation runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
		},
		[]string{"mode"},
	)

	publishAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "content_pilot",
			Name:      "publish_attempts_total",
			Help:      "Total publish attempts by outcome",
		},
		[]string{"result"}, // "success", "failure"
	)

	publishQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "content_pilot",
			Name:      "publish_queue_depth",
			Help:      "Number of pending publish tasks",
		},
	)

	directionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "content_pilot",
			Name:      "directions_active",
			Help:      "Number of active content directions",
		},
	)

	eventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "content_pilot",
			Name:      "events_published_total",
			Help:      "Total events published on the internal bus",
		},
	)

	eventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "content_pilot",
			Name:      "events_dropped_total",
			Help:      "Total events dropped on full subscriber buffers",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "content_pilot",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "content_pilot",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func RecordArticleGenerated(mode, provider string) {
	articlesGenerated.WithLabelValues(mode, provider).Inc()
}

func RecordGenerationFailure(mode string) {
	generationFailures.WithLabelValues(mode).Inc()
}

func ObserveGenerationDuration(mode string, duration time.Duration) {
	generationDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

func RecordPublishAttempt(result string) {
	publishAttempts.WithLabelValues(result).Inc()
}

func SetPublishQueueDepth(depth int) {
	publishQueueDepth.Set(float64(depth))
}

func SetDirectionsActive(count int) {
	directionsActive.Set(float64(count))
}

func RecordEventPublished() {
	eventsPublished.Inc()
}

func RecordEventDropped() {
	eventsDropped.Inc()
}

// Middleware collects request counters and latencies for every route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the Prometheus scrape endpoint
func Handler() gin.HandlerFunc {
	handler := promhttp.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}
