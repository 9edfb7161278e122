package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code", "service"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "service"},
	)

	// Business metrics
	PagesRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_pages_rendered_total",
			Help: "Total number of rendered pages by view",
		},
		[]string{"view"},
	)

	ArticlesServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_articles_served_total",
			Help: "Total number of articles listed to clients by view",
		},
		[]string{"view"},
	)

	ArticlesIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "news_articles_ingested_total",
			Help: "Total number of articles accepted by the ingest endpoint",
		},
	)
)

// Middleware records request count and latency. Unmatched routes are
// reported under a single path label to keep cardinality bounded.
func Middleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		HttpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status()), serviceName).Inc()
		HttpRequestDuration.WithLabelValues(method, path, serviceName).Observe(time.Since(start).Seconds())
	}
}
