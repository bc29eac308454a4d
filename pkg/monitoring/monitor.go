package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	PostsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsreel_posts_created_total",
			Help: "Posts created, by post type",
		},
		[]string{"type"},
	)

	// Votes kind: upvote|choice|review|reply，result: applied|noop|rejected
	Votes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsreel_votes_total",
			Help: "Vote attempts by kind and outcome",
		},
		[]string{"kind", "result"},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsreel_notifications_total",
			Help: "Push notification dispatches by result",
		},
		[]string{"result"},
	)

	CounterCorrections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsreel_counter_corrections_total",
			Help: "Rows corrected by the counter reconciliation job",
		},
		[]string{"table"},
	)
)

var registerOnce sync.Once

// Init 重复调用安全
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(PostsCreated)
		prometheus.MustRegister(Votes)
		prometheus.MustRegister(Notifications)
		prometheus.MustRegister(CounterCorrections)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
