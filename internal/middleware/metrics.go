package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

var (
	httpMetricsOnce sync.Once
	httpMetricsInst *httpMetrics
)

func globalHTTPMetrics() *httpMetrics {
	httpMetricsOnce.Do(func() {
		httpMetricsInst = &httpMetrics{
			requests: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "issueflow",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests handled, labeled by method, route and status",
			}, []string{"method", "route", "status"}),
			duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "issueflow",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "route"}),
			inFlight: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "issueflow",
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "HTTP requests currently being served",
			}),
		}
	})
	return httpMetricsInst
}

// Metrics records request counts and latencies. Routes are labeled by their
// registered pattern so ids do not explode the label space.
func Metrics() gin.HandlerFunc {
	m := globalHTTPMetrics()
	return func(c *gin.Context) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
