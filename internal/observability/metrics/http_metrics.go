package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records request latency for the Prometheus scrape endpoint.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics() *HTTPMetrics {
	return NewHTTPMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewHTTPMetricsWithRegisterer(registerer prometheus.Registerer) *HTTPMetrics {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "affiliate_http_request_duration_seconds",
		Help:    "HTTP request latency by route, method and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status_code"})

	if err := registerer.Register(duration); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = already.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			panic(err)
		}
	}
	return &HTTPMetrics{duration: duration}
}

func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.duration.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
