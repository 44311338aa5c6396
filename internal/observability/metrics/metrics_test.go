package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("org_id", "123"),
		attribute.String("affiliate_id", "456"),
		attribute.String("event_type", "approved"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("org_id"), attrs[0].Key)
	assert.Equal(t, attribute.Key("event_type"), attrs[1].Key)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordClick(context.Background(), "1")
	m.RecordConversion(context.Background(), "1", "approved")

	NewNoop().RecordPayout(context.Background(), "1", "paid")
}

func TestSchedulerMetricsClassifiesOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulerMetricsWithRegisterer(reg)

	m.ObserveJob("stats_refresh", time.Millisecond, nil)
	m.ObserveJob("stats_refresh", time.Millisecond, context.DeadlineExceeded)
	m.ObserveJob("stats_refresh", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("stats_refresh")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobTimeouts.WithLabelValues("stats_refresh")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobErrors.WithLabelValues("stats_refresh")))

	// registering twice reuses the existing collectors
	again := NewSchedulerMetricsWithRegisterer(reg)
	assert.Equal(t, 3.0, testutil.ToFloat64(again.jobRuns.WithLabelValues("stats_refresh")))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewHTTPMetricsWithRegisterer(reg)

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "affiliate_http_request_duration_seconds"))
}
