package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerMetrics captures background job health.
type SchedulerMetrics struct {
	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobErrors   *prometheus.CounterVec
	jobTimeouts *prometheus.CounterVec
}

func NewSchedulerMetrics() *SchedulerMetrics {
	return NewSchedulerMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewSchedulerMetricsWithRegisterer(registerer prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affiliate_scheduler_job_runs_total",
			Help: "Scheduler job executions.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "affiliate_scheduler_job_duration_seconds",
			Help:    "Scheduler job duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affiliate_scheduler_job_errors_total",
			Help: "Scheduler job failures.",
		}, []string{"job"}),
		jobTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affiliate_scheduler_job_timeouts_total",
			Help: "Scheduler jobs that exceeded their deadline.",
		}, []string{"job"}),
	}

	m.jobRuns = register(registerer, m.jobRuns)
	m.jobDuration = register(registerer, m.jobDuration)
	m.jobErrors = register(registerer, m.jobErrors)
	m.jobTimeouts = register(registerer, m.jobTimeouts)
	return m
}

func register[T prometheus.Collector](registerer prometheus.Registerer, c T) T {
	if err := registerer.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector.(T)
		}
		panic(err)
	}
	return c
}

// ObserveJob records one job execution and classifies its outcome.
func (m *SchedulerMetrics) ObserveJob(job string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
	if err == nil {
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		m.jobTimeouts.WithLabelValues(job).Inc()
		return
	}
	m.jobErrors.WithLabelValues(job).Inc()
}
