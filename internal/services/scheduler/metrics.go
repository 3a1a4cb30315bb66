package scheduler

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goatkit/issueflow/internal/service"
)

type schedulerMetrics struct {
	jobRuns      *prometheus.CounterVec
	jobDurations *prometheus.HistogramVec
	sweepLicense prometheus.Gauge
	sweepDepts   *prometheus.CounterVec
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetricsInst *schedulerMetrics
)

func globalSchedulerMetrics() *schedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetricsInst = newSchedulerMetrics()
	})
	return schedulerMetricsInst
}

func newSchedulerMetrics() *schedulerMetrics {
	return &schedulerMetrics{
		jobRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "issueflow",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job executions, labeled by job slug and result",
		}, []string{"job", "status"}),
		jobDurations: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "issueflow",
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled job executions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		sweepLicense: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "issueflow",
			Subsystem: "scheduler",
			Name:      "license_sweep_expiring_licenses",
			Help:      "Licenses inside the expiry horizon at the latest sweep",
		}),
		sweepDepts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "issueflow",
			Subsystem: "scheduler",
			Name:      "license_sweep_departments_total",
			Help:      "Departments handled by the license sweep, labeled by outcome",
		}, []string{"outcome"}),
	}
}

func (m *schedulerMetrics) recordRun(job string) func(err error) {
	if m == nil {
		return func(error) {}
	}
	timer := prometheus.NewTimer(m.jobDurations.WithLabelValues(job))
	return func(err error) {
		timer.ObserveDuration()
		status := "success"
		if err != nil {
			status = "failure"
		}
		m.jobRuns.WithLabelValues(job, status).Inc()
	}
}

func (m *schedulerMetrics) recordSweep(res service.SweepResult) {
	if m == nil {
		return
	}
	m.sweepLicense.Set(float64(res.Licenses))
	m.sweepDepts.WithLabelValues("notified").Add(float64(res.Notified))
	m.sweepDepts.WithLabelValues("skipped").Add(float64(res.Skipped))
	m.sweepDepts.WithLabelValues("failed").Add(float64(res.Failed))
}
