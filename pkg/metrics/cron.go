package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics tracks scheduled maintenance jobs by name.
type CronJobMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	sent     *prometheus.CounterVec
}

// NewCronJobMetrics registers the job metrics. A nil registerer yields a
// no-op recorder.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cron_job_runs_total",
		Help: "Scheduled job runs, by job and result.",
	}, []string{"job", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_cron_job_duration_seconds",
		Help:    "Wall time of scheduled job runs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_installment_reminders_total",
		Help: "Installment reminder emails, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(runs, duration, sent)
	return &CronJobMetrics{runs: runs, duration: duration, sent: sent}
}

func (c *CronJobMetrics) ObserveDuration(job string, d time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(d.Seconds())
}

func (c *CronJobMetrics) IncSuccess(job string) {
	if c == nil || c.runs == nil {
		return
	}
	c.runs.WithLabelValues(normalizeLabel(job), "success").Inc()
}

func (c *CronJobMetrics) IncFailure(job string) {
	if c == nil || c.runs == nil {
		return
	}
	c.runs.WithLabelValues(normalizeLabel(job), "failure").Inc()
}

// IncReminder counts one reminder attempt; ok=false means delivery failed.
func (c *CronJobMetrics) IncReminder(ok bool) {
	if c == nil || c.sent == nil {
		return
	}
	outcome := "sent"
	if !ok {
		outcome = "failed"
	}
	c.sent.WithLabelValues(outcome).Inc()
}
