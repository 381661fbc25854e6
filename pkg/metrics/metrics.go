// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "saas_metrics"

type Collectors struct {
	WebhookEvents        *prometheus.CounterVec
	WebhookDuration      *prometheus.HistogramVec
	Recalculations       *prometheus.CounterVec
	RetryAttempts        *prometheus.HistogramVec
	SchedulerRuns        *prometheus.CounterVec
	IdempotencyEvictions prometheus.Counter

	registry *prometheus.Registry
}

// New registers every collector on a fresh registry.
func New() *Collectors {
	c := &Collectors{
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Webhook deliveries by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		WebhookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "processing_seconds",
			Help:      "Time spent processing a webhook delivery.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"category"}),
		Recalculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recalculation",
			Name:      "total",
			Help:      "Metric recalculations by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		RetryAttempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "attempts",
			Help:      "Attempts used per retried unit of work.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}, []string{"outcome"}),
		SchedulerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Scheduled job executions by job and outcome.",
		}, []string{"job", "outcome"}),
		IdempotencyEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "idempotency",
			Name:      "evictions_total",
			Help:      "Event ids evicted from the in-memory idempotency cache.",
		}),
		registry: prometheus.NewRegistry(),
	}

	c.registry.MustRegister(
		c.WebhookEvents,
		c.WebhookDuration,
		c.Recalculations,
		c.RetryAttempts,
		c.SchedulerRuns,
		c.IdempotencyEvictions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
