// Package metrics owns the Prometheus collectors scraped at /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "order_engine"

// Registry bundles the process collectors. A nil *Registry is a valid no-op.
type Registry struct {
	reg *prometheus.Registry

	webhookOutcomes *prometheus.CounterVec
	jobRuns         *prometheus.CounterVec
	jobItems        *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	carrierFetches  *prometheus.CounterVec
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		webhookOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "payments", Name: "webhook_outcomes_total",
			Help: "Payment confirmations by outcome.",
		}, []string{"source", "outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "jobs", Name: "runs_total",
			Help: "Background job runs by result.",
		}, []string{"job", "result"}),
		jobItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "jobs", Name: "items_total",
			Help: "Items handled by background jobs.",
		}, []string{"job", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "jobs", Name: "duration_seconds",
			Help: "Background job duration in seconds.", Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		carrierFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tracking", Name: "carrier_fetches_total",
			Help: "Carrier tracking fetches by result, counted after retries.",
		}, []string{"result"}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.webhookOutcomes, r.jobRuns, r.jobItems, r.jobDuration, r.carrierFetches,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the registry to tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func (r *Registry) WebhookOutcome(source, outcome string) {
	if r == nil {
		return
	}
	r.webhookOutcomes.WithLabelValues(source, outcome).Inc()
}

// JobRun records one background job execution and its per-item tallies.
func (r *Registry) JobRun(job string, started time.Time, err error, items map[string]int) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.jobRuns.WithLabelValues(job, result).Inc()
	r.jobDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
	for label, n := range items {
		if n > 0 {
			r.jobItems.WithLabelValues(job, label).Add(float64(n))
		}
	}
}

func (r *Registry) CarrierFetch(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.carrierFetches.WithLabelValues(result).Inc()
}
