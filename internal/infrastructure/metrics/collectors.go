// Package metrics exposes ingestion and storefront client metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"shop-insights/internal/domain"
	"shop-insights/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metric names.
const (
	MetricIngestionRunsTotal       = "shop_insights_ingestion_runs_total"
	MetricIngestedRecordsTotal     = "shop_insights_ingested_records_total"
	MetricIngestionDurationSeconds = "shop_insights_ingestion_duration_seconds"
	MetricStorefrontRequestsTotal  = "shop_insights_storefront_requests_total"
	MetricStorefrontRequestSeconds = "shop_insights_storefront_request_duration_seconds"
)

// Collectors holds every application metric on a private registry
type Collectors struct {
	registry *prometheus.Registry

	runsTotal         *prometheus.CounterVec
	recordsTotal      *prometheus.CounterVec
	ingestionDuration prometheus.Histogram
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

var _ ports.IngestionMetrics = (*Collectors)(nil)

// NewCollectors creates and registers the collectors, including the Go runtime and process collectors
func NewCollectors() *Collectors {
	registry := prometheus.NewRegistry()

	c := &Collectors{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricIngestionRunsTotal,
			Help: "Ingestion runs by final status.",
		}, []string{"status"}),
		recordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricIngestedRecordsTotal,
			Help: "Records upserted by successful ingestion runs.",
		}, []string{"resource"}),
		ingestionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricIngestionDurationSeconds,
			Help:    "Wall time of finished ingestion runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricStorefrontRequestsTotal,
			Help: "Storefront API request attempts by resource and status code, 0 meaning no response.",
		}, []string{"resource", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricStorefrontRequestSeconds,
			Help:    "Storefront API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource"}),
	}

	registry.MustRegister(
		c.runsTotal,
		c.recordsTotal,
		c.ingestionDuration,
		c.requestsTotal,
		c.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveRun records a finished ingestion run
func (c *Collectors) ObserveRun(run *domain.IngestionRun) {
	c.runsTotal.WithLabelValues(string(run.Status)).Inc()
	if run.Status != domain.RunStatusSucceeded {
		return
	}
	c.recordsTotal.WithLabelValues(string(domain.ResourceCustomers)).Add(float64(run.Counts.Customers))
	c.recordsTotal.WithLabelValues(string(domain.ResourceProducts)).Add(float64(run.Counts.Products))
	c.recordsTotal.WithLabelValues(string(domain.ResourceOrders)).Add(float64(run.Counts.Orders))
	c.ingestionDuration.Observe(run.Duration().Seconds())
}

// ObserveRequest records one storefront request attempt
func (c *Collectors) ObserveRequest(resource string, statusCode int, elapsed time.Duration) {
	c.requestsTotal.WithLabelValues(resource, strconv.Itoa(statusCode)).Inc()
	c.requestDuration.WithLabelValues(resource).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}
