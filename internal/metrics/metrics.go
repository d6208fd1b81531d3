// Package metrics exports Prometheus collectors fed from bus events.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hanpama/fieldmerge/internal/eventbus"
	events "github.com/hanpama/fieldmerge/internal/events"
	validator "github.com/hanpama/fieldmerge/internal/validator"
)

const namespace = "fieldmerge"

// Metrics holds the collectors registered by New.
type Metrics struct {
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	Validations        *prometheus.CounterVec
	ValidationDuration prometheus.Histogram
	Diagnostics        prometheus.Counter
	Comparisons        prometheus.Histogram
	CacheHits          prometheus.Counter
	GRPCHandled        *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"route"}),
		Validations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Validated documents by result.",
		}, []string{"result"}),
		ValidationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_duration_seconds",
			Help:      "Time spent running validation rules on a document.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 16),
		}),
		Diagnostics: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Diagnostics reported across all documents.",
		}),
		Comparisons: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "field_comparisons",
			Help:      "Field pairs compared per document.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparison_cache_hits_total",
			Help:      "Context pairs answered from the comparison cache.",
		}),
		GRPCHandled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_handled_total",
			Help:      "gRPC calls handled by method and code.",
		}, []string{"method", "code"}),
	}
}

// Subscribe feeds the collectors from the event bus.
func (m *Metrics) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			route := e.Route
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequests.WithLabelValues(route, strconv.Itoa(e.Status)).Inc()
			m.HTTPDuration.WithLabelValues(route).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.ValidationFinish) {
			result := "valid"
			if len(e.Errors) > 0 {
				result = "invalid"
			}
			m.Validations.WithLabelValues(result).Inc()
			m.ValidationDuration.Observe(e.Duration.Seconds())
			m.Diagnostics.Add(float64(len(e.Errors)))
			m.Comparisons.Observe(float64(e.Counters[validator.CounterComparisons]))
			m.CacheHits.Add(float64(e.Counters[validator.CounterCacheHits]))
		}),
		eventbus.Subscribe(func(_ context.Context, e events.GRPCServerFinish) {
			m.GRPCHandled.WithLabelValues(e.Service+"/"+e.Method, e.Code.String()).Inc()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
