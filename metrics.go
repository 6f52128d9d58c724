package quillpost

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/quillpost/quillpost/post"
)

// Metrics holds the Prometheus metrics of an App. Each App owns its registry.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	PostsSkippedTotal   *prometheus.CounterVec
	ModuleRendersTotal  *prometheus.CounterVec
	QueryDuration       prometheus.Histogram
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quillpost_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quillpost_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		PostsSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quillpost_posts_skipped_total",
				Help: "Total number of post files skipped by queries",
			},
			[]string{"reason"},
		),
		ModuleRendersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quillpost_module_renders_total",
				Help: "Total number of module invocations",
			},
			[]string{"module", "outcome"},
		),
		QueryDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quillpost_query_duration_seconds",
				Help:    "Duration of post queries in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// RecordRequest records a served HTTP request.
func (m *Metrics) RecordRequest(method string, status int, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method).Observe(seconds)
}

// RecordSkip records a post file a query could not use.
func (m *Metrics) RecordSkip(err error) {
	reason := "unreadable"
	var failure *post.ParseFailure
	if errors.As(err, &failure) {
		reason = failure.Reason.String()
	}
	m.PostsSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordModule records a module invocation.
func (m *Metrics) RecordModule(name, outcome string) {
	m.ModuleRendersTotal.WithLabelValues(name, outcome).Inc()
}
