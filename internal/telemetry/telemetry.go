// Package telemetry provides Prometheus metrics and OpenTelemetry tracing
// for the curation pipeline.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	serviceName = "curation"
	namespace   = "curation"
)

// Metrics holds the pipeline collectors. All methods are safe on nil.
type Metrics struct {
	DecisionsTotal   *prometheus.CounterVec
	DecisionDuration *prometheus.HistogramVec

	LayerDuration *prometheus.HistogramVec
	LayerErrors   *prometheus.CounterVec

	LMCalls    *prometheus.CounterVec
	LMDuration *prometheus.HistogramVec

	CacheRequests *prometheus.CounterVec

	FilterMatches    *prometheus.CounterVec
	DenylistReloads  *prometheus.CounterVec
	StrategySwitches *prometheus.CounterVec
	ActiveStrategy   *prometheus.GaugeVec
	AuditFailures    *prometheus.CounterVec
}

// Provider bundles the tracer, metrics and the registry they live in.
type Provider struct {
	Tracer   trace.Tracer
	Metrics  *Metrics
	registry *prometheus.Registry
}

// NewProvider registers metrics in a fresh registry together with the Go
// runtime and process collectors.
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Provider{
		Tracer:   otel.Tracer(serviceName),
		Metrics:  newMetrics(reg),
		registry: reg,
	}
}

// Handler serves the registry for /metrics.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry exposes the underlying registry for additional collectors.
func (p *Provider) Registry() *prometheus.Registry { return p.registry }

var noopTracer = noop.NewTracerProvider().Tracer(serviceName)

// StartSpan starts a span on p's tracer, or a no-op span when p is nil.
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := noopTracer
	if p != nil && p.Tracer != nil {
		tracer = p.Tracer
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// M returns p.Metrics or nil.
func (p *Provider) M() *Metrics {
	if p == nil {
		return nil
	}
	return p.Metrics
}

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15}

func newMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DecisionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "decisions_total",
			Help: "Curation decisions by action and strategy",
		}, []string{"action", "strategy"}),
		DecisionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "decision_duration_seconds",
			Help: "End-to-end decision latency", Buckets: latencyBuckets,
		}, []string{"strategy"}),
		LayerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "layer_duration_seconds",
			Help: "Latency per pipeline layer", Buckets: latencyBuckets,
		}, []string{"layer"}),
		LayerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "layer_errors_total",
			Help: "Recoverable layer failures by kind",
		}, []string{"layer", "kind"}),
		LMCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "lm_calls_total",
			Help: "Language model provider calls by outcome",
		}, []string{"provider", "outcome"}),
		LMDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "lm_call_duration_seconds",
			Help: "Language model provider call latency", Buckets: latencyBuckets,
		}, []string{"provider"}),
		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_requests_total",
			Help: "Result cache lookups by result (hit, miss, coalesced, bypass)",
		}, []string{"result"}),
		FilterMatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "fast_filter_matches_total",
			Help: "Fast filter denylist matches by category",
		}, []string{"category"}),
		DenylistReloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "denylist_reloads_total",
			Help: "Denylist reload attempts by outcome",
		}, []string{"outcome"}),
		StrategySwitches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "strategy_switches_total",
			Help: "Active strategy changes",
		}, []string{"from", "to"}),
		ActiveStrategy: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "active_strategy",
			Help: "1 for the currently active strategy",
		}, []string{"strategy"}),
		AuditFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "audit_failures_total",
			Help: "Audit sink write failures",
		}, []string{"sink"}),
	}
}

// ObserveDecision records a finished decision.
func (m *Metrics) ObserveDecision(action, strategy string, d time.Duration) {
	if m == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(action, strategy).Inc()
	m.DecisionDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

// ObserveLayer records one layer run.
func (m *Metrics) ObserveLayer(layer string, d time.Duration) {
	if m == nil {
		return
	}
	m.LayerDuration.WithLabelValues(layer).Observe(d.Seconds())
}

// LayerError counts a recoverable layer failure.
func (m *Metrics) LayerError(layer, kind string) {
	if m == nil {
		return
	}
	m.LayerErrors.WithLabelValues(layer, kind).Inc()
}

// ObserveLMCall records one provider call.
func (m *Metrics) ObserveLMCall(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.LMCalls.WithLabelValues(provider, outcome).Inc()
	m.LMDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// CacheResult counts a cache lookup outcome.
func (m *Metrics) CacheResult(result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// FilterMatch counts a denylist match.
func (m *Metrics) FilterMatch(category string) {
	if m == nil {
		return
	}
	m.FilterMatches.WithLabelValues(category).Inc()
}

// DenylistReload counts a reload attempt.
func (m *Metrics) DenylistReload(outcome string) {
	if m == nil {
		return
	}
	m.DenylistReloads.WithLabelValues(outcome).Inc()
}

// StrategySwitched records a change of the active strategy.
func (m *Metrics) StrategySwitched(from, to string) {
	if m == nil {
		return
	}
	m.StrategySwitches.WithLabelValues(from, to).Inc()
	if from != "" {
		m.ActiveStrategy.WithLabelValues(from).Set(0)
	}
	m.ActiveStrategy.WithLabelValues(to).Set(1)
}

// AuditFailure counts a failed audit write.
func (m *Metrics) AuditFailure(sink string) {
	if m == nil {
		return
	}
	m.AuditFailures.WithLabelValues(sink).Inc()
}
