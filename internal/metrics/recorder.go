// Package metrics exports run counters and model call timings to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "annotator"

// Record statuses used as the "status" label.
const (
	StatusSucceeded   = "succeeded"
	StatusUnavailable = "unavailable"
	StatusMalformed   = "malformed"
)

// Recorder holds the run metrics on a private registry, so several recorders
// can coexist in one process. A nil Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	recordsTotal *prometheus.CounterVec
	tiersTotal   *prometheus.CounterVec
	callsTotal   *prometheus.CounterVec
	attempts     *prometheus.HistogramVec
	callDuration *prometheus.HistogramVec
	tokensTotal  *prometheus.CounterVec
	inFlight     prometheus.Gauge
}

// NewRecorder creates a recorder with its own registry, including the Go and
// process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		recordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Input records processed, by task and outcome status",
		}, []string{"task", "status"}),
		tiersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_tier_total",
			Help:      "Extraction results by the cascade tier that produced them",
		}, []string{"task", "tier"}),
		callsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Model calls after retries, by provider and result",
		}, []string{"task", "provider", "result"}),
		attempts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_attempts",
			Help:      "Attempts used per model call",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}, []string{"task"}),
		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Wall time of a model call including retries",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"task", "provider"}),
		tokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens reported by the provider",
		}, []string{"task", "kind"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_calls_in_flight",
			Help:      "Model calls currently waiting on the provider",
		}),
	}
}

// Registry exposes the underlying registry for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler returns the Prometheus HTTP handler for this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveRecord counts one emitted output record.
func (r *Recorder) ObserveRecord(task, status string) {
	if r == nil {
		return
	}
	r.recordsTotal.WithLabelValues(task, status).Inc()
}

// ObserveTier counts the extraction tier of one result.
func (r *Recorder) ObserveTier(task, tier string) {
	if r == nil {
		return
	}
	r.tiersTotal.WithLabelValues(task, tier).Inc()
}

// CallStarted marks a model call in flight. The returned func ends it.
func (r *Recorder) CallStarted() func() {
	if r == nil {
		return func() {}
	}
	r.inFlight.Inc()
	return r.inFlight.Dec
}

// Call describes a finished model call.
type Call struct {
	Task             string
	Provider         string
	Success          bool
	Attempts         int
	Latency          time.Duration
	PromptTokens     int
	CompletionTokens int
}

// ObserveCall records one finished model call.
func (r *Recorder) ObserveCall(c Call) {
	if r == nil {
		return
	}
	result := "ok"
	if !c.Success {
		result = "unavailable"
	}
	r.callsTotal.WithLabelValues(c.Task, c.Provider, result).Inc()
	r.attempts.WithLabelValues(c.Task).Observe(float64(c.Attempts))
	r.callDuration.WithLabelValues(c.Task, c.Provider).Observe(c.Latency.Seconds())
	if c.PromptTokens > 0 {
		r.tokensTotal.WithLabelValues(c.Task, "prompt").Add(float64(c.PromptTokens))
	}
	if c.CompletionTokens > 0 {
		r.tokensTotal.WithLabelValues(c.Task, "completion").Add(float64(c.CompletionTokens))
	}
}
