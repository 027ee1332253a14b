// Package metrics holds the prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the counters recorded by the assistant. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	intents    *prometheus.CounterVec
	llmCalls   *prometheus.CounterVec
	llmRetries prometheus.Counter
	sources    *prometheus.CounterVec
	conflicts  *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accountplan_intents_total",
			Help: "Chat messages classified per intent",
		}, []string{"intent"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accountplan_llm_calls_total",
			Help: "Language model completions by outcome (ok, overloaded, failed)",
		}, []string{"outcome"}),
		llmRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accountplan_llm_retries_total",
			Help: "Language model attempts retried after a rate-limit or overload error",
		}),
		sources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accountplan_sources_total",
			Help: "Source collection attempts by outcome (added, failed, local)",
		}, []string{"outcome"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accountplan_conflicts_total",
			Help: "Conflicting facts detected per topic",
		}, []string{"topic"}),
	}
	m.registry.MustRegister(
		m.intents, m.llmCalls, m.llmRetries, m.sources, m.conflicts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Intent(intent string) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(intent).Inc()
}

func (m *Metrics) LLMCall(outcome string) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LLMRetry() {
	if m == nil {
		return
	}
	m.llmRetries.Inc()
}

func (m *Metrics) Source(outcome string) {
	if m == nil {
		return
	}
	m.sources.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Conflict(topic string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(topic).Inc()
}
