// Package metrics registers the Prometheus collectors exported on the
// control listener's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice agent.
type Metrics struct {
	// Turn metrics
	TurnsTotal    prometheus.Counter
	TurnDuration  prometheus.Histogram
	CaptureDiscards prometheus.Counter

	// Provider chain metrics
	ProviderFailovers   prometheus.Counter
	ProviderExhaustions prometheus.Counter

	// Pipeline metrics
	SynthesisFailures prometheus.Counter
	Interrupts        prometheus.Counter

	// Router metrics
	RoutedRequests *prometheus.CounterVec
}

// New creates and registers all metrics on reg. A nil reg uses the
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TurnsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicehub_turns_total",
			Help: "Total number of conversation turns started",
		}),
		TurnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicehub_turn_duration_seconds",
			Help:    "End-to-end duration of conversation turns",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2 minutes
		}),
		CaptureDiscards: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicehub_capture_discards_total",
			Help: "Total number of captures discarded for containing no speech",
		}),
		ProviderFailovers: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicehub_provider_failovers_total",
			Help: "Total number of fallback-chain advances",
		}),
		ProviderExhaustions: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicehub_provider_exhaustions_total",
			Help: "Total number of turns where every provider failed",
		}),
		SynthesisFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicehub_synthesis_failures_total",
			Help: "Total number of sentences skipped after a synthesis failure",
		}),
		Interrupts: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicehub_interrupts_total",
			Help: "Total number of runs cut short by the user",
		}),
		RoutedRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicehub_routed_requests_total",
			Help: "Total number of turns handed to a specialist agent",
		}, []string{"status"}),
	}
}

// RecordTurn observes one completed turn.
func (m *Metrics) RecordTurn(durationSeconds float64) {
	if m == nil {
		return
	}
	m.TurnsTotal.Inc()
	m.TurnDuration.Observe(durationSeconds)
}

// RecordCaptureDiscard counts an utterance discarded for silence.
func (m *Metrics) RecordCaptureDiscard() {
	if m == nil {
		return
	}
	m.CaptureDiscards.Inc()
}

// RecordFailover counts one fallback-chain advance.
func (m *Metrics) RecordFailover() {
	if m == nil {
		return
	}
	m.ProviderFailovers.Inc()
}

// RecordExhaustion counts a turn where all providers failed.
func (m *Metrics) RecordExhaustion() {
	if m == nil {
		return
	}
	m.ProviderExhaustions.Inc()
}

// RecordSynthesisFailure counts a skipped sentence.
func (m *Metrics) RecordSynthesisFailure() {
	if m == nil {
		return
	}
	m.SynthesisFailures.Inc()
}

// RecordInterrupt counts an interrupted run.
func (m *Metrics) RecordInterrupt() {
	if m == nil {
		return
	}
	m.Interrupts.Inc()
}

// RecordRouted counts one routed exchange by outcome status
// (routed, agent_timeout, agent_error).
func (m *Metrics) RecordRouted(status string) {
	if m == nil {
		return
	}
	m.RoutedRequests.WithLabelValues(status).Inc()
}
