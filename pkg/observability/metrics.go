package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/gmp/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors fed by dispatch events.
type Metrics struct {
	Sends       *prometheus.CounterVec
	SendLatency *prometheus.HistogramVec
	Completions *prometheus.CounterVec
	Updates     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// means a fresh registry, which Handler then serves.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Sends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gmp",
				Subsystem: "dispatch",
				Name:      "sends_total",
				Help:      "Messages sent to handlers, by sequence command and response.",
			},
			[]string{"sequence_command", "response"},
		),
		SendLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gmp",
				Subsystem: "dispatch",
				Name:      "send_duration_seconds",
				Help:      "Round trip of a message to its handler.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"sequence_command"},
		),
		Completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gmp",
				Subsystem: "dispatch",
				Name:      "completions_total",
				Help:      "Final responses of actions.",
			},
			[]string{"sequence_command", "response", "async"},
		),
		Updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gmp",
				Subsystem: "dispatch",
				Name:      "updates_total",
				Help:      "Asynchronous handler replies, by whether their action was still in flight.",
			},
			[]string{"response", "known"},
		),
		gatherer: reg,
	}
	reg.MustRegister(m.Sends, m.SendLatency, m.Completions, m.Updates)
	return m
}

// Hooks returns dispatch hooks updating the collectors.
func (m *Metrics) Hooks() domain.DispatchHooks {
	return domain.DispatchHooks{
		OnSend: func(_ context.Context, e *domain.SendEvent) {
			response := string(e.Response.Kind)
			if e.Err != nil {
				response = "TRANSPORT_ERROR"
			}
			m.Sends.WithLabelValues(string(e.SequenceCommand), response).Inc()
			m.SendLatency.WithLabelValues(string(e.SequenceCommand)).Observe(e.Elapsed.Seconds())
		},
		OnCompletion: func(_ context.Context, e *domain.CompletionEvent) {
			m.Completions.WithLabelValues(string(e.SequenceCommand), string(e.Response.Kind), boolLabel(e.Async)).Inc()
		},
		OnUpdate: func(_ context.Context, e *domain.UpdateEvent) {
			m.Updates.WithLabelValues(string(e.Response.Kind), boolLabel(e.Known)).Inc()
		},
	}
}

// Handler serves the registry the collectors were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
