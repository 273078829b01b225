package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/specialistvlad/pipelinestudio/internal/catalog"
	"github.com/specialistvlad/pipelinestudio/internal/codec"
	"github.com/specialistvlad/pipelinestudio/internal/session"
	"github.com/specialistvlad/pipelinestudio/internal/topologystore"
)

const metricsNamespace = "pipelinestudio"

// Metrics holds the Prometheus collectors of one App. They live in a
// private registry so several apps can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	// Commands counts applied graph commands.
	// Labels: command, dirty (true, false)
	Commands *prometheus.CounterVec
	// ImportFailures counts rejected imports.
	// Labels: kind (malformed, invalid_schema, unknown_artifact, other)
	ImportFailures *prometheus.CounterVec
	// FetchFailures counts failed plugin fetches.
	// Labels: plugin_type, reason (not_found, network)
	FetchFailures *prometheus.CounterVec
	// Confirmations counts answered discard prompts.
	// Labels: operation, decision
	Confirmations *prometheus.CounterVec
}

// NewMetrics registers every collector in a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "graph",
			Name:      "commands_total",
			Help:      "Applied graph commands by command name.",
		}, []string{"command", "dirty"}),
		ImportFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "codec",
			Name:      "import_failures_total",
			Help:      "Rejected pipeline imports by error kind.",
		}, []string{"kind"}),
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "catalog",
			Name:      "fetch_failures_total",
			Help:      "Failed plugin list fetches by plugin type.",
		}, []string{"plugin_type", "reason"}),
		Confirmations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "confirmations_total",
			Help:      "Answered discard-changes prompts.",
		}, []string{"operation", "decision"}),
	}
}

// Observe counts one store change.
func (m *Metrics) Observe(_ context.Context, change topologystore.Change) {
	dirty := "false"
	if change.Dirty {
		dirty = "true"
	}
	m.Commands.WithLabelValues(change.Command.Name(), dirty).Inc()
}

// ImportFailed implements session.Observer.
func (m *Metrics) ImportFailed(_ context.Context, err error) {
	kind := codec.Kind(err)
	if kind == "" {
		kind = "other"
	}
	m.ImportFailures.WithLabelValues(kind).Inc()
}

// Confirmed implements session.Observer.
func (m *Metrics) Confirmed(_ context.Context, op session.Operation, d session.Decision) {
	m.Confirmations.WithLabelValues(string(op), d.String()).Inc()
}

// FetchFailed is the catalog's fetch error hook.
func (m *Metrics) FetchFailed(_ context.Context, err *catalog.FetchError) {
	reason := "network"
	if errors.Is(err, catalog.ErrNotFound) {
		reason = "not_found"
	}
	m.FetchFailures.WithLabelValues(string(err.PluginType), reason).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
