// Package metrics exposes the bridge's operational counters in the
// Prometheus exposition format.
package metrics

import (
	"net/http"

	"macroclock/bridge"
	"macroclock/database"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "macroclock"

// Manager owns a private registry with the bridge metrics. It implements
// bridge.Recorder.
type Manager struct {
	registry *prometheus.Registry

	configurationOpened *prometheus.CounterVec
	webviewClosed       *prometheus.CounterVec
	messages            *prometheus.CounterVec
	watchConnected      prometheus.Gauge
}

var _ bridge.Recorder = (*Manager)(nil)

// NewManager creates and registers all metrics.
func NewManager() *Manager {
	m := &Manager{registry: prometheus.NewRegistry()}

	m.configurationOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "configuration_opened_total",
			Help:      "Configuration pages opened, by whether a stored record pre-filled them",
		},
		[]string{"record"},
	)
	m.webviewClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webview_closed_total",
			Help:      "Configuration responses received, by result",
		},
		[]string{"result"},
	)
	m.messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Watchface message sends, by outcome",
		},
		[]string{"outcome"},
	)
	m.watchConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "watch_connected",
		Help:      "1 while a watchface is attached to the message link",
	})

	sqliteBusy := prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sqlite",
			Name:      "busy_errors_total",
			Help:      "SQLite statements that failed with SQLITE_BUSY",
		},
		func() float64 { return float64(database.SQLiteBusyErrorsTotal()) },
	)
	sqliteLocked := prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sqlite",
			Name:      "locked_errors_total",
			Help:      "SQLite statements that failed with SQLITE_LOCKED",
		},
		func() float64 { return float64(database.SQLiteLockedErrorsTotal()) },
	)

	m.registry.MustRegister(
		m.configurationOpened,
		m.webviewClosed,
		m.messages,
		m.watchConnected,
		sqliteBusy,
		sqliteLocked,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) ConfigurationOpened(withRecord bool) {
	label := "none"
	if withRecord {
		label = "stored"
	}
	m.configurationOpened.WithLabelValues(label).Inc()
}

func (m *Manager) WebviewClosed(result string) {
	m.webviewClosed.WithLabelValues(result).Inc()
}

func (m *Manager) MessageOutcome(acked bool) {
	outcome := "nack"
	if acked {
		outcome = "ack"
	}
	m.messages.WithLabelValues(outcome).Inc()
}

// SetWatchConnected tracks the watch link state.
func (m *Manager) SetWatchConnected(connected bool) {
	if connected {
		m.watchConnected.Set(1)
		return
	}
	m.watchConnected.Set(0)
}
