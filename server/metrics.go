package server

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the gauges and counters the status reporter and command
// dispatcher update. Naming and NewGauge/NewCounterVec wiring follow the
// pack's tokmesh storage.BadgerEngine.RegisterMetrics — a fixed Namespace
// with metrics grouped under a Subsystem, registered once at construction
// rather than lazily.
type Metrics struct {
	Registry          *prometheus.Registry
	Items             prometheus.Gauge
	WalSizeBytes      prometheus.Gauge
	LoadFactor        prometheus.Gauge
	ActiveConnections prometheus.Gauge
	ConnectionsOpened prometheus.Counter
	CommandsHandled   *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
}

// NewMetrics builds and registers a fresh Metrics set against its own
// registry, so multiple Server instances (as in tests) never collide on the
// global default registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Items: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kvwal",
			Subsystem: "store",
			Name:      "items",
			Help:      "Number of distinct keys currently held in the map.",
		}),
		WalSizeBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kvwal",
			Subsystem: "wal",
			Name:      "size_bytes",
			Help:      "Current size of the write-ahead log file in bytes.",
		}),
		LoadFactor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kvwal",
			Subsystem: "store",
			Name:      "load_factor",
			Help:      "Average items per shard.",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kvwal",
			Subsystem: "server",
			Name:      "active_connections",
			Help:      "Number of currently open client connections.",
		}),
		ConnectionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kvwal",
			Subsystem: "server",
			Name:      "connections_opened_total",
			Help:      "Total number of accepted client connections.",
		}),
		CommandsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvwal",
			Subsystem: "server",
			Name:      "commands_handled_total",
			Help:      "Total number of commands handled, by command name.",
		}, []string{"command"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kvwal",
			Subsystem: "server",
			Name:      "command_duration_seconds",
			Help:      "Command handling latency, by command name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
	}

	m.Registry = prometheus.NewRegistry()
	m.Registry.MustRegister(
		m.Items,
		m.WalSizeBytes,
		m.LoadFactor,
		m.ActiveConnections,
		m.ConnectionsOpened,
		m.CommandsHandled,
		m.CommandDuration,
	)

	return m
}
