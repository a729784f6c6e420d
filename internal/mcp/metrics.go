package mcp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes protocol counters.
type Metrics struct {
	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter
	Requests       *prometheus.CounterVec
}

// NewMetrics registers protocol metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "notesd",
			Subsystem: "mcp",
			Name:      "sessions_active",
			Help:      "Currently registered sessions.",
		}),
		SessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notesd",
			Subsystem: "mcp",
			Name:      "sessions_total",
			Help:      "Sessions created since process start.",
		}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notesd",
			Subsystem: "mcp",
			Name:      "requests_total",
			Help:      "JSON-RPC requests by method.",
		}, []string{"method"}),
	}
}

func (m *Metrics) request(method string) {
	if m != nil {
		m.Requests.WithLabelValues(method).Inc()
	}
}

func (m *Metrics) sessionCreated() {
	if m != nil {
		m.SessionsTotal.Inc()
		m.SessionsActive.Inc()
	}
}

func (m *Metrics) sessionClosed() {
	if m != nil {
		m.SessionsActive.Dec()
	}
}
