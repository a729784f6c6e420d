package notes

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes repository counters.
type Metrics struct {
	// Operations counts completed store calls by operation and the
	// backend that ultimately served them.
	Operations *prometheus.CounterVec

	// Fallbacks counts calls where the durable path failed and the
	// transient store served instead.
	Fallbacks *prometheus.CounterVec
}

// NewMetrics registers repository metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notesd",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Completed note store operations by backend.",
		}, []string{"operation", "backend"}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notesd",
			Subsystem: "store",
			Name:      "fallbacks_total",
			Help:      "Calls served by the transient store after a durable failure.",
		}, []string{"operation"}),
	}
}
