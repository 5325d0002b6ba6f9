package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the cart counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Commands       *prometheus.CounterVec
	StoreErrors    *prometheus.CounterVec
	SessionsPurged prometheus.Counter
	ActiveItems    prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cartwidget",
			Name:      "commands_total",
			Help:      "Cart commands dispatched, by command.",
		}, []string{"command"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cartwidget",
			Name:      "store_errors_total",
			Help:      "Session store failures, by operation.",
		}, []string{"op"}),
		SessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cartwidget",
			Name:      "sessions_purged_total",
			Help:      "Idle sessions removed by the janitor.",
		}),
		ActiveItems: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cartwidget",
			Name:      "cart_units",
			Help:      "Units in the cart after each command.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}),
	}
	reg.MustRegister(m.Commands, m.StoreErrors, m.SessionsPurged, m.ActiveItems)

	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CommandDispatched(command string, units int) {
	m.Commands.WithLabelValues(command).Inc()
	m.ActiveItems.Observe(float64(units))
}

func (m *Metrics) StoreFailed(op string) {
	m.StoreErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) Purged(n int) {
	m.SessionsPurged.Add(float64(n))
}
