package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "callrelay"

type Options struct {
	Labels prometheus.Labels
}

// Metrics implements port.Metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	online   prometheus.Gauge
	calls    prometheus.Gauge
	relayed  *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

func New(o Options) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "online_users",
			Help:        "Users with a live registered connection.",
			ConstLabels: o.Labels,
		}),
		calls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "active_calls",
			Help:        "Call sessions currently held in memory, pending or active.",
			ConstLabels: o.Labels,
		}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "signals_relayed_total",
			Help:        "Negotiation messages forwarded, by kind.",
			ConstLabels: o.Labels,
		}, []string{"kind"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "events_rejected_total",
			Help:        "Inbound events answered with an error, by event and reason.",
			ConstLabels: o.Labels,
		}, []string{"event", "reason"}),
	}

	m.registry.MustRegister(
		m.online,
		m.calls,
		m.relayed,
		m.rejected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) OnlineUsers(n int) {
	m.online.Set(float64(n))
}

func (m *Metrics) ActiveCalls(n int) {
	m.calls.Set(float64(n))
}

func (m *Metrics) SignalRelayed(kind string) {
	m.relayed.WithLabelValues(kind).Inc()
}

func (m *Metrics) EventRejected(event, reason string) {
	m.rejected.WithLabelValues(event, reason).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry:          m.registry,
		EnableOpenMetrics: true,
	})
}
