package radio

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zachfi/radiogo/pkg/broadcast"
	"github.com/zachfi/radiogo/pkg/probe"
)

const metricsNamespace = "radiogo"

type metrics struct {
	bytes    prometheus.Counter
	chunks   prometheus.Counter
	pruned   prometheus.Counter
	probes   *prometheus.CounterVec
	commands *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)

	return &metrics{
		bytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "broadcast_bytes_total",
			Help:      "Total bytes released by the pacer to the broadcast sink.",
		}),
		chunks: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "broadcast_chunks_total",
			Help:      "Total chunks delivered to the listener registry.",
		}),
		pruned: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "listeners_pruned_total",
			Help:      "Listeners removed because they stopped accepting writes.",
		}),
		probes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bitrate_probes_total",
			Help:      "Bitrate probes by result.",
		}, []string{"result"}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "commands_total",
			Help:      "Control commands received by kind.",
		}, []string{"command"}),
	}
}

func (m *metrics) registerState(reg prometheus.Registerer, registry *broadcast.Registry, c *Controller) {
	f := promauto.With(reg)

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "listeners",
		Help:      "Currently registered listeners.",
	}, func() float64 {
		return float64(registry.Len())
	})

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "session_state",
		Help:      "Session state: 0 idle, 1 starting, 2 streaming, 3 stopped.",
	}, func() float64 {
		return float64(c.Session().State)
	})
}

func (m *metrics) observeDelivery(size, _, pruned int) {
	m.bytes.Add(float64(size))
	m.chunks.Inc()
	if pruned > 0 {
		m.pruned.Add(float64(pruned))
	}
}

type countingProber struct {
	Prober
	m *metrics
}

func (p *countingProber) Probe(ctx context.Context, path string) probe.Result {
	res := p.Prober.Probe(ctx, path)
	if res.Fallback() {
		p.m.probes.WithLabelValues("fallback").Inc()
	} else {
		p.m.probes.WithLabelValues("ok").Inc()
	}
	return res
}
