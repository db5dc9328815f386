// Package metrics holds the prometheus collectors of the coordination core.
// All methods are safe on a nil *Metrics so components can run without it.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stream"

// Drop reasons for SignalDropped.
const (
	ReasonSelfSignal  = "self_signal"
	ReasonTargetGone  = "target_gone"
	ReasonRateLimited = "rate_limited"
	ReasonSendFailed  = "send_failed"
)

type Metrics struct {
	roomsActive        prometheus.Gauge
	participantsActive prometheus.Gauge
	connectionsActive  prometheus.Gauge
	joins              prometheus.Counter
	failovers          prometheus.Counter
	signalsRelayed     *prometheus.CounterVec
	signalsDropped     *prometheus.CounterVec
	sendFailures       prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		roomsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "rooms_active",
			Help: "Rooms currently present in the registry.",
		}),
		participantsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "participants_active",
			Help: "Connections currently joined to a room.",
		}),
		connectionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections_active",
			Help: "Open signaling channels.",
		}),
		joins: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "joins_total",
			Help: "Successful room joins.",
		}),
		failovers: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "failovers_total",
			Help: "Streamer reassignments after the streamer left.",
		}),
		signalsRelayed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "signals_relayed_total",
			Help: "Negotiation payloads forwarded to their target.",
		}, []string{"kind"}),
		signalsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "signals_dropped_total",
			Help: "Negotiation payloads discarded by the relay.",
		}, []string{"reason"}),
		sendFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "send_failures_total",
			Help: "Outbound frames the channel layer refused.",
		}),
	}
}

// Handler exposes the given gatherer in the prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) RoomCreated() {
	if m != nil {
		m.roomsActive.Inc()
	}
}

func (m *Metrics) RoomDeleted() {
	if m != nil {
		m.roomsActive.Dec()
	}
}

func (m *Metrics) ParticipantJoined() {
	if m != nil {
		m.joins.Inc()
		m.participantsActive.Inc()
	}
}

func (m *Metrics) ParticipantLeft() {
	if m != nil {
		m.participantsActive.Dec()
	}
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connectionsActive.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connectionsActive.Dec()
	}
}

func (m *Metrics) Failover() {
	if m != nil {
		m.failovers.Inc()
	}
}

func (m *Metrics) SignalRelayed(kind string) {
	if m != nil {
		m.signalsRelayed.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) SignalDropped(reason string) {
	if m != nil {
		m.signalsDropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) SendFailed() {
	if m != nil {
		m.sendFailures.Inc()
	}
}
