package broadcast

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "spinstream"
	subsystem = "broadcast"
)

// Metrics holds Prometheus collectors for the registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	ActiveConnections prometheus.Gauge
	ActiveChannels    prometheus.Gauge
	EventsPublished   prometheus.Counter
	WriteFailures     prometheus.Counter
	Heartbeats        prometheus.Counter
	ChannelsEvicted   prometheus.Counter
}

// NewMetrics creates and registers broadcast metrics on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_connections",
			Help:      "Number of open viewer connections.",
		}),
		ActiveChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_channels",
			Help:      "Number of live table channels.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_published_total",
			Help:      "Total number of sequenced events published.",
		}),
		WriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "write_failures_total",
			Help:      "Total number of connections detached after a failed write.",
		}),
		Heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "heartbeats_total",
			Help:      "Total number of heartbeat rounds.",
		}),
		ChannelsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "channels_evicted_total",
			Help:      "Total number of idle channels evicted.",
		}),
	}

	reg.MustRegister(
		m.ActiveConnections,
		m.ActiveChannels,
		m.EventsPublished,
		m.WriteFailures,
		m.Heartbeats,
		m.ChannelsEvicted,
	)
	return m
}

func (m *Metrics) connectionOpened() {
	if m != nil {
		m.ActiveConnections.Inc()
	}
}

func (m *Metrics) connectionClosed() {
	if m != nil {
		m.ActiveConnections.Dec()
	}
}

func (m *Metrics) channelsActive(n int) {
	if m != nil {
		m.ActiveChannels.Set(float64(n))
	}
}

func (m *Metrics) channelsEvicted(evicted, remaining int) {
	if m != nil {
		m.ChannelsEvicted.Add(float64(evicted))
		m.ActiveChannels.Set(float64(remaining))
	}
}

func (m *Metrics) eventPublished() {
	if m != nil {
		m.EventsPublished.Inc()
	}
}

func (m *Metrics) writeFailed() {
	if m != nil {
		m.WriteFailures.Inc()
	}
}

func (m *Metrics) heartbeat() {
	if m != nil {
		m.Heartbeats.Inc()
	}
}
