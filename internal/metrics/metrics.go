// Package metrics provides Prometheus instrumentation for the daemon's
// sessions, channels, and S2S links. No HTTP exporter is wired here --
// scraping stays an external concern per spec section 1 -- callers
// register Metrics against whichever prometheus.Registerer their
// own /metrics handler exposes.
//
// Shape grounded on marmos91-dittofs/internal/adapter/nlm/metrics.go:
// a struct of pre-built collectors, a constructor that registers them
// all up front, and nil-receiver-safe Record* methods so instrumenting
// a hot path never requires a nil check at the call site.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector the core instruments.
type Metrics struct {
	SessionsActive    prometheus.Gauge
	SessionsTotal     *prometheus.CounterVec // labels: "result" (accepted, registered, disconnected)
	ChannelsActive    prometheus.Gauge
	MessagesTotal     *prometheus.CounterVec // labels: "command"
	MessageDuration   *prometheus.HistogramVec // labels: "command"
	LinksActive       prometheus.Gauge
	BurstDuration     prometheus.Histogram
	NetsplitTotal     prometheus.Counter
	HistoryAppendsTotal prometheus.Counter
	RateLimitDenials  *prometheus.CounterVec // labels: "kind"
}

// NewMetrics builds and registers every collector against reg. Panics
// on registration failure, matching the teacher's "expected during
// initialization only" contract.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "slircd_sessions_active",
			Help: "Current number of connected sessions.",
		}),
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slircd_sessions_total",
			Help: "Total session lifecycle events by result.",
		}, []string{"result"}),
		ChannelsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "slircd_channels_active",
			Help: "Current number of live channel actors.",
		}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slircd_messages_total",
			Help: "Total handled client commands by command name.",
		}, []string{"command"}),
		MessageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "slircd_message_duration_seconds",
			Help:    "Handler dispatch latency by command name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		LinksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "slircd_links_active",
			Help: "Current number of established S2S links.",
		}),
		BurstDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "slircd_burst_duration_seconds",
			Help:    "Time to complete a full state burst with a newly linked peer.",
			Buckets: prometheus.DefBuckets,
		}),
		NetsplitTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slircd_netsplits_total",
			Help: "Total detected netsplit events.",
		}),
		HistoryAppendsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slircd_history_appends_total",
			Help: "Total messages appended to the history store.",
		}),
		RateLimitDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slircd_rate_limit_denials_total",
			Help: "Total rate-limit denials by limiter kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.SessionsActive,
		m.SessionsTotal,
		m.ChannelsActive,
		m.MessagesTotal,
		m.MessageDuration,
		m.LinksActive,
		m.BurstDuration,
		m.NetsplitTotal,
		m.HistoryAppendsTotal,
		m.RateLimitDenials,
	)

	return m
}

// RecordSession records one session lifecycle event (the listener
// reports "accepted", "registered" and "disconnected").
func (m *Metrics) RecordSession(result string) {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues(result).Inc()
}

// RecordMessage records one dispatched command and its handling
// latency.
func (m *Metrics) RecordMessage(command string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(command).Inc()
	m.MessageDuration.WithLabelValues(command).Observe(durationSeconds)
}

// SetSessionsActive updates the live session gauge.
func (m *Metrics) SetSessionsActive(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// SetChannelsActive updates the live channel gauge.
func (m *Metrics) SetChannelsActive(n int) {
	if m == nil {
		return
	}
	m.ChannelsActive.Set(float64(n))
}

// SetLinksActive updates the live S2S link gauge.
func (m *Metrics) SetLinksActive(n int) {
	if m == nil {
		return
	}
	m.LinksActive.Set(float64(n))
}

// RecordBurst records how long a state burst with a peer took.
func (m *Metrics) RecordBurst(durationSeconds float64) {
	if m == nil {
		return
	}
	m.BurstDuration.Observe(durationSeconds)
}

// RecordNetsplit increments the netsplit counter.
func (m *Metrics) RecordNetsplit() {
	if m == nil {
		return
	}
	m.NetsplitTotal.Inc()
}

// RecordHistoryAppend increments the history-append counter.
func (m *Metrics) RecordHistoryAppend() {
	if m == nil {
		return
	}
	m.HistoryAppendsTotal.Inc()
}

// RecordRateLimitDenial increments the rate-limit denial counter for
// kind ("message", "join", "connection").
func (m *Metrics) RecordRateLimitDenial(kind string) {
	if m == nil {
		return
	}
	m.RateLimitDenials.WithLabelValues(kind).Inc()
}

// NullMetrics returns nil, a valid no-op Metrics per every method's
// nil-receiver guard above -- useful in tests that don't want to stand
// up a registry.
func NullMetrics() *Metrics {
	return nil
}
