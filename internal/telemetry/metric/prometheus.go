package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/subwire/pkg/subscriber"
)

const namespace = "subwire"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	ConfirmationsTotal *prometheus.CounterVec
	MessagesTotal      *prometheus.CounterVec
	PongsTotal         prometheus.Counter
	FramesDropped      *prometheus.CounterVec
	InterruptsTotal    prometheus.Counter
	PingDuration       prometheus.Histogram

	sessions *Collector
}

var _ subscriber.Observer = (*Registry)(nil)

// NewRegistry creates a registry with the subscriber metrics and the Go
// runtime and process collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		ConfirmationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmations_total",
			Help:      "Subscription confirmations received, by verb.",
		}, []string{"verb"}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Published messages delivered, by kind.",
		}, []string{"kind"}),
		PongsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pongs_total",
			Help:      "Liveness replies received.",
		}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Replies that matched no known frame kind.",
		}, []string{"kind"}),
		InterruptsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interrupts_total",
			Help:      "Connections torn down.",
		}),
		PingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ping_duration_seconds",
			Help:      "Round trip time of keepalive pings.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		sessions: NewCollector(),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ConfirmationsTotal,
		r.MessagesTotal,
		r.PongsTotal,
		r.FramesDropped,
		r.InterruptsTotal,
		r.PingDuration,
		r.sessions,
	)
	return r
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Track adds a session to the live subscription gauge until it is done.
func (r *Registry) Track(s Session) {
	r.sessions.Track(s)
}

// ObservePing records a keepalive round trip in seconds.
func (r *Registry) ObservePing(seconds float64) {
	r.PingDuration.Observe(seconds)
}

// ConfirmationReceived implements subscriber.Observer.
func (r *Registry) ConfirmationReceived(verb string, _ int64) {
	r.ConfirmationsTotal.WithLabelValues(verb).Inc()
}

// MessageReceived implements subscriber.Observer.
func (r *Registry) MessageReceived(m subscriber.Message) {
	kind := "message"
	if m.IsPattern() {
		kind = "pmessage"
	}
	r.MessagesTotal.WithLabelValues(kind).Inc()
}

// PongReceived implements subscriber.Observer.
func (r *Registry) PongReceived() {
	r.PongsTotal.Inc()
}

// FrameDropped implements subscriber.Observer.
func (r *Registry) FrameDropped(kind string) {
	r.FramesDropped.WithLabelValues(kind).Inc()
}

// Interrupted implements subscriber.Observer.
func (r *Registry) Interrupted() {
	r.InterruptsTotal.Inc()
}
