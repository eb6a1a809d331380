package metric

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Session is the part of a subscriber the collector reads.
type Session interface {
	ID() string
	Subscriptions() int64
	Done() <-chan struct{}
}

// Collector reports gauges for the sessions it tracks. Finished sessions
// are forgotten on the next scrape.
type Collector struct {
	mu       sync.Mutex
	sessions map[string]Session

	active        *prometheus.Desc
	subscriptions *prometheus.Desc
}

// NewCollector creates a new session collector.
func NewCollector() *Collector {
	return &Collector{
		sessions: make(map[string]Session),
		active: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "sessions_active"),
			"Open subscriber connections.",
			nil, nil),
		subscriptions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "subscriptions"),
			"Subscription count last reported by the server, per connection.",
			[]string{"conn_id"}, nil),
	}
}

// Track starts reporting s.
func (c *Collector) Track(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[s.ID()] = s
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
	ch <- c.subscriptions
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, s := range c.sessions {
		select {
		case <-s.Done():
			delete(c.sessions, id)
			continue
		default:
		}
		ch <- prometheus.MustNewConstMetric(c.subscriptions, prometheus.GaugeValue,
			float64(s.Subscriptions()), id)
	}
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(len(c.sessions)))
}
