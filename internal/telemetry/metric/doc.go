// Package metric provides Prometheus metrics for subwire.
//
//   - prometheus.go: registry, subscriber event counters and HTTP handler
//   - collector.go: live gauges read from running sessions
//
// A Registry satisfies subscriber.Observer, so passing it with
// subscriber.WithObserver is enough to count confirmations, deliveries,
// pongs, dropped frames and interrupts. Metrics are exposed at /metrics.
package metric
