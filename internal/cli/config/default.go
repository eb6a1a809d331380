package config

import (
	"time"

	"github.com/yndnr/subwire/pkg/subscriber"
)

// Default configuration values.
const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 6379
	DefaultTimeout      = subscriber.DefaultTimeout
	DefaultBuffer       = subscriber.DefaultBufferSize
	DefaultKeepalive    = 30 * time.Second
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultMetricsAddr  = "127.0.0.1:9121"
	DefaultOutputFormat = "table"
)

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Redis: RedisSection{
			Host:    DefaultHost,
			Port:    DefaultPort,
			Timeout: Duration(DefaultTimeout),
		},
		Subscriber: SubscriberSection{
			Buffer:    DefaultBuffer,
			Keepalive: Duration(DefaultKeepalive),
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
		},
		Output: OutputSection{
			Format: DefaultOutputFormat,
		},
	}
}

// defaultMap flattens Default into koanf keys.
func defaultMap() map[string]any {
	d := Default()
	return map[string]any{
		"redis.host":           d.Redis.Host,
		"redis.port":           d.Redis.Port,
		"redis.timeout":        d.Redis.Timeout.String(),
		"redis.db":             d.Redis.DB,
		"subscriber.buffer":    d.Subscriber.Buffer,
		"subscriber.keepalive": d.Subscriber.Keepalive.String(),
		"log.level":            d.Log.Level,
		"log.format":           d.Log.Format,
		"metrics.enabled":      d.Metrics.Enabled,
		"metrics.addr":         d.Metrics.Addr,
		"output.format":        d.Output.Format,
		"output.wide":          d.Output.Wide,
	}
}
