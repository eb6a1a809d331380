package config

import (
	"time"
)

// CLIConfig is the configuration for subwire-cli.
type CLIConfig struct {
	Redis      RedisSection      `koanf:"redis" yaml:"redis" json:"redis"`
	Subscriber SubscriberSection `koanf:"subscriber" yaml:"subscriber" json:"subscriber"`
	Log        LogSection        `koanf:"log" yaml:"log" json:"log"`
	Metrics    MetricsSection    `koanf:"metrics" yaml:"metrics" json:"metrics"`
	Output     OutputSection     `koanf:"output" yaml:"output" json:"output"`
}

// RedisSection describes the server connection.
type RedisSection struct {
	Host     string   `koanf:"host" yaml:"host" json:"host"`
	Port     int      `koanf:"port" yaml:"port" json:"port"`
	Password string   `koanf:"password" yaml:"password,omitempty" json:"password,omitempty"`
	Timeout  Duration `koanf:"timeout" yaml:"timeout" json:"timeout"`
	// Prefix namespaces every topic and pattern the CLI subscribes to.
	Prefix string `koanf:"prefix" yaml:"prefix,omitempty" json:"prefix,omitempty"`
	// DB is only used by publish, which runs on a regular connection.
	DB int `koanf:"db" yaml:"db" json:"db"`
}

// SubscriberSection tunes the subscriber session.
type SubscriberSection struct {
	Buffer int `koanf:"buffer" yaml:"buffer" json:"buffer"`
	// Keepalive is the ping interval while streaming; zero disables pings.
	Keepalive Duration `koanf:"keepalive" yaml:"keepalive" json:"keepalive"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level" json:"level"`
	Format string `koanf:"format" yaml:"format" json:"format"`
}

// MetricsSection configures the Prometheus endpoint of streaming commands.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled" json:"enabled"`
	Addr    string `koanf:"addr" yaml:"addr" json:"addr"`
}

// OutputSection configures how results and messages are printed.
type OutputSection struct {
	Format string `koanf:"format" yaml:"format" json:"format"`
	Wide   bool   `koanf:"wide" yaml:"wide" json:"wide"`
}

// Duration is a time.Duration that reads and prints as "5s".
type Duration time.Duration

// D returns d as a time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
