package command

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/subwire/internal/cli/config"
	"github.com/yndnr/subwire/internal/cli/output"
	"github.com/yndnr/subwire/internal/infra/buildinfo"
	"github.com/yndnr/subwire/internal/infra/confloader"
	"github.com/yndnr/subwire/internal/telemetry/logger"
)

const envKey = "env"

// env is the state shared by every command.
type env struct {
	cfg    *config.CLIConfig
	loader *confloader.Loader
	log    logger.Logger
	out    io.Writer
}

func (e *env) format() output.Format {
	f, _ := output.ParseFormat(e.cfg.Output.Format)
	return f
}

func (e *env) print(data any) error {
	return output.NewFormatter(e.format(), e.cfg.Output.Wide).Format(e.out, data)
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "subwire-cli",
		Usage:                "Subscribe to and publish on a RESP pub/sub server",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			SubscribeCommand(),
			PsubscribeCommand(),
			PublishCommand(),
			PingCommand(),
			ReplCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Before: setup,
	}
}

// flagKeys maps global flag names to configuration keys.
var flagKeys = map[string]string{
	"host":       "redis.host",
	"port":       "redis.port",
	"password":   "redis.password",
	"timeout":    "redis.timeout",
	"prefix":     "redis.prefix",
	"db":         "redis.db",
	"buffer":     "subscriber.buffer",
	"output":     "output.format",
	"wide":       "output.wide",
	"log-level":  "log.level",
	"log-format": "log.format",
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file (default ~/.subwire/cli.yaml when present)",
			EnvVars: []string{"SUBWIRE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "host",
			Aliases: []string{"H"},
			Usage:   "Server host",
			Value:   config.DefaultHost,
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Server port",
			Value:   config.DefaultPort,
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"a"},
			Usage:   "Password sent with AUTH after connecting",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Connect and ping timeout",
			Value: config.DefaultTimeout,
		},
		&cli.StringFlag{
			Name:  "prefix",
			Usage: "Namespace prepended to every topic and pattern",
		},
		&cli.IntFlag{
			Name:  "db",
			Usage: "Database index used by publish",
		},
		&cli.IntFlag{
			Name:  "buffer",
			Usage: "Received messages held before the reader waits",
			Value: config.DefaultBuffer,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml, raw",
			Value:   config.DefaultOutputFormat,
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
			Value: config.DefaultLogLevel,
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: text, json",
			Value: config.DefaultLogFormat,
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Shorthand for --log-level debug",
		},
	}
}

// flagOverrides collects the global flags the user actually set.
func flagOverrides(c *cli.Context) map[string]any {
	overrides := make(map[string]any)
	for name, key := range flagKeys {
		if !c.IsSet(name) {
			continue
		}
		switch v := c.Value(name).(type) {
		case time.Duration:
			overrides[key] = v.String()
		default:
			overrides[key] = v
		}
	}
	if c.Bool("verbose") {
		overrides["log.level"] = "debug"
	}
	return overrides
}

func setup(c *cli.Context) error {
	cfg, loader, err := config.Load(c.String("config"), flagOverrides(c))
	if err != nil {
		return err
	}

	l, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(l)

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[envKey] = &env{
		cfg:    cfg,
		loader: loader,
		log:    l,
		out:    c.App.Writer,
	}
	l.Debug("configuration loaded", "file", loader.FilePath(), "addr", cfg.Addr())
	return nil
}

var errNoEnv = errors.New("command run without configuration")

func envFrom(c *cli.Context) (*env, error) {
	if e, ok := c.App.Metadata[envKey].(*env); ok {
		return e, nil
	}
	return nil, errNoEnv
}
