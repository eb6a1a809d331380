package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/yndnr/subwire/internal/cli/config"
	"github.com/yndnr/subwire/internal/cli/output"
	"github.com/yndnr/subwire/internal/infra/confloader"
	"github.com/yndnr/subwire/internal/infra/shutdown"
	"github.com/yndnr/subwire/internal/telemetry/logger"
	"github.com/yndnr/subwire/internal/telemetry/metric"
	"github.com/yndnr/subwire/pkg/subscriber"
)

const shutdownTimeout = 5 * time.Second

var (
	// errCountReached stops the stream after --count messages.
	errCountReached = errors.New("message count reached")
	// ErrConnectionLost is returned when the server ends a stream.
	ErrConnectionLost = errors.New("connection lost")
)

// SubscribeCommand returns the subscribe command.
func SubscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Aliases:   []string{"sub"},
		Usage:     "Subscribe to topics and print messages as they arrive",
		ArgsUsage: "TOPIC [TOPIC...]",
		Flags:     streamFlags(),
		Action: func(c *cli.Context) error {
			return stream(c, false)
		},
	}
}

// PsubscribeCommand returns the psubscribe command.
func PsubscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "psubscribe",
		Aliases:   []string{"psub"},
		Usage:     "Subscribe to glob patterns and print messages as they arrive",
		ArgsUsage: "PATTERN [PATTERN...]",
		Flags:     streamFlags(),
		Action: func(c *cli.Context) error {
			return stream(c, true)
		},
	}
}

func streamFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "Exit after this many messages (0 = unlimited)",
		},
		&cli.DurationFlag{
			Name:  "keepalive",
			Usage: "Ping interval while streaming (0 disables, default from config)",
			Value: -1,
		},
		&cli.BoolFlag{
			Name:  "metrics",
			Usage: "Serve Prometheus metrics while streaming",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Listen address for --metrics",
		},
		&cli.BoolFlag{
			Name:  "watch",
			Usage: "Reload the log level when the config file changes",
			Value: true,
		},
	}
}

func stream(c *cli.Context, pattern bool) error {
	names := c.Args().Slice()
	if len(names) == 0 {
		return fmt.Errorf("usage: %s %s %s", c.App.Name, c.Command.Name, c.Command.ArgsUsage)
	}

	e, err := envFrom(c)
	if err != nil {
		return err
	}
	log := logger.Slog(e.log)

	h := shutdown.NewHandler(shutdownTimeout, shutdown.WithLogger(log))
	sigCtx, stop := h.Notify(c.Context)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	var (
		reg *metric.Registry
		obs subscriber.Observer
	)
	metricsAddr := metricsListenAddr(c, e.cfg)
	if metricsAddr != "" {
		reg = metric.NewRegistry()
		obs = reg
	}

	sub, err := connect(ctx, e, obs)
	if err != nil {
		return err
	}
	h.OnShutdown("subscriber", func(context.Context) error {
		return sub.Close()
	})

	if pattern {
		err = sub.Psubscribe(ctx, names...)
	} else {
		err = sub.Subscribe(ctx, names...)
	}
	if err != nil {
		_ = h.Shutdown()
		return err
	}
	log.Info("streaming", "addr", sub.Addr(), "names", names, "pattern", pattern)

	g, gctx := errgroup.WithContext(ctx)

	mw := output.NewMessageWriter(e.out, e.format(), e.cfg.Output.Wide)
	count := c.Int("count")
	g.Go(func() error {
		return consume(gctx, sub, mw, count)
	})

	if interval := keepaliveInterval(c, e.cfg); interval > 0 {
		g.Go(func() error {
			return keepalive(gctx, sub, interval, e.cfg.Redis.Timeout.D(), reg)
		})
	}

	if reg != nil {
		reg.Track(sub)
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		h.OnShutdown("metrics", srv.Shutdown)
		g.Go(func() error {
			log.Info("serving metrics", "addr", metricsAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			return srv.Shutdown(sctx)
		})
	}

	if path := e.loader.FilePath(); path != "" && c.Bool("watch") {
		w, err := watchConfig(e, path, log)
		if err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			h.OnShutdown("config-watcher", func(context.Context) error {
				return w.Stop()
			})
			g.Go(func() error {
				return w.Run(gctx)
			})
		}
	}

	err = g.Wait()
	if serr := h.Shutdown(); serr != nil {
		log.Warn("shutdown", "error", serr)
	}
	if errors.Is(err, errCountReached) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// consume writes messages until ctx ends, count messages were written or
// the session closes.
func consume(ctx context.Context, sub *subscriber.Subscriber, mw *output.MessageWriter, count int) error {
	ch := sub.Channel()
	written := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrConnectionLost
			}
			if err := mw.Write(m); err != nil {
				return fmt.Errorf("write message: %w", err)
			}
			written++
			if count > 0 && written >= count {
				return errCountReached
			}
		}
	}
}

// keepalive pings every interval. A failed ping ends the stream. reg may
// be nil.
func keepalive(ctx context.Context, sub *subscriber.Subscriber, interval, timeout time.Duration, reg *metric.Registry) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			start := time.Now()
			if _, err := sub.Ping(timeout); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("keepalive: %w", err)
			}
			if reg != nil {
				reg.ObservePing(time.Since(start).Seconds())
			}
		}
	}
}

func keepaliveInterval(c *cli.Context, cfg *config.CLIConfig) time.Duration {
	if d := c.Duration("keepalive"); d >= 0 {
		return d
	}
	return cfg.Subscriber.Keepalive.D()
}

// metricsListenAddr returns "" when metrics are off.
func metricsListenAddr(c *cli.Context, cfg *config.CLIConfig) string {
	if addr := c.String("metrics-addr"); addr != "" {
		return addr
	}
	if c.Bool("metrics") || cfg.Metrics.Enabled {
		return cfg.Metrics.Addr
	}
	return ""
}

func metricsMux(reg *metric.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// watchConfig applies log level changes from the config file.
func watchConfig(e *env, path string, log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}
	w.OnChange(func(string) {
		cfg, err := config.Reload(e.loader)
		if err != nil {
			log.Warn("config reload rejected", "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	return w, nil
}
