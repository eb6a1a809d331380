package command

import (
	"context"

	"github.com/yndnr/subwire/internal/telemetry/logger"
	"github.com/yndnr/subwire/pkg/subscriber"
)

// connect opens a subscriber session configured from e. obs may be nil.
func connect(ctx context.Context, e *env, obs subscriber.Observer) (*subscriber.Subscriber, error) {
	cfg := e.cfg
	opts := []subscriber.Option{
		subscriber.WithPassword(cfg.Redis.Password),
		subscriber.WithTimeout(cfg.Redis.Timeout.D()),
		subscriber.WithPrefix(cfg.Redis.Prefix),
		subscriber.WithBufferSize(cfg.Subscriber.Buffer),
		subscriber.WithLogger(logger.Slog(e.log)),
	}
	if obs != nil {
		opts = append(opts, subscriber.WithObserver(obs))
	}
	return subscriber.New(ctx, cfg.Redis.Host, cfg.Redis.Port, opts...)
}
