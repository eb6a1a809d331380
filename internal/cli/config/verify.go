package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/yndnr/subwire/internal/cli/output"
	"github.com/yndnr/subwire/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *CLIConfig) error {
	if err := verifyRedis(&cfg.Redis); err != nil {
		return err
	}
	if err := verifySubscriber(&cfg.Subscriber); err != nil {
		return err
	}
	if err := verifyLog(&cfg.Log); err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
			return fmt.Errorf("metrics.addr %q: %w", cfg.Metrics.Addr, err)
		}
	}
	if _, err := output.ParseFormat(cfg.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	return nil
}

func verifyRedis(cfg *RedisSection) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return errors.New("redis.host is required")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("redis.port %d out of range 1-65535", cfg.Port)
	}
	if cfg.Timeout <= 0 {
		return errors.New("redis.timeout must be positive")
	}
	if cfg.DB < 0 {
		return errors.New("redis.db must not be negative")
	}
	return nil
}

func verifySubscriber(cfg *SubscriberSection) error {
	if cfg.Buffer < 1 {
		return errors.New("subscriber.buffer must be at least 1")
	}
	if cfg.Keepalive < 0 {
		return errors.New("subscriber.keepalive must not be negative")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("log.format %q is not text or json", cfg.Format)
	}
}
