package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/subwire/internal/infra/confloader"
)

// DefaultConfigPath returns ~/.subwire/cli.yaml.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".subwire", "cli.yaml")
}

// Load builds the configuration from defaults, the file at path,
// SUBWIRE_* environment variables and flags, in increasing priority, and
// verifies it. An empty path uses DefaultConfigPath when that file
// exists. flags holds only values the user set, keyed like "redis.host".
//
// The returned loader can reload the same sources later.
func Load(path string, flags map[string]any) (*CLIConfig, *confloader.Loader, error) {
	if path == "" {
		if p := DefaultConfigPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("config file: %w", err)
	}

	l := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithDefaults(defaultMap()),
		confloader.WithFlags(flags),
	)

	cfg := &CLIConfig{}
	if err := l.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, l, nil
}

// Reload re-reads every source of l into a fresh config.
func Reload(l *confloader.Loader) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	if err := l.Reload(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as YAML, readable by the owner only since it may hold
// the password.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if path == "" {
		return errors.New("no config path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, fs.FileMode(0o600))
}

// Addr returns host:port of the configured server.
func (c *CLIConfig) Addr() string {
	return net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port))
}
