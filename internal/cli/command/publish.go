package command

import (
	"bufio"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/subwire/internal/cli/config"
)

// PublishResult reports how many subscribers received a message.
type PublishResult struct {
	Topic     string `json:"topic" yaml:"topic"`
	Payload   string `json:"payload" yaml:"payload" table:"wide"`
	Receivers int64  `json:"receivers" yaml:"receivers"`
}

// PublishCommand returns the publish command.
func PublishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Aliases:   []string{"pub"},
		Usage:     "Publish a message to a topic",
		ArgsUsage: "TOPIC [MESSAGE]",
		Description: "Without MESSAGE, every line read from standard input is " +
			"published as its own message.",
		Action: publishAction,
	}
}

func newRedisClient(cfg *config.CLIConfig) *redis.Client {
	timeout := cfg.Redis.Timeout.D()
	return redis.NewClient(&redis.Options{
		Addr:             cfg.Addr(),
		Password:         cfg.Redis.Password,
		DB:               cfg.Redis.DB,
		DialTimeout:      timeout,
		ReadTimeout:      timeout,
		WriteTimeout:     timeout,
		MaxRetries:       -1,
		DisableIndentity: true,
	})
}

func publishAction(c *cli.Context) error {
	args := c.Args().Slice()
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: %s %s %s", c.App.Name, c.Command.Name, c.Command.ArgsUsage)
	}

	e, err := envFrom(c)
	if err != nil {
		return err
	}

	client := newRedisClient(e.cfg)
	defer client.Close()

	topic := e.cfg.Redis.Prefix + args[0]
	publish := func(payload string) (PublishResult, error) {
		n, err := client.Publish(c.Context, topic, payload).Result()
		if err != nil {
			return PublishResult{}, fmt.Errorf("publish %s: %w", topic, err)
		}
		e.log.Debug("published", "topic", topic, "receivers", n)
		return PublishResult{Topic: topic, Payload: payload, Receivers: n}, nil
	}

	if len(args) == 2 {
		res, err := publish(args[1])
		if err != nil {
			return err
		}
		return e.print(res)
	}

	var results []PublishResult
	scanner := bufio.NewScanner(c.App.Reader)
	for scanner.Scan() {
		res, err := publish(scanner.Text())
		if err != nil {
			return err
		}
		results = append(results, res)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	return e.print(results)
}
