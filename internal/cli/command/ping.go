package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

// PingResult is one ping round trip.
type PingResult struct {
	Seq     int           `json:"seq" yaml:"seq"`
	Addr    string        `json:"addr" yaml:"addr"`
	Reply   string        `json:"reply" yaml:"reply"`
	Latency time.Duration `json:"latency" yaml:"latency"`
}

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Check that the server answers pings",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Number of pings",
				Value:   1,
			},
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Wait between pings",
				Value:   time.Second,
			},
		},
		Action: pingAction,
	}
}

func pingAction(c *cli.Context) error {
	e, err := envFrom(c)
	if err != nil {
		return err
	}

	sub, err := connect(c.Context, e, nil)
	if err != nil {
		return err
	}
	defer sub.Close()

	count := max(c.Int("count"), 1)
	results := make([]PingResult, 0, count)
	for i := range count {
		if i > 0 {
			select {
			case <-c.Context.Done():
				return c.Context.Err()
			case <-time.After(c.Duration("interval")):
			}
		}

		start := time.Now()
		reply, err := sub.Ping(e.cfg.Redis.Timeout.D())
		if err != nil {
			return fmt.Errorf("ping %s: %w", sub.Addr(), err)
		}
		results = append(results, PingResult{
			Seq:     i + 1,
			Addr:    sub.Addr(),
			Reply:   reply,
			Latency: time.Since(start).Round(time.Microsecond),
		})
	}
	return e.print(results)
}
