package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/subwire/internal/cli/repl"
	"github.com/yndnr/subwire/internal/telemetry/logger"
)

// ReplCommand returns the interactive shell command.
func ReplCommand() *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "Open an interactive subscription shell",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "history",
				Usage: "History file (default ~/.subwire/history)",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Keep history in memory only",
			},
		},
		Action: replAction,
	}
}

func replAction(c *cli.Context) error {
	e, err := envFrom(c)
	if err != nil {
		return err
	}

	file := c.String("history")
	if file == "" {
		file = repl.DefaultHistoryFile()
	}
	if c.Bool("no-history") {
		file = ""
	}
	history := repl.NewHistory(file)
	if err := history.Load(); err != nil {
		e.log.Warn("history not loaded", "file", file, "error", err)
	}

	sub, err := connect(c.Context, e, nil)
	if err != nil {
		return err
	}
	defer sub.Close()

	r := repl.New(sub,
		repl.WithIO(c.App.Reader, e.out),
		repl.WithHistory(history),
		repl.WithFormat(e.format()),
		repl.WithTimeout(e.cfg.Redis.Timeout.D()),
		repl.WithLogger(logger.Slog(e.log)),
	)

	runErr := r.Run(c.Context)
	if err := history.Save(); err != nil {
		e.log.Warn("history not saved", "file", file, "error", err)
	}
	return runErr
}
