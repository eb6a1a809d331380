package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/subwire/internal/cli/config"
	"github.com/yndnr/subwire/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration with secrets masked",
				Action: configShow,
			},
			{
				Name:      "validate",
				Usage:     "Validate a configuration file",
				ArgsUsage: "[FILE]",
				Action:    configValidate,
			},
			{
				Name:      "init",
				Usage:     "Write the effective configuration to a file",
				ArgsUsage: "[FILE]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing file",
					},
				},
				Action: configInit,
			},
			{
				Name:   "path",
				Usage:  "Print the configuration file in use",
				Action: configPath,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	e, err := envFrom(c)
	if err != nil {
		return err
	}

	// A nested struct does not fit a table; show YAML unless asked otherwise.
	format := e.format()
	if format == output.FormatTable || format == output.FormatRaw {
		format = output.FormatYAML
	}
	return output.NewFormatter(format, false).Format(e.out, config.Sanitize(e.cfg))
}

func configValidate(c *cli.Context) error {
	e, err := envFrom(c)
	if err != nil {
		return err
	}

	path := c.Args().First()
	if path == "" {
		path = e.loader.FilePath()
	}
	if path == "" {
		return errors.New("no configuration file to validate")
	}

	if _, _, err := config.Load(path, nil); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%s: configuration is valid\n", path)
	return nil
}

func configInit(c *cli.Context) error {
	e, err := envFrom(c)
	if err != nil {
		return err
	}

	path := c.Args().First()
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.Save(e.cfg, path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(e.out, "wrote %s\n", path)
	return nil
}

func configPath(c *cli.Context) error {
	e, err := envFrom(c)
	if err != nil {
		return err
	}

	path := e.loader.FilePath()
	if path == "" {
		path = "(none, using defaults)"
	}
	fmt.Fprintln(e.out, path)
	return nil
}
