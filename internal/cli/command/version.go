package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/subwire/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			e, err := envFrom(c)
			if err != nil {
				return err
			}
			return e.print(buildinfo.Get())
		},
	}
}
