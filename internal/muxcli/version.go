package muxcli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/watchdog-mux/watchdog-mux/internal/version"
)

const (
	jsonFlag    = "json"
	verboseFlag = "verbose"
)

var VersionCommand = &cli.Command{
	Name:  "version",
	Usage: "display detailed version information",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    jsonFlag,
			Aliases: []string{"j"},
			Usage:   "print JSON instead of text",
		},
		&cli.BoolFlag{
			Name:    verboseFlag,
			Aliases: []string{"v"},
			Usage:   "print verbose information (for example the link mode of the binary)",
		},
	},
	Action: func(c *cli.Context) error {
		v, err := version.Get(c.Bool(verboseFlag))
		if err != nil {
			return err
		}
		res := v.String()
		if c.Bool(jsonFlag) {
			j, err := v.JSONString()
			if err != nil {
				return fmt.Errorf("unable to generate JSON from version info: %w", err)
			}
			res = j
		}
		fmt.Fprintln(c.App.Writer, res)
		return nil
	},
}
