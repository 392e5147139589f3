package muxcli

import (
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/watchdog-mux/watchdog-mux/pkg/config"
)

var ConfigCommand = &cli.Command{
	Name: "config",
	Usage: `Outputs the configuration file that could be used by watchdog-mux.
This allows you to save your current configuration setup and then load it
later with **--config**. Global options will modify the output.`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "default",
			Usage: "Output the default configuration (without taking into account any configuration options).",
		},
		&cli.StringFlag{
			Name:      "output",
			Aliases:   []string{"o"},
			Usage:     "Atomically write the configuration to this file instead of stdout.",
			TakesFile: true,
		},
	},
	Action: func(c *cli.Context) error {
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: true,
		})
		logrus.SetLevel(logrus.InfoLevel)

		conf, err := GetConfigFromContext(c)
		if err != nil {
			return err
		}

		if c.Bool("default") {
			conf = config.DefaultConfig()
		}

		// Validate the configuration during generation
		if err := conf.Validate(); err != nil {
			return err
		}

		if path := c.String("output"); path != "" {
			if err := conf.ToFile(path); err != nil {
				return err
			}
			logrus.Infof("Configuration written to %s", path)
			return nil
		}

		_, err = conf.WriteTo(c.App.Writer)
		return err
	},
}
