package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/watchdog-mux/watchdog-mux/internal/log"
	"github.com/watchdog-mux/watchdog-mux/internal/muxcli"
	"github.com/watchdog-mux/watchdog-mux/internal/opentelemetry"
	"github.com/watchdog-mux/watchdog-mux/internal/version"
	"github.com/watchdog-mux/watchdog-mux/server"
	"github.com/watchdog-mux/watchdog-mux/server/metrics"
)

func main() {
	app := cli.NewApp()

	info, err := version.Get(false)
	if err != nil {
		logrus.Fatal(err)
	}

	app.Name = "watchdog-mux"
	app.Usage = "hardware watchdog multiplexer"
	app.Version = info.Version
	app.Flags, app.Metadata = muxcli.GetFlagsAndMetadata()

	sort.Sort(cli.FlagsByName(app.Flags))
	sort.Sort(cli.FlagsByName(muxcli.ConfigCommand.Flags))

	app.Commands = append(app.Commands, muxcli.DefaultCommands...)
	app.Commands = append(app.Commands, []*cli.Command{
		muxcli.ConfigCommand,
		muxcli.VersionCommand,
	}...)

	app.Before = func(c *cli.Context) (err error) {
		config, err := muxcli.GetAndMergeConfigFromContext(c)
		if err != nil {
			return err
		}

		logrus.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000000000Z07:00",
			FullTimestamp:   true,
		})

		level, err := logrus.ParseLevel(config.LogLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)

		if path := c.String("log"); path != "" {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC, 0o600)
			if err != nil {
				return err
			}
			logrus.SetOutput(f)
		}

		switch c.String("log-format") {
		case "text":
			// retain logrus's default.
		case "json":
			logrus.SetFormatter(new(logrus.JSONFormatter))
		default:
			return fmt.Errorf("unknown log-format %q", c.String("log-format"))
		}

		filterHook, err := log.NewFilterHook(config.LogFilter)
		if err != nil {
			return err
		}
		logrus.AddHook(filterHook)

		return nil
	}

	app.Action = func(c *cli.Context) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if c.Args().Len() > 0 {
			return fmt.Errorf("command %q not supported", c.Args().First())
		}

		config, err := muxcli.GetConfigFromContext(c)
		if err != nil {
			return err
		}

		// Validate the configuration during runtime
		if err := config.Validate(); err != nil {
			return err
		}

		log.Infof(ctx, "Starting watchdog-mux version %s", info.Version)

		if config.EnableTracing {
			tp, err := opentelemetry.InitTracing(ctx, config.TracingEndpoint, config.TracingSamplingRatePerMillion)
			if err != nil {
				return fmt.Errorf("initialize tracing: %w", err)
			}
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					log.Warnf(ctx, "Unable to shutdown tracer provider: %v", err)
				}
			}()
		}

		service, err := server.New(ctx, config)
		if err != nil {
			return err
		}

		if config.EnableMetrics {
			m, err := metrics.New(&config.MetricsConfig, service)
			if err != nil {
				return fmt.Errorf("create metrics: %w", err)
			}
			if _, err := m.Start(ctx); err != nil {
				log.Errorf(ctx, "Unable to start metrics endpoint: %v", err)
			}
		}

		err = service.Serve(ctx)
		if errors.Is(err, server.ErrUncleanShutdown) {
			return cli.Exit(err.Error(), 1)
		}
		return err
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
