package muxcli

import (
	"errors"
	"os"

	"github.com/urfave/cli/v2"

	libconfig "github.com/watchdog-mux/watchdog-mux/pkg/config"
)

// DefaultCommands are the commands added to every binary.
var DefaultCommands = []*cli.Command{
	completion(),
}

func GetConfigFromContext(c *cli.Context) (*libconfig.Config, error) {
	config, ok := c.App.Metadata["config"].(*libconfig.Config)
	if !ok {
		return nil, errors.New("type assertion error when accessing server config")
	}
	return config, nil
}

func GetAndMergeConfigFromContext(c *cli.Context) (*libconfig.Config, error) {
	config, err := GetConfigFromContext(c)
	if err != nil {
		return nil, err
	}
	if err := mergeConfig(config, c); err != nil {
		return nil, err
	}
	return config, nil
}

func mergeConfig(config *libconfig.Config, ctx *cli.Context) error {
	// Don't parse the config if the user explicitly set it to "".
	path := ctx.String("config")
	if path != "" {
		if err := config.UpdateFromFile(path); err != nil {
			if ctx.IsSet("config") || !os.IsNotExist(err) {
				return err
			}
		}
	}

	// Override options set with the CLI.
	if ctx.IsSet("log-level") {
		config.LogLevel = ctx.String("log-level")
	}
	if ctx.IsSet("log-filter") {
		config.LogFilter = ctx.String("log-filter")
	}
	if ctx.IsSet("device") {
		config.Device = ctx.String("device")
	}
	if ctx.IsSet("watchdog-timeout") {
		config.Timeout = ctx.Int("watchdog-timeout")
	}
	if ctx.IsSet("load-softdog") {
		config.LoadSoftdog = ctx.Bool("load-softdog")
	}
	if ctx.IsSet("listen") {
		config.Listen = ctx.String("listen")
	}
	if ctx.IsSet("active-marker") {
		config.ActiveMarker = ctx.String("active-marker")
	}
	if ctx.IsSet("max-clients") {
		config.MaxClients = ctx.Int("max-clients")
	}
	if ctx.IsSet("client-timeout") {
		config.ClientTimeout = ctx.Int("client-timeout")
	}
	if ctx.IsSet("poll-interval") {
		config.PollInterval = ctx.Int("poll-interval")
	}
	if ctx.IsSet("enable-metrics") {
		config.EnableMetrics = ctx.Bool("enable-metrics")
	}
	if ctx.IsSet("metrics-host") {
		config.MetricsHost = ctx.String("metrics-host")
	}
	if ctx.IsSet("metrics-port") {
		config.MetricsPort = ctx.Int("metrics-port")
	}
	if ctx.IsSet("enable-tracing") {
		config.EnableTracing = ctx.Bool("enable-tracing")
	}
	if ctx.IsSet("tracing-endpoint") {
		config.TracingEndpoint = ctx.String("tracing-endpoint")
	}
	if ctx.IsSet("tracing-sampling-rate-per-million") {
		config.TracingSamplingRatePerMillion = ctx.Int("tracing-sampling-rate-per-million")
	}

	return nil
}

func GetFlagsAndMetadata() ([]cli.Flag, map[string]interface{}) {
	config := libconfig.DefaultConfig()
	flags := getMuxFlags(config)
	metadata := map[string]interface{}{
		"config": config,
	}
	return flags, metadata
}

func getMuxFlags(defConf *libconfig.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:      "config",
			Aliases:   []string{"c"},
			Value:     libconfig.DefaultConfigPath,
			Usage:     "Path to configuration file",
			EnvVars:   []string{"WATCHDOG_MUX_CONFIG"},
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:      "log",
			Usage:     "Set the log file path where internal debug information is written",
			EnvVars:   []string{"WATCHDOG_MUX_LOG_FILE"},
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Set the format used by logs: 'text' or 'json'",
			EnvVars: []string{"WATCHDOG_MUX_LOG_FORMAT"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Aliases: []string{"l"},
			Value:   defConf.LogLevel,
			Usage:   "Log messages above specified level: trace, debug, info, warn, error, fatal or panic",
			EnvVars: []string{"WATCHDOG_MUX_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-filter",
			Usage:   `Filter the log messages by the provided regular expression. For example 'Client.\*' keeps only client related messages.`,
			EnvVars: []string{"WATCHDOG_MUX_LOG_FILTER"},
		},
		&cli.StringFlag{
			Name:      "device",
			Usage:     "Path to the hardware watchdog device",
			Value:     defConf.Device,
			EnvVars:   []string{"WATCHDOG_MUX_DEVICE"},
			TakesFile: true,
		},
		&cli.IntFlag{
			Name:    "watchdog-timeout",
			Usage:   "Hardware watchdog timeout in seconds",
			Value:   defConf.Timeout,
			EnvVars: []string{"WATCHDOG_MUX_WATCHDOG_TIMEOUT"},
		},
		&cli.BoolFlag{
			Name:    "load-softdog",
			Usage:   "Load the softdog kernel module if the watchdog device does not exist",
			Value:   defConf.LoadSoftdog,
			EnvVars: []string{"WATCHDOG_MUX_LOAD_SOFTDOG"},
		},
		&cli.StringFlag{
			Name:      "listen",
			Usage:     "Path to the watchdog-mux socket, unless passed by systemd socket activation",
			Value:     defConf.Listen,
			EnvVars:   []string{"WATCHDOG_MUX_LISTEN"},
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:      "active-marker",
			Usage:     "Path of the marker which exists while clients hold a watchdog lease",
			Value:     defConf.ActiveMarker,
			EnvVars:   []string{"WATCHDOG_MUX_ACTIVE_MARKER"},
			TakesFile: true,
		},
		&cli.IntFlag{
			Name:    "max-clients",
			Usage:   "Maximum number of concurrently connected clients",
			Value:   defConf.MaxClients,
			EnvVars: []string{"WATCHDOG_MUX_MAX_CLIENTS"},
		},
		&cli.IntFlag{
			Name:    "client-timeout",
			Usage:   "Seconds a client may stay silent before the hardware watchdog is no longer refreshed",
			Value:   defConf.ClientTimeout,
			EnvVars: []string{"WATCHDOG_MUX_CLIENT_TIMEOUT"},
		},
		&cli.IntFlag{
			Name:    "poll-interval",
			Usage:   "Seconds between client liveness checks and watchdog refreshes",
			Value:   defConf.PollInterval,
			EnvVars: []string{"WATCHDOG_MUX_POLL_INTERVAL"},
		},
		&cli.BoolFlag{
			Name:    "enable-metrics",
			Usage:   "Enable metrics endpoint for the server",
			Value:   defConf.EnableMetrics,
			EnvVars: []string{"WATCHDOG_MUX_ENABLE_METRICS"},
		},
		&cli.StringFlag{
			Name:    "metrics-host",
			Usage:   "Host for the metrics endpoint",
			Value:   defConf.MetricsHost,
			EnvVars: []string{"WATCHDOG_MUX_METRICS_HOST"},
		},
		&cli.IntFlag{
			Name:    "metrics-port",
			Usage:   "Port for the metrics endpoint",
			Value:   defConf.MetricsPort,
			EnvVars: []string{"WATCHDOG_MUX_METRICS_PORT"},
		},
		&cli.BoolFlag{
			Name:    "enable-tracing",
			Usage:   "Enable OpenTelemetry trace data exporting",
			Value:   defConf.EnableTracing,
			EnvVars: []string{"WATCHDOG_MUX_ENABLE_TRACING"},
		},
		&cli.StringFlag{
			Name:    "tracing-endpoint",
			Usage:   "Address on which the gRPC trace collector listens",
			Value:   defConf.TracingEndpoint,
			EnvVars: []string{"WATCHDOG_MUX_TRACING_ENDPOINT"},
		},
		&cli.IntFlag{
			Name:    "tracing-sampling-rate-per-million",
			Usage:   "Number of samples to collect per million spans",
			Value:   defConf.TracingSamplingRatePerMillion,
			EnvVars: []string{"WATCHDOG_MUX_TRACING_SAMPLING_RATE_PER_MILLION"},
		},
	}
}
