// Package config holds the watchdog-mux configuration and its TOML
// representation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio"
	"github.com/sirupsen/logrus"

	"github.com/watchdog-mux/watchdog-mux/internal/listener"
	"github.com/watchdog-mux/watchdog-mux/internal/marker"
	"github.com/watchdog-mux/watchdog-mux/internal/registry"
	"github.com/watchdog-mux/watchdog-mux/internal/watchdog"
)

const (
	// DefaultConfigPath is the default location of the configuration file.
	DefaultConfigPath = "/etc/watchdog-mux/watchdog-mux.conf"

	// DefaultClientTimeout is the client grace period in seconds.
	DefaultClientTimeout = 60

	// DefaultPollInterval is the loop timeout in seconds.
	DefaultPollInterval = 1

	// DefaultMetricsPort is the port of the optional metrics endpoint.
	DefaultMetricsPort = 9578

	// DefaultTracingEndpoint is the default OTLP gRPC collector address.
	DefaultTracingEndpoint = "0.0.0.0:4317"
)

// Config represents the entire set of configuration values that can be set
// for the daemon. This is intended to be loaded from a toml-encoded config
// file.
type Config struct {
	RootConfig
	WatchdogConfig
	APIConfig
	MetricsConfig
	TracingConfig
}

// RootConfig represents the root of the "watchdog_mux" TOML config table.
type RootConfig struct {
	// LogLevel determines the verbosity of the logs. It is passed to
	// logrus.ParseLevel.
	LogLevel string `toml:"log_level"`

	// LogFilter specifies a regular expression to filter the log messages.
	LogFilter string `toml:"log_filter"`
}

// WatchdogConfig represents the "watchdog_mux.watchdog" TOML config table.
type WatchdogConfig struct {
	// Device is the path to the watchdog character device.
	Device string `toml:"device"`

	// Timeout is the hardware watchdog timeout in seconds.
	Timeout int `toml:"timeout"`

	// LoadSoftdog loads the softdog kernel module when Device is missing.
	LoadSoftdog bool `toml:"load_softdog"`
}

// APIConfig represents the "watchdog_mux.api" TOML config table.
type APIConfig struct {
	// Listen is the path to the unix socket clients connect to. It is only
	// created when the service manager does not pass a socket.
	Listen string `toml:"listen"`

	// ActiveMarker is the path of the marker present while client leases
	// are outstanding.
	ActiveMarker string `toml:"active_marker"`

	// MaxClients is the number of client slots.
	MaxClients int `toml:"max_clients"`

	// ClientTimeout is the maximum silence of a client in seconds before
	// watchdog updates stop.
	ClientTimeout int `toml:"client_timeout"`

	// PollInterval is the loop timeout in seconds. Liveness is evaluated and
	// the watchdog refreshed at least this often.
	PollInterval int `toml:"poll_interval"`
}

// MetricsConfig represents the "watchdog_mux.metrics" TOML config table.
type MetricsConfig struct {
	// EnableMetrics can be used to globally enable or disable metrics support.
	EnableMetrics bool `toml:"enable_metrics"`

	// MetricsHost is the IP address or hostname on which the metrics server
	// will listen.
	MetricsHost string `toml:"metrics_host"`

	// MetricsPort is the port on which the metrics server will listen.
	MetricsPort int `toml:"metrics_port"`
}

// TracingConfig represents the "watchdog_mux.tracing" TOML config table.
type TracingConfig struct {
	// EnableTracing can be used to enable OpenTelemetry tracing.
	EnableTracing bool `toml:"enable_tracing"`

	// TracingEndpoint is the address of the OTLP gRPC collector.
	TracingEndpoint string `toml:"tracing_endpoint"`

	// TracingSamplingRatePerMillion is the number of batch spans sampled
	// per million.
	TracingSamplingRatePerMillion int `toml:"tracing_sampling_rate_per_million"`
}

// tomlConfig is another way of looking at a Config, which is
// TOML-friendly (it has all of the explicit tables). It's just used for
// conversions.
type tomlConfig struct {
	WatchdogMux struct {
		RootConfig
		Watchdog struct{ WatchdogConfig } `toml:"watchdog"`
		API      struct{ APIConfig }      `toml:"api"`
		Metrics  struct{ MetricsConfig }  `toml:"metrics"`
		Tracing  struct{ TracingConfig }  `toml:"tracing"`
	} `toml:"watchdog_mux"`
}

func (t *tomlConfig) toConfig(c *Config) {
	c.RootConfig = t.WatchdogMux.RootConfig
	c.WatchdogConfig = t.WatchdogMux.Watchdog.WatchdogConfig
	c.APIConfig = t.WatchdogMux.API.APIConfig
	c.MetricsConfig = t.WatchdogMux.Metrics.MetricsConfig
	c.TracingConfig = t.WatchdogMux.Tracing.TracingConfig
}

func (t *tomlConfig) fromConfig(c *Config) {
	t.WatchdogMux.RootConfig = c.RootConfig
	t.WatchdogMux.Watchdog.WatchdogConfig = c.WatchdogConfig
	t.WatchdogMux.API.APIConfig = c.APIConfig
	t.WatchdogMux.Metrics.MetricsConfig = c.MetricsConfig
	t.WatchdogMux.Tracing.TracingConfig = c.TracingConfig
}

// DefaultConfig returns the default configuration for watchdog-mux.
func DefaultConfig() *Config {
	return &Config{
		RootConfig: RootConfig{
			LogLevel: "info",
		},
		WatchdogConfig: WatchdogConfig{
			Device:      watchdog.DefaultDevicePath,
			Timeout:     watchdog.DefaultTimeout,
			LoadSoftdog: true,
		},
		APIConfig: APIConfig{
			Listen:        listener.DefaultPath,
			ActiveMarker:  marker.DefaultPath,
			MaxClients:    registry.DefaultCapacity,
			ClientTimeout: DefaultClientTimeout,
			PollInterval:  DefaultPollInterval,
		},
		MetricsConfig: MetricsConfig{
			MetricsHost: "127.0.0.1",
			MetricsPort: DefaultMetricsPort,
		},
		TracingConfig: TracingConfig{
			TracingEndpoint: DefaultTracingEndpoint,
		},
	}
}

// UpdateFromFile populates the Config from the TOML-encoded file at the given path.
// Values not present in the file are kept.
func (c *Config) UpdateFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	t := new(tomlConfig)
	t.fromConfig(c)

	if _, err := toml.Decode(string(data), t); err != nil {
		return fmt.Errorf("unable to decode configuration %v: %w", path, err)
	}

	t.toConfig(c)
	return nil
}

// WriteTo writes the Config TOML-encoded to w.
func (c *Config) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	t := new(tomlConfig)
	t.fromConfig(c)

	if err := toml.NewEncoder(&buf).Encode(t); err != nil {
		return 0, err
	}
	return buf.WriteTo(w)
}

// ToFile outputs the given Config as a TOML-encoded file at the given path.
// An existing file is replaced atomically.
func (c *Config) ToFile(path string) error {
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return err
	}
	return renameio.WriteFile(path, buf.Bytes(), 0o644)
}

// Validate is the main entry point for configuration validation. It returns
// an `error` on validation failure, otherwise `nil`.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if err := c.WatchdogConfig.Validate(); err != nil {
		return fmt.Errorf("validating watchdog config: %w", err)
	}
	if err := c.APIConfig.Validate(); err != nil {
		return fmt.Errorf("validating api config: %w", err)
	}
	if err := c.MetricsConfig.Validate(); err != nil {
		return fmt.Errorf("validating metrics config: %w", err)
	}
	if err := c.TracingConfig.Validate(); err != nil {
		return fmt.Errorf("validating tracing config: %w", err)
	}

	// The hardware must fire before a silent client would be noticed twice.
	if c.Timeout >= c.PollInterval+c.ClientTimeout {
		return fmt.Errorf(
			"watchdog timeout %ds must be shorter than poll interval plus client timeout (%ds)",
			c.Timeout, c.PollInterval+c.ClientTimeout,
		)
	}
	return nil
}

// Validate checks the watchdog table.
func (c *WatchdogConfig) Validate() error {
	if c.Device == "" {
		return errors.New("device must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", c.Timeout)
	}
	return nil
}

// Validate checks the api table.
func (c *APIConfig) Validate() error {
	if !filepath.IsAbs(c.Listen) {
		return fmt.Errorf("listen must be an absolute path, got %q", c.Listen)
	}
	if !filepath.IsAbs(c.ActiveMarker) {
		return fmt.Errorf("active_marker must be an absolute path, got %q", c.ActiveMarker)
	}
	if c.MaxClients <= 0 {
		return fmt.Errorf("max_clients must be positive, got %d", c.MaxClients)
	}
	if c.ClientTimeout <= 0 {
		return fmt.Errorf("client_timeout must be positive, got %d", c.ClientTimeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %d", c.PollInterval)
	}
	return nil
}

// Validate checks the metrics table. Nothing is checked while metrics are
// disabled.
func (c *MetricsConfig) Validate() error {
	if !c.EnableMetrics {
		return nil
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("metrics_port out of range: %d", c.MetricsPort)
	}
	return nil
}

// Validate checks the tracing table. Nothing is checked while tracing is
// disabled.
func (c *TracingConfig) Validate() error {
	if !c.EnableTracing {
		return nil
	}
	if c.TracingEndpoint == "" {
		return errors.New("tracing_endpoint must not be empty")
	}
	if c.TracingSamplingRatePerMillion < 0 || c.TracingSamplingRatePerMillion > 1000000 {
		return fmt.Errorf("tracing_sampling_rate_per_million out of range: %d", c.TracingSamplingRatePerMillion)
	}
	return nil
}

// ClientGracePeriod returns ClientTimeout as a duration.
func (c *APIConfig) ClientGracePeriod() time.Duration {
	return time.Duration(c.ClientTimeout) * time.Second
}

// PollTimeout returns PollInterval as a duration.
func (c *APIConfig) PollTimeout() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// MetricsAddress returns the host:port the metrics endpoint listens on.
func (c *MetricsConfig) MetricsAddress() string {
	return net.JoinHostPort(c.MetricsHost, strconv.Itoa(c.MetricsPort))
}
