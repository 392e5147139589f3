// Package metrics exposes the daemon loop state to prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/watchdog-mux/watchdog-mux/internal/log"
	"github.com/watchdog-mux/watchdog-mux/pkg/config"
	"github.com/watchdog-mux/watchdog-mux/server"
)

// Subsystem is the namespace where the metrics are being registered.
const Subsystem = "watchdog_mux"

// Source provides the state the collectors read on every scrape.
type Source interface {
	Snapshot() server.Snapshot
}

// Metrics is the main structure for starting the metrics endpoints.
type Metrics struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry
}

// New creates the collectors reading from source and registers them on a
// dedicated registry.
func New(cfg *config.MetricsConfig, source Source) (*Metrics, error) {
	if source == nil {
		return nil, errors.New("provided source is nil")
	}

	gauge := func(name, help string, value func(server.Snapshot) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Subsystem: Subsystem, Name: name, Help: help},
			func() float64 { return value(source.Snapshot()) },
		)
	}
	counter := func(name, help string, value func(server.Snapshot) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{Subsystem: Subsystem, Name: name, Help: help},
			func() float64 { return float64(value(source.Snapshot())) },
		)
	}

	m := &Metrics{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}
	for _, c := range []prometheus.Collector{
		gauge("updates_enabled", "Whether the hardware watchdog is still refreshed (1) or left to expire (0)",
			func(s server.Snapshot) float64 { return boolToFloat(s.UpdatesEnabled) }),
		gauge("state", "Loop state: 0 init, 1 serving, 2 draining, 3 terminated",
			func(s server.Snapshot) float64 { return float64(s.State) }),
		gauge("active_clients", "Number of outstanding client leases",
			func(s server.Snapshot) float64 { return float64(s.ActiveClients) }),
		gauge("client_capacity", "Number of client slots",
			func(s server.Snapshot) float64 { return float64(s.Capacity) }),
		counter("keepalives_total", "Successful hardware watchdog refreshes",
			func(s server.Snapshot) uint64 { return s.Keepalives }),
		counter("keepalive_failures_total", "Failed hardware watchdog refreshes",
			func(s server.Snapshot) uint64 { return s.KeepaliveFailures }),
		counter("clients_accepted_total", "Accepted client connections",
			func(s server.Snapshot) uint64 { return s.Accepted }),
		counter("clients_rejected_total", "Client connections rejected because every slot was in use",
			func(s server.Snapshot) uint64 { return s.Rejected }),
		counter("client_reads_total", "Reads from client connections",
			func(s server.Snapshot) uint64 { return s.Reads }),
		counter("client_expirations_total", "Clients that stayed silent longer than the client timeout",
			func(s server.Snapshot) uint64 { return s.Expirations }),
		counter("systemd_notifications_total", "Notifications acknowledged by systemd",
			func(s server.Snapshot) uint64 { return s.Notifications }),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}

	return m, nil
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	mux := &http.ServeMux{}
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return mux
}

// Start serves the metrics in the background until ctx is done.
func (m *Metrics) Start(ctx context.Context) (net.Addr, error) {
	if m.config == nil {
		return nil, errors.New("provided config is nil")
	}

	address := m.config.MetricsAddress()
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("create metrics endpoint on %s: %w", address, err)
	}

	srv := &http.Server{Handler: m.Handler()}
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Errorf(ctx, "Error on metrics server shutdown: %v", err)
		}
	}()

	go func() {
		log.Infof(ctx, "Serving metrics on %s using HTTP", l.Addr())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf(ctx, "Failed to serve metrics endpoint %v: %v", l.Addr(), err)
		}
	}()

	return l.Addr(), nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
