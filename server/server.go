// Package server implements the watchdog-mux daemon loop. It owns the
// hardware watchdog and refreshes it only while every connected client is
// alive, tracking clients in a fixed registry of leases.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"

	"k8s.io/utils/clock"

	"github.com/watchdog-mux/watchdog-mux/internal/listener"
	"github.com/watchdog-mux/watchdog-mux/internal/log"
	"github.com/watchdog-mux/watchdog-mux/internal/marker"
	"github.com/watchdog-mux/watchdog-mux/internal/registry"
	"github.com/watchdog-mux/watchdog-mux/internal/signals"
	"github.com/watchdog-mux/watchdog-mux/internal/watchdog"
	"github.com/watchdog-mux/watchdog-mux/pkg/config"
)

// ErrUncleanShutdown is returned by Serve when the daemon stops while client
// leases are outstanding. The watchdog is left armed in that case.
var ErrUncleanShutdown = errors.New("exit watchdog-mux with active connections")

// Server is the watchdog-mux daemon.
type Server struct {
	config *config.Config
	clock  clock.Clock

	opener   watchdog.Opener
	files    listener.FilesFunc
	systemd  watchdog.Systemd
	device   watchdog.Device
	notifier *watchdog.Notifier
	listener *listener.Listener
	registry *registry.Registry
	marker   *marker.Marker

	signals     <-chan os.Signal
	stopSignals func()

	events chan event
	done   chan struct{}

	state          State
	updatesEnabled bool
	stats          stats
	snapshot       snapshotStore
}

type stats struct {
	keepalives        uint64
	keepaliveFailures uint64
	accepted          uint64
	rejected          uint64
	reads             uint64
	expirations       uint64
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock the loop measures client silence and poll
// intervals with.
func WithClock(c clock.Clock) Option {
	return func(s *Server) {
		s.clock = c
	}
}

// WithDeviceOpener replaces watchdog.Open.
func WithDeviceOpener(opener watchdog.Opener) Option {
	return func(s *Server) {
		s.opener = opener
	}
}

// WithListenerFiles replaces the socket activation lookup.
func WithListenerFiles(files listener.FilesFunc) Option {
	return func(s *Server) {
		s.files = files
	}
}

// WithSignals makes the loop read termination and reload requests from c
// instead of subscribing to process signals.
func WithSignals(c <-chan os.Signal) Option {
	return func(s *Server) {
		s.signals = c
	}
}

// WithSystemd replaces the service manager connection.
func WithSystemd(systemd watchdog.Systemd) Option {
	return func(s *Server) {
		s.systemd = systemd
	}
}

// New runs the start up sequence. It refuses to start while the active
// marker of a previous run exists, then opens and arms the watchdog and
// resolves the listening socket. The watchdog is magic-closed again if any
// step after opening it fails.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("provided config is nil")
	}

	s := &Server{
		config:         cfg,
		clock:          clock.RealClock{},
		opener:         watchdog.Open,
		files:          listener.ActivationFiles,
		notifier:       watchdog.NewNotifier(),
		registry:       registry.New(cfg.MaxClients),
		marker:         marker.New(cfg.ActiveMarker),
		events:         make(chan event, maxEvents),
		done:           make(chan struct{}),
		updatesEnabled: true,
	}
	for _, o := range opts {
		o(s)
	}
	if s.systemd != nil {
		s.notifier.SetSystemd(s.systemd)
	}
	s.publish()

	if err := s.marker.Check(); err != nil {
		return nil, err
	}

	device, err := s.opener(cfg.Device, cfg.LoadSoftdog)
	if err != nil {
		return nil, fmt.Errorf("watchdog open %s: %w", cfg.Device, err)
	}
	s.device = device

	if err := s.init(ctx); err != nil {
		if cerr := s.device.MagicClose(); cerr != nil {
			log.Errorf(ctx, "Write magic watchdog close: %v", cerr)
		}
		return nil, err
	}

	if s.signals == nil {
		ch := signals.Notify()
		s.signals = ch.C()
		s.stopSignals = ch.Stop
	}

	return s, nil
}

func (s *Server) init(ctx context.Context) error {
	if err := s.device.Arm(s.config.Timeout); err != nil {
		return fmt.Errorf("watchdog set timeout: %w", err)
	}
	log.Infof(ctx, "Watchdog timeout set to %d seconds", s.config.Timeout)

	identity, err := s.device.Identify()
	if err != nil {
		return fmt.Errorf("read watchdog info: %w", err)
	}
	log.Infof(ctx, "%s", identity)
	log.Debugf(ctx, "Watchdog driver options %#x", identity.Options)
	if !identity.SupportsMagicClose() {
		log.Warnf(ctx, "Watchdog driver does not support magic close, a clean exit leaves it armed")
	}

	l, err := listener.Resolve(ctx, s.config.Listen, s.files)
	if err != nil {
		return err
	}
	s.listener = l

	if err := s.notifier.Start(ctx); err != nil {
		s.listener.Close()
		return err
	}
	return nil
}

// Snapshot returns the state last published by the loop. It is safe to
// call from any goroutine.
func (s *Server) Snapshot() Snapshot {
	return s.snapshot.load()
}

// Addr returns the path of the listening socket.
func (s *Server) Addr() string {
	return s.listener.Path()
}

// Done is closed once the loop stopped.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) publish() {
	s.snapshot.store(Snapshot{
		State:             s.state,
		UpdatesEnabled:    s.updatesEnabled,
		ActiveClients:     s.registry.ActiveCount(),
		Capacity:          s.registry.Capacity(),
		Keepalives:        s.stats.keepalives,
		KeepaliveFailures: s.stats.keepaliveFailures,
		Accepted:          s.stats.accepted,
		Rejected:          s.stats.rejected,
		Reads:             s.stats.reads,
		Expirations:       s.stats.expirations,
		Notifications:     s.notifier.Notifications(),
	})
}
