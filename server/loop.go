package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/docker/go-units"
	"go.opentelemetry.io/otel/attribute"

	"github.com/watchdog-mux/watchdog-mux/internal/log"
	"github.com/watchdog-mux/watchdog-mux/internal/opentelemetry"
	"github.com/watchdog-mux/watchdog-mux/internal/signals"
)

// Serve runs the daemon loop until a termination signal arrives, ctx is
// cancelled or accepting clients fails. It returns ErrUncleanShutdown if
// client leases are still outstanding at that point, in which case the
// watchdog is not disarmed and the host will reset.
func (s *Server) Serve(ctx context.Context) error {
	go s.accept()
	go s.forwardSignals()

	s.state = StateServing
	s.publish()
	s.notifier.Ready(ctx)
	s.notifier.Status(ctx, "serving")

	err := s.run(ctx)
	return s.shutdown(ctx, err)
}

func (s *Server) run(ctx context.Context) error {
	poll := s.config.PollTimeout()
	lastTick := s.clock.Now()

	for {
		if s.clock.Since(lastTick) >= poll {
			s.tick(ctx)
			lastTick = s.clock.Now()
			s.publish()
		}

		timer := s.clock.NewTimer(poll - s.clock.Since(lastTick))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Infof(ctx, "Context done, terminating")
			return nil

		case <-timer.C():
			continue

		case ev := <-s.events:
			timer.Stop()

			if !s.updatesEnabled {
				if ev.conn != nil && ev.source == sourceListener {
					ev.conn.Close()
				}
				return nil
			}

			terminate, err := s.dispatch(ctx, s.collect(ev))
			s.publish()
			if err != nil {
				return err
			}
			if terminate {
				return nil
			}
		}
	}
}

// tick evaluates client liveness and refreshes the watchdog if every client
// is alive.
func (s *Server) tick(ctx context.Context) {
	now := s.clock.Now()

	if s.updatesEnabled {
		for _, slot := range s.registry.Expired(now, s.config.ClientGracePeriod()) {
			s.stats.expirations++
			ctx := log.WithClient(ctx, slot.ID())
			log.Warnf(ctx, "Client silent for %s", units.HumanDuration(slot.Silence(now)))
			s.disableUpdates(ctx, "client watchdog expired - disable watchdog updates")
		}
	}

	if s.updatesEnabled {
		if err := s.device.Keepalive(); err != nil {
			s.stats.keepaliveFailures++
			log.Errorf(ctx, "Watchdog update failed: %v", err)
		} else {
			s.stats.keepalives++
		}
	}

	s.notifier.Ping(ctx, now)
}

func (s *Server) dispatch(ctx context.Context, batch []event) (terminate bool, err error) {
	ctx, span := opentelemetry.Tracer().Start(ctx, "batch")
	span.SetAttributes(attribute.Int("events", len(batch)))
	defer span.End()

	for i := range batch {
		ev := &batch[i]
		switch ev.source {
		case sourceListener:
			if err := s.handleAccept(ctx, ev); err != nil {
				return terminate, err
			}

		case sourceSignal:
			if signals.IsReload(ev.signal) {
				log.Infof(ctx, "Got %v - ignored", ev.signal)
				continue
			}
			log.Infof(ctx, "Got terminate request (%v)", ev.signal)
			terminate = true

		case sourceClient:
			s.handleClient(log.WithClient(ctx, ev.slot), ev)
		}
	}
	return terminate, nil
}

func (s *Server) handleAccept(ctx context.Context, ev *event) error {
	if ev.err != nil {
		return fmt.Errorf("accept: %w", ev.err)
	}

	slot, err := s.registry.Acquire(ev.conn, s.clock.Now())
	if err != nil {
		s.stats.rejected++
		log.Warnf(ctx, "Rejecting client: %v", err)
		ev.conn.Close()
		return nil
	}
	s.stats.accepted++
	log.Debugf(log.WithClient(ctx, slot.ID()), "Client connected")

	if err := s.marker.Ensure(); err != nil {
		log.Errorf(ctx, "Unable to create active marker: %v", err)
	}

	go s.read(slot.ID(), ev.conn)
	return nil
}

func (s *Server) handleClient(ctx context.Context, ev *event) {
	slot := s.registry.Slot(ev.slot)
	if slot == nil || slot.Conn() != ev.conn {
		log.Warnf(ctx, "Dropping event of unknown client")
		return
	}

	if len(ev.data) > 0 {
		s.stats.reads++
		slot.Touch(ev.data, s.clock.Now())
	}
	if !ev.closed {
		return
	}

	if ev.err != nil {
		log.Warnf(ctx, "Client read failed: %v", ev.err)
	}

	if slot.PendingRelease() {
		if err := slot.Conn().Close(); err != nil {
			log.Debugf(ctx, "Close client connection: %v", err)
		}
		s.registry.Release(slot)
		log.Debugf(ctx, "Client released its lease")
	} else {
		if err := slot.Disconnect(); err != nil {
			log.Debugf(ctx, "Close client connection: %v", err)
		}
		s.disableUpdates(ctx, "client did not stop watchdog - disable watchdog updates")
	}

	if s.registry.ActiveCount() == 0 {
		if err := s.marker.Remove(); err != nil {
			log.Warnf(ctx, "Unable to remove active marker: %v", err)
		}
	}
}

// disableUpdates stops refreshing the watchdog for the rest of the run.
func (s *Server) disableUpdates(ctx context.Context, reason string) {
	log.Errorf(ctx, "%s", reason)
	if !s.updatesEnabled {
		return
	}
	s.updatesEnabled = false
	s.state = StateDraining
	s.notifier.Status(ctx, "watchdog updates disabled")
}

// shutdown stops every producer, then disarms the watchdog unless client
// leases are outstanding.
func (s *Server) shutdown(ctx context.Context, runErr error) error {
	s.state = StateTerminated
	s.notifier.Stopping(ctx)

	close(s.done)
	if s.stopSignals != nil {
		s.stopSignals()
	}
	if err := s.listener.Close(); err != nil {
		log.Warnf(ctx, "Close listener: %v", err)
	}

	active := s.registry.ActiveCount()
	for _, slot := range s.registry.Active() {
		if err := slot.Disconnect(); err != nil {
			log.Debugf(log.WithClient(ctx, slot.ID()), "Close client connection: %v", err)
		}
	}
	s.publish()

	if runErr != nil {
		log.Errorf(ctx, "Loop failed: %v", runErr)
	}

	if active > 0 {
		log.Errorf(ctx, "Exit watchdog-mux with %d active connections", active)
		return errors.Join(runErr, ErrUncleanShutdown)
	}

	log.Infof(ctx, "Clean exit")
	if err := s.device.MagicClose(); err != nil {
		log.Errorf(ctx, "Write magic watchdog close: %v", err)
	}
	return runErr
}
