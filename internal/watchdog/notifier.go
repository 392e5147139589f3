package watchdog

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/watchdog-mux/watchdog-mux/internal/log"
)

const minInterval = time.Second

// Notifier reports the daemon state to the service manager and keeps the
// systemd service watchdog fed. It is driven from the daemon loop and is not
// safe for concurrent use, except for Notifications.
type Notifier struct {
	systemd       Systemd
	interval      time.Duration
	lastPing      time.Time
	notifications atomic.Uint64
}

// NewNotifier creates a Notifier talking to systemd.
func NewNotifier() *Notifier {
	return &Notifier{systemd: DefaultSystemd()}
}

// SetSystemd sets the systemd implementation.
func (n *Notifier) SetSystemd(systemd Systemd) {
	n.systemd = systemd
}

// Start configures the service watchdog ping interval. A disabled systemd
// watchdog is not an error.
func (n *Notifier) Start(ctx context.Context) error {
	interval, err := n.systemd.WatchdogEnabled()
	if err != nil {
		return fmt.Errorf("configure systemd watchdog: %w", err)
	}

	if interval == 0 {
		log.Debugf(ctx, "No systemd service watchdog enabled")
		return nil
	}

	if interval <= minInterval {
		return fmt.Errorf("systemd watchdog timeout of %v should be at least %v", interval, minInterval)
	}
	n.interval = interval / 2

	log.Infof(ctx, "Pinging systemd service watchdog every %v", n.interval)
	return nil
}

// Interval returns the service watchdog ping interval, zero if disabled.
func (n *Notifier) Interval() time.Duration {
	return n.interval
}

// Ready tells the service manager that start up finished.
func (n *Notifier) Ready(ctx context.Context) {
	n.notify(ctx, false, daemon.SdNotifyReady)
}

// Status publishes a free-form status line.
func (n *Notifier) Status(ctx context.Context, status string) {
	n.notify(ctx, false, "STATUS="+status)
}

// Stopping tells the service manager that the daemon is shutting down. It is
// the last notification, NOTIFY_SOCKET is unset afterwards.
func (n *Notifier) Stopping(ctx context.Context) {
	n.notify(ctx, true, daemon.SdNotifyStopping)
}

// Ping feeds the service watchdog if it is enabled and at least half of its
// timeout passed since the last ping.
func (n *Notifier) Ping(ctx context.Context, now time.Time) {
	if n.interval == 0 || now.Sub(n.lastPing) < n.interval {
		return
	}
	if n.notify(ctx, false, daemon.SdNotifyWatchdog) {
		n.lastPing = now
	}
}

// Notifications returns the amount of sent notifications.
func (n *Notifier) Notifications() uint64 {
	return n.notifications.Load()
}

func (n *Notifier) notify(ctx context.Context, unsetEnvironment bool, state string) bool {
	gotAck, err := n.systemd.Notify(unsetEnvironment, state)
	if err != nil {
		log.Warnf(ctx, "Failed to notify systemd %q: %v", state, err)
		return false
	}
	if !gotAck {
		return false
	}
	n.notifications.Add(1)
	log.Debugf(ctx, "Systemd successfully notified: %s", state)
	return true
}
