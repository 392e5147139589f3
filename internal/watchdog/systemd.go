package watchdog

import (
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Systemd is the part of the service manager protocol watchdog-mux talks.
type Systemd interface {
	// WatchdogEnabled returns the service watchdog timeout of this unit,
	// zero if the service watchdog is disabled or meant for another PID.
	WatchdogEnabled() (time.Duration, error)

	// Notify sends state over NOTIFY_SOCKET and reports whether it was
	// delivered. With unsetEnvironment the socket variable is dropped
	// afterwards so that no later message reaches the service manager.
	Notify(unsetEnvironment bool, state string) (bool, error)
}

type serviceManager struct{}

// DefaultSystemd returns the Systemd talking to the real service manager.
func DefaultSystemd() Systemd {
	return serviceManager{}
}

func (serviceManager) WatchdogEnabled() (time.Duration, error) {
	return daemon.SdWatchdogEnabled(false)
}

func (serviceManager) Notify(unsetEnvironment bool, state string) (bool, error) {
	return daemon.SdNotify(unsetEnvironment, state)
}
