// Package watchdog wraps the hardware watchdog device and the systemd
// service notification protocol.
package watchdog

import (
	"errors"
	"fmt"
)

const (
	// DefaultDevicePath is the watchdog character device.
	DefaultDevicePath = "/dev/watchdog"

	// DefaultTimeout is the hardware timeout in seconds.
	DefaultTimeout = 10

	// MagicCloseChar disarms the watchdog when written right before the
	// device is closed.
	MagicCloseChar byte = 'V'
)

// ErrDeviceBusy is returned by Open when another process holds the device.
var ErrDeviceBusy = errors.New("watchdog device is already in use")

// Device is the exclusive handle on a hardware watchdog timer.
type Device interface {
	// Arm sets the hardware timeout in seconds.
	Arm(timeout int) error
	// Identify reads the driver identity.
	Identify() (*Identity, error)
	// Keepalive restarts the hardware countdown.
	Keepalive() error
	// MagicClose disarms the timer and releases the device. It is a no-op
	// on a closed device.
	MagicClose() error
}

// Opener acquires the watchdog device at path. When loadSoftdog is set and
// the device node is missing, the softdog module is loaded first.
type Opener func(path string, loadSoftdog bool) (Device, error)

// Identity describes the driver behind the device.
type Identity struct {
	Name            string
	FirmwareVersion uint32
	// Options is the WDIOF_* capability mask of the driver.
	Options uint32
}

func (i *Identity) String() string {
	return fmt.Sprintf("Watchdog driver '%s', version %x", i.Name, i.FirmwareVersion)
}
