//go:build linux
// +build linux

package watchdog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// SupportsMagicClose reports whether the driver disarms on the magic close
// character. Without it a clean exit still leaves the timer running.
func (i *Identity) SupportsMagicClose() bool {
	return i.Options&unix.WDIOF_MAGICCLOSE != 0
}

type hardwareDevice struct {
	path string
	file *os.File
}

// Open acquires the watchdog device at path for writing. The kernel driver
// allows a single open, so a busy device means another daemon owns it.
func Open(path string, loadSoftdog bool) (Device, error) {
	if _, err := os.Stat(path); err != nil && loadSoftdog {
		// Debug options belong in modprobe.d, e.g.
		// "options softdog soft_noboot=1".
		if out, err := exec.Command("modprobe", "-q", "softdog").CombinedOutput(); err != nil {
			logrus.Warnf("Unable to load softdog module: %v: %s", err, bytes.TrimSpace(out))
		}
	}

	file, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if errors.Is(err, unix.EBUSY) {
			return nil, fmt.Errorf("watchdog open %s: %w", path, ErrDeviceBusy)
		}
		return nil, fmt.Errorf("watchdog open: %w", err)
	}

	return &hardwareDevice{path: path, file: file}, nil
}

func (d *hardwareDevice) fd() (int, error) {
	if d.file == nil {
		return -1, fmt.Errorf("watchdog %s: %w", d.path, os.ErrClosed)
	}
	return int(d.file.Fd()), nil
}

func (d *hardwareDevice) Arm(timeout int) error {
	fd, err := d.fd()
	if err != nil {
		return err
	}
	if err := unix.IoctlSetPointerInt(fd, unix.WDIOC_SETTIMEOUT, timeout); err != nil {
		return fmt.Errorf("watchdog set timeout: %w", err)
	}
	return nil
}

func (d *hardwareDevice) Identify() (*Identity, error) {
	fd, err := d.fd()
	if err != nil {
		return nil, err
	}
	info, err := unix.IoctlGetWatchdogInfo(fd)
	if err != nil {
		return nil, fmt.Errorf("read watchdog info: %w", err)
	}

	name := info.Identity[:]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return &Identity{
		Name:            string(name),
		FirmwareVersion: info.Version,
		Options:         info.Options,
	}, nil
}

func (d *hardwareDevice) Keepalive() error {
	fd, err := d.fd()
	if err != nil {
		return err
	}
	if err := unix.IoctlWatchdogKeepalive(fd); err != nil {
		return fmt.Errorf("watchdog update failed: %w", err)
	}
	return nil
}

func (d *hardwareDevice) MagicClose() error {
	if d.file == nil {
		return nil
	}
	file := d.file
	d.file = nil

	var errs []error
	if _, err := file.Write([]byte{MagicCloseChar}); err != nil {
		errs = append(errs, fmt.Errorf("write magic watchdog close: %w", err))
	}
	if err := file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close watchdog: %w", err))
	}
	return errors.Join(errs...)
}
