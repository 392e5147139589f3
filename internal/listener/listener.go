// Package listener resolves the socket the daemon accepts clients on: either
// a descriptor handed over by systemd socket activation or a unix socket the
// daemon creates itself.
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/coreos/go-systemd/v22/activation"
	"golang.org/x/sys/unix"

	"github.com/watchdog-mux/watchdog-mux/internal/log"
)

const (
	// DefaultPath is the well-known socket path.
	DefaultPath = "/run/watchdog-mux.sock"

	// Backlog is the listen backlog of a self-created socket. The systemd
	// socket unit uses the same value.
	Backlog = 32
)

// ErrTooManyListeners is returned when socket activation passes more than
// one descriptor.
var ErrTooManyListeners = errors.New("too many file descriptors received")

// FilesFunc returns the descriptors passed by the service manager.
type FilesFunc func() []*os.File

// ActivationFiles returns the socket-activated descriptors and unsets the
// LISTEN_* environment so children do not inherit them.
func ActivationFiles() []*os.File {
	return activation.Files(true)
}

// Listener is the daemon's accepting socket.
type Listener struct {
	net.Listener
	path    string
	created bool
}

// Resolve returns a listener for path. With no activated descriptor the
// socket is created, with exactly one it is used as is, and more than one
// is an error.
func Resolve(ctx context.Context, path string, files FilesFunc) (*Listener, error) {
	var activated []*os.File
	if files != nil {
		activated = files()
	}

	switch len(activated) {
	case 0:
		l, err := Listen(path)
		if err != nil {
			return nil, err
		}
		log.Infof(ctx, "Listening on %s", path)
		return &Listener{Listener: l, path: path, created: true}, nil

	case 1:
		f := activated[0]
		defer f.Close()
		l, err := net.FileListener(f)
		if err != nil {
			return nil, fmt.Errorf("use activated socket %s: %w", f.Name(), err)
		}
		log.Infof(ctx, "Using socket activated listener %s", l.Addr())
		return &Listener{Listener: l, path: l.Addr().String()}, nil

	default:
		for _, f := range activated {
			f.Close()
		}
		return nil, fmt.Errorf("%w: %d", ErrTooManyListeners, len(activated))
	}
}

// Listen removes a stale socket at path and creates a new unix stream
// socket listening with Backlog.
func Listen(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	file := os.NewFile(uintptr(fd), path)
	defer file.Close()

	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		return nil, fmt.Errorf("socket bind %s: %w", path, err)
	}
	if err := unix.Listen(fd, Backlog); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("socket listen %s: %w", path, err)
	}

	l, err := net.FileListener(file)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("socket listen %s: %w", path, err)
	}
	return l, nil
}

// Created reports whether the daemon created the socket file itself.
func (l *Listener) Created() bool {
	return l.created
}

// Path returns the socket path the daemon listens on. For an activated
// descriptor this is the path the service manager bound.
func (l *Listener) Path() string {
	return l.path
}

// Close stops listening. The socket file is removed only if the daemon
// created it; an activated socket belongs to the service manager.
func (l *Listener) Close() error {
	err := l.Listener.Close()
	if l.created {
		if rerr := os.Remove(l.path); rerr != nil && !os.IsNotExist(rerr) && err == nil {
			err = rerr
		}
	}
	return err
}
