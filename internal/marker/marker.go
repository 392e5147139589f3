// Package marker manages the filesystem flag recording that at least one
// client lease on the watchdog is outstanding.
//
// The marker is a directory, so external tooling can test for it with a
// plain existence check. A marker left behind by a previous run means that
// run exited while clients still held leases, and a new daemon must not
// start.
package marker

import (
	"errors"
	"fmt"
	"os"
)

// DefaultPath is where the daemon keeps its marker.
const DefaultPath = "/run/watchdog-mux.active"

// ErrPresent is returned by Check when a marker already exists.
var ErrPresent = errors.New("watchdog active - unable to restart watchdog-mux")

// Marker is the active marker at a fixed path.
type Marker struct {
	path string
}

// New returns the marker at path.
func New(path string) *Marker {
	return &Marker{path: path}
}

// Path returns the marker location.
func (m *Marker) Path() string {
	return m.path
}

// Exists reports whether the marker is present.
func (m *Marker) Exists() (bool, error) {
	if _, err := os.Stat(m.path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat active marker %s: %w", m.path, err)
	}
	return true, nil
}

// Check fails with ErrPresent if the marker exists.
func (m *Marker) Check() error {
	exists, err := m.Exists()
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s exists", ErrPresent, m.path)
	}
	return nil
}

// Ensure creates the marker. An existing marker is left untouched.
func (m *Marker) Ensure() error {
	if err := os.Mkdir(m.path, 0o600); err != nil && !os.IsExist(err) {
		return fmt.Errorf("create active marker %s: %w", m.path, err)
	}
	return nil
}

// Remove deletes the marker. A missing marker is not an error.
func (m *Marker) Remove() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove active marker %s: %w", m.path, err)
	}
	return nil
}
