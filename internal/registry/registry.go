// Package registry tracks the clients holding a lease on the watchdog in a
// fixed-capacity pool of slots.
package registry

import (
	"errors"
	"net"
	"time"
)

const (
	// DefaultCapacity is the number of client slots in the pool.
	DefaultCapacity = 100

	// ReleaseByte is the byte a client sends as its last byte before
	// disconnecting to release its lease cleanly.
	ReleaseByte byte = 'V'
)

// ErrCapacityExceeded is returned by Acquire when every slot is in use.
var ErrCapacityExceeded = errors.New("client registry capacity exceeded")

// Slot is a single client lease.
type Slot struct {
	id             int
	conn           net.Conn
	lastActivity   time.Time
	pendingRelease bool
	disconnected   bool
}

// ID returns the index of the slot in its registry.
func (s *Slot) ID() int {
	return s.id
}

// Conn returns the client connection held by the slot, or nil for a free
// slot.
func (s *Slot) Conn() net.Conn {
	return s.conn
}

// LastActivity returns the time the client was accepted or last sent data.
func (s *Slot) LastActivity() time.Time {
	return s.lastActivity
}

// PendingRelease reports whether the last byte the client sent was the
// release byte.
func (s *Slot) PendingRelease() bool {
	return s.pendingRelease
}

// Disconnected reports whether the client went away without releasing its
// lease. Such a slot stays active for the rest of the run.
func (s *Slot) Disconnected() bool {
	return s.disconnected
}

// Active reports whether the slot counts as an outstanding lease.
func (s *Slot) Active() bool {
	return s.conn != nil && !s.lastActivity.IsZero()
}

// Touch records data received from the client at now. Only the last byte
// decides the release intent; earlier bytes of the same read are ignored.
func (s *Slot) Touch(data []byte, now time.Time) {
	for _, b := range data {
		s.pendingRelease = b == ReleaseByte
	}
	s.lastActivity = now
}

// Silence returns how long the client has been quiet at now.
func (s *Slot) Silence(now time.Time) time.Duration {
	return now.Sub(s.lastActivity)
}

// Disconnect closes the client connection while keeping the lease
// outstanding. It is used when a client goes away without releasing.
func (s *Slot) Disconnect() error {
	if s.disconnected || s.conn == nil {
		return nil
	}
	s.disconnected = true
	return s.conn.Close()
}

func (s *Slot) reset() {
	*s = Slot{id: s.id}
}

// Registry is a fixed pool of client slots. It is not safe for concurrent
// use; the daemon loop is its only user.
type Registry struct {
	slots []Slot
}

// New creates a registry with the given number of slots.
func New(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	r := &Registry{slots: make([]Slot, capacity)}
	for i := range r.slots {
		r.slots[i].id = i
	}
	return r
}

// Capacity returns the number of slots in the pool.
func (r *Registry) Capacity() int {
	return len(r.slots)
}

// Acquire stores conn in the first free slot.
func (r *Registry) Acquire(conn net.Conn, now time.Time) (*Slot, error) {
	for i := range r.slots {
		slot := &r.slots[i]
		if slot.conn == nil {
			slot.conn = conn
			slot.lastActivity = now
			slot.pendingRelease = false
			slot.disconnected = false
			return slot, nil
		}
	}
	return nil, ErrCapacityExceeded
}

// Release frees the slot. Releasing a free slot or nil is a no-op.
func (r *Registry) Release(slot *Slot) {
	if slot == nil {
		return
	}
	slot.reset()
}

// Slot returns the slot with the given id, or nil if it is out of range.
func (r *Registry) Slot(id int) *Slot {
	if id < 0 || id >= len(r.slots) {
		return nil
	}
	return &r.slots[id]
}

// ActiveCount returns the number of outstanding leases.
func (r *Registry) ActiveCount() int {
	count := 0
	for i := range r.slots {
		if r.slots[i].Active() {
			count++
		}
	}
	return count
}

// Active returns all slots holding an outstanding lease.
func (r *Registry) Active() []*Slot {
	var active []*Slot
	for i := range r.slots {
		if r.slots[i].Active() {
			active = append(active, &r.slots[i])
		}
	}
	return active
}

// Expired returns the active slots that have been silent for longer than
// grace at now.
func (r *Registry) Expired(now time.Time, grace time.Duration) []*Slot {
	var expired []*Slot
	for _, slot := range r.Active() {
		if slot.Silence(now) > grace {
			expired = append(expired, slot)
		}
	}
	return expired
}
