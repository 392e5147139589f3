package server

import (
	"sync"
)

// State is the lifecycle phase of the daemon loop.
type State int

const (
	// StateInit covers start up until the loop serves clients.
	StateInit State = iota

	// StateServing dispatches client events and refreshes the watchdog.
	StateServing

	// StateDraining is entered once watchdog updates are disabled. Nothing
	// is dispatched anymore and the next event ends the loop.
	StateDraining

	// StateTerminated is final.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateServing:
		return "serving"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// Snapshot is a consistent view of the loop state, published by the loop
// after every batch and tick.
type Snapshot struct {
	State             State
	UpdatesEnabled    bool
	ActiveClients     int
	Capacity          int
	Keepalives        uint64
	KeepaliveFailures uint64
	Accepted          uint64
	Rejected          uint64
	Reads             uint64
	Expirations       uint64
	Notifications     uint64
}

type snapshotStore struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

func (s *snapshotStore) load() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *snapshotStore) store(snapshot Snapshot) {
	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()
}
