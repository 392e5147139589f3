// Package signals turns process signals into events the daemon loop can
// select on next to its socket events.
package signals

import (
	"os"
	"os/signal"
)

// bufferSize is large enough that a burst of signals delivered while the
// loop dispatches a batch is not dropped by os/signal.
const bufferSize = 16

// Channel carries termination (SIGINT, SIGTERM) and reload (SIGHUP)
// notifications. It must be stopped once the loop no longer reads from it.
type Channel struct {
	c chan os.Signal
}

// Notify redirects the termination and reload signals into a new Channel.
// Until Stop is called the default actions for these signals are disabled.
func Notify() *Channel {
	c := make(chan os.Signal, bufferSize)
	signal.Notify(c, Interrupt, Term, Hup)
	return &Channel{c: c}
}

// C returns the receive side of the channel.
func (c *Channel) C() <-chan os.Signal {
	return c.c
}

// Stop restores the default signal handling.
func (c *Channel) Stop() {
	signal.Stop(c.c)
}

// IsReload reports whether sig is the reload-class signal, which the daemon
// logs and otherwise ignores.
func IsReload(sig os.Signal) bool {
	return sig == Hup
}
