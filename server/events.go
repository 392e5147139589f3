package server

import (
	"errors"
	"io"
	"net"
	"os"
)

const (
	// maxEvents bounds the number of events handled in one batch.
	maxEvents = 10

	// readBufferSize is the largest chunk read from a client at once.
	readBufferSize = 4096
)

type source int

const (
	sourceListener source = iota
	sourceSignal
	sourceClient
)

func (s source) String() string {
	switch s {
	case sourceListener:
		return "listener"
	case sourceSignal:
		return "signal"
	case sourceClient:
		return "client"
	}
	return "unknown"
}

// event is a readiness notification produced outside of the loop.
type event struct {
	source source

	// listener
	conn net.Conn

	// signal
	signal os.Signal

	// client
	slot   int
	data   []byte
	closed bool

	// listener or client failure
	err error
}

// emit hands ev to the loop. It returns false once the loop is gone.
func (s *Server) emit(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *Server) accept() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.emit(event{source: sourceListener, err: err})
			}
			return
		}
		if !s.emit(event{source: sourceListener, conn: conn}) {
			conn.Close()
			return
		}
	}
}

func (s *Server) forwardSignals() {
	for {
		select {
		case sig, ok := <-s.signals:
			if !ok {
				return
			}
			if !s.emit(event{source: sourceSignal, signal: sig}) {
				return
			}
		case <-s.done:
			return
		}
	}
}

// read forwards everything the client sends. The final event of a
// connection is always a closed one.
func (s *Server) read(slot int, conn net.Conn) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !s.emit(event{source: sourceClient, slot: slot, conn: conn, data: data}) {
				return
			}
		}
		if err != nil {
			ev := event{source: sourceClient, slot: slot, conn: conn, closed: true}
			if !errors.Is(err, io.EOF) {
				ev.err = err
			}
			s.emit(ev)
			return
		}
	}
}

// collect drains events already waiting behind first into one batch.
func (s *Server) collect(first event) []event {
	batch := make([]event, 0, maxEvents)
	batch = append(batch, first)
	for len(batch) < maxEvents {
		select {
		case ev := <-s.events:
			batch = append(batch, ev)
		default:
			return batch
		}
	}
	return batch
}
