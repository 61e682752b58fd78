// Package port opens serial devices and abstracts them behind small
// interfaces so the framed transport can be tested without hardware.
package port

import (
	"time"

	"github.com/tarm/serial"
)

// Conn is the handle the framed transport drives: a readable/writable
// byte stream already configured for raw 8N1, plus a consumption-free
// readiness wait and an output drain. OpenRaw returns one on supported
// platforms.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	// WaitReadable blocks until data is available to read or d elapses.
	// It returns false on timeout and never consumes stream bytes.
	WaitReadable(d time.Duration) (bool, error)
	// Drain blocks until queued output has been physically transmitted.
	Drain() error
}

// Port abstracts tarm/serial for testability.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Open opens a timed-read port via tarm/serial: reads block for up to
// readTimeout and return with whatever arrived. The responder daemon
// uses this portable path; the client uses OpenRaw.
func Open(name string, baud int, readTimeout time.Duration) (Port, error) {
	cfg := &serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout}
	return serial.OpenPort(cfg)
}
