package transport

import "errors"

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	ErrPortWrite = errors.New("port_write")
	ErrPortRead  = errors.New("port_read")
	ErrPortWait  = errors.New("port_wait")
)
