//go:build !linux

package port

import "fmt"

// Placeholder so non-linux builds compile; raw readiness-wait serial
// I/O is linux only. The tarm/serial path in Open remains available.
func OpenRaw(path string, baud int) (Conn, error) {
	return nil, fmt.Errorf("raw serial port unsupported on this platform")
}
