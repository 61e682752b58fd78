// Package transport implements the framed send/receive protocol over a
// serial byte stream: outbound payloads are wrapped with the wire
// delimiters and written in full; inbound bytes are accumulated until
// the end marker appears or a wall-clock deadline expires.
package transport

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/kstaniek/uartctl/internal/frame"
	"github.com/kstaniek/uartctl/internal/logging"
	"github.com/kstaniek/uartctl/internal/metrics"
	"github.com/kstaniek/uartctl/internal/port"
)

// SendFrame wraps payload with the wire delimiters and writes the whole
// frame to c. Partial writes continue on the unwritten tail; EINTR
// retries immediately and EAGAIN backs off for retryDelay. The call
// returns only after the output path has drained, so the frame is on
// the wire, not merely queued; a drain failure is logged as a warning
// and does not fail the send. An empty payload is valid and transmits
// exactly the two delimiters.
func SendFrame(c port.Conn, payload []byte) (int, error) {
	f := frame.Build(payload)
	logging.L().Debug("frame_tx_attempt", "payload_len", len(payload), "frame_len", len(f))
	written := 0
	for written < len(f) {
		n, err := c.Write(f[written:])
		if n > 0 {
			written += n
		}
		if err == nil {
			continue
		}
		if errors.Is(err, syscall.EINTR) {
			continue
		}
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			metrics.IncWouldBlock()
			sleepFn(retryDelay)
			continue
		}
		metrics.IncError(metrics.ErrPortWrite)
		wrap := fmt.Errorf("%w: %v", ErrPortWrite, err)
		logging.L().Error("frame_tx_error", "error", wrap, "written", written, "remaining", len(f)-written)
		return written, wrap
	}
	if err := c.Drain(); err != nil {
		metrics.IncError(metrics.ErrPortDrain)
		logging.L().Warn("serial_drain_failed", "error", err)
	}
	metrics.IncTxFrames()
	metrics.AddTxBytes(written)
	logging.L().Debug("frame_tx", "bytes", written)
	return written, nil
}
