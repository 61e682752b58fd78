package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"syscall"
	"time"

	"github.com/kstaniek/uartctl/internal/logging"
	"github.com/kstaniek/uartctl/internal/metrics"
	"github.com/kstaniek/uartctl/internal/port"
)

// Status classifies the outcome of ReadUntil.
type Status int

const (
	// StatusFound means the marker is present in the returned bytes.
	StatusFound Status = iota
	// StatusTimedOut means the deadline expired (or the peer closed the
	// stream) before the marker was seen. Partial data is returned; this
	// is a designed outcome for slow or silent devices, not an error.
	StatusTimedOut
	// StatusIOError means a non-recoverable read or readiness-wait
	// failure. Bytes accumulated before the failure are still returned.
	StatusIOError
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "io_error"
	}
}

// ReadUntil accumulates bytes from c until marker appears anywhere in
// the accumulated stream or timeout elapses. The deadline is fixed at
// entry; each iteration waits for readability for the remaining budget
// only, so a drip-feeding device cannot extend the overall wait. All
// accumulated bytes are returned in every outcome, including anything
// received after the marker — callers decide what to do with trailing
// bytes. A zero timeout returns immediately without waiting.
//
// A read of 0 bytes with no error means end of stream and terminates
// the accumulation gracefully, like a timeout. EINTR anywhere and
// EAGAIN on the read are absorbed and retried; the marker scan covers
// the whole buffer after every append, so a marker split across reads
// is detected once both halves are present.
func ReadUntil(c port.Conn, marker []byte, timeout time.Duration) ([]byte, Status, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 0, readChunkSize)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			metrics.IncReadTimeout()
			logging.L().Debug("read_timeout", "accumulated", len(buf))
			return buf, StatusTimedOut, nil
		}
		ready, err := c.WaitReadable(remaining)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			metrics.IncError(metrics.ErrPortWait)
			return buf, StatusIOError, fmt.Errorf("%w: %v", ErrPortWait, err)
		}
		if !ready {
			metrics.IncReadTimeout()
			logging.L().Debug("read_timeout", "accumulated", len(buf))
			return buf, StatusTimedOut, nil
		}

		// Keep one chunk of headroom: double the capacity, or extend by
		// the chunk size when doubling is not enough. Never shrinks.
		if cap(buf)-len(buf) < readChunkSize {
			newCap := 2 * cap(buf)
			if newCap < len(buf)+readChunkSize {
				newCap = len(buf) + readChunkSize
			}
			grown := make([]byte, len(buf), newCap)
			copy(grown, buf)
			buf = grown
		}

		n, err := c.Read(buf[len(buf):cap(buf)])
		if n > 0 {
			metrics.AddRxBytes(n)
			buf = buf[:len(buf)+n]
			if len(buf) >= len(marker) && bytes.Contains(buf, marker) {
				logging.L().Debug("marker_found", "accumulated", len(buf), "offset", bytes.Index(buf, marker))
				return buf, StatusFound, nil
			}
			continue
		}
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
				// Defensive: readiness was just signaled, but a raced
				// consumer or tty quirk can still leave nothing to read.
				metrics.IncWouldBlock()
				sleepFn(retryDelay)
				continue
			}
			if errors.Is(err, io.EOF) {
				logging.L().Debug("read_eof", "accumulated", len(buf))
				return buf, StatusTimedOut, nil
			}
			metrics.IncError(metrics.ErrPortRead)
			return buf, StatusIOError, fmt.Errorf("%w: %v", ErrPortRead, err)
		}
		// 0 bytes, no error: peer closed the stream.
		logging.L().Debug("read_eof", "accumulated", len(buf))
		return buf, StatusTimedOut, nil
	}
}
