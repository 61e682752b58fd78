package frame

import (
	"bytes"

	"github.com/kstaniek/uartctl/internal/metrics"
)

// Wire delimiters, sent verbatim. There is no length field, no
// checksum and no escaping: a payload that itself contains End is
// ambiguous to a reader. Known protocol limitation.
var (
	Start = []byte("[UART_COM][START]")
	End   = []byte("[UART_COM][END]")
)

// Build wraps payload with the Start/End delimiters. An empty payload
// is valid and yields exactly Start ++ End.
func Build(payload []byte) []byte {
	f := make([]byte, 0, len(Start)+len(payload)+len(End))
	f = append(f, Start...)
	f = append(f, payload...)
	f = append(f, End...)
	return f
}

// IndexEnd returns the offset of the first End delimiter in buf, or -1.
// The scan covers the whole buffer so a delimiter that arrived split
// across reads is still found once both halves are present. Buffers
// shorter than the delimiter cannot contain it and are skipped cheaply.
func IndexEnd(buf []byte) int {
	if len(buf) < len(End) {
		return -1
	}
	return bytes.Index(buf, End)
}

// CompactBuffer reclaims consumed prefix capacity when underlying buffer
// grows too large relative to unread bytes. It returns true if compaction
// occurred. Thresholds chosen to avoid excessive copying.
func CompactBuffer(b *bytes.Buffer) bool {
	data := b.Bytes()
	// If buffer size < 1KB, skip.
	if len(data) < 1024 {
		return false
	}
	// If unread < 25% of capacity, compact.
	if cap(data) > 0 && len(data)*4 < cap(data) {
		clone := make([]byte, len(data))
		copy(clone, data)
		b.Reset()
		_, _ = b.Write(clone)
		return true
	}
	return false
}

// DecodeStream extracts complete Start..End frames from in and emits
// each payload via out. Bytes preceding a Start delimiter are line
// noise and are discarded; incomplete frames stay buffered until the
// next chunk arrives. It returns once no complete frame remains.
func DecodeStream(in *bytes.Buffer, out func(payload []byte)) {
	for {
		// Periodically compact to avoid unbounded growth from consumed noise.
		_ = CompactBuffer(in)
		data := in.Bytes()

		// align to the start delimiter
		i := bytes.Index(data, Start)
		if i < 0 {
			// Keep a delimiter-length tail in case Start arrived split
			// across this chunk and the next one.
			if keep := len(Start) - 1; in.Len() > keep {
				tail := append([]byte(nil), data[len(data)-keep:]...)
				in.Reset()
				_, _ = in.Write(tail)
			}
			return
		}
		if i > 0 {
			in.Next(i)
			continue
		}

		body := data[len(Start):]
		j := bytes.Index(body, End)
		if j < 0 {
			return // frame still incomplete
		}

		// Copy out: the slice aliases the buffer, which Next invalidates.
		payload := append([]byte(nil), body[:j]...)
		out(payload)
		metrics.IncRxFrames()
		in.Next(len(Start) + j + len(End))
	}
}
