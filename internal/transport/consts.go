package transport

import "time"

const (
	// readChunkSize is the per-iteration read request size and the
	// initial capacity of the accumulation buffer.
	readChunkSize = 512
	// retryDelay bounds the busy-spin on EAGAIN/EWOULDBLOCK retries.
	retryDelay = time.Millisecond
)

// sleepFn allows tests to intercept retry sleeps.
var sleepFn = time.Sleep
