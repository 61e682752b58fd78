package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/kstaniek/uartctl/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters
var (
	TxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uart_tx_frames_total",
		Help: "Total framed commands written to the serial link.",
	})
	TxBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uart_tx_bytes_total",
		Help: "Total bytes written to the serial link, delimiters included.",
	})
	RxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uart_rx_frames_total",
		Help: "Total complete frames decoded from the serial link.",
	})
	RxBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uart_rx_bytes_total",
		Help: "Total bytes read from the serial link.",
	})
	ReadTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uart_read_timeouts_total",
		Help: "Total reads that ended on deadline before an end marker was seen.",
	})
	WouldBlockRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uart_would_block_retries_total",
		Help: "Total EAGAIN/EWOULDBLOCK retries absorbed by the transport.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrPortOpen  = "port_open"
	ErrPortWrite = "port_write"
	ErrPortRead  = "port_read"
	ErrPortWait  = "port_wait"
	ErrPortDrain = "port_drain"
)

// StartHTTP serves Prometheus metrics at /metrics on the given address.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for easy logging (avoid Prometheus scraping in-process)
var (
	localTxFrames   uint64
	localTxBytes    uint64
	localRxFrames   uint64
	localRxBytes    uint64
	localTimeouts   uint64
	localWouldBlock uint64
	localErrors     uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	TxFrames          uint64
	TxBytes           uint64
	RxFrames          uint64
	RxBytes           uint64
	ReadTimeouts      uint64
	WouldBlockRetries uint64
	Errors            uint64 // sum across error labels
}

func Snap() Snapshot {
	return Snapshot{
		TxFrames:          atomic.LoadUint64(&localTxFrames),
		TxBytes:           atomic.LoadUint64(&localTxBytes),
		RxFrames:          atomic.LoadUint64(&localRxFrames),
		RxBytes:           atomic.LoadUint64(&localRxBytes),
		ReadTimeouts:      atomic.LoadUint64(&localTimeouts),
		WouldBlockRetries: atomic.LoadUint64(&localWouldBlock),
		Errors:            atomic.LoadUint64(&localErrors),
	}
}

// Wrapper helpers to keep call sites simple.
func IncTxFrames() {
	TxFrames.Inc()
	atomic.AddUint64(&localTxFrames, 1)
}

func AddTxBytes(n int) {
	TxBytes.Add(float64(n))
	atomic.AddUint64(&localTxBytes, uint64(n))
}

func IncRxFrames() {
	RxFrames.Inc()
	atomic.AddUint64(&localRxFrames, 1)
}

func AddRxBytes(n int) {
	RxBytes.Add(float64(n))
	atomic.AddUint64(&localRxBytes, uint64(n))
}

func IncReadTimeout() {
	ReadTimeouts.Inc()
	atomic.AddUint64(&localTimeouts, 1)
}

func IncWouldBlock() {
	WouldBlockRetries.Inc()
	atomic.AddUint64(&localWouldBlock, 1)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	// Pre-register the error label series so the first error does not pay
	// registration latency.
	for _, lbl := range []string{
		ErrPortOpen, ErrPortWrite, ErrPortRead, ErrPortWait, ErrPortDrain,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil { // if not set yet, treat as ready so metrics endpoint doesn't flap
		return true
	}
	return fn()
}
