// Command uart-echod is a framed-command responder for bench rigs: it
// opens a serial port (typically one end of a null-modem or pty pair),
// extracts Start..End framed commands from the inbound stream and
// answers each one with the command payload terminated by the end
// marker. It is the integration-test peer for uartctl.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kstaniek/uartctl/internal/frame"
	"github.com/kstaniek/uartctl/internal/logging"
	"github.com/kstaniek/uartctl/internal/metrics"
	"github.com/kstaniek/uartctl/internal/port"
)

const (
	serialReadBufSize = 4096 // per read() buffer
	// largeBufferReclaimThreshold is the capacity above which the RX
	// accumulation buffer is discarded and reallocated once empty, so a
	// burst of line noise cannot permanently retain a large backing array.
	largeBufferReclaimThreshold = 16 * 1024
	rxBackoffMin                = 20 * time.Millisecond
	rxBackoffMax                = 500 * time.Millisecond
)

// sleepFn allows tests to intercept backoff sleeps.
var sleepFn = time.Sleep

// openPort is a hook for tests (overridden in unit tests).
var openPort = port.Open

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("uart-echod %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(2)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	sp, err := openPort(cfg.serialDev, cfg.baud, cfg.readTO)
	if err != nil {
		metrics.IncError(metrics.ErrPortOpen)
		l.Error("serial_open_error", "device", cfg.serialDev, "error", err)
		os.Exit(1)
	}
	l.Info("serial_open", "device", cfg.serialDev, "baud", cfg.baud)

	metrics.SetReadinessFunc(func() bool { return ctx.Err() == nil })
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer l.Info("responder_end")
		runResponder(ctx, sp, l)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	_ = sp.Close()
	wg.Wait()
}

// runResponder accumulates inbound bytes, extracts framed commands and
// replies to each. Read errors back off exponentially; EOF from a timed
// read is the idle condition, not an error.
func runResponder(ctx context.Context, sp port.Port, l *slog.Logger) {
	buf := make([]byte, serialReadBufSize)
	acc := bytes.NewBuffer(nil)
	backoff := rxBackoffMin
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := sp.Read(buf)
		if n > 0 {
			metrics.AddRxBytes(n)
			acc.Write(buf[:n])
			frame.DecodeStream(acc, func(payload []byte) { respond(sp, payload, l) })
			if acc.Len() == 0 && cap(acc.Bytes()) > largeBufferReclaimThreshold {
				acc = bytes.NewBuffer(nil)
			}
			backoff = rxBackoffMin
		}
		if err != nil {
			if ctx.Err() != nil { // shutting down
				return
			}
			var perr *os.PathError
			if errors.As(err, &perr) {
				return // device removed or fatal
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				continue // timed read with nothing pending
			}
			metrics.IncError(metrics.ErrPortRead)
			l.Warn("serial_read_error", "error", err, "backoff", backoff)
			sleepFn(backoff)
			backoff *= 2
			if backoff > rxBackoffMax {
				backoff = rxBackoffMax
			}
		}
	}
}

// respond echoes the command payload back, terminated by the end marker.
func respond(sp port.Port, payload []byte, l *slog.Logger) {
	reply := make([]byte, 0, len(payload)+len(frame.End))
	reply = append(reply, payload...)
	reply = append(reply, frame.End...)
	if _, err := sp.Write(reply); err != nil {
		metrics.IncError(metrics.ErrPortWrite)
		l.Error("reply_write_error", "error", err)
		return
	}
	metrics.IncTxFrames()
	metrics.AddTxBytes(len(reply))
	l.Debug("reply_sent", "command", string(payload), "bytes", len(reply))
}

func setupLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	l := logging.New(format, lvl, os.Stderr).With("app", "uart-echod")
	logging.Set(l)
	return l
}
