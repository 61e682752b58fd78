// Command uartctl sends one framed command to a serial device and
// prints the reply. The command is wrapped with the wire delimiters,
// written in full and drained; the response is accumulated until the
// end marker appears or the timeout elapses. A timed-out exchange
// still prints whatever partial bytes arrived.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kstaniek/uartctl/internal/frame"
	"github.com/kstaniek/uartctl/internal/metrics"
	"github.com/kstaniek/uartctl/internal/port"
	"github.com/kstaniek/uartctl/internal/transport"
)

func main() { os.Exit(run()) }

func run() int {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("uartctl %s (commit %s, built %s)\n", version, commit, date)
		return exitOK
	}
	if cfg == nil {
		return exitUsage
	}
	l, closeLog := setupLogger(cfg)
	defer func() { _ = closeLog.Close() }()
	metrics.InitBuildInfo(version, commit, date)

	conn, err := port.OpenRaw(cfg.device, cfg.baud)
	if err != nil {
		metrics.IncError(metrics.ErrPortOpen)
		l.Error("serial_open_error", "device", cfg.device, "error", err)
		return exitFailure
	}
	defer func() { _ = conn.Close() }()
	l.Info("serial_open", "device", cfg.device, "baud", cfg.baud)

	if _, err := transport.SendFrame(conn, []byte(cfg.command)); err != nil {
		l.Error("command_send_error", "error", err)
		return exitFailure
	}
	l.Info("command_sent", "command", cfg.command, "timeout", cfg.timeout)

	data, status, err := transport.ReadUntil(conn, frame.End, cfg.timeout)
	code := exitOK
	switch status {
	case transport.StatusFound:
		l.Info("response_complete", "bytes", len(data), "marker_at", frame.IndexEnd(data))
		writeResponse(l, data)
	case transport.StatusTimedOut:
		// Partial output for a slow or silent device is a designed
		// outcome, not a failure.
		l.Warn("response_partial", "bytes", len(data), "timeout", cfg.timeout)
		writeResponse(l, data)
	case transport.StatusIOError:
		l.Error("response_read_error", "error", err, "partial_bytes", len(data))
		code = exitFailure
	}

	if cfg.logMetrics {
		snap := metrics.Snap()
		l.Info("metrics_snapshot",
			"tx_frames", snap.TxFrames,
			"tx_bytes", snap.TxBytes,
			"rx_bytes", snap.RxBytes,
			"read_timeouts", snap.ReadTimeouts,
			"would_block_retries", snap.WouldBlockRetries,
			"errors", snap.Errors,
		)
	}
	return code
}

// writeResponse copies the device reply verbatim to stdout; diagnostics
// stay on the logger so the payload remains pipeable.
func writeResponse(l *slog.Logger, data []byte) {
	if len(data) == 0 {
		return
	}
	if _, err := os.Stdout.Write(data); err != nil {
		l.Error("stdout_write_error", "error", err)
	}
}
