package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kstaniek/uartctl/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"rx_bytes", snap.RxBytes,
					"rx_frames", snap.RxFrames,
					"tx_frames", snap.TxFrames,
					"tx_bytes", snap.TxBytes,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
