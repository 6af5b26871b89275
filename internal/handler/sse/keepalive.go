package sse

import (
	"log/slog"
	"time"
)

// KeepAliveWriter is the write capability the keep-alive loop needs.
// Tests substitute an in-memory recorder for the live connection.
type KeepAliveWriter interface {
	// WriteKeepAlive writes one keep-alive comment. A non-nil error
	// means the connection is gone and the loop should stop.
	WriteKeepAlive() error
}

// TickerKeepAlive writes periodic keep-alive comments until stopped or
// until a write fails. Proxies between client and server drop idle
// connections, and a reasoning model can sit silent for longer than
// their timeouts.
type TickerKeepAlive struct {
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
}

// NewTickerKeepAlive creates a keep-alive loop with the given interval.
func NewTickerKeepAlive(interval time.Duration) *TickerKeepAlive {
	return &TickerKeepAlive{
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins writing keep-alives in a background goroutine. The
// returned channel closes when the loop terminates.
func (k *TickerKeepAlive) Start(writer KeepAliveWriter, logger *slog.Logger) <-chan struct{} {
	k.ticker = time.NewTicker(k.interval)
	stopChan := make(chan struct{})

	go func() {
		defer close(stopChan)
		defer k.ticker.Stop()

		for {
			select {
			case <-k.ticker.C:
				if err := writer.WriteKeepAlive(); err != nil {
					logger.Warn("keep-alive write failed, stopping",
						"error", err,
					)
					return
				}
			case <-k.done:
				return
			}
		}
	}()

	return stopChan
}

// Stop terminates the loop. Safe to call more than once.
func (k *TickerKeepAlive) Stop() {
	select {
	case <-k.done:
	default:
		close(k.done)
	}
}
