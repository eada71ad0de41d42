package syncer

import (
	"context"
	"errors"
	"time"
)

// ReconnectConfig bounds the backoff of the reconnect task.
type ReconnectConfig struct {
	BackoffMin time.Duration // first retry interval, e.g. 1s
	BackoffMax time.Duration // backoff ceiling, e.g. 60s
}

// DefaultReconnectConfig returns the standard 1s..60s backoff bounds.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		BackoffMin: 1 * time.Second,
		BackoffMax: 60 * time.Second,
	}
}

// RunReconnectLoop watches the connectivity signal until ctx is cancelled.
// While offline it polls with exponential backoff bounded by cfg; on an
// offline-to-online transition it replays the pending delete queue and runs
// a full push. While online it idles at BackoffMax between checks.
func (e *Engine) RunReconnectLoop(ctx context.Context, cfg ReconnectConfig) {
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = time.Second
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = cfg.BackoffMin
	}

	wait := cfg.BackoffMin
	wasOnline := e.online()

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		nowOnline := e.online()
		switch {
		case nowOnline && !wasOnline:
			e.logger.Info("connectivity restored")
			if err := e.ReplayPendingDeletes(ctx); err != nil {
				e.logger.Warn("pending delete replay incomplete", "error", err)
			}
			if err := e.PushAll(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) {
				e.logger.Warn("post-reconnect sync failed", "error", err)
			}
			wait = cfg.BackoffMax
		case nowOnline:
			wait = cfg.BackoffMax
		case wasOnline:
			// Just went offline; restart the backoff ladder.
			wait = cfg.BackoffMin
		default:
			// Still offline; back off.
			wait *= 2
			if wait > cfg.BackoffMax {
				wait = cfg.BackoffMax
			}
		}
		wasOnline = nowOnline
	}
}
