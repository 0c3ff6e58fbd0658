// Package rates supplies the quote-asset/USD cross rate used to convert
// non-USD-denominated venue prices (TON-quoted pools) into USD.
package rates

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Memetrix/holder-price-bot/internal/types"
)

// Provider fetches the current quote-asset/USD rate from one upstream.
type Provider interface {
	Rate(ctx context.Context) (float64, error)
}

// Cached wraps a Provider and remembers the last good rate with its fetch
// time. Consumers decide freshness themselves; compounding a stale cross
// rate into every derived price is the failure mode this guards.
type Cached struct {
	provider Provider
	log      *zap.Logger

	mu   sync.RWMutex
	rate float64
	at   time.Time
}

func NewCached(p Provider, log *zap.Logger) *Cached {
	return &Cached{provider: p, log: log}
}

// Refresh fetches a new rate, keeping the previous value on failure.
func (c *Cached) Refresh(ctx context.Context) error {
	rate, err := c.provider.Rate(ctx)
	if err != nil {
		return err
	}
	if !(rate > 0) {
		return fmt.Errorf("%w: cross rate %v", types.ErrMalformedResponse, rate)
	}
	c.mu.Lock()
	c.rate, c.at = rate, time.Now().UTC()
	c.mu.Unlock()
	return nil
}

// Last returns the most recent rate and when it was fetched; ok is false
// until the first successful Refresh.
func (c *Cached) Last() (rate float64, at time.Time, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rate, c.at, !c.at.IsZero()
}

// Run refreshes on a fixed interval until ctx is done. The first refresh
// happens immediately so normalization can start without waiting a full tick.
func (c *Cached) Run(ctx context.Context, interval time.Duration) {
	if err := c.Refresh(ctx); err != nil {
		c.log.Warn("cross rate: initial refresh failed", zap.Error(err))
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := c.Refresh(ctx); err != nil {
				c.log.Warn("cross rate: refresh failed, keeping previous", zap.Error(err))
			}
		}
	}
}
