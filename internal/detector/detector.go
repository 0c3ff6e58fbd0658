// Package detector flags cross-venue arbitrage opportunities from the
// current snapshot set. Output is advisory: fees and slippage are not
// modeled, and consumers must say so.
package detector

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/Memetrix/holder-price-bot/internal/config"
	"github.com/Memetrix/holder-price-bot/internal/metrics"
	"github.com/Memetrix/holder-price-bot/internal/types"
)

// Detect evaluates every ordered pair of distinct sources with fresh
// snapshots and returns the single best buy-low/sell-high opportunity, or
// nil when nothing clears minProfit. Two snapshots whose timestamps diverge
// beyond staleness are never compared: a live price against a ten-minute-old
// one produces a phantom opportunity.
func Detect(snap types.Snapshot, now time.Time, minProfit float64, staleness time.Duration) *types.Opportunity {
	var best *types.Opportunity

	for _, buy := range types.AllSources() {
		if !snap.Fresh(buy, now, staleness) {
			continue
		}
		for _, sell := range types.AllSources() {
			if sell == buy || !snap.Fresh(sell, now, staleness) {
				continue
			}
			b, s := snap[buy], snap[sell]
			if b.PriceUSD <= 0 || s.PriceUSD <= 0 {
				continue
			}
			if absDuration(b.Timestamp.Sub(s.Timestamp)) > staleness {
				continue
			}
			profit := (s.PriceUSD - b.PriceUSD) / b.PriceUSD * 100
			if best == nil || profit > best.ProfitPercent {
				best = &types.Opportunity{
					BuyOn:         buy,
					SellOn:        sell,
					BuyPrice:      b.PriceUSD,
					SellPrice:     s.PriceUSD,
					ProfitPercent: profit,
					Ts:            now,
				}
			}
		}
	}

	if best == nil || best.ProfitPercent < minProfit {
		return nil
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// SnapshotSource is the slice of the cache the run loop needs.
type SnapshotSource interface {
	All() types.Snapshot
}

// Run re-evaluates the snapshot set on a fixed tick and emits opportunities.
// It never touches the network; a tick is a pure read of already-fetched
// state.
func Run(ctx context.Context, cfg *config.Config, snaps SnapshotSource, out chan<- types.Opportunity, log *zap.Logger) {
	t := time.NewTicker(cfg.DetectorTick())
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			opp := Detect(snaps.All(), time.Now().UTC(), cfg.Arbitrage.MinProfitPercent, cfg.StalenessBound())
			if opp == nil {
				metrics.ArbProfitPercent.Set(0)
				continue
			}
			metrics.ArbProfitPercent.Set(opp.ProfitPercent)
			metrics.ArbOpportunities.Inc()
			log.Info("arbitrage opportunity",
				zap.String("buy_on", string(opp.BuyOn)),
				zap.String("sell_on", string(opp.SellOn)),
				zap.Float64("buy_price", opp.BuyPrice),
				zap.Float64("sell_price", opp.SellPrice),
				zap.Float64("profit_percent", math.Round(opp.ProfitPercent*100)/100),
			)
			select {
			case out <- *opp:
			default:
				log.Warn("detector: opportunity channel full; dropping")
			}
		}
	}
}
