// Package stats derives rolling per-source statistics from the price log.
package stats

import (
	"context"
	"time"

	"github.com/Memetrix/holder-price-bot/internal/store"
	"github.com/Memetrix/holder-price-bot/internal/types"
)

// Reader is the slice of the store the aggregator needs.
type Reader interface {
	Query(ctx context.Context, source types.Source, since time.Time, limit int) ([]types.PriceRecord, error)
}

// Aggregator is stateless: every call is a pure function of store reads.
type Aggregator struct {
	reader Reader
	now    func() time.Time
}

func New(reader Reader) *Aggregator {
	return &Aggregator{reader: reader, now: time.Now}
}

// Stats computes high/low/change/volume for source over the trailing window.
// An empty window yields (nil, nil): absence of data is a result, not an
// error, and must never be rendered as zero.
func (a *Aggregator) Stats(ctx context.Context, source types.Source, window time.Duration) (*types.AggregateStats, error) {
	since := a.now().Add(-window)
	recs, err := a.reader.Query(ctx, source, since, store.HardLimit)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}

	// Query returns newest first.
	latest := recs[0]
	earliest := recs[len(recs)-1]

	out := &types.AggregateStats{
		Source:  source,
		Current: latest.PriceUSD,
		High:    latest.PriceUSD,
		Low:     latest.PriceUSD,
	}
	for _, r := range recs {
		if r.PriceUSD > out.High {
			out.High = r.PriceUSD
		}
		if r.PriceUSD < out.Low {
			out.Low = r.PriceUSD
		}
		// Exchanges report volume_24h as a trailing sum; take the newest
		// reported sample rather than re-summing deltas.
		if out.Volume == nil && r.Volume24h != nil {
			out.Volume = r.Volume24h
		}
	}
	if earliest.PriceUSD > 0 {
		out.Change = (latest.PriceUSD - earliest.PriceUSD) / earliest.PriceUSD * 100
	}
	return out, nil
}
