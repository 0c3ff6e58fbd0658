// Package normalize converts venue-native quotes into the canonical
// USD-denominated PriceRecord.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/Memetrix/holder-price-bot/internal/types"
)

// CrossRate answers the latest quote-asset/USD rate and when it was fetched.
// Satisfied by rates.Cached.
type CrossRate interface {
	Last() (rate float64, at time.Time, ok bool)
}

// Normalizer applies either a direct USD quote or a two-hop conversion
// (native/quote-asset x quote-asset/USD) with a freshness bound on the cross
// rate.
type Normalizer struct {
	cross  CrossRate
	maxAge time.Duration
	now    func() time.Time
}

func New(cross CrossRate, maxAge time.Duration) *Normalizer {
	return &Normalizer{cross: cross, maxAge: maxAge, now: time.Now}
}

func usdStable(asset string) bool {
	switch strings.ToUpper(asset) {
	case "USD", "USDT", "USDC":
		return true
	}
	return false
}

// Normalize builds the canonical record. For non-USD quote assets every
// price-denominated field (price, 24h high/low, quote volume, liquidity) is
// converted through the cross rate. When the cross rate is older than the
// freshness bound it fails with ErrStaleCrossRate; the returned record still
// carries the native price for callers that can use it, but has no USD price
// and must not be persisted.
func (n *Normalizer) Normalize(q types.VenueQuote) (types.PriceRecord, error) {
	rec := types.PriceRecord{
		Source:    q.Source,
		Timestamp: q.Ts.UTC(),
	}

	if usdStable(q.QuoteAsset) {
		rec.PriceUSD = q.PriceNative
		rec.Volume24h = q.Volume24h
		rec.LiquidityUSD = q.LiquidityUSD
		rec.High24h = q.High24h
		rec.Low24h = q.Low24h
		return rec, nil
	}

	rec.PriceNative = types.Ptr(q.PriceNative)

	rate, at, ok := n.cross.Last()
	if !ok || n.now().Sub(at) > n.maxAge {
		age := time.Duration(0)
		if ok {
			age = n.now().Sub(at)
		}
		return rec, fmt.Errorf("%w: %s/USD age %s exceeds %s",
			types.ErrStaleCrossRate, q.QuoteAsset, age, n.maxAge)
	}

	rec.PriceUSD = q.PriceNative * rate
	rec.Volume24h = scaled(q.Volume24h, rate)
	rec.LiquidityUSD = scaled(q.LiquidityUSD, rate)
	rec.High24h = scaled(q.High24h, rate)
	rec.Low24h = scaled(q.Low24h, rate)
	return rec, nil
}

func scaled(p *float64, rate float64) *float64 {
	if p == nil {
		return nil
	}
	return types.Ptr(*p * rate)
}
