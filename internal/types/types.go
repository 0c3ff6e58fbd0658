package types

import "time"

// Source identifies a price venue. The set is closed: two STON.fi pools and
// the WEEX ticker. Assigned at ingestion, immutable afterwards.
type Source string

const (
	SourceDexPoolA Source = "dex_pool_a" // HOLDER/TON pool on STON.fi
	SourceDexPoolB Source = "dex_pool_b" // HOLDER/USDT pool on STON.fi
	SourceCEX      Source = "cex"        // WEEX ticker via Origami API
)

// AllSources lists every known source in a stable order.
func AllSources() []Source {
	return []Source{SourceDexPoolA, SourceDexPoolB, SourceCEX}
}

func (s Source) Valid() bool {
	switch s {
	case SourceDexPoolA, SourceDexPoolB, SourceCEX:
		return true
	}
	return false
}

// PriceRecord is one observation of the token price at a venue.
// Optional fields are nil when the upstream did not report them; a zero value
// is a real market signal and is never substituted for "unknown".
type PriceRecord struct {
	Source       Source    `json:"source"`
	Timestamp    time.Time `json:"timestamp"`
	PriceUSD     float64   `json:"price_usd"`
	PriceNative  *float64  `json:"price_native,omitempty"`
	Volume24h    *float64  `json:"volume_24h,omitempty"`
	LiquidityUSD *float64  `json:"liquidity_usd,omitempty"`
	High24h      *float64  `json:"high_24h,omitempty"`
	Low24h       *float64  `json:"low_24h,omitempty"`
}

// VenueQuote is the raw output of a source adapter before normalization.
// PriceNative is denominated in QuoteAsset; for a USD-stable quote asset it
// already equals the USD price.
type VenueQuote struct {
	Source       Source
	QuoteAsset   string // "USDT", "TON", ...
	PriceNative  float64
	Volume24h    *float64
	LiquidityUSD *float64
	High24h      *float64
	Low24h       *float64
	Ts           time.Time
}

// Snapshot holds the most recent PriceRecord per source. One entry per key;
// an older timestamp never overwrites a newer one.
type Snapshot map[Source]PriceRecord

// Fresh reports whether src has a record no older than bound relative to now.
func (s Snapshot) Fresh(src Source, now time.Time, bound time.Duration) bool {
	rec, ok := s[src]
	if !ok {
		return false
	}
	return now.Sub(rec.Timestamp) <= bound
}

// Opportunity is a derived cross-venue arbitrage signal. Advisory only:
// fees and slippage are not modeled, which consumers must disclaim.
type Opportunity struct {
	BuyOn         Source    `json:"buy_on"`
	SellOn        Source    `json:"sell_on"`
	BuyPrice      float64   `json:"buy_price"`
	SellPrice     float64   `json:"sell_price"`
	ProfitPercent float64   `json:"profit_percent"`
	Ts            time.Time `json:"ts"`
}

// AggregateStats summarizes one source over a trailing window.
// Volume is the latest reported trailing sum, not a re-summed delta.
type AggregateStats struct {
	Source  Source   `json:"source"`
	Current float64  `json:"current"`
	Change  float64  `json:"change"` // percent vs window start
	High    float64  `json:"high"`
	Low     float64  `json:"low"`
	Volume  *float64 `json:"volume,omitempty"`
}

// Alert is emitted when a source moves by at least the configured percent
// between consecutive fetches.
type Alert struct {
	Source   Source    `json:"source"`
	Percent  float64   `json:"percent"`
	OldPrice float64   `json:"old_price"`
	NewPrice float64   `json:"new_price"`
	Ts       time.Time `json:"ts"`
}

// Ptr returns a pointer to v; shorthand for optional numeric fields.
func Ptr(v float64) *float64 { return &v }
