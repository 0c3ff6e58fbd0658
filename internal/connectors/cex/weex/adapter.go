package weex

import (
	"context"
	"time"

	"github.com/Memetrix/holder-price-bot/internal/types"
)

// Adapter maps the WEEX ticker into a VenueQuote. WEEX quotes HOLDER against
// USDT directly, so the native price doubles as the USD price downstream.
type Adapter struct {
	client *Client
}

func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) Source() types.Source { return types.SourceCEX }

func (a *Adapter) Fetch(ctx context.Context) (types.VenueQuote, error) {
	t, err := a.client.GetTicker(ctx)
	if err != nil {
		return types.VenueQuote{}, err
	}
	return types.VenueQuote{
		Source:      types.SourceCEX,
		QuoteAsset:  "USDT",
		PriceNative: t.LastPrice,
		Volume24h:   t.Volume24h,
		High24h:     t.High24h,
		Low24h:      t.Low24h,
		Ts:          time.Now().UTC(),
	}, nil
}
