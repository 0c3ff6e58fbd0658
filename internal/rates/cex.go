package rates

import (
	"context"

	"github.com/Memetrix/holder-price-bot/internal/connectors/cex/weex"
)

// CEXProvider derives the TON/USD rate from the exchange's TONUSDT ticker,
// the same way the live price feed already talks to that venue.
type CEXProvider struct {
	client *weex.Client
	pair   string
}

func NewCEXProvider(client *weex.Client, pair string) *CEXProvider {
	return &CEXProvider{client: client, pair: pair}
}

func (p *CEXProvider) Rate(ctx context.Context) (float64, error) {
	t, err := p.client.GetPairTicker(ctx, p.pair)
	if err != nil {
		return 0, err
	}
	// Mid of bid/ask when the book is present, last trade otherwise.
	if t.Bid != nil && t.Ask != nil && *t.Bid > 0 && *t.Ask > 0 {
		return 0.5 * (*t.Bid + *t.Ask), nil
	}
	return t.LastPrice, nil
}

var _ Provider = (*CEXProvider)(nil)
