// Package weex reads the HOLDER ticker from WEEX via the Origami market API.
package weex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Memetrix/holder-price-bot/internal/types"
)

type Client struct {
	baseURL  string
	symbolID int
	http     *http.Client
	log      *zap.Logger
}

func NewClient(baseURL string, symbolID int, timeout time.Duration, log *zap.Logger) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		symbolID: symbolID,
		http:     &http.Client{Timeout: timeout},
		log:      log,
	}
}

// tickerResp mirrors the Origami public ticker. The API has shipped both
// long and short field names over time, so each value carries an alternate.
// Numbers arrive as JSON strings.
type tickerResp struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"last_price"`
	Last               string `json:"last"`
	PriceChangePercent string `json:"price_change_percent"`
	Change24h          string `json:"change_24h"`
	Volume24h          string `json:"volume_24h"`
	Volume             string `json:"volume"`
	High24h            string `json:"high_24h"`
	High               string `json:"high"`
	Low24h             string `json:"low_24h"`
	Low                string `json:"low"`
	Bid                string `json:"bid"`
	Ask                string `json:"ask"`
}

// Ticker holds the parsed ticker for the configured symbol. Optional fields
// the exchange omitted are nil.
type Ticker struct {
	Symbol    string
	LastPrice float64
	Change24h *float64
	Volume24h *float64
	High24h   *float64
	Low24h    *float64
	Bid       *float64
	Ask       *float64
}

// GetTicker fetches the configured symbol's ticker. The last price is
// required; a missing or non-numeric price is a malformed response.
func (c *Client) GetTicker(ctx context.Context) (*Ticker, error) {
	endpoint := fmt.Sprintf("%s/api/market/public/ticker?symbol_id=%d", c.baseURL, c.symbolID)
	return c.fetchTicker(ctx, endpoint)
}

// GetPairTicker fetches a ticker by symbol name, e.g. "TONUSDT". Used for
// cross-rate lookups.
func (c *Client) GetPairTicker(ctx context.Context, pair string) (*Ticker, error) {
	endpoint := fmt.Sprintf("%s/api/market/public/ticker?symbol=%s", c.baseURL, url.QueryEscape(pair))
	return c.fetchTicker(ctx, endpoint)
}

func (c *Client) fetchTicker(ctx context.Context, endpoint string) (*Ticker, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("weex: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: weex: %v", types.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: weex %d: %s", types.ErrUpstreamUnavailable, resp.StatusCode, string(b))
	}

	var tr tickerResp
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: weex decode: %v", types.ErrMalformedResponse, err)
	}

	last, err := requiredFloat(tr.LastPrice, tr.Last)
	if err != nil {
		return nil, fmt.Errorf("%w: weex last price: %v", types.ErrMalformedResponse, err)
	}

	return &Ticker{
		Symbol:    tr.Symbol,
		LastPrice: last,
		Change24h: optionalFloat(tr.PriceChangePercent, tr.Change24h),
		Volume24h: optionalFloat(tr.Volume24h, tr.Volume),
		High24h:   optionalFloat(tr.High24h, tr.High),
		Low24h:    optionalFloat(tr.Low24h, tr.Low),
		Bid:       optionalFloat(tr.Bid, ""),
		Ask:       optionalFloat(tr.Ask, ""),
	}, nil
}

// requiredFloat parses the first non-empty candidate, failing when every
// candidate is absent or non-numeric.
func requiredFloat(candidates ...string) (float64, error) {
	for _, s := range candidates {
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", s)
		}
		return v, nil
	}
	return 0, fmt.Errorf("field absent")
}

// optionalFloat parses the first non-empty candidate; unparsable or absent
// values become nil, never zero.
func optionalFloat(candidates ...string) *float64 {
	for _, s := range candidates {
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &v
	}
	return nil
}
