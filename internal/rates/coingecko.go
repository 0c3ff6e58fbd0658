package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Memetrix/holder-price-bot/internal/types"
)

// CoinGecko is the fallback cross-rate provider for deployments without a
// usable TONUSDT book on the CEX.
type CoinGecko struct {
	baseURL string
	coinID  string
	apiKey  string
	http    *http.Client
}

func NewCoinGecko(baseURL, coinID, apiKey string) *CoinGecko {
	return &CoinGecko{
		baseURL: strings.TrimRight(baseURL, "/"),
		coinID:  coinID,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *CoinGecko) Rate(ctx context.Context) (float64, error) {
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		g.baseURL, url.QueryEscape(g.coinID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("coingecko: build request: %w", err)
	}
	if g.apiKey != "" {
		if strings.Contains(g.baseURL, "pro-api") {
			req.Header.Set("x-cg-pro-api-key", g.apiKey)
		} else {
			req.Header.Set("x-cg-demo-api-key", g.apiKey)
		}
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: coingecko: %v", types.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("%w: coingecko %d: %s", types.ErrUpstreamUnavailable, resp.StatusCode, string(b))
	}

	var out map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: coingecko decode: %v", types.ErrMalformedResponse, err)
	}
	usd, ok := out[g.coinID]["usd"]
	if !ok {
		return 0, fmt.Errorf("%w: coingecko: no usd rate for %s", types.ErrMalformedResponse, g.coinID)
	}
	return usd, nil
}

var _ Provider = (*CoinGecko)(nil)
