// Package stonfi reads HOLDER pool state from the STON.fi REST API.
package stonfi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Memetrix/holder-price-bot/internal/types"
)

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Pool is the on-chain pool state as reported by STON.fi. Reserves are
// decimal strings in minimal units; slot order carries no meaning, so assets
// must be matched by address, never by position.
type Pool struct {
	Address         string `json:"address"`
	Token0Address   string `json:"token0_address"`
	Token1Address   string `json:"token1_address"`
	Token0Decimals  int    `json:"token0_decimals"`
	Token1Decimals  int    `json:"token1_decimals"`
	Reserve0        string `json:"reserve0"`
	Reserve1        string `json:"reserve1"`
}

type poolResp struct {
	Pool *Pool `json:"pool"`
}

// PoolStats is the 24h trailing window STON.fi reports per pool. All fields
// are optional upstream; absent ones stay nil.
type PoolStats struct {
	PoolAddress  string   `json:"pool_address"`
	QuoteVolume  *float64 `json:"quote_volume"`
	LiquidityUSD *float64 `json:"lp_fee_usd,omitempty"`
	High24h      *float64 `json:"high_24h"`
	Low24h       *float64 `json:"low_24h"`
}

type statsResp struct {
	Stats []PoolStats `json:"stats"`
}

// GetPool fetches current pool state by pool address.
func (c *Client) GetPool(ctx context.Context, addr string) (*Pool, error) {
	endpoint := c.baseURL + "/v1/pools/" + url.PathEscape(addr)
	var pr poolResp
	if err := c.getJSON(ctx, endpoint, &pr); err != nil {
		return nil, err
	}
	if pr.Pool == nil {
		return nil, fmt.Errorf("%w: stonfi pool %s: empty pool object", types.ErrMalformedResponse, addr)
	}
	return pr.Pool, nil
}

// GetPoolStats fetches the trailing-24h stats row for addr, or nil when the
// pool is missing from the stats window. Stats are best-effort: callers treat
// nil as "no optional fields", not as an error.
func (c *Client) GetPoolStats(ctx context.Context, addr string) (*PoolStats, error) {
	until := time.Now().UTC()
	since := until.Add(-24 * time.Hour)
	endpoint := fmt.Sprintf("%s/v1/stats/pool?since=%s&until=%s",
		c.baseURL,
		url.QueryEscape(since.Format("2006-01-02T15:04:05")),
		url.QueryEscape(until.Format("2006-01-02T15:04:05")),
	)

	var sr statsResp
	if err := c.getJSON(ctx, endpoint, &sr); err != nil {
		return nil, err
	}
	for i := range sr.Stats {
		if sr.Stats[i].PoolAddress == addr {
			return &sr.Stats[i], nil
		}
	}
	return nil, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("stonfi: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: stonfi: %v", types.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: stonfi %d: %s", types.ErrUpstreamUnavailable, resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: stonfi decode: %v", types.ErrMalformedResponse, err)
	}
	return nil
}
