package stonfi

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Memetrix/holder-price-bot/internal/config"
	"github.com/Memetrix/holder-price-bot/internal/types"
)

// PoolAdapter reads one configured pool and maps it into a VenueQuote.
// Price is computed as reserve_quote / reserve_base, and the reserve slots
// are matched to the configured asset addresses first. A pool whose slots
// cannot be matched unambiguously fails with ErrReserveOrdering; guessing by
// position has historically produced prices off by orders of magnitude.
type PoolAdapter struct {
	client *Client
	cfg    config.PoolCfg
	source types.Source
	log    *zap.Logger
}

func NewPoolAdapter(client *Client, cfg config.PoolCfg, log *zap.Logger) *PoolAdapter {
	return &PoolAdapter{
		client: client,
		cfg:    cfg,
		source: types.Source(cfg.Source),
		log:    log.With(zap.String("source", cfg.Source)),
	}
}

func (a *PoolAdapter) Source() types.Source { return a.source }

func (a *PoolAdapter) Fetch(ctx context.Context) (types.VenueQuote, error) {
	pool, err := a.client.GetPool(ctx, a.cfg.Address)
	if err != nil {
		return types.VenueQuote{}, err
	}

	price, err := a.poolPrice(pool)
	if err != nil {
		return types.VenueQuote{}, err
	}

	q := types.VenueQuote{
		Source:      a.source,
		QuoteAsset:  a.cfg.QuoteSym,
		PriceNative: price,
		Ts:          time.Now().UTC(),
	}

	// 24h stats are best-effort; a missing row only means nil optionals.
	stats, err := a.client.GetPoolStats(ctx, a.cfg.Address)
	if err != nil {
		a.log.Debug("pool stats unavailable, continuing without optionals", zap.Error(err))
	} else if stats != nil {
		q.Volume24h = stats.QuoteVolume
		q.LiquidityUSD = stats.LiquidityUSD
		q.High24h = stats.High24h
		q.Low24h = stats.Low24h
	}
	return q, nil
}

// poolPrice matches reserve slots to (base, quote) by asset address and
// returns reserve_quote/reserve_base scaled by token decimals.
func (a *PoolAdapter) poolPrice(pool *Pool) (float64, error) {
	var (
		base  = strings.ToLower(a.cfg.BaseAsset)
		quote = strings.ToLower(a.cfg.QuoteAsset)
		t0    = strings.ToLower(pool.Token0Address)
		t1    = strings.ToLower(pool.Token1Address)
	)

	var reserveBase, reserveQuote string
	var decBase, decQuote int
	switch {
	case t0 == base && t1 == quote:
		reserveBase, reserveQuote = pool.Reserve0, pool.Reserve1
		decBase, decQuote = pool.Token0Decimals, pool.Token1Decimals
	case t0 == quote && t1 == base:
		reserveBase, reserveQuote = pool.Reserve1, pool.Reserve0
		decBase, decQuote = pool.Token1Decimals, pool.Token0Decimals
	default:
		return 0, fmt.Errorf("%w: pool %s holds (%s, %s), config expects (%s, %s)",
			types.ErrReserveOrdering, pool.Address, pool.Token0Address, pool.Token1Address,
			a.cfg.BaseAsset, a.cfg.QuoteAsset)
	}

	rb, err := parseReserve(reserveBase, decBase)
	if err != nil {
		return 0, err
	}
	rq, err := parseReserve(reserveQuote, decQuote)
	if err != nil {
		return 0, err
	}
	if rb <= 0 {
		return 0, fmt.Errorf("%w: pool %s: zero base reserve", types.ErrMalformedResponse, pool.Address)
	}
	return rq / rb, nil
}

func parseReserve(raw string, decimals int) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: missing reserve", types.ErrMalformedResponse)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: reserve %q: %v", types.ErrMalformedResponse, raw, err)
	}
	return v / math.Pow10(decimals), nil
}
