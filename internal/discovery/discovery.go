// Package discovery resolves and verifies configured STON.fi pools at
// startup. Catching a mismatched pool here turns a silent per-poll pricing
// failure into a refusal to start.
package discovery

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Memetrix/holder-price-bot/internal/config"
	"github.com/Memetrix/holder-price-bot/internal/connectors/dex/stonfi"
	"github.com/Memetrix/holder-price-bot/internal/types"
)

// PoolMeta is the resolved state of one configured pool.
type PoolMeta struct {
	Source        types.Source
	Address       string
	BaseDecimals  int
	QuoteDecimals int
}

type poolGetter interface {
	GetPool(ctx context.Context, addr string) (*stonfi.Pool, error)
}

// Service verifies that every configured pool exists upstream and actually
// holds the configured (base, quote) asset pair.
type Service struct {
	cfg    *config.Config
	client poolGetter
	log    *zap.Logger
}

func NewService(cfg *config.Config, client *stonfi.Client, log *zap.Logger) *Service {
	return &Service{cfg: cfg, client: client, log: log}
}

// Run resolves all configured pools. Any pool that cannot be fetched or whose
// assets do not match the config fails the whole run.
func (s *Service) Run(ctx context.Context) ([]PoolMeta, error) {
	s.log.Info("resolving configured pools", zap.Int("count", len(s.cfg.StonFi.Pools)))

	metas := make([]PoolMeta, 0, len(s.cfg.StonFi.Pools))
	for _, pc := range s.cfg.StonFi.Pools {
		meta, err := s.resolve(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("discovery: pool %s: %w", pc.Source, err)
		}
		s.log.Info("pool resolved",
			zap.String("source", pc.Source),
			zap.String("address", meta.Address),
			zap.Int("base_decimals", meta.BaseDecimals),
			zap.Int("quote_decimals", meta.QuoteDecimals),
		)
		metas = append(metas, meta)
	}
	return metas, nil
}

func (s *Service) resolve(ctx context.Context, pc config.PoolCfg) (PoolMeta, error) {
	pool, err := s.client.GetPool(ctx, pc.Address)
	if err != nil {
		return PoolMeta{}, err
	}

	var (
		base  = strings.ToLower(pc.BaseAsset)
		quote = strings.ToLower(pc.QuoteAsset)
		t0    = strings.ToLower(pool.Token0Address)
		t1    = strings.ToLower(pool.Token1Address)
	)

	meta := PoolMeta{Source: types.Source(pc.Source), Address: pool.Address}
	switch {
	case t0 == base && t1 == quote:
		meta.BaseDecimals, meta.QuoteDecimals = pool.Token0Decimals, pool.Token1Decimals
	case t0 == quote && t1 == base:
		meta.BaseDecimals, meta.QuoteDecimals = pool.Token1Decimals, pool.Token0Decimals
	default:
		return PoolMeta{}, fmt.Errorf("%w: pool holds (%s, %s), config expects (%s, %s)",
			types.ErrReserveOrdering, pool.Token0Address, pool.Token1Address,
			pc.BaseAsset, pc.QuoteAsset)
	}
	return meta, nil
}
