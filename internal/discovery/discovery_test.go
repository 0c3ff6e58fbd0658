package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Memetrix/holder-price-bot/internal/config"
	"github.com/Memetrix/holder-price-bot/internal/connectors/dex/stonfi"
	"github.com/Memetrix/holder-price-bot/internal/types"
)

const (
	holderAddr = "EQHolder000000000000000000000000000000000000000"
	tonAddr    = "EQTon000000000000000000000000000000000000000000"
	poolAddr   = "EQPoolA0000000000000000000000000000000000000000"
)

type stubPools struct {
	pools map[string]*stonfi.Pool
	err   error
}

func (s stubPools) GetPool(ctx context.Context, addr string) (*stonfi.Pool, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.pools[addr]
	if !ok {
		return nil, types.ErrUpstreamUnavailable
	}
	return p, nil
}

func poolCfg() config.PoolCfg {
	return config.PoolCfg{
		Source:     "dex_pool_a",
		Address:    poolAddr,
		BaseAsset:  holderAddr,
		QuoteAsset: tonAddr,
		QuoteSym:   "TON",
	}
}

func TestRunResolvesDecimalsBySlot(t *testing.T) {
	cfg := &config.Config{}
	cfg.StonFi.Pools = []config.PoolCfg{poolCfg()}

	// Quote asset sits in slot 0; discovery must still assign decimals to the
	// configured roles, not the slots.
	s := &Service{cfg: cfg, log: zap.NewNop(), client: stubPools{pools: map[string]*stonfi.Pool{
		poolAddr: {
			Address:        poolAddr,
			Token0Address:  tonAddr,
			Token1Address:  holderAddr,
			Token0Decimals: 9,
			Token1Decimals: 6,
		},
	}}}

	metas, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, types.SourceDexPoolA, metas[0].Source)
	assert.Equal(t, 6, metas[0].BaseDecimals)
	assert.Equal(t, 9, metas[0].QuoteDecimals)
}

func TestRunFailsOnAssetMismatch(t *testing.T) {
	cfg := &config.Config{}
	cfg.StonFi.Pools = []config.PoolCfg{poolCfg()}

	s := &Service{cfg: cfg, log: zap.NewNop(), client: stubPools{pools: map[string]*stonfi.Pool{
		poolAddr: {
			Address:       poolAddr,
			Token0Address: "EQSomethingElse00000000000000000000000000000000",
			Token1Address: tonAddr,
		},
	}}}

	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, types.ErrReserveOrdering)
}

func TestRunFailsWhenPoolUnreachable(t *testing.T) {
	cfg := &config.Config{}
	cfg.StonFi.Pools = []config.PoolCfg{poolCfg()}

	s := &Service{cfg: cfg, log: zap.NewNop(), client: stubPools{err: types.ErrUpstreamUnavailable}}

	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, types.ErrUpstreamUnavailable)
}
