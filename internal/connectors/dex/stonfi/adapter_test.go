package stonfi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Memetrix/holder-price-bot/internal/config"
	"github.com/Memetrix/holder-price-bot/internal/types"
)

const (
	holderAddr = "EQCDuRLTylau8yKEkx1AMLpHAy6Vog_5D6aC4HNkyG8JN-me"
	usdtAddr   = "EQCxE6mUtQJKFnGfaROTKOt1lZbDiiX1kCixRv7Nw2Id_sDs"
	poolAddr   = "EQPoolAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
)

func poolServer(t *testing.T, pool Pool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/pools/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"pool":{"address":%q,"token0_address":%q,"token1_address":%q,`+
			`"token0_decimals":%d,"token1_decimals":%d,"reserve0":%q,"reserve1":%q}}`,
			pool.Address, pool.Token0Address, pool.Token1Address,
			pool.Token0Decimals, pool.Token1Decimals, pool.Reserve0, pool.Reserve1)
	})
	mux.HandleFunc("/v1/stats/pool", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"stats":[]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func poolCfg() config.PoolCfg {
	return config.PoolCfg{
		Source:     "dex_pool_b",
		Address:    poolAddr,
		BaseAsset:  holderAddr,
		QuoteAsset: usdtAddr,
		QuoteSym:   "USDT",
	}
}

// With reserve_usdt=1,000,000 and reserve_holder=200,000,000 the price must
// be exactly reserve_quote/reserve_base = 0.005, however the slots are laid
// out, as long as addresses match.
func TestFetchPriceFromReserves(t *testing.T) {
	for name, pool := range map[string]Pool{
		"base in slot0": {
			Address:       poolAddr,
			Token0Address: holderAddr, Token1Address: usdtAddr,
			Token0Decimals: 9, Token1Decimals: 6,
			Reserve0: "200000000000000000", Reserve1: "1000000000000",
		},
		"base in slot1": {
			Address:       poolAddr,
			Token0Address: usdtAddr, Token1Address: holderAddr,
			Token0Decimals: 6, Token1Decimals: 9,
			Reserve0: "1000000000000", Reserve1: "200000000000000000",
		},
	} {
		t.Run(name, func(t *testing.T) {
			srv := poolServer(t, pool)
			a := NewPoolAdapter(NewClient(srv.URL, time.Second, zap.NewNop()), poolCfg(), zap.NewNop())

			q, err := a.Fetch(context.Background())
			require.NoError(t, err)
			assert.Equal(t, types.SourceDexPoolB, q.Source)
			assert.InDelta(t, 0.005, q.PriceNative, 1e-12)
			assert.Equal(t, "USDT", q.QuoteAsset)
			assert.Nil(t, q.Volume24h, "absent stats stay nil, never zero")
		})
	}
}

func TestFetchRejectsUnmatchedReserves(t *testing.T) {
	// Pool holds a different token pair than configured: refusing beats
	// silently inverting the price.
	srv := poolServer(t, Pool{
		Address:       poolAddr,
		Token0Address: "EQSomethingElse", Token1Address: usdtAddr,
		Token0Decimals: 9, Token1Decimals: 6,
		Reserve0: "1", Reserve1: "1",
	})
	a := NewPoolAdapter(NewClient(srv.URL, time.Second, zap.NewNop()), poolCfg(), zap.NewNop())

	_, err := a.Fetch(context.Background())
	assert.ErrorIs(t, err, types.ErrReserveOrdering)
}

func TestFetchRejectsZeroBaseReserve(t *testing.T) {
	srv := poolServer(t, Pool{
		Address:       poolAddr,
		Token0Address: holderAddr, Token1Address: usdtAddr,
		Token0Decimals: 9, Token1Decimals: 6,
		Reserve0: "0", Reserve1: "1000000000000",
	})
	a := NewPoolAdapter(NewClient(srv.URL, time.Second, zap.NewNop()), poolCfg(), zap.NewNop())

	_, err := a.Fetch(context.Background())
	assert.ErrorIs(t, err, types.ErrMalformedResponse)
}

func TestFetchUpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	a := NewPoolAdapter(NewClient(srv.URL, time.Second, zap.NewNop()), poolCfg(), zap.NewNop())

	_, err := a.Fetch(context.Background())
	assert.ErrorIs(t, err, types.ErrUpstreamUnavailable)
}

func TestFetchMalformedReserve(t *testing.T) {
	srv := poolServer(t, Pool{
		Address:       poolAddr,
		Token0Address: holderAddr, Token1Address: usdtAddr,
		Token0Decimals: 9, Token1Decimals: 6,
		Reserve0: "not-a-number", Reserve1: "1000000000000",
	})
	a := NewPoolAdapter(NewClient(srv.URL, time.Second, zap.NewNop()), poolCfg(), zap.NewNop())

	_, err := a.Fetch(context.Background())
	assert.ErrorIs(t, err, types.ErrMalformedResponse)
}
