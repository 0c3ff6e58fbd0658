package redisfeed

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Memetrix/holder-price-bot/internal/config"
	"github.com/Memetrix/holder-price-bot/internal/types"
)

func newTestPublisher(t *testing.T) (*Publisher, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.Stream = "holder:snapshots"
	cfg.Redis.LatestNS = "holder:latest:"

	pub := NewPublisher(cfg)
	t.Cleanup(func() { _ = pub.Close() })

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return pub, rdb
}

func TestPublishSnapshotStreamAndLatestHashes(t *testing.T) {
	pub, rdb := newTestPublisher(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	snap := types.Snapshot{
		types.SourceCEX: {
			Source:    types.SourceCEX,
			Timestamp: now,
			PriceUSD:  0.0055,
			Volume24h: types.Ptr(120000.0),
		},
		types.SourceDexPoolA: {
			Source:       types.SourceDexPoolA,
			Timestamp:    now,
			PriceUSD:     0.0054,
			PriceNative:  types.Ptr(0.001),
			LiquidityUSD: types.Ptr(250000.0),
		},
	}
	require.NoError(t, pub.PublishSnapshot(ctx, snap))

	msgs, err := rdb.XRange(ctx, "holder:snapshots", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Values, "ts_ms")

	payload, ok := msgs[0].Values["snapshot"].(string)
	require.True(t, ok)
	var got types.Snapshot
	require.NoError(t, json.Unmarshal([]byte(payload), &got))
	assert.Equal(t, 0.0055, got[types.SourceCEX].PriceUSD)
	assert.Equal(t, 0.0054, got[types.SourceDexPoolA].PriceUSD)

	cexHash, err := rdb.HGetAll(ctx, "holder:latest:cex").Result()
	require.NoError(t, err)
	assert.Equal(t, "0.0055", cexHash["price_usd"])
	assert.Equal(t, strconv.FormatInt(now.UnixMilli(), 10), cexHash["ts_ms"])
	assert.Equal(t, "120000", cexHash["volume_24h"])
	// Absent upstream fields never appear as hash fields; consumers must not
	// read a zero where the venue reported nothing.
	assert.NotContains(t, cexHash, "price_native")
	assert.NotContains(t, cexHash, "liquidity_usd")

	poolHash, err := rdb.HGetAll(ctx, "holder:latest:dex_pool_a").Result()
	require.NoError(t, err)
	assert.Equal(t, "0.0054", poolHash["price_usd"])
	assert.Equal(t, "0.001", poolHash["price_native"])
	assert.Equal(t, "250000", poolHash["liquidity_usd"])
	assert.NotContains(t, poolHash, "volume_24h")
}

func TestPublishSnapshotRefreshesLatestHash(t *testing.T) {
	pub, rdb := newTestPublisher(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	first := types.Snapshot{types.SourceCEX: {Source: types.SourceCEX, Timestamp: now, PriceUSD: 0.0050}}
	second := types.Snapshot{types.SourceCEX: {Source: types.SourceCEX, Timestamp: now.Add(time.Minute), PriceUSD: 0.0056}}
	require.NoError(t, pub.PublishSnapshot(ctx, first))
	require.NoError(t, pub.PublishSnapshot(ctx, second))

	hash, err := rdb.HGetAll(ctx, "holder:latest:cex").Result()
	require.NoError(t, err)
	assert.Equal(t, "0.0056", hash["price_usd"])

	msgs, err := rdb.XRange(ctx, "holder:snapshots", "-", "+").Result()
	require.NoError(t, err)
	assert.Len(t, msgs, 2, "the stream keeps history; only the hash is overwritten")
}

func TestPublishOpportunity(t *testing.T) {
	pub, rdb := newTestPublisher(t)
	ctx := context.Background()

	opp := types.Opportunity{
		BuyOn:         types.SourceDexPoolA,
		SellOn:        types.SourceCEX,
		BuyPrice:      1.00,
		SellPrice:     1.05,
		ProfitPercent: 5.0,
		Ts:            time.Now().UTC(),
	}
	require.NoError(t, pub.PublishOpportunity(ctx, opp))

	msgs, err := rdb.XRange(ctx, "holder:snapshots", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	payload, ok := msgs[0].Values["opportunity"].(string)
	require.True(t, ok)
	var got types.Opportunity
	require.NoError(t, json.Unmarshal([]byte(payload), &got))
	assert.Equal(t, types.SourceDexPoolA, got.BuyOn)
	assert.Equal(t, types.SourceCEX, got.SellOn)
	assert.InDelta(t, 5.0, got.ProfitPercent, 1e-9)
}
