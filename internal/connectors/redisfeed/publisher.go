// Package redisfeed distributes price state to downstream consumers (chat
// bot, dashboard workers) through Redis: a capped stream of composite
// snapshots plus a latest-hash per source for cheap point reads.
package redisfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Memetrix/holder-price-bot/internal/config"
	"github.com/Memetrix/holder-price-bot/internal/types"
)

const streamMaxLen = 10000

type Publisher struct {
	rdb      *redis.Client
	stream   string
	latestNS string
}

func NewPublisher(cfg *config.Config) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	return &Publisher{
		rdb:      rdb,
		stream:   cfg.Redis.Stream,
		latestNS: cfg.Redis.LatestNS,
	}
}

// PublishSnapshot appends the composite snapshot to the stream and refreshes
// the per-source latest hashes. The stream is trimmed approximately so a slow
// consumer cannot grow it without bound.
func (p *Publisher) PublishSnapshot(ctx context.Context, snap types.Snapshot) error {
	nowMs := time.Now().UnixMilli()

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redisfeed: marshal snapshot: %w", err)
	}
	if err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"snapshot": payload,
			"ts_ms":    nowMs,
		},
	}).Err(); err != nil {
		return fmt.Errorf("redisfeed: xadd %s: %w", p.stream, err)
	}

	for src, rec := range snap {
		fields := map[string]interface{}{
			"price_usd": rec.PriceUSD,
			"ts_ms":     rec.Timestamp.UnixMilli(),
		}
		if rec.PriceNative != nil {
			fields["price_native"] = *rec.PriceNative
		}
		if rec.Volume24h != nil {
			fields["volume_24h"] = *rec.Volume24h
		}
		if rec.LiquidityUSD != nil {
			fields["liquidity_usd"] = *rec.LiquidityUSD
		}
		if err := p.rdb.HSet(ctx, p.latestNS+string(src), fields).Err(); err != nil {
			return fmt.Errorf("redisfeed: hset %s: %w", p.latestNS+string(src), err)
		}
	}
	return nil
}

// PublishOpportunity pushes a detected opportunity onto the stream so chat
// consumers can notify without polling the API.
func (p *Publisher) PublishOpportunity(ctx context.Context, opp types.Opportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("redisfeed: marshal opportunity: %w", err)
	}
	if err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"opportunity": payload,
			"ts_ms":       time.Now().UnixMilli(),
		},
	}).Err(); err != nil {
		return fmt.Errorf("redisfeed: xadd %s: %w", p.stream, err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.rdb.Close() }
