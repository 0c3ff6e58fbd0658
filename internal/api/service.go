// Package api is the read surface consumed by the chat bot and dashboard.
// Every call returns an envelope; upstream failures map to ok=false and never
// cross the boundary as a panic.
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Memetrix/holder-price-bot/internal/cache"
	"github.com/Memetrix/holder-price-bot/internal/config"
	"github.com/Memetrix/holder-price-bot/internal/stats"
	"github.com/Memetrix/holder-price-bot/internal/store"
	"github.com/Memetrix/holder-price-bot/internal/types"
)

// Envelope is the uniform response shape for every API call.
type Envelope struct {
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	Data      any       `json:"data"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ArbPayload wraps an opportunity with the fee disclaimer: spreads are
// computed before trading fees and slippage.
type ArbPayload struct {
	Opportunity  *types.Opportunity `json:"opportunity"`
	FeeExclusive bool               `json:"fee_exclusive"`
}

const errUnavailable = "unavailable"

// Querier is the read half of the store.
type Querier interface {
	Query(ctx context.Context, source types.Source, since time.Time, limit int) ([]types.PriceRecord, error)
}

type Service struct {
	cfg   *config.Config
	db    Querier
	snaps *cache.Snapshots
	aggr  *stats.Aggregator
	log   *zap.Logger

	mu      sync.RWMutex
	lastOpp *types.Opportunity
}

func NewService(cfg *config.Config, db Querier, snaps *cache.Snapshots, aggr *stats.Aggregator, log *zap.Logger) *Service {
	return &Service{cfg: cfg, db: db, snaps: snaps, aggr: aggr, log: log}
}

// SetOpportunity records the detector's latest finding; main feeds this from
// the opportunity channel.
func (s *Service) SetOpportunity(opp types.Opportunity) {
	s.mu.Lock()
	s.lastOpp = &opp
	s.mu.Unlock()
}

func ok(data any) Envelope {
	return Envelope{OK: true, Data: data, FetchedAt: time.Now().UTC()}
}

func fail(msg string) Envelope {
	return Envelope{OK: false, Error: msg, FetchedAt: time.Now().UTC()}
}

// GetLatestPrices serves the freshest record per source, cache-first. When
// the cache has aged out, one record is pulled from the store; if storage is
// down the call degrades to whatever the snapshot set still holds.
func (s *Service) GetLatestPrices(ctx context.Context) Envelope {
	out := make(map[types.Source]types.PriceRecord, 3)
	degraded := false

	for _, src := range types.AllSources() {
		if rec, fresh := s.snaps.Latest(src, s.cfg.PriceTTL()); fresh {
			out[src] = rec
			continue
		}
		recs, err := s.db.Query(ctx, src, time.Now().UTC().Add(-24*time.Hour), 1)
		if err != nil {
			if errors.Is(err, types.ErrStorageUnavailable) {
				degraded = true
				continue
			}
			s.log.Warn("latest prices: store query failed", zap.String("source", string(src)), zap.Error(err))
			continue
		}
		if len(recs) > 0 {
			out[src] = recs[0]
			s.snaps.Update(recs[0])
		}
	}

	if degraded {
		// Storage is down; serve the snapshot set regardless of age.
		for src, rec := range s.snaps.All() {
			if _, have := out[src]; !have {
				out[src] = rec
			}
		}
	}

	if len(out) == 0 {
		return fail(errUnavailable)
	}
	return ok(out)
}

// GetStats serves the trailing-24h aggregate for one source through the
// minutes-scale stats memo.
func (s *Service) GetStats(ctx context.Context, src types.Source) Envelope {
	if !src.Valid() {
		return fail("unknown source")
	}

	if st, hit := s.snaps.Stats().Get(string(src), s.cfg.StatsTTL()); hit {
		return ok(st)
	}

	st, err := s.aggr.Stats(ctx, src, 24*time.Hour)
	if err != nil {
		s.log.Warn("stats query failed", zap.String("source", string(src)), zap.Error(err))
		return fail(errUnavailable)
	}
	s.snaps.Stats().Set(string(src), st)
	return ok(st) // nil stats marshal to null: no data is absence, not zeros
}

// GetHistory serves raw records for one source, most recent first. The store
// enforces the hard limit ceiling; hours are clamped to 30 days.
func (s *Service) GetHistory(ctx context.Context, src types.Source, hours, limit int) Envelope {
	if !src.Valid() {
		return fail("unknown source")
	}
	if hours <= 0 {
		hours = 24
	}
	if hours > 720 {
		hours = 720
	}
	if limit <= 0 {
		limit = store.HardLimit
	}

	recs, err := s.db.Query(ctx, src, time.Now().UTC().Add(-time.Duration(hours)*time.Hour), limit)
	if err != nil {
		s.log.Warn("history query failed", zap.String("source", string(src)), zap.Error(err))
		return fail(errUnavailable)
	}
	return ok(recs)
}

// GetArbitrage serves the detector's latest finding, or a null opportunity
// when nothing recent cleared the threshold.
func (s *Service) GetArbitrage(ctx context.Context) Envelope {
	s.mu.RLock()
	opp := s.lastOpp
	s.mu.RUnlock()

	payload := ArbPayload{FeeExclusive: true}
	if opp != nil && time.Since(opp.Ts) <= s.cfg.StalenessBound() {
		payload.Opportunity = opp
	}
	return ok(payload)
}
