// Package tracker runs the per-venue acquisition pipelines: rate-limited
// fetch, normalization, persistence and snapshot update, one goroutine per
// source so a broken venue never stalls the others.
package tracker

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Memetrix/holder-price-bot/internal/cache"
	"github.com/Memetrix/holder-price-bot/internal/config"
	"github.com/Memetrix/holder-price-bot/internal/metrics"
	"github.com/Memetrix/holder-price-bot/internal/normalize"
	"github.com/Memetrix/holder-price-bot/internal/types"
)

// Venue is the slice of a source adapter the tracker needs.
type Venue interface {
	Source() types.Source
	Fetch(ctx context.Context) (types.VenueQuote, error)
}

// Appender is the write half of the store.
type Appender interface {
	Append(ctx context.Context, rec types.PriceRecord) error
}

type Tracker struct {
	cfg    *config.Config
	norm   *normalize.Normalizer
	store  Appender
	snaps  *cache.Snapshots
	venues []Venue
	alerts chan<- types.Alert
	log    *zap.Logger
}

// New wires a tracker over the given venues. alerts may be nil when nobody
// consumes significant-change events.
func New(cfg *config.Config, norm *normalize.Normalizer, store Appender, snaps *cache.Snapshots, venues []Venue, alerts chan<- types.Alert, log *zap.Logger) *Tracker {
	return &Tracker{
		cfg:    cfg,
		norm:   norm,
		store:  store,
		snaps:  snaps,
		venues: venues,
		alerts: alerts,
		log:    log,
	}
}

// Run starts one polling loop per venue and blocks until ctx is done.
// Venue failures are contained in their own loop; only ctx cancellation ends
// the group.
func (t *Tracker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, v := range t.venues {
		v := v
		g.Go(func() error {
			t.trackVenue(ctx, v)
			return nil
		})
	}
	return g.Wait()
}

func (t *Tracker) trackVenue(ctx context.Context, v Venue) {
	log := t.log.With(zap.String("source", string(v.Source())))
	limiter := rate.NewLimiter(
		rate.Limit(float64(t.cfg.Tracker.RateLimitPerMin)/60.0),
		t.cfg.Tracker.RateLimitBurst,
	)

	// First poll immediately so the cache and detector have data before the
	// first full interval elapses.
	t.poll(ctx, v, limiter, log)

	tick := time.NewTicker(t.cfg.PollInterval())
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			t.poll(ctx, v, limiter, log)
		}
	}
}

func (t *Tracker) poll(ctx context.Context, v Venue, limiter *rate.Limiter, log *zap.Logger) {
	if err := limiter.Wait(ctx); err != nil {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, t.cfg.FetchTimeout())
	start := time.Now()
	quote, err := v.Fetch(fetchCtx)
	cancel()
	metrics.FetchLatency.WithLabelValues(string(v.Source())).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchErrors.WithLabelValues(string(v.Source()), errKind(err)).Inc()
		log.Warn("fetch failed, will retry next cycle", zap.Error(err))
		return
	}

	rec, err := t.norm.Normalize(quote)
	if err != nil {
		// A stale cross rate leaves no USD price; the record is neither
		// persisted nor snapshotted.
		metrics.FetchErrors.WithLabelValues(string(v.Source()), errKind(err)).Inc()
		log.Warn("normalize failed, dropping sample", zap.Error(err))
		return
	}

	metrics.PriceUSD.WithLabelValues(string(rec.Source)).Set(rec.PriceUSD)

	// The store handle is only touched here, never across the fetch above.
	if err := t.store.Append(ctx, rec); err != nil {
		metrics.StoreWriteErrors.Inc()
		log.Error("store append failed, sample kept in cache only", zap.Error(err))
	} else {
		metrics.StoreWrites.WithLabelValues(string(rec.Source)).Inc()
	}

	prev, had := t.snaps.Update(rec)
	if had {
		t.checkSignificantChange(prev, rec, log)
	}
}

// checkSignificantChange emits an Alert when the price moved by at least the
// configured percent between consecutive fetches of the same source.
func (t *Tracker) checkSignificantChange(prev, cur types.PriceRecord, log *zap.Logger) {
	if t.alerts == nil || prev.PriceUSD <= 0 || cur.PriceUSD <= 0 {
		return
	}
	pct := (cur.PriceUSD - prev.PriceUSD) / prev.PriceUSD * 100
	if math.Abs(pct) < t.cfg.Tracker.AlertThresholdPercent {
		return
	}
	a := types.Alert{
		Source:   cur.Source,
		Percent:  pct,
		OldPrice: prev.PriceUSD,
		NewPrice: cur.PriceUSD,
		Ts:       cur.Timestamp,
	}
	log.Info("significant price change",
		zap.Float64("percent", math.Round(pct*100)/100),
		zap.Float64("old", prev.PriceUSD),
		zap.Float64("new", cur.PriceUSD),
	)
	select {
	case t.alerts <- a:
	default:
		log.Warn("alert channel full; dropping")
	}
}

func errKind(err error) string {
	switch {
	case errors.Is(err, types.ErrUpstreamUnavailable):
		return "upstream"
	case errors.Is(err, types.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, types.ErrReserveOrdering):
		return "reserve_ordering"
	case errors.Is(err, types.ErrStaleCrossRate):
		return "stale_cross_rate"
	default:
		return "other"
	}
}
