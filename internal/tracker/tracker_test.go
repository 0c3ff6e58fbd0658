package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Memetrix/holder-price-bot/internal/cache"
	"github.com/Memetrix/holder-price-bot/internal/config"
	"github.com/Memetrix/holder-price-bot/internal/normalize"
	"github.com/Memetrix/holder-price-bot/internal/types"
)

type stubVenue struct {
	src   types.Source
	fetch func() (types.VenueQuote, error)
}

func (v stubVenue) Source() types.Source { return v.src }
func (v stubVenue) Fetch(ctx context.Context) (types.VenueQuote, error) {
	return v.fetch()
}

type memStore struct {
	mu   sync.Mutex
	recs []types.PriceRecord
	err  error
}

func (m *memStore) Append(ctx context.Context, rec types.PriceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memStore) all() []types.PriceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.PriceRecord, len(m.recs))
	copy(out, m.recs)
	return out
}

type stubRate struct{ rate float64 }

func (s stubRate) Last() (float64, time.Time, bool) { return s.rate, time.Now(), true }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Tracker.PollIntervalSec = 1
	cfg.Tracker.FetchTimeoutSec = 5
	cfg.Tracker.RateLimitPerMin = 6000
	cfg.Tracker.RateLimitBurst = 10
	cfg.Tracker.AlertThresholdPercent = 5.0
	return cfg
}

func usdtQuote(src types.Source, price float64) types.VenueQuote {
	return types.VenueQuote{
		Source:      src,
		QuoteAsset:  "USDT",
		PriceNative: price,
		Ts:          time.Now().UTC(),
	}
}

func newTracker(cfg *config.Config, store Appender, snaps *cache.Snapshots, venues []Venue, alerts chan<- types.Alert) *Tracker {
	norm := normalize.New(stubRate{rate: 5.0}, time.Minute)
	return New(cfg, norm, store, snaps, venues, alerts, zap.NewNop())
}

func TestRunAppendsAndSnapshotsEachVenue(t *testing.T) {
	store := &memStore{}
	snaps := cache.NewSnapshots()
	venues := []Venue{
		stubVenue{src: types.SourceCEX, fetch: func() (types.VenueQuote, error) {
			return usdtQuote(types.SourceCEX, 0.0055), nil
		}},
		stubVenue{src: types.SourceDexPoolB, fetch: func() (types.VenueQuote, error) {
			return usdtQuote(types.SourceDexPoolB, 0.0052), nil
		}},
	}

	tr := newTracker(testConfig(), store, snaps, venues, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = tr.Run(ctx); close(done) }()

	require.Eventually(t, func() bool {
		return len(store.all()) >= 2
	}, 2*time.Second, 10*time.Millisecond, "both venues should persist their first sample")

	cancel()
	<-done

	got, ok := snaps.Latest(types.SourceCEX, time.Minute)
	require.True(t, ok)
	assert.Equal(t, 0.0055, got.PriceUSD)
	got, ok = snaps.Latest(types.SourceDexPoolB, time.Minute)
	require.True(t, ok)
	assert.Equal(t, 0.0052, got.PriceUSD)
}

func TestFailingVenueDoesNotStallOthers(t *testing.T) {
	store := &memStore{}
	snaps := cache.NewSnapshots()
	venues := []Venue{
		stubVenue{src: types.SourceDexPoolA, fetch: func() (types.VenueQuote, error) {
			return types.VenueQuote{}, types.ErrUpstreamUnavailable
		}},
		stubVenue{src: types.SourceCEX, fetch: func() (types.VenueQuote, error) {
			return usdtQuote(types.SourceCEX, 0.0055), nil
		}},
	}

	tr := newTracker(testConfig(), store, snaps, venues, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = tr.Run(ctx); close(done) }()

	require.Eventually(t, func() bool {
		return len(store.all()) >= 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	for _, rec := range store.all() {
		assert.Equal(t, types.SourceCEX, rec.Source, "only the healthy venue writes")
	}
	_, ok := snaps.Latest(types.SourceDexPoolA, time.Minute)
	assert.False(t, ok)
}

func TestPollEmitsAlertOnSignificantMove(t *testing.T) {
	store := &memStore{}
	snaps := cache.NewSnapshots()
	alerts := make(chan types.Alert, 1)
	cfg := testConfig()

	prices := []float64{1.00, 1.10}
	i := 0
	v := stubVenue{src: types.SourceCEX, fetch: func() (types.VenueQuote, error) {
		q := usdtQuote(types.SourceCEX, prices[i])
		i++
		return q, nil
	}}

	tr := newTracker(cfg, store, snaps, []Venue{v}, alerts)
	limiter := rate.NewLimiter(rate.Inf, 1)
	log := zap.NewNop()

	tr.poll(context.Background(), v, limiter, log)
	tr.poll(context.Background(), v, limiter, log)

	select {
	case a := <-alerts:
		assert.Equal(t, types.SourceCEX, a.Source)
		assert.InDelta(t, 10.0, a.Percent, 1e-9)
		assert.Equal(t, 1.00, a.OldPrice)
		assert.Equal(t, 1.10, a.NewPrice)
	default:
		t.Fatal("expected a significant-change alert")
	}
}

func TestPollNoAlertBelowThreshold(t *testing.T) {
	store := &memStore{}
	snaps := cache.NewSnapshots()
	alerts := make(chan types.Alert, 1)

	prices := []float64{1.00, 1.01}
	i := 0
	v := stubVenue{src: types.SourceCEX, fetch: func() (types.VenueQuote, error) {
		q := usdtQuote(types.SourceCEX, prices[i])
		i++
		return q, nil
	}}

	tr := newTracker(testConfig(), store, snaps, []Venue{v}, alerts)
	limiter := rate.NewLimiter(rate.Inf, 1)

	tr.poll(context.Background(), v, limiter, zap.NewNop())
	tr.poll(context.Background(), v, limiter, zap.NewNop())

	select {
	case a := <-alerts:
		t.Fatalf("unexpected alert for a 1%% move: %+v", a)
	default:
	}
}

func TestPollStoreFailureStillUpdatesCache(t *testing.T) {
	store := &memStore{err: types.ErrWriteFailed}
	snaps := cache.NewSnapshots()
	v := stubVenue{src: types.SourceCEX, fetch: func() (types.VenueQuote, error) {
		return usdtQuote(types.SourceCEX, 0.0055), nil
	}}

	tr := newTracker(testConfig(), store, snaps, []Venue{v}, nil)
	tr.poll(context.Background(), v, rate.NewLimiter(rate.Inf, 1), zap.NewNop())

	got, ok := snaps.Latest(types.SourceCEX, time.Minute)
	require.True(t, ok, "a failed append degrades to cache-only, it does not drop the sample")
	assert.Equal(t, 0.0055, got.PriceUSD)
	assert.Empty(t, store.all())
}

func TestPollDropsSampleOnStaleCrossRate(t *testing.T) {
	store := &memStore{}
	snaps := cache.NewSnapshots()
	v := stubVenue{src: types.SourceDexPoolA, fetch: func() (types.VenueQuote, error) {
		return types.VenueQuote{
			Source:      types.SourceDexPoolA,
			QuoteAsset:  "TON",
			PriceNative: 0.001,
			Ts:          time.Now().UTC(),
		}, nil
	}}

	// maxAge zero makes any cross rate stale.
	norm := normalize.New(stubRate{rate: 5.0}, 0)
	tr := New(testConfig(), norm, store, snaps, []Venue{v}, nil, zap.NewNop())
	tr.poll(context.Background(), v, rate.NewLimiter(rate.Inf, 1), zap.NewNop())

	assert.Empty(t, store.all())
	_, ok := snaps.Latest(types.SourceDexPoolA, time.Minute)
	assert.False(t, ok, "a record without a USD price never enters the snapshot set")
}
