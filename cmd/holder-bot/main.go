package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Memetrix/holder-price-bot/internal/api"
	"github.com/Memetrix/holder-price-bot/internal/cache"
	"github.com/Memetrix/holder-price-bot/internal/config"
	"github.com/Memetrix/holder-price-bot/internal/connectors/cex/weex"
	"github.com/Memetrix/holder-price-bot/internal/connectors/dex/stonfi"
	"github.com/Memetrix/holder-price-bot/internal/connectors/redisfeed"
	"github.com/Memetrix/holder-price-bot/internal/detector"
	"github.com/Memetrix/holder-price-bot/internal/discovery"
	"github.com/Memetrix/holder-price-bot/internal/metrics"
	"github.com/Memetrix/holder-price-bot/internal/normalize"
	"github.com/Memetrix/holder-price-bot/internal/rates"
	"github.com/Memetrix/holder-price-bot/internal/stats"
	"github.com/Memetrix/holder-price-bot/internal/store"
	"github.com/Memetrix/holder-price-bot/internal/tracker"
	"github.com/Memetrix/holder-price-bot/internal/types"
)

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format(time.RFC3339))
	}
	return cfg.Build()
}

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Warn("signal received, shutting down")
		cancel()
	}()

	go func() {
		if err := metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, logger); err != nil {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	var db store.Store
	switch cfg.Storage.Backend {
	case "postgres":
		db, err = store.NewPostgres(ctx, cfg.Storage.PostgresDSN, cfg.Storage.MaxConns)
	default:
		db, err = store.NewSQLite(cfg.Storage.SQLitePath)
	}
	if err != nil {
		logger.Fatal("store init failed", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}
	defer db.Close()

	stonfiClient := stonfi.NewClient(cfg.StonFi.BaseURL, cfg.FetchTimeout(), logger)
	weexClient := weex.NewClient(cfg.Weex.BaseURL, cfg.Weex.SymbolID, cfg.FetchTimeout(), logger)

	// Verify configured pools upstream before any polling starts.
	if _, err := discovery.NewService(cfg, stonfiClient, logger).Run(ctx); err != nil {
		logger.Fatal("pool discovery failed", zap.Error(err))
	}

	var provider rates.Provider
	switch cfg.Rates.Provider {
	case "coingecko":
		provider = rates.NewCoinGecko(cfg.Rates.CoinGeckoURL, cfg.Rates.CoinGeckoID, cfg.Rates.CoinGeckoKey)
	default:
		provider = rates.NewCEXProvider(weexClient, cfg.Rates.CrossRatePair)
	}
	cross := rates.NewCached(provider, logger)
	go cross.Run(ctx, cfg.CrossRateRefresh())

	norm := normalize.New(cross, cfg.CrossRateMaxAge())
	snaps := cache.NewSnapshots()

	venues := make([]tracker.Venue, 0, len(cfg.StonFi.Pools)+1)
	for _, pc := range cfg.StonFi.Pools {
		venues = append(venues, stonfi.NewPoolAdapter(stonfiClient, pc, logger))
	}
	venues = append(venues, weex.NewAdapter(weexClient))

	alertCh := make(chan types.Alert, 64)
	oppCh := make(chan types.Opportunity, 64)

	tr := tracker.New(cfg, norm, db, snaps, venues, alertCh, logger)
	go func() {
		if err := tr.Run(ctx); err != nil {
			logger.Error("tracker stopped", zap.Error(err))
		}
	}()

	go detector.Run(ctx, cfg, snaps, oppCh, logger)

	svc := api.NewService(cfg, db, snaps, stats.New(db), logger)
	hub := api.NewHub(logger)
	go hub.Run(ctx)
	go func() {
		if err := api.NewServer(svc, hub, cfg.API.ListenAddr, logger).Run(ctx); err != nil {
			logger.Error("api server stopped", zap.Error(err))
			cancel()
		}
	}()

	var pub *redisfeed.Publisher
	if cfg.Redis.Enabled {
		pub = redisfeed.NewPublisher(cfg)
		defer pub.Close()
	}

	go fanOut(ctx, cfg, snaps, svc, hub, pub, oppCh, alertCh, logger)
	go pruneLoop(ctx, cfg, db, logger)

	logger.Info("holder price bot started",
		zap.String("token", cfg.Token.Symbol),
		zap.String("backend", cfg.Storage.Backend),
		zap.Int("pools", len(cfg.StonFi.Pools)),
		zap.Bool("redis", cfg.Redis.Enabled),
	)

	for ctx.Err() == nil {
		time.Sleep(250 * time.Millisecond)
	}
}

// fanOut forwards pipeline events to the websocket hub and the Redis feed,
// and publishes the composite snapshot on every poll interval.
func fanOut(ctx context.Context, cfg *config.Config, snaps *cache.Snapshots, svc *api.Service,
	hub *api.Hub, pub *redisfeed.Publisher, oppCh <-chan types.Opportunity, alertCh <-chan types.Alert,
	log *zap.Logger) {

	t := time.NewTicker(cfg.PollInterval())
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			snap := snaps.All()
			if len(snap) == 0 {
				continue
			}
			hub.Broadcast("snapshot", snap)
			if pub != nil {
				if err := pub.PublishSnapshot(ctx, snap); err != nil {
					log.Warn("redis publish failed", zap.Error(err))
				}
			}
		case opp := <-oppCh:
			svc.SetOpportunity(opp)
			hub.Broadcast("opportunity", opp)
			if pub != nil {
				if err := pub.PublishOpportunity(ctx, opp); err != nil {
					log.Warn("redis publish failed", zap.Error(err))
				}
			}
		case a := <-alertCh:
			hub.Broadcast("alert", a)
		}
	}
}

// pruneLoop enforces retention on a timer. A failed sweep is retried on the
// next tick; rows only accumulate, they never corrupt.
func pruneLoop(ctx context.Context, cfg *config.Config, db store.Store, log *zap.Logger) {
	t := time.NewTicker(cfg.PruneInterval())
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			cutoff := time.Now().UTC().Add(-cfg.Retention())
			n, err := db.Prune(ctx, cutoff)
			if err != nil {
				log.Warn("prune failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("pruned old records", zap.Int64("rows", n), zap.Time("cutoff", cutoff))
			}
		}
	}
}
