// pricecheck fetches every configured venue once and prints the normalized
// prices. Handy for verifying pool addresses and API reachability before
// running the bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Memetrix/holder-price-bot/internal/config"
	"github.com/Memetrix/holder-price-bot/internal/connectors/cex/weex"
	"github.com/Memetrix/holder-price-bot/internal/connectors/dex/stonfi"
	"github.com/Memetrix/holder-price-bot/internal/normalize"
	"github.com/Memetrix/holder-price-bot/internal/rates"
	"github.com/Memetrix/holder-price-bot/internal/types"
)

type venue interface {
	Source() types.Source
	Fetch(ctx context.Context) (types.VenueQuote, error)
}

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	log := zap.NewNop()
	stonfiClient := stonfi.NewClient(cfg.StonFi.BaseURL, cfg.FetchTimeout(), log)
	weexClient := weex.NewClient(cfg.Weex.BaseURL, cfg.Weex.SymbolID, cfg.FetchTimeout(), log)

	cross := rates.NewCached(rates.NewCEXProvider(weexClient, cfg.Rates.CrossRatePair), log)
	if err := cross.Refresh(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "warning: cross rate unavailable:", err)
	} else {
		rate, at, _ := cross.Last()
		fmt.Printf("cross rate %s: %.6f (fetched %s)\n", cfg.Rates.CrossRatePair, rate, at.Format(time.RFC3339))
	}
	norm := normalize.New(cross, cfg.CrossRateMaxAge())

	venues := make([]venue, 0, len(cfg.StonFi.Pools)+1)
	for _, pc := range cfg.StonFi.Pools {
		venues = append(venues, stonfi.NewPoolAdapter(stonfiClient, pc, log))
	}
	venues = append(venues, weex.NewAdapter(weexClient))

	exitCode := 0
	for _, v := range venues {
		q, err := v.Fetch(ctx)
		if err != nil {
			fmt.Printf("[%s] fetch failed: %v\n", v.Source(), err)
			exitCode = 1
			continue
		}
		rec, err := norm.Normalize(q)
		if err != nil {
			fmt.Printf("[%s] native=%.10f %s (normalize failed: %v)\n", v.Source(), q.PriceNative, q.QuoteAsset, err)
			exitCode = 1
			continue
		}
		fmt.Printf("[%s] usd=%.10f native=%.10f %s vol24h=%s liq=%s\n",
			v.Source(), rec.PriceUSD, q.PriceNative, q.QuoteAsset,
			optStr(rec.Volume24h), optStr(rec.LiquidityUSD))
	}
	os.Exit(exitCode)
}

func optStr(p *float64) string {
	if p == nil {
		return "—"
	}
	return fmt.Sprintf("%.2f", *p)
}
