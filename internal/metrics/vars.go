package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PriceUSD = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "holder_price_usd",
		Help: "Latest normalized USD price per source",
	}, []string{"source"})

	FetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "holder_fetch_errors_total",
		Help: "Venue fetch/normalize failures by source and kind",
	}, []string{"source", "kind"})

	FetchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "holder_fetch_latency_seconds",
		Help:    "Time to fetch and normalize one venue quote",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	StoreWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "holder_store_writes_total",
		Help: "Price records appended by source",
	}, []string{"source"})

	StoreWriteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "holder_store_write_errors_total",
		Help: "Store appends that rolled back",
	})

	ArbProfitPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "holder_arb_profit_percent",
		Help: "Profit percent of the current best opportunity (0 when none)",
	})

	ArbOpportunities = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "holder_arb_opportunities_total",
		Help: "Opportunities that cleared the profit threshold",
	})
)

func init() {
	prometheus.MustRegister(
		PriceUSD,
		FetchErrors,
		FetchLatency,
		StoreWrites,
		StoreWriteErrors,
		ArbProfitPercent,
		ArbOpportunities,
	)
}
