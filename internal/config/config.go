package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PoolCfg describes one STON.fi pool to track. Base and quote are asset
// contract addresses; reserve slots are matched against them at fetch time.
type PoolCfg struct {
	Source     string `yaml:"source"` // "dex_pool_a" | "dex_pool_b"
	Address    string `yaml:"address"`
	BaseAsset  string `yaml:"base_asset"`
	QuoteAsset string `yaml:"quote_asset"`
	QuoteSym   string `yaml:"quote_symbol"` // "TON", "USDT"
}

type TokenCfg struct {
	Symbol   string `yaml:"symbol"`
	Contract string `yaml:"contract"`
}

type StonFiCfg struct {
	BaseURL string    `yaml:"base_url"`
	Pools   []PoolCfg `yaml:"pools"`
}

type WeexCfg struct {
	BaseURL  string `yaml:"base_url"`
	SymbolID int    `yaml:"symbol_id"`
}

type RatesCfg struct {
	Provider      string `yaml:"provider"` // "cex" | "coingecko"
	CoinGeckoURL  string `yaml:"coingecko_url"`
	CoinGeckoID   string `yaml:"coingecko_id"`
	CoinGeckoKey  string `yaml:"coingecko_key"`
	MaxAgeSec     int    `yaml:"max_age_sec"`
	RefreshSec    int    `yaml:"refresh_sec"`
	CrossRatePair string `yaml:"cross_rate_pair"` // CEX symbol for TON/USDT
}

type StorageCfg struct {
	Backend        string `yaml:"backend"` // "sqlite" | "postgres"
	SQLitePath     string `yaml:"sqlite_path"`
	PostgresDSN    string `yaml:"postgres_dsn"`
	MaxConns       int    `yaml:"max_conns"`
	RetentionDays  int    `yaml:"retention_days"`
	PruneIntervalH int    `yaml:"prune_interval_h"`
}

type CacheCfg struct {
	PriceTTLSec int `yaml:"price_ttl_sec"`
	StatsTTLSec int `yaml:"stats_ttl_sec"`
}

type ArbitrageCfg struct {
	MinProfitPercent float64 `yaml:"min_profit_percent"`
	StalenessSec     int     `yaml:"staleness_sec"`
	TickMs           int     `yaml:"tick_ms"`
}

type TrackerCfg struct {
	PollIntervalSec       int     `yaml:"poll_interval_sec"`
	AlertThresholdPercent float64 `yaml:"alert_threshold_percent"`
	FetchTimeoutSec       int     `yaml:"fetch_timeout_sec"`
	RateLimitPerMin       int     `yaml:"rate_limit_per_min"`
	RateLimitBurst        int     `yaml:"rate_limit_burst"`
}

type RedisCfg struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Stream   string `yaml:"stream"`
	LatestNS string `yaml:"latest_ns"`
}

type APICfg struct {
	ListenAddr string `yaml:"listen_addr"`
}

type MetricsCfg struct {
	ListenAddr string `yaml:"listen_addr"`
}

type Config struct {
	Token     TokenCfg     `yaml:"token"`
	StonFi    StonFiCfg    `yaml:"stonfi"`
	Weex      WeexCfg      `yaml:"weex"`
	Rates     RatesCfg     `yaml:"rates"`
	Storage   StorageCfg   `yaml:"storage"`
	Cache     CacheCfg     `yaml:"cache"`
	Arbitrage ArbitrageCfg `yaml:"arbitrage"`
	Tracker   TrackerCfg   `yaml:"tracker"`
	Redis     RedisCfg     `yaml:"redis"`
	API       APICfg       `yaml:"api"`
	Metrics   MetricsCfg   `yaml:"metrics"`
}

// Load reads the YAML config, applies .env/environment overrides for secrets
// and fills defaults. The result is static for the life of the process.
func Load(path string) (*Config, error) {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		c.Rates.CoinGeckoKey = v
	}

	c.applyDefaults()
	return &c, c.validate()
}

func (c *Config) applyDefaults() {
	if c.Token.Symbol == "" {
		c.Token.Symbol = "HOLDER"
	}
	if c.StonFi.BaseURL == "" {
		c.StonFi.BaseURL = "https://api.ston.fi"
	}
	if c.Weex.BaseURL == "" {
		c.Weex.BaseURL = "https://api.origami.tech"
	}
	if c.Weex.SymbolID == 0 {
		c.Weex.SymbolID = 36380
	}
	if c.Rates.Provider == "" {
		c.Rates.Provider = "cex"
	}
	if c.Rates.CoinGeckoURL == "" {
		c.Rates.CoinGeckoURL = "https://api.coingecko.com/api/v3"
	}
	if c.Rates.CoinGeckoID == "" {
		c.Rates.CoinGeckoID = "the-open-network"
	}
	if c.Rates.CrossRatePair == "" {
		c.Rates.CrossRatePair = "TONUSDT"
	}
	if c.Rates.MaxAgeSec == 0 {
		c.Rates.MaxAgeSec = 300
	}
	if c.Rates.RefreshSec == 0 {
		c.Rates.RefreshSec = 60
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "sqlite"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/holder_bot.db"
	}
	if c.Storage.MaxConns == 0 {
		c.Storage.MaxConns = 4
	}
	if c.Storage.RetentionDays == 0 {
		c.Storage.RetentionDays = 30
	}
	if c.Storage.PruneIntervalH == 0 {
		c.Storage.PruneIntervalH = 6
	}
	if c.Cache.PriceTTLSec == 0 {
		c.Cache.PriceTTLSec = 30
	}
	if c.Cache.StatsTTLSec == 0 {
		c.Cache.StatsTTLSec = 300
	}
	if c.Arbitrage.MinProfitPercent == 0 {
		c.Arbitrage.MinProfitPercent = 2.0
	}
	if c.Arbitrage.StalenessSec == 0 {
		c.Arbitrage.StalenessSec = 180
	}
	if c.Arbitrage.TickMs == 0 {
		c.Arbitrage.TickMs = 5000
	}
	if c.Tracker.PollIntervalSec == 0 {
		c.Tracker.PollIntervalSec = 60
	}
	if c.Tracker.AlertThresholdPercent == 0 {
		c.Tracker.AlertThresholdPercent = 5.0
	}
	if c.Tracker.FetchTimeoutSec == 0 {
		c.Tracker.FetchTimeoutSec = 15
	}
	if c.Tracker.RateLimitPerMin == 0 {
		c.Tracker.RateLimitPerMin = 30
	}
	if c.Tracker.RateLimitBurst == 0 {
		c.Tracker.RateLimitBurst = 5
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "holder:snapshots"
	}
	if c.Redis.LatestNS == "" {
		c.Redis.LatestNS = "holder:latest:"
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("config: postgres backend requires postgres_dsn or POSTGRES_DSN")
	}
	for _, p := range c.StonFi.Pools {
		if p.Source != "dex_pool_a" && p.Source != "dex_pool_b" {
			return fmt.Errorf("config: pool source must be dex_pool_a or dex_pool_b, got %q", p.Source)
		}
		if p.BaseAsset == "" || p.QuoteAsset == "" {
			return fmt.Errorf("config: pool %s needs base_asset and quote_asset addresses", p.Source)
		}
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Tracker.PollIntervalSec) * time.Second
}
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Tracker.FetchTimeoutSec) * time.Second
}
func (c *Config) DetectorTick() time.Duration {
	return time.Duration(c.Arbitrage.TickMs) * time.Millisecond
}
func (c *Config) StalenessBound() time.Duration {
	return time.Duration(c.Arbitrage.StalenessSec) * time.Second
}
func (c *Config) PriceTTL() time.Duration {
	return time.Duration(c.Cache.PriceTTLSec) * time.Second
}
func (c *Config) StatsTTL() time.Duration {
	return time.Duration(c.Cache.StatsTTLSec) * time.Second
}
func (c *Config) CrossRateMaxAge() time.Duration {
	return time.Duration(c.Rates.MaxAgeSec) * time.Second
}
func (c *Config) CrossRateRefresh() time.Duration {
	return time.Duration(c.Rates.RefreshSec) * time.Second
}
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionDays) * 24 * time.Hour
}
func (c *Config) PruneInterval() time.Duration {
	return time.Duration(c.Storage.PruneIntervalH) * time.Hour
}
