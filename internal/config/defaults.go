package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
	DefaultKalshiRestURL        = "https://api.elections.kalshi.com/trade-api/v2"
	DefaultPolymarketGammaURL   = "https://gamma-api.polymarket.com"
	DefaultPolymarketClobURL    = "https://clob.polymarket.com"
	DefaultAPITimeout           = 30 * time.Second
	DefaultMaxRetries           = 3
	DefaultMaxMarkets           = 500
	DefaultBookDepth            = 10
	DefaultVenueRPS             = 5
	DefaultVenueBurst           = 5
	DefaultResearchSource       = "catalog"
	DefaultCatalogPath          = "base_rates.yaml"
	DefaultResearchTimeout      = 2 * time.Minute
	DefaultResearchBudget       = 5
	DefaultResearchCooldown     = 24 * time.Hour
	DefaultResearchStaleAfter   = 7 * 24 * time.Hour
	DefaultResearchConcurrency  = 2
	DefaultResearchRPS          = 0.5
	DefaultResearchBurst        = 1
	DefaultKellyMultiplier      = 0.5
	DefaultMaxFraction          = 1.0
	DefaultMarketStaleAfter     = 2 * time.Hour
	DefaultInitialBalance       = 1000.0
	DefaultSchedulerInterval    = 6 * time.Hour
	DefaultSchedulerConcurrency = 8
	DefaultCallTimeout          = 45 * time.Second
	DefaultRetryAttempts        = 3
	DefaultRetryBaseDelay       = 500 * time.Millisecond
	DefaultRetryMaxDelay        = 10 * time.Second
	DefaultRetryJitter          = 0.5
	DefaultBreakerFailures      = 5
	DefaultBreakerOpenTimeout   = 60 * time.Second
	DefaultStoreBackend         = "memory"
	DefaultStorePath            = "data"
	DefaultStoreTable           = "kv_store"
	DefaultRedisPrefix          = "baserate:"
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 10
	DefaultMinConns             = 2
	DefaultServerAddr           = ":8080"
	DefaultMetricsPath          = "/metrics"
)

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}

	// Kalshi defaults
	if c.Kalshi.RestURL == "" {
		c.Kalshi.RestURL = DefaultKalshiRestURL
	}
	if c.Kalshi.Timeout == 0 {
		c.Kalshi.Timeout = DefaultAPITimeout
	}
	if c.Kalshi.MaxRetries == 0 {
		c.Kalshi.MaxRetries = DefaultMaxRetries
	}
	if c.Kalshi.MaxMarkets == 0 {
		c.Kalshi.MaxMarkets = DefaultMaxMarkets
	}
	if c.Kalshi.BookDepth == 0 {
		c.Kalshi.BookDepth = DefaultBookDepth
	}
	applyRateDefaults(&c.Kalshi.RateLimit, DefaultVenueRPS, DefaultVenueBurst)

	// Polymarket defaults
	if c.Polymarket.GammaURL == "" {
		c.Polymarket.GammaURL = DefaultPolymarketGammaURL
	}
	if c.Polymarket.ClobURL == "" {
		c.Polymarket.ClobURL = DefaultPolymarketClobURL
	}
	if c.Polymarket.Timeout == 0 {
		c.Polymarket.Timeout = DefaultAPITimeout
	}
	if c.Polymarket.MaxRetries == 0 {
		c.Polymarket.MaxRetries = DefaultMaxRetries
	}
	if c.Polymarket.MaxMarkets == 0 {
		c.Polymarket.MaxMarkets = DefaultMaxMarkets
	}
	applyRateDefaults(&c.Polymarket.RateLimit, DefaultVenueRPS, DefaultVenueBurst)

	// Research defaults
	if c.Research.Source == "" {
		c.Research.Source = DefaultResearchSource
	}
	if c.Research.Source == "catalog" && c.Research.CatalogPath == "" {
		c.Research.CatalogPath = DefaultCatalogPath
	}
	if c.Research.Timeout == 0 {
		c.Research.Timeout = DefaultResearchTimeout
	}
	if c.Research.BudgetPerCycle == 0 {
		c.Research.BudgetPerCycle = DefaultResearchBudget
	}
	if c.Research.Cooldown == 0 {
		c.Research.Cooldown = DefaultResearchCooldown
	}
	if c.Research.StaleAfter == 0 {
		c.Research.StaleAfter = DefaultResearchStaleAfter
	}
	if c.Research.Concurrency == 0 {
		c.Research.Concurrency = DefaultResearchConcurrency
	}
	applyRateDefaults(&c.Research.RateLimit, DefaultResearchRPS, DefaultResearchBurst)

	// Analysis defaults
	if c.Analysis.KellyMultiplier == 0 {
		c.Analysis.KellyMultiplier = DefaultKellyMultiplier
	}
	if c.Analysis.MaxFraction == 0 {
		c.Analysis.MaxFraction = DefaultMaxFraction
	}
	if c.Analysis.MarketStaleAfter == 0 {
		c.Analysis.MarketStaleAfter = DefaultMarketStaleAfter
	}
	if c.Analysis.RateStaleAfter == 0 {
		c.Analysis.RateStaleAfter = c.Research.StaleAfter
	}

	// Paper defaults
	if c.Paper.InitialBalance == 0 {
		c.Paper.InitialBalance = DefaultInitialBalance
	}

	// Scheduler defaults
	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = DefaultSchedulerInterval
	}
	if c.Scheduler.Concurrency == 0 {
		c.Scheduler.Concurrency = DefaultSchedulerConcurrency
	}
	if c.Scheduler.CallTimeout == 0 {
		c.Scheduler.CallTimeout = DefaultCallTimeout
	}
	if c.Scheduler.Retry.MaxAttempts == 0 {
		c.Scheduler.Retry.MaxAttempts = DefaultRetryAttempts
	}
	if c.Scheduler.Retry.BaseDelay == 0 {
		c.Scheduler.Retry.BaseDelay = DefaultRetryBaseDelay
	}
	if c.Scheduler.Retry.MaxDelay == 0 {
		c.Scheduler.Retry.MaxDelay = DefaultRetryMaxDelay
	}
	if c.Scheduler.Retry.Jitter == 0 {
		c.Scheduler.Retry.Jitter = DefaultRetryJitter
	}
	if c.Scheduler.Breaker.ConsecutiveFailures == 0 {
		c.Scheduler.Breaker.ConsecutiveFailures = DefaultBreakerFailures
	}
	if c.Scheduler.Breaker.OpenTimeout == 0 {
		c.Scheduler.Breaker.OpenTimeout = DefaultBreakerOpenTimeout
	}

	// Store defaults
	if c.Store.Backend == "" {
		c.Store.Backend = DefaultStoreBackend
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
	if c.Store.Table == "" {
		c.Store.Table = DefaultStoreTable
	}
	if c.Store.Redis.Prefix == "" {
		c.Store.Redis.Prefix = DefaultRedisPrefix
	}
	applyDBDefaults(&c.Store.Postgres)

	// Server and metrics defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyRateDefaults(r *RateLimitConfig, rps float64, burst int) {
	if r.RPS == 0 {
		r.RPS = rps
	}
	if r.Burst == 0 {
		r.Burst = burst
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
