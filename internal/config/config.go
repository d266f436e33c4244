package config

import (
	"time"

	"github.com/rickgao/baserate-arb/internal/rank"
)

// Config is the root configuration for a pipeline instance.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Log        LogConfig        `yaml:"log"`
	Kalshi     KalshiConfig     `yaml:"kalshi"`
	Polymarket PolymarketConfig `yaml:"polymarket"`
	Research   ResearchConfig   `yaml:"research"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Criteria   rank.Criteria    `yaml:"criteria"`
	Paper      PaperConfig      `yaml:"paper"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Store      StoreConfig      `yaml:"store"`
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// RateLimitConfig is a token bucket for one collaborator.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// KalshiConfig holds Kalshi API settings.
type KalshiConfig struct {
	Enabled        bool            `yaml:"enabled"`
	RestURL        string          `yaml:"rest_url"`
	APIKey         string          `yaml:"api_key"`          // API key ID (for KALSHI-ACCESS-KEY header)
	PrivateKeyPath string          `yaml:"private_key_path"` // Path to RSA private key PEM file
	Timeout        time.Duration   `yaml:"timeout"`
	MaxRetries     int             `yaml:"max_retries"`
	MaxMarkets     int             `yaml:"max_markets"`
	BookDepth      int             `yaml:"book_depth"`
	FetchBooks     bool            `yaml:"fetch_books"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// PolymarketConfig holds Polymarket Gamma and CLOB settings.
type PolymarketConfig struct {
	Enabled    bool            `yaml:"enabled"`
	GammaURL   string          `yaml:"gamma_url"`
	ClobURL    string          `yaml:"clob_url"`
	Timeout    time.Duration   `yaml:"timeout"`
	MaxRetries int             `yaml:"max_retries"`
	MaxMarkets int             `yaml:"max_markets"`
	FetchBooks bool            `yaml:"fetch_books"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
}

// ResearchConfig controls base-rate research.
type ResearchConfig struct {
	Source         string          `yaml:"source"` // "http" or "catalog"
	URL            string          `yaml:"url"`
	APIKey         string          `yaml:"api_key"`
	CatalogPath    string          `yaml:"catalog_path"`
	Timeout        time.Duration   `yaml:"timeout"`
	BudgetPerCycle int             `yaml:"budget_per_cycle"`
	Cooldown       time.Duration   `yaml:"cooldown"`
	StaleAfter     time.Duration   `yaml:"stale_after"`
	KeepHistory    bool            `yaml:"keep_history"`
	Concurrency    int             `yaml:"concurrency"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// AnalysisConfig controls evaluation and sizing.
type AnalysisConfig struct {
	TargetQuantity   int           `yaml:"target_quantity"`
	KellyMultiplier  float64       `yaml:"kelly_multiplier"`
	MaxFraction      float64       `yaml:"max_fraction"`
	MaxPosition      float64       `yaml:"max_position"`
	MarketStaleAfter time.Duration `yaml:"market_stale_after"`
	RateStaleAfter   time.Duration `yaml:"rate_stale_after"`
	AllowStale       bool          `yaml:"allow_stale"`
	MakerFees        bool          `yaml:"maker_fees"`
}

// PaperConfig controls the paper-trading ledger and automatic trading.
type PaperConfig struct {
	InitialBalance float64       `yaml:"initial_balance"`
	AutoTrade      bool          `yaml:"auto_trade"`
	AutoAll        bool          `yaml:"auto_all"`
	AutoMarkets    []string      `yaml:"auto_markets"`
	// MaxOpen caps open positions for automatic trading. Zero means no cap.
	MaxOpen        int           `yaml:"max_open"`
	Criteria       rank.Criteria `yaml:"criteria"`
}

// SchedulerConfig controls the cycle loop.
type SchedulerConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	CallTimeout time.Duration `yaml:"call_timeout"`
	Retry       RetryConfig   `yaml:"retry"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// RetryConfig is the retry policy for collaborator calls.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Jitter      float64       `yaml:"jitter"` // fraction of the delay, 0-1
}

// BreakerConfig controls per-collaborator circuit breakers.
type BreakerConfig struct {
	ConsecutiveFailures int           `yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend  string      `yaml:"backend"` // memory, file, postgres, redis
	Path     string      `yaml:"path"`
	Table    string      `yaml:"table"`
	Postgres DBConfig    `yaml:"postgres"`
	Redis    RedisConfig `yaml:"redis"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RedisConfig holds a Redis connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
