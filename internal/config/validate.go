package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if !c.Kalshi.Enabled && !c.Polymarket.Enabled {
		return errors.New("at least one of kalshi.enabled or polymarket.enabled is required")
	}
	if c.Kalshi.Enabled {
		if c.Kalshi.RestURL == "" {
			return errors.New("kalshi.rest_url is required")
		}
		if (c.Kalshi.APIKey == "") != (c.Kalshi.PrivateKeyPath == "") {
			return errors.New("kalshi.api_key and kalshi.private_key_path must be set together")
		}
		if err := c.Kalshi.RateLimit.validate("kalshi.rate_limit"); err != nil {
			return err
		}
	}
	if c.Polymarket.Enabled {
		if c.Polymarket.GammaURL == "" {
			return errors.New("polymarket.gamma_url is required")
		}
		if err := c.Polymarket.RateLimit.validate("polymarket.rate_limit"); err != nil {
			return err
		}
	}

	switch c.Research.Source {
	case "http":
		if c.Research.URL == "" {
			return errors.New("research.url is required when research.source is http")
		}
	case "catalog":
		if c.Research.CatalogPath == "" {
			return errors.New("research.catalog_path is required when research.source is catalog")
		}
	default:
		return fmt.Errorf("research.source must be http or catalog, got %q", c.Research.Source)
	}
	if c.Research.BudgetPerCycle < 0 {
		return errors.New("research.budget_per_cycle must be >= 0")
	}
	if c.Research.Concurrency < 1 {
		return errors.New("research.concurrency must be >= 1")
	}
	if err := c.Research.RateLimit.validate("research.rate_limit"); err != nil {
		return err
	}

	if c.Analysis.KellyMultiplier <= 0 || c.Analysis.KellyMultiplier > 1 {
		return fmt.Errorf("analysis.kelly_multiplier must be in (0, 1], got %v", c.Analysis.KellyMultiplier)
	}
	if c.Analysis.MaxFraction <= 0 || c.Analysis.MaxFraction > 1 {
		return fmt.Errorf("analysis.max_fraction must be in (0, 1], got %v", c.Analysis.MaxFraction)
	}
	if c.Analysis.MaxPosition < 0 || c.Analysis.MaxPosition > 1 {
		return fmt.Errorf("analysis.max_position must be in [0, 1], got %v", c.Analysis.MaxPosition)
	}
	if c.Analysis.TargetQuantity < 0 {
		return errors.New("analysis.target_quantity must be >= 0")
	}

	if c.Paper.InitialBalance <= 0 {
		return fmt.Errorf("paper.initial_balance must be > 0, got %v", c.Paper.InitialBalance)
	}
	if c.Paper.MaxOpen < 0 {
		return errors.New("paper.max_open must be >= 0")
	}

	if c.Scheduler.Interval <= 0 {
		return errors.New("scheduler.interval must be > 0")
	}
	if c.Scheduler.Concurrency < 1 {
		return errors.New("scheduler.concurrency must be >= 1")
	}
	if c.Scheduler.Retry.MaxAttempts < 1 {
		return errors.New("scheduler.retry.max_attempts must be >= 1")
	}
	if c.Scheduler.Retry.Jitter < 0 || c.Scheduler.Retry.Jitter > 1 {
		return fmt.Errorf("scheduler.retry.jitter must be in [0, 1], got %v", c.Scheduler.Retry.Jitter)
	}

	switch c.Store.Backend {
	case "memory":
	case "file":
		if c.Store.Path == "" {
			return errors.New("store.path is required for the file backend")
		}
	case "postgres":
		if err := c.Store.Postgres.validate("store.postgres"); err != nil {
			return err
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("store.backend must be memory, file, postgres or redis, got %q", c.Store.Backend)
	}

	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	return nil
}

func (r RateLimitConfig) validate(prefix string) error {
	if r.RPS <= 0 {
		return fmt.Errorf("%s.rps must be > 0", prefix)
	}
	if r.Burst < 1 {
		return fmt.Errorf("%s.burst must be >= 1", prefix)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown level %q", s)
	}
	return l, nil
}
