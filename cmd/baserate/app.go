package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/rickgao/baserate-arb/internal/analysis"
	"github.com/rickgao/baserate-arb/internal/config"
	"github.com/rickgao/baserate-arb/internal/dedup"
	"github.com/rickgao/baserate-arb/internal/ledger"
	"github.com/rickgao/baserate-arb/internal/market"
	"github.com/rickgao/baserate-arb/internal/metrics"
	"github.com/rickgao/baserate-arb/internal/research"
	"github.com/rickgao/baserate-arb/internal/scheduler"
	"github.com/rickgao/baserate-arb/internal/sizing"
	"github.com/rickgao/baserate-arb/internal/store"
	"github.com/rickgao/baserate-arb/internal/venue"
)

// app holds the wired pipeline for one process.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     store.Store
	registry  market.Registry
	ledger    *ledger.Ledger
	dedup     *dedup.Tracker
	metrics   *metrics.Metrics
	venues    []venue.Venue
	scheduler *scheduler.Scheduler
}

// newApp restores persisted state and wires the pipeline.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	logger.Info("opening store", "backend", cfg.Store.Backend)
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, store: st}
	if err := a.wire(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	a.registry = market.NewRegistry(market.Config{KeepHistory: cfg.Research.KeepHistory}, a.store, a.logger)
	if err := a.registry.Load(ctx); err != nil {
		return fmt.Errorf("load markets: %w", err)
	}

	l, err := ledger.New(ctx, a.store, decimal.NewFromFloat(cfg.Paper.InitialBalance), ledger.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	a.ledger = l

	a.dedup = dedup.NewTracker(a.store, cfg.Research.Cooldown)
	if err := a.dedup.Load(ctx); err != nil {
		return fmt.Errorf("load research history: %w", err)
	}

	a.venues, err = venue.FromConfig(cfg, a.logger)
	if err != nil {
		return fmt.Errorf("build venues: %w", err)
	}

	researcher, err := research.FromConfig(cfg.Research, a.logger)
	if err != nil {
		// The pipeline still fetches, evaluates and settles without research.
		a.logger.Warn("research disabled", "source", cfg.Research.Source, "error", err)
		researcher = nil
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
	}

	evaluator := analysis.NewEvaluator(analysis.Config{
		TargetQuantity:   cfg.Analysis.TargetQuantity,
		Bankroll:         l.Account().Balance,
		MarketStaleAfter: cfg.Analysis.MarketStaleAfter,
		RateStaleAfter:   cfg.Analysis.RateStaleAfter,
		MakerFees:        cfg.Analysis.MakerFees,
	}, sizing.Sizer{
		KellyMultiplier: cfg.Analysis.KellyMultiplier,
		MaxFraction:     cfg.Analysis.MaxFraction,
		MaxPosition:     cfg.Analysis.MaxPosition,
	})

	a.scheduler = scheduler.New(scheduler.ConfigFrom(cfg), scheduler.Deps{
		Venues:     a.venues,
		Researcher: researcher,
		Registry:   a.registry,
		Evaluator:  evaluator,
		Ledger:     l,
		Dedup:      a.dedup,
		Store:      a.store,
		Metrics:    a.metrics,
		Logger:     a.logger,
	})

	a.logger.Info("pipeline ready",
		"instance_id", cfg.Instance.ID,
		"venues", len(a.venues),
		"markets", len(a.registry.GetMarkets()),
		"balance", l.Account().Balance.StringFixed(2),
		"research", researcher != nil,
	)
	return nil
}

// checkVenues pings venues that support it. Failures are logged, not fatal.
func (a *app) checkVenues(ctx context.Context) {
	for _, v := range a.venues {
		p, ok := v.(venue.Pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			a.logger.Warn("venue health check failed", "platform", v.Platform(), "error", err)
			continue
		}
		a.logger.Info("venue reachable", "platform", v.Platform())
	}
}

func (a *app) Close() error {
	var errs []error
	if a.dedup != nil {
		if err := a.dedup.Flush(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("flush research history: %w", err))
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
