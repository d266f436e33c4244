package market

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/store"
)

// Config holds registry configuration.
type Config struct {
	// KeepHistory appends superseded base rates to a per-market history record.
	KeepHistory bool
}

// registryImpl implements the Registry interface.
type registryImpl struct {
	cfg    Config
	store  store.Store
	logger *slog.Logger
	now    func() time.Time

	state *registryState
}

// NewRegistry creates a registry backed by st.
func NewRegistry(cfg Config, st store.Store, logger *slog.Logger) Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &registryImpl{
		cfg:    cfg,
		store:  st,
		logger: logger,
		now:    time.Now,
		state:  newState(),
	}
}

// Load restores markets listed in the index and their base rates.
func (r *registryImpl) Load(ctx context.Context) error {
	var ids []string
	if _, err := r.store.Load(ctx, store.KeyMarketIndex, &ids); err != nil {
		return fmt.Errorf("load market index: %w", err)
	}

	markets := make([]model.Market, 0, len(ids))
	rates := make([]model.BaseRate, 0, len(ids))
	for _, id := range ids {
		var m model.Market
		found, err := r.store.Load(ctx, store.MarketKey(id), &m)
		if err != nil {
			return fmt.Errorf("load market %s: %w", id, err)
		}
		if !found {
			r.logger.Warn("indexed market missing from store", "market_id", id)
			continue
		}
		markets = append(markets, m)

		var rate model.BaseRate
		found, err = r.store.Load(ctx, store.BaseRateKey(id), &rate)
		if err != nil {
			return fmt.Errorf("load base rate %s: %w", id, err)
		}
		if found {
			rates = append(rates, rate)
		}
	}

	r.state.mu.Lock()
	for _, m := range markets {
		r.state.upsertMarketLocked(m)
	}
	for _, rate := range rates {
		r.state.rates[rate.MarketID] = rate
	}
	r.state.mu.Unlock()

	r.logger.Info("market registry loaded", "markets", len(markets), "base_rates", len(rates))
	return nil
}

// UpsertMarkets persists each market then updates the cache and the index.
// A market is saved before it is indexed, so an interrupted upsert leaves at
// most an unindexed document that the next upsert indexes.
func (r *registryImpl) UpsertMarkets(ctx context.Context, markets []model.Market) ([]MarketChange, error) {
	changes := make([]MarketChange, 0, len(markets))
	for _, m := range markets {
		if m.ID == "" {
			return changes, fmt.Errorf("upsert market: empty id")
		}
		if err := r.store.Save(ctx, store.MarketKey(m.ID), m); err != nil {
			return changes, fmt.Errorf("save market %s: %w", m.ID, err)
		}
		r.state.mu.Lock()
		changes = append(changes, r.state.upsertMarketLocked(m))
		r.state.mu.Unlock()
	}

	r.state.mu.Lock()
	ids := make([]string, 0, len(r.state.markets))
	for id := range r.state.markets {
		ids = append(ids, id)
	}
	r.state.lastSyncAt = r.now()
	r.state.mu.Unlock()

	slices.Sort(ids)
	if err := r.store.Save(ctx, store.KeyMarketIndex, ids); err != nil {
		return changes, fmt.Errorf("save market index: %w", err)
	}
	return changes, nil
}

// GetMarket returns a market by id.
func (r *registryImpl) GetMarket(id string) (model.Market, bool) {
	return r.state.getMarket(id)
}

// GetMarkets returns all known markets.
func (r *registryImpl) GetMarkets() []model.Market {
	return r.state.getMarkets(nil)
}

// GetActiveMarkets returns markets not yet past resolution.
func (r *registryImpl) GetActiveMarkets(now time.Time) []model.Market {
	return r.state.getMarkets(func(m model.Market) bool { return !m.Resolved(now) })
}

// GetBaseRate returns a market's current base rate.
func (r *registryImpl) GetBaseRate(id string) (model.BaseRate, bool) {
	return r.state.getRate(id)
}

// SaveBaseRate persists rate, then replaces the cached value.
func (r *registryImpl) SaveBaseRate(ctx context.Context, rate model.BaseRate) error {
	if rate.MarketID == "" {
		return fmt.Errorf("save base rate: empty market id")
	}

	if r.cfg.KeepHistory {
		if prev, ok := r.state.getRate(rate.MarketID); ok {
			history, err := r.BaseRateHistory(ctx, rate.MarketID)
			if err != nil {
				return err
			}
			history = append(history, prev)
			if err := r.store.Save(ctx, store.BaseRateHistoryKey(rate.MarketID), history); err != nil {
				return fmt.Errorf("save base rate history %s: %w", rate.MarketID, err)
			}
		}
	}

	if err := r.store.Save(ctx, store.BaseRateKey(rate.MarketID), rate); err != nil {
		return fmt.Errorf("save base rate %s: %w", rate.MarketID, err)
	}
	r.state.setRate(rate)
	return nil
}

// BaseRateHistory returns the superseded base rates of a market.
func (r *registryImpl) BaseRateHistory(ctx context.Context, id string) ([]model.BaseRate, error) {
	var history []model.BaseRate
	if _, err := r.store.Load(ctx, store.BaseRateHistoryKey(id), &history); err != nil {
		return nil, fmt.Errorf("load base rate history %s: %w", id, err)
	}
	return history, nil
}
