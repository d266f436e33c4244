package market

import (
	"context"
	"time"

	"github.com/rickgao/baserate-arb/internal/model"
)

// Registry manages market snapshots and their base rates.
type Registry interface {
	// Load restores markets and base rates from the store.
	Load(ctx context.Context) error

	// UpsertMarkets replaces the snapshots of the given markets and persists
	// them. It returns one MarketChange per market.
	UpsertMarkets(ctx context.Context, markets []model.Market) ([]MarketChange, error)

	// GetMarket returns a market by id.
	GetMarket(id string) (model.Market, bool)

	// GetMarkets returns all known markets sorted by id.
	GetMarkets() []model.Market

	// GetActiveMarkets returns markets whose resolution time is after now.
	GetActiveMarkets(now time.Time) []model.Market

	// GetBaseRate returns the current base rate of a market.
	GetBaseRate(id string) (model.BaseRate, bool)

	// SaveBaseRate replaces a market's base rate and persists it.
	SaveBaseRate(ctx context.Context, rate model.BaseRate) error

	// BaseRateHistory returns superseded base rates, oldest first.
	BaseRateHistory(ctx context.Context, id string) ([]model.BaseRate, error)
}

// MarketChange describes what an upsert did to one market.
type MarketChange struct {
	ID        string
	EventType string // "created", "updated", "status_change"
	OldStatus string
	NewStatus string
}
