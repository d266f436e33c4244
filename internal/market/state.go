package market

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rickgao/baserate-arb/internal/model"
)

// registryState holds the thread-safe market and base-rate cache.
type registryState struct {
	mu sync.RWMutex

	// All known markets indexed by id.
	markets map[string]*model.Market

	// Current base rate per market id.
	rates map[string]model.BaseRate

	// Last successful upsert.
	lastSyncAt time.Time
}

func newState() *registryState {
	return &registryState{
		markets: make(map[string]*model.Market),
		rates:   make(map[string]model.BaseRate),
	}
}

// getMarket returns a market by id (read-locked).
func (s *registryState) getMarket(id string) (model.Market, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[id]
	if !ok {
		return model.Market{}, false
	}
	return *m, true
}

// getMarkets returns copies of markets matching keep, sorted by id (read-locked).
func (s *registryState) getMarkets(keep func(model.Market) bool) []model.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Market, 0, len(s.markets))
	for _, m := range s.markets {
		if keep == nil || keep(*m) {
			result = append(result, *m)
		}
	}
	slices.SortFunc(result, func(a, b model.Market) int { return strings.Compare(a.ID, b.ID) })
	return result
}

// upsertMarketLocked replaces a market (caller must hold write lock).
func (s *registryState) upsertMarketLocked(m model.Market) MarketChange {
	change := MarketChange{ID: m.ID, EventType: "created", NewStatus: m.Status}
	if old, ok := s.markets[m.ID]; ok {
		change.OldStatus = old.Status
		change.EventType = "updated"
		if old.Status != m.Status {
			change.EventType = "status_change"
		}
	}
	mCopy := m
	if m.OrderBook != nil {
		book := model.OrderBook{
			YesAsks: slices.Clone(m.OrderBook.YesAsks),
			NoAsks:  slices.Clone(m.OrderBook.NoAsks),
		}
		mCopy.OrderBook = &book
	}
	s.markets[m.ID] = &mCopy
	return change
}

// getRate returns a base rate (read-locked).
func (s *registryState) getRate(id string) (model.BaseRate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rates[id]
	return r, ok
}

// setRate replaces a base rate and returns the previous one (write-locked).
func (s *registryState) setRate(r model.BaseRate) (model.BaseRate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.rates[r.MarketID]
	r.Sources = slices.Clone(r.Sources)
	s.rates[r.MarketID] = r
	return prev, ok
}
