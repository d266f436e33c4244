package market

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/store"
)

var now = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

func TestState_UpsertAndGet(t *testing.T) {
	s := newState()

	m := model.Market{
		ID:       "KX-TEST",
		Platform: model.PlatformKalshi,
		Title:    "Test Market",
		Status:   "active",
		OrderBook: &model.OrderBook{
			YesAsks: []model.Level{{Price: 10, Quantity: 5}},
		},
	}

	s.mu.Lock()
	change := s.upsertMarketLocked(m)
	s.mu.Unlock()

	if change.EventType != "created" {
		t.Errorf("EventType = %q, want created", change.EventType)
	}

	m.OrderBook.YesAsks[0].Price = 99
	got, ok := s.getMarket("KX-TEST")
	if !ok {
		t.Fatal("market not found")
	}
	if got.OrderBook.YesAsks[0].Price != 10 {
		t.Error("cached order book aliases caller memory")
	}
}

func TestState_GetMarket_NotFound(t *testing.T) {
	s := newState()

	if _, ok := s.getMarket("NONEXISTENT"); ok {
		t.Error("expected market not found")
	}
}

func TestRegistry_UpsertMarkets(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(Config{}, store.NewMemory(), nil)

	markets := []model.Market{
		{ID: "B", Status: "active", ResolvesAt: now.Add(time.Hour)},
		{ID: "A", Status: "active", ResolvesAt: now.Add(-time.Hour)},
	}
	changes, err := r.UpsertMarkets(ctx, markets)
	if err != nil {
		t.Fatalf("UpsertMarkets() error = %v", err)
	}
	if len(changes) != 2 || changes[0].EventType != "created" {
		t.Errorf("changes = %+v", changes)
	}

	all := r.GetMarkets()
	if len(all) != 2 || all[0].ID != "A" || all[1].ID != "B" {
		t.Errorf("GetMarkets() = %v, want sorted A, B", all)
	}
	active := r.GetActiveMarkets(now)
	if len(active) != 1 || active[0].ID != "B" {
		t.Errorf("GetActiveMarkets() = %v, want [B]", active)
	}

	changes, err = r.UpsertMarkets(ctx, []model.Market{{ID: "B", Status: "closed", YesPrice: 40}})
	if err != nil {
		t.Fatal(err)
	}
	if changes[0].EventType != "status_change" || changes[0].OldStatus != "active" || changes[0].NewStatus != "closed" {
		t.Errorf("change = %+v, want status_change active -> closed", changes[0])
	}
	if got, _ := r.GetMarket("B"); got.YesPrice != 40 || !got.ResolvesAt.IsZero() {
		t.Errorf("snapshot not replaced wholesale: %+v", got)
	}
}

func TestRegistry_LoadRestoresState(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	r := NewRegistry(Config{}, st, nil)
	if _, err := r.UpsertMarkets(ctx, []model.Market{{ID: "M1", Title: "one"}, {ID: "M2", Title: "two"}}); err != nil {
		t.Fatal(err)
	}
	if err := r.SaveBaseRate(ctx, model.BaseRate{MarketID: "M1", Rate: 0.1, Unit: model.UnitPerYear}); err != nil {
		t.Fatal(err)
	}

	restored := NewRegistry(Config{}, st, nil)
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := restored.GetMarkets(); len(got) != 2 {
		t.Errorf("restored %d markets, want 2", len(got))
	}
	if rate, ok := restored.GetBaseRate("M1"); !ok || rate.Rate != 0.1 {
		t.Errorf("GetBaseRate(M1) = %+v, %v", rate, ok)
	}
	if _, ok := restored.GetBaseRate("M2"); ok {
		t.Error("M2 should have no base rate")
	}
}

func TestRegistry_BaseRateHistory(t *testing.T) {
	tests := []struct {
		name        string
		keepHistory bool
		wantHistory int
	}{
		{"overwrite", false, 0},
		{"keep history", true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			r := NewRegistry(Config{KeepHistory: tt.keepHistory}, store.NewMemory(), nil)

			for _, rate := range []float64{0.1, 0.2, 0.3} {
				if err := r.SaveBaseRate(ctx, model.BaseRate{MarketID: "M1", Rate: rate, Unit: model.UnitPerYear}); err != nil {
					t.Fatal(err)
				}
			}

			if cur, _ := r.GetBaseRate("M1"); cur.Rate != 0.3 {
				t.Errorf("current rate = %v, want 0.3", cur.Rate)
			}
			history, err := r.BaseRateHistory(ctx, "M1")
			if err != nil {
				t.Fatal(err)
			}
			if len(history) != tt.wantHistory {
				t.Fatalf("len(history) = %d, want %d", len(history), tt.wantHistory)
			}
			if tt.keepHistory && (history[0].Rate != 0.1 || history[1].Rate != 0.2) {
				t.Errorf("history = %+v, want oldest first", history)
			}
		})
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(Config{}, store.NewMemory(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = r.UpsertMarkets(ctx, []model.Market{{ID: "M1", YesPrice: 10}})
		}()
		go func() {
			defer wg.Done()
			_ = r.GetMarkets()
			_, _ = r.GetMarket("M1")
		}()
	}
	wg.Wait()

	if _, ok := r.GetMarket("M1"); !ok {
		t.Error("M1 missing after concurrent upserts")
	}
}

func TestRegistry_RejectsEmptyIDs(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(Config{}, store.NewMemory(), nil)
	if _, err := r.UpsertMarkets(ctx, []model.Market{{}}); err == nil {
		t.Error("UpsertMarkets() should reject an empty id")
	}
	if err := r.SaveBaseRate(ctx, model.BaseRate{}); err == nil {
		t.Error("SaveBaseRate() should reject an empty market id")
	}
}
