package analysis

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/probability"
	"github.com/rickgao/baserate-arb/internal/sizing"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newEvaluator(cfg Config) *Evaluator {
	return NewEvaluator(cfg, sizing.New(), WithClock(func() time.Time { return now }))
}

func absolute(p float64) model.BaseRate {
	return model.BaseRate{MarketID: "M", Rate: p, Unit: model.UnitAbsolute, Confidence: 0.8, ResearchedAt: now}
}

func TestEvaluateYesSide(t *testing.T) {
	m := model.Market{
		ID:         "M",
		Platform:   model.PlatformPolymarket,
		YesPrice:   25,
		ResolvesAt: now.Add(30 * 24 * time.Hour),
		FetchedAt:  now,
	}
	e := newEvaluator(Config{TargetQuantity: 10})

	a, err := e.Evaluate(m, absolute(0.5))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if a.Side != model.SideYes {
		t.Fatalf("Side = %q, want YES", a.Side)
	}
	if math.Abs(a.Edge-25) > 1e-9 {
		t.Errorf("Edge = %v, want 25", a.Edge)
	}
	if math.Abs(a.ExpectedValue-2) > 1e-9 {
		t.Errorf("ExpectedValue = %v, want 2", a.ExpectedValue)
	}
	if math.Abs(a.EdgeRatio-0.5) > 1e-9 {
		t.Errorf("EdgeRatio = %v, want 0.5", a.EdgeRatio)
	}
	if math.Abs(a.FullKelly-1.0/3) > 1e-9 || math.Abs(a.KellyFraction-1.0/6) > 1e-9 {
		t.Errorf("Kelly = %v/%v, want 0.333/0.167", a.FullKelly, a.KellyFraction)
	}
	if a.FillFromBook || a.FillQuantity != 0 {
		t.Errorf("fill = %v x %d, want displayed price fallback", a.FillPrice, a.FillQuantity)
	}
	if a.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", a.Confidence)
	}
}

func TestEvaluateNoSideUsesDerivedPrice(t *testing.T) {
	m := model.Market{ID: "M", YesPrice: 60, ResolvesAt: now.Add(24 * time.Hour), FetchedAt: now}
	a, err := newEvaluator(Config{TargetQuantity: 1}).Evaluate(m, absolute(0.2))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if a.Side != model.SideNo {
		t.Fatalf("Side = %q, want NO", a.Side)
	}
	if a.FillPrice != 40 {
		t.Errorf("FillPrice = %v, want 40", a.FillPrice)
	}
	if math.Abs(a.FairProbability-0.8) > 1e-9 || math.Abs(a.Edge-40) > 1e-9 {
		t.Errorf("fair/edge = %v/%v, want 0.8/40", a.FairProbability, a.Edge)
	}
	if math.Abs(a.ExpectedValue-2) > 1e-9 {
		t.Errorf("ExpectedValue = %v, want 2", a.ExpectedValue)
	}
}

func TestEvaluateUsesOrderBook(t *testing.T) {
	m := model.Market{
		ID:         "M",
		YesPrice:   10,
		ResolvesAt: now.Add(24 * time.Hour),
		FetchedAt:  now,
		OrderBook: &model.OrderBook{
			YesAsks: []model.Level{{Price: 10, Quantity: 100}, {Price: 12, Quantity: 200}},
		},
	}
	a, err := newEvaluator(Config{TargetQuantity: 250}).Evaluate(m, absolute(0.3))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !a.FillFromBook || a.FillPrice != 12 || a.FillQuantity != 250 {
		t.Errorf("fill = %v x %d (book %v), want 12 x 250 from book", a.FillPrice, a.FillQuantity, a.FillFromBook)
	}
	if math.Abs(a.ExpectedValue-30.0/12) > 1e-9 {
		t.Errorf("ExpectedValue = %v, want %v", a.ExpectedValue, 30.0/12)
	}
}

func TestEvaluateDerivedTargetQuantity(t *testing.T) {
	m := model.Market{
		ID:         "M",
		YesPrice:   25,
		ResolvesAt: now.Add(24 * time.Hour),
		FetchedAt:  now,
		OrderBook: &model.OrderBook{
			YesAsks: []model.Level{{Price: 25, Quantity: 1000}},
		},
	}
	// Half-Kelly 1/6 of 300 dollars at 25 cents is 200 contracts.
	e := newEvaluator(Config{Bankroll: decimal.NewFromInt(300)})
	a, err := e.Evaluate(m, absolute(0.5))
	if err != nil {
		t.Fatal(err)
	}
	if a.FillQuantity != 200 {
		t.Errorf("FillQuantity = %d, want 200", a.FillQuantity)
	}
}

func TestEvaluateNoEdge(t *testing.T) {
	m := model.Market{ID: "M", YesPrice: 50, ResolvesAt: now.Add(24 * time.Hour)}
	a, err := newEvaluator(Config{}).Evaluate(m, absolute(0.5))
	if err != nil {
		t.Fatal(err)
	}
	if a.Side != model.SideNone || a.Actionable() {
		t.Errorf("analysis = %+v, want no side", a)
	}
}

func TestEvaluateUnpriced(t *testing.T) {
	m := model.Market{ID: "M", YesPrice: 0, ResolvesAt: now.Add(24 * time.Hour)}
	a, err := newEvaluator(Config{}).Evaluate(m, absolute(0.5))
	if err != nil {
		t.Fatal(err)
	}
	if a.Side != model.SideYes || a.Priced {
		t.Errorf("side/priced = %q/%v, want YES unpriced", a.Side, a.Priced)
	}
}

func TestEvaluateInvalidRate(t *testing.T) {
	m := model.Market{ID: "M", YesPrice: 50, ResolvesAt: now.Add(24 * time.Hour)}
	_, err := newEvaluator(Config{}).Evaluate(m, model.BaseRate{Rate: -1, Unit: model.UnitPerYear})
	if !errors.Is(err, probability.ErrInvalidBaseRate) {
		t.Errorf("error = %v, want ErrInvalidBaseRate", err)
	}
}

func TestEvaluateStale(t *testing.T) {
	m := model.Market{ID: "M", YesPrice: 20, ResolvesAt: now.Add(24 * time.Hour), FetchedAt: now.Add(-2 * time.Hour)}
	e := newEvaluator(Config{TargetQuantity: 1, MarketStaleAfter: time.Hour})

	a, err := e.Evaluate(m, absolute(0.5))
	if !errors.Is(err, ErrStaleData) {
		t.Fatalf("error = %v, want ErrStaleData", err)
	}
	var se *StaleError
	if !errors.As(err, &se) || se.Input != "market" {
		t.Errorf("StaleError = %+v", se)
	}
	if !a.Stale || a.Side != model.SideYes || !a.Priced {
		t.Errorf("stale analysis not populated: %+v", a)
	}

	rate := absolute(0.5)
	rate.ResearchedAt = now.Add(-48 * time.Hour)
	e = newEvaluator(Config{TargetQuantity: 1, RateStaleAfter: 24 * time.Hour})
	m.FetchedAt = now
	if _, err := e.Evaluate(m, rate); !errors.As(err, &se) || se.Input != "base_rate" {
		t.Errorf("error = %v, want base_rate staleness", err)
	}
}

func TestEvaluateFees(t *testing.T) {
	m := model.Market{ID: "M", Platform: model.PlatformKalshi, YesPrice: 40, ResolvesAt: now.Add(24 * time.Hour)}
	a, err := newEvaluator(Config{TargetQuantity: 1}).Evaluate(m, absolute(0.6))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(a.FeePerContract-1.4) > 1e-9 {
		t.Errorf("FeePerContract = %v, want 1.4", a.FeePerContract)
	}
	if a.NetExpectedValue >= a.ExpectedValue {
		t.Errorf("NetExpectedValue %v should be below ExpectedValue %v", a.NetExpectedValue, a.ExpectedValue)
	}
}
