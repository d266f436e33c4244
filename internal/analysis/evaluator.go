// Package analysis evaluates markets against researched base rates, producing
// the edge, expected value, fill price and Kelly sizing of the best side.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/baserate-arb/internal/fees"
	"github.com/rickgao/baserate-arb/internal/fill"
	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/probability"
	"github.com/rickgao/baserate-arb/internal/sizing"
)

// ErrStaleData marks an analysis computed from inputs older than the
// configured windows. It is advisory: the analysis is still populated.
var ErrStaleData = errors.New("stale data")

// StaleError describes which input was stale.
type StaleError struct {
	MarketID string
	Input    string // "market" or "base_rate"
	Age      time.Duration
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("%s for %s is %s old", e.Input, e.MarketID, e.Age.Round(time.Second))
}

// Unwrap lets errors.Is match ErrStaleData.
func (e *StaleError) Unwrap() error { return ErrStaleData }

// Config controls evaluation.
type Config struct {
	// TargetQuantity is the contract count used for the fill walk. When zero
	// it is derived from Bankroll and the top-of-book Kelly stake.
	TargetQuantity int
	Bankroll       decimal.Decimal
	// MarketStaleAfter and RateStaleAfter bound input age. Zero disables the check.
	MarketStaleAfter time.Duration
	RateStaleAfter   time.Duration
	// MakerFees prices fees at the maker rate.
	MakerFees bool
}

// Evaluator computes OpportunityAnalysis values.
type Evaluator struct {
	cfg   Config
	sizer sizing.Sizer
	now   func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(cfg Config, sizer sizing.Sizer, opts ...Option) *Evaluator {
	e := &Evaluator{cfg: cfg, sizer: sizer, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate analyses m against rate. Invalid rates fail with
// probability.ErrInvalidBaseRate. When an input is stale the populated
// analysis is returned together with a *StaleError.
func (e *Evaluator) Evaluate(m model.Market, rate model.BaseRate) (model.OpportunityAnalysis, error) {
	now := e.now()
	days := m.DaysUntilResolution(now)

	fairYes, err := probability.AtHorizon(rate, days)
	if err != nil {
		return model.OpportunityAnalysis{}, fmt.Errorf("evaluate %s: %w", m.ID, err)
	}

	a := model.OpportunityAnalysis{
		MarketID:      m.ID,
		Platform:      m.Platform,
		Title:         m.Title,
		Category:      m.Category,
		FairYes:       fairYes,
		Confidence:    rate.Confidence,
		DaysRemaining: days,
		EvaluatedAt:   now,
	}

	marketYes := m.ImpliedProbability()
	switch {
	case fairYes > marketYes:
		a.Side = model.SideYes
		a.FairProbability = fairYes
		a.MarketProbability = marketYes
	case fairYes < marketYes:
		a.Side = model.SideNo
		a.FairProbability = 1 - fairYes
		a.MarketProbability = m.PriceFor(model.SideNo) / 100
	default:
		a.FairProbability = fairYes
		a.MarketProbability = marketYes
	}

	a.Edge = a.FairProbability*100 - a.MarketProbability*100
	if a.FairProbability > 0 {
		a.EdgeRatio = a.Edge / (a.FairProbability * 100)
	}

	if a.Side != model.SideNone {
		f := fill.Estimate(m, a.Side, e.targetQuantity(m, a))
		a.FillPrice = f.Price
		a.FillQuantity = f.Quantity
		a.FillFromBook = f.FromBook
		if f.Price > 0 {
			a.Priced = true
			a.ExpectedValue = a.FairProbability * 100 / f.Price
			a.FullKelly = e.sizer.KellyFraction(a.FairProbability, f.Price)
			a.KellyFraction = e.sizer.Applied(a.FairProbability, f.Price)
			a.FeePerContract = fees.PerContract(m.Platform, f.Price, e.cfg.MakerFees)
			a.NetExpectedValue = a.FairProbability * 100 / (f.Price + a.FeePerContract)
		}
	}

	if err := e.staleness(m, rate, now); err != nil {
		a.Stale = true
		return a, err
	}
	return a, nil
}

// targetQuantity sizes the fill walk. A configured quantity wins; otherwise the
// contracts needed to deploy the applied Kelly stake at the best ask.
func (e *Evaluator) targetQuantity(m model.Market, a model.OpportunityAnalysis) int {
	if e.cfg.TargetQuantity > 0 {
		return e.cfg.TargetQuantity
	}
	top := fill.Estimate(m, a.Side, 1).Price
	if top <= 0 || !e.cfg.Bankroll.IsPositive() {
		return 1
	}
	frac := e.sizer.Applied(a.FairProbability, top)
	stake, _ := e.cfg.Bankroll.Float64()
	qty := int(math.Floor(stake*frac/(top/100) + 1e-9))
	return max(1, qty)
}

func (e *Evaluator) staleness(m model.Market, rate model.BaseRate, now time.Time) error {
	if e.cfg.MarketStaleAfter > 0 && !m.FetchedAt.IsZero() {
		if age := now.Sub(m.FetchedAt); age > e.cfg.MarketStaleAfter {
			return &StaleError{MarketID: m.ID, Input: "market", Age: age}
		}
	}
	if e.cfg.RateStaleAfter > 0 && !rate.ResearchedAt.IsZero() {
		if age := now.Sub(rate.ResearchedAt); age > e.cfg.RateStaleAfter {
			return &StaleError{MarketID: m.ID, Input: "base_rate", Age: age}
		}
	}
	return nil
}
