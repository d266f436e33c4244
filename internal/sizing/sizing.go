// Package sizing computes Kelly-criterion stakes for binary contracts.
package sizing

import (
	"github.com/shopspring/decimal"

	"github.com/rickgao/baserate-arb/internal/model"
)

// Default sizing parameters.
const (
	DefaultKellyMultiplier = 0.5
	DefaultMaxFraction     = 1.0
)

var hundred = decimal.NewFromInt(100)

// Sizer applies fractional Kelly with caps.
type Sizer struct {
	// KellyMultiplier scales the full Kelly fraction (0.5 is half-Kelly).
	KellyMultiplier float64
	// MaxFraction caps the full Kelly fraction before the multiplier.
	MaxFraction float64
	// MaxPosition caps the applied fraction per market. Zero disables the cap.
	MaxPosition float64
}

// New returns a Sizer with default parameters.
func New() Sizer {
	return Sizer{KellyMultiplier: DefaultKellyMultiplier, MaxFraction: DefaultMaxFraction}
}

// FullKelly returns the unclamped Kelly fraction for buying a contract at
// priceCents with win probability fairProb. Prices outside (0, 100) return 0.
func FullKelly(fairProb, priceCents float64) float64 {
	if priceCents <= 0 || priceCents >= 100 {
		return 0
	}
	b := (100 - priceCents) / priceCents
	p := fairProb
	q := 1 - p
	return (b*p - q) / b
}

// KellyFraction returns the full Kelly fraction clamped to [0, MaxFraction].
func (s Sizer) KellyFraction(fairProb, priceCents float64) float64 {
	f := FullKelly(fairProb, priceCents)
	maxF := s.MaxFraction
	if maxF <= 0 {
		maxF = DefaultMaxFraction
	}
	return max(0, min(maxF, f))
}

// Applied returns the fraction of bankroll to stake: the clamped Kelly
// fraction times the multiplier, capped by MaxPosition when set.
func (s Sizer) Applied(fairProb, priceCents float64) float64 {
	f := s.KellyFraction(fairProb, priceCents) * s.KellyMultiplier
	if s.MaxPosition > 0 {
		f = min(f, s.MaxPosition)
	}
	return f
}

// Portfolio returns the recommended stake per market. Each stake is
// bankroll times the analysis' applied Kelly fraction; when the total exceeds
// the bankroll every stake is scaled down proportionally. Stakes are truncated
// to cents so the total never exceeds the bankroll.
func Portfolio(bankroll decimal.Decimal, opps []model.OpportunityAnalysis) map[string]decimal.Decimal {
	stakes := make(map[string]decimal.Decimal, len(opps))
	if !bankroll.IsPositive() {
		return stakes
	}
	total := decimal.Zero
	for _, o := range opps {
		if !o.Actionable() || o.KellyFraction <= 0 {
			continue
		}
		s := bankroll.Mul(decimal.NewFromFloat(o.KellyFraction))
		stakes[o.MarketID] = stakes[o.MarketID].Add(s)
		total = total.Add(s)
	}
	scale := total.GreaterThan(bankroll)
	for id, s := range stakes {
		if scale {
			s = s.Mul(bankroll).Div(total)
		}
		s = s.Truncate(2)
		if !s.IsPositive() {
			delete(stakes, id)
			continue
		}
		stakes[id] = s
	}
	return stakes
}

// Order is a sized paper order.
type Order struct {
	MarketID string          `json:"market_id"`
	Platform model.Platform  `json:"platform,omitempty"`
	Title    string          `json:"title,omitempty"`
	Side     model.Side      `json:"side"`
	Price    float64         `json:"price"` // cents
	Quantity int             `json:"quantity"`
	Stake    decimal.Decimal `json:"stake"`
}

// Plan converts Portfolio stakes into whole-contract orders at each analysis'
// fill price, capped at the book-derived fill quantity. Orders follow the
// order of opps; markets that cannot afford one contract are omitted.
func Plan(bankroll decimal.Decimal, opps []model.OpportunityAnalysis) []Order {
	stakes := Portfolio(bankroll, opps)
	orders := make([]Order, 0, len(stakes))
	for _, o := range opps {
		stake, ok := stakes[o.MarketID]
		if !ok || o.FillPrice <= 0 || o.FillPrice >= 100 {
			continue
		}
		delete(stakes, o.MarketID)
		price := decimal.NewFromFloat(o.FillPrice).Div(hundred)
		qty := int(stake.Div(price).IntPart())
		if o.FillFromBook && qty > o.FillQuantity {
			qty = o.FillQuantity
		}
		if qty <= 0 {
			continue
		}
		orders = append(orders, Order{
			MarketID: o.MarketID,
			Platform: o.Platform,
			Title:    o.Title,
			Side:     o.Side,
			Price:    o.FillPrice,
			Quantity: qty,
			Stake:    price.Mul(decimal.NewFromInt(int64(qty))),
		})
	}
	return orders
}
