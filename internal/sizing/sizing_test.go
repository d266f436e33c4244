package sizing

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rickgao/baserate-arb/internal/model"
)

func TestKellyFraction(t *testing.T) {
	s := New()

	full := s.KellyFraction(0.5, 25)
	if math.Abs(full-1.0/3) > 1e-9 {
		t.Errorf("KellyFraction(0.5, 25) = %v, want 0.333", full)
	}
	if applied := s.Applied(0.5, 25); math.Abs(applied-1.0/6) > 1e-9 {
		t.Errorf("Applied(0.5, 25) = %v, want 0.1667", applied)
	}

	tests := []struct {
		name  string
		p     float64
		price float64
		want  float64
	}{
		{"no edge", 0.25, 25, 0},
		{"negative edge", 0.1, 50, 0},
		{"zero price", 0.5, 0, 0},
		{"full price", 0.5, 100, 0},
		{"certain win clamps to cap", 1, 50, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.KellyFraction(tt.p, tt.price); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("KellyFraction(%v, %v) = %v, want %v", tt.p, tt.price, got, tt.want)
			}
		})
	}
}

func TestKellyFractionCaps(t *testing.T) {
	s := Sizer{KellyMultiplier: 0.5, MaxFraction: 0.2, MaxPosition: 0.05}
	if got := s.KellyFraction(0.5, 25); got != 0.2 {
		t.Errorf("KellyFraction = %v, want cap 0.2", got)
	}
	if got := s.Applied(0.5, 25); got != 0.05 {
		t.Errorf("Applied = %v, want position cap 0.05", got)
	}
}

func opp(id string, kelly, price float64) model.OpportunityAnalysis {
	return model.OpportunityAnalysis{
		MarketID:      id,
		Side:          model.SideYes,
		Priced:        true,
		FillPrice:     price,
		KellyFraction: kelly,
	}
}

func TestPortfolio(t *testing.T) {
	bankroll := decimal.NewFromInt(1000)

	t.Run("independent stakes", func(t *testing.T) {
		got := Portfolio(bankroll, []model.OpportunityAnalysis{opp("A", 0.1, 20), opp("B", 0.05, 40)})
		if !got["A"].Equal(decimal.NewFromInt(100)) || !got["B"].Equal(decimal.NewFromInt(50)) {
			t.Errorf("Portfolio = %v", got)
		}
	})

	t.Run("scales to bankroll", func(t *testing.T) {
		got := Portfolio(bankroll, []model.OpportunityAnalysis{opp("A", 0.6, 20), opp("B", 0.6, 40), opp("C", 0.3, 10)})
		total := decimal.Zero
		for _, s := range got {
			total = total.Add(s)
		}
		if total.GreaterThan(bankroll) {
			t.Errorf("total stake %s exceeds bankroll", total)
		}
		if !got["A"].Equal(got["B"]) {
			t.Errorf("equal fractions got unequal stakes: %s vs %s", got["A"], got["B"])
		}
		if !got["A"].Equal(decimal.RequireFromString("400")) {
			t.Errorf("A stake = %s, want 400", got["A"])
		}
	})

	t.Run("skips unactionable", func(t *testing.T) {
		o := opp("A", 0.1, 20)
		o.Side = model.SideNone
		if got := Portfolio(bankroll, []model.OpportunityAnalysis{o}); len(got) != 0 {
			t.Errorf("Portfolio = %v, want empty", got)
		}
	})

	t.Run("empty bankroll", func(t *testing.T) {
		if got := Portfolio(decimal.Zero, []model.OpportunityAnalysis{opp("A", 0.1, 20)}); len(got) != 0 {
			t.Errorf("Portfolio = %v, want empty", got)
		}
	})
}

func TestPlan(t *testing.T) {
	a := opp("A", 0.1, 20)
	b := opp("B", 0.05, 40)
	b.FillFromBook = true
	b.FillQuantity = 30

	orders := Plan(decimal.NewFromInt(1000), []model.OpportunityAnalysis{a, b})
	if len(orders) != 2 {
		t.Fatalf("len(orders) = %d, want 2", len(orders))
	}
	if orders[0].MarketID != "A" || orders[0].Quantity != 500 {
		t.Errorf("order A = %+v, want 500 contracts", orders[0])
	}
	if !orders[0].Stake.Equal(decimal.NewFromInt(100)) {
		t.Errorf("order A stake = %s, want 100", orders[0].Stake)
	}
	if orders[1].Quantity != 30 {
		t.Errorf("order B quantity = %d, want book cap 30", orders[1].Quantity)
	}
	if !orders[1].Stake.Equal(decimal.NewFromInt(12)) {
		t.Errorf("order B stake = %s, want 12", orders[1].Stake)
	}
}

func TestPlan_SkipsUnpricedFills(t *testing.T) {
	free := opp("FREE", 0.1, 0)
	full := opp("FULL", 0.1, 100)
	ok := opp("OK", 0.1, 50)

	orders := Plan(decimal.NewFromInt(1000), []model.OpportunityAnalysis{free, full, ok})
	if len(orders) != 1 || orders[0].MarketID != "OK" {
		t.Errorf("orders = %+v, want only OK", orders)
	}
}
