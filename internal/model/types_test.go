package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMarketPriceFor(t *testing.T) {
	tests := []struct {
		name   string
		market Market
		side   Side
		want   float64
	}{
		{"yes", Market{YesPrice: 30}, SideYes, 30},
		{"quoted no", Market{YesPrice: 30, NoPrice: 72}, SideNo, 72},
		{"derived no", Market{YesPrice: 30}, SideNo, 70},
		{"none", Market{YesPrice: 30}, SideNone, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.market.PriceFor(tt.side); got != tt.want {
				t.Errorf("PriceFor(%q) = %v, want %v", tt.side, got, tt.want)
			}
		})
	}
}

func TestMarketDaysUntilResolution(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := Market{ResolvesAt: now.Add(36 * time.Hour)}

	if got := m.DaysUntilResolution(now); got != 1.5 {
		t.Errorf("DaysUntilResolution = %v, want 1.5", got)
	}
	if m.Resolved(now) {
		t.Error("Resolved = true before resolution time")
	}
	if !m.Resolved(now.Add(36 * time.Hour)) {
		t.Error("Resolved = false at resolution time")
	}
}

func TestParsers(t *testing.T) {
	if p, err := ParsePlatform(" Kalshi "); err != nil || p != PlatformKalshi {
		t.Errorf("ParsePlatform = %q, %v", p, err)
	}
	if _, err := ParsePlatform("betfair"); err == nil {
		t.Error("ParsePlatform(betfair) should fail")
	}
	if s, err := ParseSide("no"); err != nil || s != SideNo {
		t.Errorf("ParseSide = %q, %v", s, err)
	}
	if o, err := ParseOutcome("void"); err != nil || o != OutcomeVoid {
		t.Errorf("ParseOutcome = %q, %v", o, err)
	}
	if SideYes.Opposite() != SideNo || SideNone.Opposite() != SideNone {
		t.Error("Opposite mismatch")
	}
}

func TestPaperPositionUnrealizedPnL(t *testing.T) {
	p := PaperPosition{
		Status:    StatusOpen,
		Quantity:  10,
		Stake:     decimal.RequireFromString("2.50"),
		MarkPrice: 40,
	}
	if got := p.UnrealizedPnL(); !got.Equal(decimal.RequireFromString("1.50")) {
		t.Errorf("UnrealizedPnL = %s, want 1.50", got)
	}

	p.Status = StatusClosedWin
	if got := p.UnrealizedPnL(); !got.IsZero() {
		t.Errorf("closed UnrealizedPnL = %s, want 0", got)
	}
}

func TestOrderBookAsks(t *testing.T) {
	var nilBook *OrderBook
	if nilBook.Asks(SideYes) != nil {
		t.Error("nil book should return nil levels")
	}
	b := &OrderBook{YesAsks: []Level{{Price: 10, Quantity: 1}}, NoAsks: []Level{{Price: 91, Quantity: 2}}}
	if got := b.Asks(SideNo); len(got) != 1 || got[0].Price != 91 {
		t.Errorf("Asks(NO) = %v", got)
	}
}
