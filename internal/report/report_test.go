package report

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/baserate-arb/internal/ledger"
	"github.com/rickgao/baserate-arb/internal/model"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func closed(id string, status model.Status, pnl int64, ago time.Duration) model.PaperPosition {
	at := now.Add(-ago)
	return model.PaperPosition{
		MarketID: id,
		Title:    "Market " + id,
		Status:   status,
		PnL:      decimal.NewFromInt(pnl),
		ClosedAt: &at,
	}
}

func snapshot() ledger.Snapshot {
	return ledger.Snapshot{
		InitialBalance: decimal.NewFromInt(1000),
		Balance:        decimal.NewFromInt(1030),
		RealizedPnL:    decimal.NewFromInt(40),
		UnrealizedPnL:  decimal.NewFromInt(-2),
		OpenExposure:   decimal.NewFromInt(10),
		Open:           1,
		Positions: []model.PaperPosition{
			closed("A", model.StatusClosedWin, 50, 2*time.Hour),
			closed("B", model.StatusClosedLoss, -20, 3*time.Hour),
			closed("C", model.StatusClosedVoid, 0, 4*time.Hour),
			closed("OLD", model.StatusClosedWin, 10, 10*24*time.Hour),
			{MarketID: "OPEN", Status: model.StatusOpen},
		},
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"", Weekly, false},
		{"Daily", Daily, false},
		{"monthly", Monthly, false},
		{"all_time", AllTime, false},
		{"yearly", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePeriod(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePeriod(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParsePeriod(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerate_Daily(t *testing.T) {
	r := Generate(snapshot(), Daily, now)

	if r.Trades != 3 || r.Wins != 1 || r.Losses != 1 || r.Voids != 1 {
		t.Errorf("counts = %d/%d/%d/%d, want 3/1/1/1", r.Trades, r.Wins, r.Losses, r.Voids)
	}
	if !r.NetPnL.Equal(decimal.NewFromInt(30)) {
		t.Errorf("NetPnL = %s, want 30", r.NetPnL)
	}
	if !r.StartingBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("StartingBalance = %s, want 1000", r.StartingBalance)
	}
	if r.WinRate != 50 {
		t.Errorf("WinRate = %v, want 50", r.WinRate)
	}
	if r.ROI != 3 {
		t.Errorf("ROI = %v, want 3", r.ROI)
	}
	if r.Best == nil || r.Best.MarketID != "A" || r.Worst == nil || r.Worst.MarketID != "B" {
		t.Errorf("Best/Worst = %+v/%+v", r.Best, r.Worst)
	}
	if r.OpenPositions != 1 || !r.UnrealizedPnL.Equal(decimal.NewFromInt(-2)) {
		t.Errorf("open = %d, unrealized = %s", r.OpenPositions, r.UnrealizedPnL)
	}
}

func TestGenerate_AllTime(t *testing.T) {
	r := Generate(snapshot(), AllTime, now)

	if r.Trades != 4 {
		t.Errorf("Trades = %d, want 4", r.Trades)
	}
	if !r.StartingBalance.Equal(decimal.NewFromInt(1000)) || !r.NetPnL.Equal(decimal.NewFromInt(40)) {
		t.Errorf("start = %s, net = %s", r.StartingBalance, r.NetPnL)
	}
	if !r.Start.IsZero() {
		t.Errorf("Start = %v, want zero", r.Start)
	}
}

func TestGenerate_Empty(t *testing.T) {
	snap := ledger.Snapshot{InitialBalance: decimal.NewFromInt(100), Balance: decimal.NewFromInt(100)}
	r := Generate(snap, Weekly, now)
	if r.Trades != 0 || r.Best != nil || r.WinRate != 0 || r.ROI != 0 {
		t.Errorf("empty report = %+v", r)
	}
	if strings.Contains(r.Text(), "BEST/WORST") {
		t.Error("empty report renders best/worst section")
	}
}

func TestText(t *testing.T) {
	text := Generate(snapshot(), Daily, now).Text()
	for _, want := range []string{
		"DAILY PERFORMANCE REPORT",
		"2025-03-09 to 2025-03-10",
		"Net P&L:    +$30.00",
		"ROI:        +3.0%",
		"Win rate:   50.0%",
		"Unrealized: -$2.00",
		"Worst:      -$20.00 (Market B)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Text() missing %q:\n%s", want, text)
		}
	}
}
