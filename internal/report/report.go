// Package report summarises paper-trading performance over a period.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/baserate-arb/internal/ledger"
	"github.com/rickgao/baserate-arb/internal/model"
)

// Period is a reporting window ending now.
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	AllTime Period = "all_time"
)

// ParsePeriod parses a period name. The empty string means weekly.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return Weekly, nil
	case Daily, Weekly, Monthly, AllTime:
		return p, nil
	default:
		return "", fmt.Errorf("unknown report period %q", s)
	}
}

// Start returns the beginning of the window ending at now. AllTime returns
// the zero time.
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case Daily:
		return now.Add(-24 * time.Hour)
	case Weekly:
		return now.Add(-7 * 24 * time.Hour)
	case Monthly:
		return now.Add(-30 * 24 * time.Hour)
	default:
		return time.Time{}
	}
}

// Trade identifies one closed position in a report.
type Trade struct {
	MarketID string          `json:"market_id"`
	Title    string          `json:"title,omitempty"`
	PnL      decimal.Decimal `json:"pnl"`
}

// Performance summarises the ledger over a period.
type Performance struct {
	Period Period    `json:"period"`
	Start  time.Time `json:"start,omitempty"`
	End    time.Time `json:"end"`

	StartingBalance decimal.Decimal `json:"starting_balance"`
	EndingBalance   decimal.Decimal `json:"ending_balance"`
	NetPnL          decimal.Decimal `json:"net_pnl"`
	ROI             float64         `json:"roi_percent"`

	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Voids   int     `json:"voids"`
	WinRate float64 `json:"win_rate"` // percent of decided trades

	OpenPositions int             `json:"open_positions"`
	OpenExposure  decimal.Decimal `json:"open_exposure"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`

	Best  *Trade `json:"best,omitempty"`
	Worst *Trade `json:"worst,omitempty"`
}

// Generate builds the report for period from a ledger snapshot. Only
// positions closed inside the window count as trades. The starting balance
// of a bounded window is the ending balance less the window's realized P&L.
func Generate(snap ledger.Snapshot, period Period, now time.Time) Performance {
	start := period.Start(now)
	r := Performance{
		Period:        period,
		Start:         start,
		End:           now,
		EndingBalance: snap.Balance,
		NetPnL:        decimal.Zero,
		OpenPositions: snap.Open,
		OpenExposure:  snap.OpenExposure,
		UnrealizedPnL: snap.UnrealizedPnL,
	}

	for _, p := range snap.Positions {
		if !p.Status.Closed() || p.ClosedAt == nil || p.ClosedAt.Before(start) {
			continue
		}
		r.Trades++
		r.NetPnL = r.NetPnL.Add(p.PnL)
		switch p.Status {
		case model.StatusClosedWin:
			r.Wins++
		case model.StatusClosedLoss:
			r.Losses++
		case model.StatusClosedVoid:
			r.Voids++
		}
		t := Trade{MarketID: p.MarketID, Title: p.Title, PnL: p.PnL}
		if r.Best == nil || p.PnL.GreaterThan(r.Best.PnL) {
			best := t
			r.Best = &best
		}
		if r.Worst == nil || p.PnL.LessThan(r.Worst.PnL) {
			worst := t
			r.Worst = &worst
		}
	}

	if period == AllTime {
		r.StartingBalance = snap.InitialBalance
		r.NetPnL = snap.RealizedPnL
	} else {
		r.StartingBalance = snap.Balance.Sub(r.NetPnL)
	}
	if decided := r.Wins + r.Losses; decided > 0 {
		r.WinRate = float64(r.Wins) / float64(decided) * 100
	}
	if r.StartingBalance.IsPositive() {
		r.ROI = r.NetPnL.Mul(decimal.NewFromInt(100)).Div(r.StartingBalance).InexactFloat64()
	}
	return r
}

// Text renders the report for terminals and logs.
func (r Performance) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s PERFORMANCE REPORT\n", strings.ToUpper(strings.ReplaceAll(string(r.Period), "_", " ")))
	if r.Start.IsZero() {
		fmt.Fprintf(&b, "  Period:     through %s\n", r.End.Format(time.DateOnly))
	} else {
		fmt.Fprintf(&b, "  Period:     %s to %s\n", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
	}

	b.WriteString("\nBALANCE\n")
	fmt.Fprintf(&b, "  Starting:   $%s\n", r.StartingBalance.StringFixed(2))
	fmt.Fprintf(&b, "  Ending:     $%s\n", r.EndingBalance.StringFixed(2))
	fmt.Fprintf(&b, "  Net P&L:    %s\n", signed(r.NetPnL))
	fmt.Fprintf(&b, "  ROI:        %+.1f%%\n", r.ROI)

	b.WriteString("\nTRADES\n")
	fmt.Fprintf(&b, "  Total:      %d\n", r.Trades)
	fmt.Fprintf(&b, "  Winners:    %d\n", r.Wins)
	fmt.Fprintf(&b, "  Losers:     %d\n", r.Losses)
	if r.Voids > 0 {
		fmt.Fprintf(&b, "  Voided:     %d\n", r.Voids)
	}
	fmt.Fprintf(&b, "  Win rate:   %.1f%%\n", r.WinRate)

	b.WriteString("\nOPEN POSITIONS\n")
	fmt.Fprintf(&b, "  Count:      %d\n", r.OpenPositions)
	fmt.Fprintf(&b, "  Exposure:   $%s\n", r.OpenExposure.StringFixed(2))
	fmt.Fprintf(&b, "  Unrealized: %s\n", signed(r.UnrealizedPnL))

	if r.Best != nil {
		b.WriteString("\nBEST/WORST\n")
		fmt.Fprintf(&b, "  Best:       %s (%s)\n", signed(r.Best.PnL), r.Best.label())
		fmt.Fprintf(&b, "  Worst:      %s (%s)\n", signed(r.Worst.PnL), r.Worst.label())
	}
	return b.String()
}

func (t Trade) label() string {
	s := t.Title
	if s == "" {
		s = t.MarketID
	}
	if r := []rune(s); len(r) > 40 {
		s = string(r[:40]) + "..."
	}
	return s
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "+$" + d.StringFixed(2)
}
