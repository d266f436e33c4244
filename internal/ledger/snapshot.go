package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/baserate-arb/internal/model"
)

// Snapshot is a point-in-time view of the account.
type Snapshot struct {
	InitialBalance decimal.Decimal       `json:"initial_balance"`
	Balance        decimal.Decimal       `json:"balance"`
	RealizedPnL    decimal.Decimal       `json:"realized_pnl"`
	UnrealizedPnL  decimal.Decimal       `json:"unrealized_pnl"`
	OpenExposure   decimal.Decimal       `json:"open_exposure"`
	Equity         decimal.Decimal       `json:"equity"` // balance + exposure + unrealized
	Open           int                   `json:"open"`
	Wins           int                   `json:"wins"`
	Losses         int                   `json:"losses"`
	Voids          int                   `json:"voids"`
	WinRate        float64               `json:"win_rate"` // wins / (wins + losses)
	SettledThrough time.Time             `json:"settled_through"`
	Positions      []model.PaperPosition `json:"positions"`
}

// Snapshot returns the current account view.
func (l *Ledger) Snapshot() Snapshot {
	acct := l.Account()

	s := Snapshot{
		InitialBalance: acct.InitialBalance,
		Balance:        acct.Balance,
		RealizedPnL:    acct.RealizedPnL,
		UnrealizedPnL:  decimal.Zero,
		OpenExposure:   decimal.Zero,
		SettledThrough: acct.SettledThrough,
		Positions:      acct.Positions,
	}
	for _, p := range acct.Positions {
		switch p.Status {
		case model.StatusOpen:
			s.Open++
			s.OpenExposure = s.OpenExposure.Add(p.Stake)
			s.UnrealizedPnL = s.UnrealizedPnL.Add(p.UnrealizedPnL())
		case model.StatusClosedWin:
			s.Wins++
		case model.StatusClosedLoss:
			s.Losses++
		case model.StatusClosedVoid:
			s.Voids++
		}
	}
	if decided := s.Wins + s.Losses; decided > 0 {
		s.WinRate = float64(s.Wins) / float64(decided)
	}
	s.Equity = s.Balance.Add(s.OpenExposure).Add(s.UnrealizedPnL)
	return s
}
