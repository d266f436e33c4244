package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Enumerations
// -----------------------------------------------------------------------------

// Platform identifies the venue a market trades on.
type Platform string

const (
	PlatformKalshi     Platform = "kalshi"
	PlatformPolymarket Platform = "polymarket"
)

// ParsePlatform parses a platform name, case-insensitively.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformKalshi, PlatformPolymarket:
		return p, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

// Side is the contract side of a trade or recommendation.
type Side string

const (
	SideNone Side = ""
	SideYes  Side = "YES"
	SideNo   Side = "NO"
)

// ParseSide parses "yes"/"no" case-insensitively.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES":
		return SideYes, nil
	case "NO":
		return SideNo, nil
	default:
		return SideNone, fmt.Errorf("unknown side %q", s)
	}
}

// Opposite returns the other side. SideNone maps to itself.
func (s Side) Opposite() Side {
	switch s {
	case SideYes:
		return SideNo
	case SideNo:
		return SideYes
	default:
		return SideNone
	}
}

// Unit is the time basis of a base rate.
type Unit string

const (
	UnitPerYear  Unit = "per_year"
	UnitPerMonth Unit = "per_month"
	UnitPerWeek  Unit = "per_week"
	UnitPerDay   Unit = "per_day"
	UnitPerEvent Unit = "per_event"
	UnitAbsolute Unit = "absolute"
)

// Status is the lifecycle state of a paper position.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusClosedWin  Status = "CLOSED_WIN"
	StatusClosedLoss Status = "CLOSED_LOSS"
	StatusClosedVoid Status = "CLOSED_VOID"
)

// Closed reports whether the status is terminal.
func (s Status) Closed() bool { return s != StatusOpen }

// Outcome is the resolved result of a market.
type Outcome string

const (
	OutcomeUnresolved Outcome = ""
	OutcomeYes        Outcome = "YES"
	OutcomeNo         Outcome = "NO"
	OutcomeVoid       Outcome = "VOID"
)

// ParseOutcome parses "yes", "no" or "void" case-insensitively.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES":
		return OutcomeYes, nil
	case "NO":
		return OutcomeNo, nil
	case "VOID":
		return OutcomeVoid, nil
	default:
		return OutcomeUnresolved, fmt.Errorf("unknown outcome %q", s)
	}
}

// -----------------------------------------------------------------------------
// Market Types
// -----------------------------------------------------------------------------

// Level is a single ask level: the price to buy a side and the quantity offered there.
type Level struct {
	Price    float64 `json:"price"`    // cents
	Quantity int     `json:"quantity"` // contracts at this price
}

// OrderBook holds ask levels for both sides. YesAsks is the cost to buy YES,
// NoAsks the cost to buy NO. Levels are not required to be sorted.
type OrderBook struct {
	YesAsks []Level `json:"yes_asks,omitempty"`
	NoAsks  []Level `json:"no_asks,omitempty"`
}

// Asks returns the ask levels for a side.
func (b *OrderBook) Asks(side Side) []Level {
	if b == nil {
		return nil
	}
	switch side {
	case SideYes:
		return b.YesAsks
	case SideNo:
		return b.NoAsks
	default:
		return nil
	}
}

// Market is a snapshot of a tradeable binary market. A refresh replaces the whole record.
type Market struct {
	ID                 string     `json:"id"`
	Platform           Platform   `json:"platform"`
	Title              string     `json:"title"`
	Category           string     `json:"category,omitempty"`
	ResolutionCriteria string     `json:"resolution_criteria,omitempty"`
	ResolvesAt         time.Time  `json:"resolves_at"`
	YesPrice           float64    `json:"yes_price"`          // cents
	NoPrice            float64    `json:"no_price,omitempty"` // cents, 0 when the venue does not quote NO
	OrderBook          *OrderBook `json:"order_book,omitempty"`
	Volume             float64    `json:"volume,omitempty"`
	URL                string     `json:"url,omitempty"`
	Status             string     `json:"status,omitempty"` // venue status
	Result             Outcome    `json:"result,omitempty"`
	FetchedAt          time.Time  `json:"fetched_at"`
}

// ImpliedProbability returns the market-implied YES probability.
func (m Market) ImpliedProbability() float64 { return m.YesPrice / 100 }

// PriceFor returns the displayed price for a side. The NO price falls back to
// 100 - YES when the venue does not quote NO.
func (m Market) PriceFor(side Side) float64 {
	switch side {
	case SideYes:
		return m.YesPrice
	case SideNo:
		if m.NoPrice > 0 {
			return m.NoPrice
		}
		return 100 - m.YesPrice
	default:
		return 0
	}
}

// DaysUntilResolution returns the fractional days between now and resolution.
// Negative when resolution has passed.
func (m Market) DaysUntilResolution(now time.Time) float64 {
	return m.ResolvesAt.Sub(now).Hours() / 24
}

// Resolved reports whether the resolution time is at or before now.
func (m Market) Resolved(now time.Time) bool { return !m.ResolvesAt.After(now) }

// BaseRate is a researched historical occurrence rate for a market.
type BaseRate struct {
	MarketID        string    `json:"market_id" yaml:"market_id"`
	Rate            float64   `json:"rate" yaml:"rate"`
	Unit            Unit      `json:"unit" yaml:"unit"`
	EventsPerPeriod float64   `json:"events_per_period,omitempty" yaml:"events_per_period"`
	Confidence      float64   `json:"confidence" yaml:"confidence"`
	Reasoning       string    `json:"reasoning,omitempty" yaml:"reasoning"`
	Sources         []string  `json:"sources,omitempty" yaml:"sources"`
	ResearchedAt    time.Time `json:"researched_at" yaml:"researched_at"`
}

// -----------------------------------------------------------------------------
// Derived Types
// -----------------------------------------------------------------------------

// OpportunityAnalysis is the derived evaluation of one market against its base rate.
// Probabilities other than FairYes are from the perspective of Side.
type OpportunityAnalysis struct {
	MarketID          string    `json:"market_id"`
	Platform          Platform  `json:"platform"`
	Title             string    `json:"title"`
	Category          string    `json:"category,omitempty"`
	Side              Side      `json:"side"`
	FairYes           float64   `json:"fair_yes"`
	FairProbability   float64   `json:"fair_probability"`
	MarketProbability float64   `json:"market_probability"`
	Edge              float64   `json:"edge"`       // percentage points
	EdgeRatio         float64   `json:"edge_ratio"` // edge / fair, both in percentage points
	ExpectedValue     float64   `json:"expected_value"`
	Priced            bool      `json:"priced"`
	FillPrice         float64   `json:"fill_price"` // cents
	FillQuantity      int       `json:"fill_quantity"`
	FillFromBook      bool      `json:"fill_from_book"`
	FullKelly         float64   `json:"full_kelly"`
	KellyFraction     float64   `json:"kelly_fraction"` // applied
	Confidence        float64   `json:"confidence"`
	FeePerContract    float64   `json:"fee_per_contract"` // cents
	NetExpectedValue  float64   `json:"net_expected_value"`
	DaysRemaining     float64   `json:"days_remaining"`
	Stale             bool      `json:"stale,omitempty"`
	EvaluatedAt       time.Time `json:"evaluated_at"`
}

// Actionable reports whether the analysis names a side at a positive price.
func (a OpportunityAnalysis) Actionable() bool {
	return a.Side != SideNone && a.Priced
}

// PaperPosition is a simulated position held by the ledger.
type PaperPosition struct {
	ID         uuid.UUID       `json:"id"`
	MarketID   string          `json:"market_id"`
	Platform   Platform        `json:"platform,omitempty"`
	Title      string          `json:"title,omitempty"`
	Side       Side            `json:"side"`
	EntryPrice float64         `json:"entry_price"` // cents
	Quantity   int             `json:"quantity"`
	Stake      decimal.Decimal `json:"stake"`
	OpenedAt   time.Time       `json:"opened_at"`
	Status     Status          `json:"status"`
	ClosedAt   *time.Time      `json:"closed_at,omitempty"`
	Payout     decimal.Decimal `json:"payout"`
	PnL        decimal.Decimal `json:"pnl"`
	MarkPrice  float64         `json:"mark_price,omitempty"` // cents, last observed side price
}

// UnrealizedPnL values an open position at its last mark. Closed positions and
// unmarked positions return zero.
func (p PaperPosition) UnrealizedPnL() decimal.Decimal {
	if p.Status != StatusOpen || p.MarkPrice <= 0 {
		return decimal.Zero
	}
	mark := decimal.NewFromFloat(p.MarkPrice).Div(decimal.NewFromInt(100))
	return mark.Mul(decimal.NewFromInt(int64(p.Quantity))).Sub(p.Stake)
}
