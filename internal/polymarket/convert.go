package polymarket

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/baserate-arb/internal/model"
)

// MarketURLBase prefixes the public event page.
const MarketURLBase = "https://polymarket.com/event/"

// Settled prices at or beyond these bounds decide a closed market.
const (
	settledHigh = 0.99
	settledLow  = 0.01
)

var hundred = decimal.NewFromInt(100)

// MarketID is the identifier used for a Gamma market: the condition ID,
// falling back to the Gamma numeric ID.
func (m *GammaMarket) MarketID() string {
	if m.ConditionID != "" {
		return m.ConditionID
	}
	return m.ID
}

// prices returns the YES and NO prices in dollars, if both parse.
func (m *GammaMarket) prices() (yes, no float64, ok bool) {
	p, ok := m.OutcomePrices.Floats()
	if !ok || len(p) == 0 {
		return 0, 0, false
	}
	yes = p[0]
	no = 1 - yes
	if len(p) > 1 {
		no = p[1]
	}
	return yes, no, true
}

// ToModel converts a Gamma market to model.Market with prices in cents.
func (m *GammaMarket) ToModel(fetchedAt time.Time) model.Market {
	out := model.Market{
		ID:        m.MarketID(),
		Platform:  model.PlatformPolymarket,
		Title:     m.Question,
		Category:  m.Category,
		FetchedAt: fetchedAt,
	}
	if out.Category == "" {
		out.Category = m.GroupItemTitle
	}

	out.ResolutionCriteria = m.ResolutionSource
	if out.ResolutionCriteria == "" {
		out.ResolutionCriteria = m.Description
	}

	out.ResolvesAt = parseTime(m.EndDate)
	if out.ResolvesAt.IsZero() {
		out.ResolvesAt = parseTime(m.EndDateISO)
	}

	if yes, no, ok := m.prices(); ok {
		out.YesPrice = toCents(yes)
		out.NoPrice = toCents(no)
	}

	out.Volume = float64(m.VolumeNum)
	if out.Volume == 0 {
		out.Volume = float64(m.Volume)
	}

	slug := m.Slug
	if len(m.Events) > 0 && m.Events[0].Slug != "" {
		slug = m.Events[0].Slug
	}
	if slug != "" {
		out.URL = MarketURLBase + slug
	}

	switch {
	case m.Closed:
		out.Status = "closed"
	case m.Active:
		out.Status = "active"
	}
	out.Result = m.Outcome()
	return out
}

// Outcome reports the settled result of a closed market. Open markets and
// closed markets without a decisive price are unresolved, except a closed
// 50/50 split which Polymarket uses for voided markets.
func (m *GammaMarket) Outcome() model.Outcome {
	if !m.Closed {
		return model.OutcomeUnresolved
	}
	yes, no, ok := m.prices()
	if !ok {
		return model.OutcomeUnresolved
	}
	switch {
	case yes >= settledHigh && no <= settledLow:
		return model.OutcomeYes
	case no >= settledHigh && yes <= settledLow:
		return model.OutcomeNo
	case yes == 0.5 && no == 0.5:
		return model.OutcomeVoid
	default:
		return model.OutcomeUnresolved
	}
}

// TokenIDs returns the YES and NO CLOB token IDs when both are present.
func (m *GammaMarket) TokenIDs() (yes, no string, ok bool) {
	if len(m.ClobTokenIDs) < 2 {
		return "", "", false
	}
	return m.ClobTokenIDs[0], m.ClobTokenIDs[1], true
}

// AskLevels converts the book's asks to cents and whole contracts, cheapest
// first. Unparseable or non-positive levels are dropped.
func (b *BookResponse) AskLevels() []model.Level {
	levels := make([]model.Level, 0, len(b.Asks))
	for _, a := range b.Asks {
		price, err := decimal.NewFromString(strings.TrimSpace(a.Price))
		if err != nil {
			continue
		}
		size, err := decimal.NewFromString(strings.TrimSpace(a.Size))
		if err != nil {
			continue
		}
		cents := price.Mul(hundred)
		qty := size.IntPart()
		if !cents.IsPositive() || cents.GreaterThanOrEqual(hundred) || qty <= 0 {
			continue
		}
		levels = append(levels, model.Level{Price: cents.InexactFloat64(), Quantity: int(qty)})
	}
	slices.SortStableFunc(levels, func(a, b model.Level) int {
		return cmp.Compare(a.Price, b.Price)
	})
	return levels
}

func toCents(dollars float64) float64 {
	return decimal.NewFromFloat(dollars).Mul(hundred).Round(2).InexactFloat64()
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
