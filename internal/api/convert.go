package api

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/baserate-arb/internal/model"
)

// MarketURLBase prefixes the public market page.
const MarketURLBase = "https://kalshi.com/markets/"

// DollarsToCents converts a dollar string to cents.
// "0.52" -> 52, "0.5250" -> 52.5. Returns 0 for empty or invalid input.
func DollarsToCents(dollars string) float64 {
	dollars = strings.TrimSpace(dollars)
	if dollars == "" {
		return 0
	}

	f, err := strconv.ParseFloat(dollars, 64)
	if err != nil {
		return 0
	}

	// Round to 1/100 of a cent to drop float noise.
	return float64(int64(f*10000+0.5)) / 100
}

// ParseTime parses an ISO 8601 timestamp. Returns the zero time for empty or
// invalid input.
func ParseTime(iso string) time.Time {
	if iso == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		// Try without timezone
		t, err = time.Parse("2006-01-02T15:04:05", iso)
		if err != nil {
			return time.Time{}
		}
	}

	return t.UTC()
}

// ParseResult maps a Kalshi result string to an outcome.
func ParseResult(result string) model.Outcome {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "yes":
		return model.OutcomeYes
	case "no":
		return model.OutcomeNo
	case "void":
		return model.OutcomeVoid
	default:
		return model.OutcomeUnresolved
	}
}

// price prefers the sub-penny dollar string and falls back to integer cents.
func price(dollars string, cents int) float64 {
	if p := DollarsToCents(dollars); p > 0 {
		return p
	}
	return float64(cents)
}

// ToModel converts an APIMarket to model.Market. category overrides the
// market's own category when non-empty (Kalshi carries it on the event).
func (m *APIMarket) ToModel(category string, fetchedAt time.Time) model.Market {
	yes := price(m.YesAskDollars, m.YesAsk)
	if yes <= 0 {
		yes = price(m.LastPriceDollars, m.LastPrice)
	}

	if category == "" {
		category = m.Category
	}

	resolves := ParseTime(m.CloseTime)
	if resolves.IsZero() {
		resolves = ParseTime(m.ExpirationTime)
	}

	title := m.Title
	if m.Subtitle != "" && !strings.Contains(title, m.Subtitle) {
		title += " - " + m.Subtitle
	}

	var link string
	if m.EventTicker != "" {
		link = MarketURLBase + strings.ToLower(m.EventTicker)
	}

	return model.Market{
		ID:                 m.Ticker,
		Platform:           model.PlatformKalshi,
		Title:              title,
		Category:           category,
		ResolutionCriteria: m.RulesPrimary,
		ResolvesAt:         resolves,
		YesPrice:           yes,
		NoPrice:            price(m.NoAskDollars, m.NoAsk),
		Volume:             float64(m.Volume),
		URL:                link,
		Status:             m.Status,
		Result:             ParseResult(m.Result),
		FetchedAt:          fetchedAt,
	}
}

// NormalizeOrderbook converts Kalshi bids into asks for both sides. A NO bid
// at p cents is a YES ask at 100-p and the reverse. Levels are returned
// cheapest first; malformed or out-of-range levels are dropped.
func (o *APIOrderbook) NormalizeOrderbook() model.OrderBook {
	return model.OrderBook{
		YesAsks: invertBids(o.No),
		NoAsks:  invertBids(o.Yes),
	}
}

func invertBids(bids [][]int) []model.Level {
	levels := make([]model.Level, 0, len(bids))
	for _, bid := range bids {
		if len(bid) < 2 || bid[0] <= 0 || bid[0] >= 100 || bid[1] <= 0 {
			continue
		}
		levels = append(levels, model.Level{
			Price:    float64(100 - bid[0]),
			Quantity: bid[1],
		})
	}
	slices.SortStableFunc(levels, func(a, b model.Level) int {
		return cmp.Compare(a.Price, b.Price)
	})
	return levels
}
