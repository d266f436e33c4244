package api

import (
	"testing"
	"time"

	"github.com/rickgao/baserate-arb/internal/model"
)

func TestDollarsToCents(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"0.52", 52},
		{"0.5250", 52.5},
		{" 0.07 ", 7},
		{"1.00", 100},
		{"", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		if got := DollarsToCents(tt.in); got != tt.want {
			t.Errorf("DollarsToCents(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-15T10:00:00Z", want},
		{"2024-01-15T12:00:00+02:00", want},
		{"2024-01-15T10:00:00", want},
		{"", time.Time{}},
		{"yesterday", time.Time{}},
	}
	for _, tt := range tests {
		if got := ParseTime(tt.in); !got.Equal(tt.want) {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseResult(t *testing.T) {
	tests := map[string]model.Outcome{
		"yes":  model.OutcomeYes,
		"NO":   model.OutcomeNo,
		"void": model.OutcomeVoid,
		"":     model.OutcomeUnresolved,
		"all":  model.OutcomeUnresolved,
	}
	for in, want := range tests {
		if got := ParseResult(in); got != want {
			t.Errorf("ParseResult(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAPIMarketToModel(t *testing.T) {
	fetched := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("prefers dollar prices and event category", func(t *testing.T) {
		m := APIMarket{
			Ticker:        "KXQUAKE-24",
			EventTicker:   "KXQUAKE",
			Title:         "Major earthquake in 2024?",
			Subtitle:      "M7.5+",
			Status:        "active",
			Category:      "Misc",
			RulesPrimary:  "Resolves YES if USGS reports...",
			YesAsk:        54,
			YesAskDollars: "0.5350",
			NoAsk:         48,
			Volume:        1000,
			CloseTime:     "2024-12-31T23:59:00Z",
		}

		got := m.ToModel("Science", fetched)

		if got.ID != "KXQUAKE-24" || got.Platform != model.PlatformKalshi {
			t.Errorf("identity = %q/%q", got.ID, got.Platform)
		}
		if got.Title != "Major earthquake in 2024? - M7.5+" {
			t.Errorf("Title = %q", got.Title)
		}
		if got.Category != "Science" {
			t.Errorf("Category = %q, want Science", got.Category)
		}
		if got.YesPrice != 53.5 || got.NoPrice != 48 {
			t.Errorf("prices = %v/%v, want 53.5/48", got.YesPrice, got.NoPrice)
		}
		if got.ResolutionCriteria != m.RulesPrimary {
			t.Errorf("ResolutionCriteria = %q", got.ResolutionCriteria)
		}
		if !got.ResolvesAt.Equal(time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)) {
			t.Errorf("ResolvesAt = %v", got.ResolvesAt)
		}
		if got.URL != "https://kalshi.com/markets/kxquake" {
			t.Errorf("URL = %q", got.URL)
		}
		if !got.FetchedAt.Equal(fetched) || got.Volume != 1000 {
			t.Errorf("FetchedAt/Volume = %v/%v", got.FetchedAt, got.Volume)
		}
	})

	t.Run("falls back to last price and market category", func(t *testing.T) {
		m := APIMarket{
			Ticker:         "MKT",
			Category:       "Economics",
			LastPrice:      12,
			ExpirationTime: "2025-01-01T00:00:00Z",
			Result:         "no",
		}

		got := m.ToModel("", fetched)

		if got.YesPrice != 12 {
			t.Errorf("YesPrice = %v, want 12", got.YesPrice)
		}
		if got.NoPrice != 0 || got.PriceFor(model.SideNo) != 88 {
			t.Errorf("NoPrice = %v, PriceFor(NO) = %v", got.NoPrice, got.PriceFor(model.SideNo))
		}
		if got.Category != "Economics" {
			t.Errorf("Category = %q", got.Category)
		}
		if got.ResolvesAt.Year() != 2025 {
			t.Errorf("ResolvesAt = %v, want expiration time", got.ResolvesAt)
		}
		if got.Result != model.OutcomeNo {
			t.Errorf("Result = %q", got.Result)
		}
	})
}

func TestNormalizeOrderbook(t *testing.T) {
	ob := APIOrderbook{
		Yes: [][]int{{40, 10}, {42, 5}},
		No:  [][]int{{50, 7}, {55, 20}, {0, 3}, {60}},
	}

	book := ob.NormalizeOrderbook()

	wantYes := []model.Level{{Price: 45, Quantity: 20}, {Price: 50, Quantity: 7}}
	wantNo := []model.Level{{Price: 58, Quantity: 5}, {Price: 60, Quantity: 10}}

	if len(book.YesAsks) != len(wantYes) {
		t.Fatalf("YesAsks = %+v, want %+v", book.YesAsks, wantYes)
	}
	for i := range wantYes {
		if book.YesAsks[i] != wantYes[i] {
			t.Errorf("YesAsks[%d] = %+v, want %+v", i, book.YesAsks[i], wantYes[i])
		}
	}
	if len(book.NoAsks) != len(wantNo) {
		t.Fatalf("NoAsks = %+v, want %+v", book.NoAsks, wantNo)
	}
	for i := range wantNo {
		if book.NoAsks[i] != wantNo[i] {
			t.Errorf("NoAsks[%d] = %+v, want %+v", i, book.NoAsks[i], wantNo[i])
		}
	}
}
