package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/baserate-arb/internal/model"
)

const gammaMarketJSON = `{
	"id": "512",
	"conditionId": "0xabc",
	"question": "Will a category 5 hurricane make US landfall in 2025?",
	"description": "Resolves YES if...",
	"resolutionSource": "NOAA",
	"slug": "cat5-landfall",
	"category": "Weather",
	"endDate": "2025-12-31T12:00:00Z",
	"outcomes": "[\"Yes\", \"No\"]",
	"outcomePrices": "[\"0.08\", \"0.92\"]",
	"clobTokenIds": "[\"111\", \"222\"]",
	"volume": "15234.5",
	"volumeNum": 15234.5,
	"active": true,
	"closed": false,
	"events": [{"slug": "hurricanes-2025"}]
}`

func TestStringList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"encoded string", `"[\"0.5\", \"0.5\"]"`, []string{"0.5", "0.5"}},
		{"plain array", `["a","b"]`, []string{"a", "b"}},
		{"numbers", `[0.25, 0.75]`, []string{"0.25", "0.75"}},
		{"empty string", `""`, nil},
		{"null", `null`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got StringList
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestGammaMarketToModel(t *testing.T) {
	var gm GammaMarket
	if err := json.Unmarshal([]byte(gammaMarketJSON), &gm); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	fetched := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	m := gm.ToModel(fetched)

	if m.ID != "0xabc" || m.Platform != model.PlatformPolymarket {
		t.Errorf("identity = %q/%q", m.ID, m.Platform)
	}
	if m.YesPrice != 8 || m.NoPrice != 92 {
		t.Errorf("prices = %v/%v, want 8/92", m.YesPrice, m.NoPrice)
	}
	if m.Category != "Weather" || m.ResolutionCriteria != "NOAA" {
		t.Errorf("category/criteria = %q/%q", m.Category, m.ResolutionCriteria)
	}
	if !m.ResolvesAt.Equal(time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("ResolvesAt = %v", m.ResolvesAt)
	}
	if m.URL != "https://polymarket.com/event/hurricanes-2025" {
		t.Errorf("URL = %q", m.URL)
	}
	if m.Volume != 15234.5 || m.Status != "active" || m.Result != model.OutcomeUnresolved {
		t.Errorf("volume/status/result = %v/%q/%q", m.Volume, m.Status, m.Result)
	}

	yes, no, ok := gm.TokenIDs()
	if !ok || yes != "111" || no != "222" {
		t.Errorf("TokenIDs = %q, %q, %v", yes, no, ok)
	}
}

func TestGammaMarketOutcome(t *testing.T) {
	tests := []struct {
		name   string
		closed bool
		prices StringList
		want   model.Outcome
	}{
		{"open", false, StringList{"1", "0"}, model.OutcomeUnresolved},
		{"yes", true, StringList{"1", "0"}, model.OutcomeYes},
		{"no", true, StringList{"0.001", "0.999"}, model.OutcomeNo},
		{"void", true, StringList{"0.5", "0.5"}, model.OutcomeVoid},
		{"undecided", true, StringList{"0.7", "0.3"}, model.OutcomeUnresolved},
		{"garbage", true, StringList{"x"}, model.OutcomeUnresolved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gm := GammaMarket{Closed: tt.closed, OutcomePrices: tt.prices}
			if got := gm.Outcome(); got != tt.want {
				t.Errorf("Outcome() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAskLevels(t *testing.T) {
	book := BookResponse{
		Asks: []PriceLevel{
			{Price: "0.59", Size: "5000"},
			{Price: "0.55", Size: "1000.7"},
			{Price: "bad", Size: "1"},
			{Price: "0.57", Size: "0.4"},
			{Price: "1.00", Size: "10"},
		},
	}

	got := book.AskLevels()
	want := []model.Level{{Price: 55, Quantity: 1000}, {Price: 59, Quantity: 5000}}
	if len(got) != len(want) {
		t.Fatalf("AskLevels() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("level %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestGetActiveMarkets(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		q := r.URL.Query()
		if q.Get("active") != "true" || q.Get("closed") != "false" {
			t.Errorf("active/closed = %q/%q", q.Get("active"), q.Get("closed"))
		}
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		var page []GammaMarket
		for i := offset; i < offset+limit && i < 5; i++ {
			page = append(page, GammaMarket{ConditionID: "0x" + strconv.Itoa(i)})
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	c := NewClient(server.URL, server.URL)

	markets, err := c.GetActiveMarkets(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetActiveMarkets: %v", err)
	}
	if len(markets) != 3 || requests.Load() != 1 {
		t.Errorf("got %d markets in %d requests, want 3 in 1", len(markets), requests.Load())
	}

	requests.Store(0)
	all, err := c.GetActiveMarkets(context.Background(), 0)
	if err != nil {
		t.Fatalf("GetActiveMarkets: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("len(all) = %d, want 5", len(all))
	}
}

func TestGetMarketByCondition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("condition_ids") == "0xabc" {
			w.Write([]byte("[" + gammaMarketJSON + "]"))
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient(server.URL, server.URL)
	m, err := c.GetMarketByCondition(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("GetMarketByCondition: %v", err)
	}
	if m.Question == "" {
		t.Error("market not decoded")
	}

	if _, err := c.GetMarketByCondition(context.Background(), "0xdef"); !errors.Is(err, ErrMarketNotFound) {
		t.Errorf("err = %v, want ErrMarketNotFound", err)
	}
}

func TestGetBook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/book" || r.URL.Query().Get("token_id") != "111" {
			t.Errorf("request = %s", r.URL)
		}
		w.Write([]byte(`{"market":"0xabc","asset_id":"111","bids":[{"price":"0.07","size":"50"}],"asks":[{"price":"0.09","size":"200"}]}`))
	}))
	defer server.Close()

	book, err := NewClient("http://unused.invalid", server.URL).GetBook(context.Background(), "111")
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if levels := book.AskLevels(); len(levels) != 1 || levels[0].Price != 9 || levels[0].Quantity != 200 {
		t.Errorf("AskLevels = %+v", levels)
	}
}

func TestRetries(t *testing.T) {
	t.Run("retries server errors", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		c := NewClient(server.URL, server.URL, WithRetries(3, time.Millisecond))
		if _, err := c.GetMarkets(context.Background(), GetMarketsOptions{}); err != nil {
			t.Fatalf("GetMarkets: %v", err)
		}
		if attempts.Load() != 3 {
			t.Errorf("attempts = %d, want 3", attempts.Load())
		}
	})

	t.Run("client errors are final", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		c := NewClient(server.URL, server.URL, WithRetries(3, time.Millisecond))
		_, err := c.GetMarkets(context.Background(), GetMarketsOptions{})
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
			t.Fatalf("err = %v, want 404 APIError", err)
		}
		if attempts.Load() != 1 {
			t.Errorf("attempts = %d, want 1", attempts.Load())
		}
	})
}
