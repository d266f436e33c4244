package research

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/probability"
)

// ErrNotInCatalog is returned when no catalog entry covers a market.
var ErrNotInCatalog = errors.New("no catalog entry")

// CatalogEntry is one hand-curated base rate. An entry applies to the market
// named by MarketID, or to any market whose title contains every Match
// keyword (case-insensitive).
type CatalogEntry struct {
	MarketID        string     `yaml:"market_id"`
	Match           []string   `yaml:"match"`
	Rate            float64    `yaml:"rate"`
	Unit            model.Unit `yaml:"unit"`
	EventsPerPeriod float64    `yaml:"events_per_period"`
	Confidence      float64    `yaml:"confidence"`
	Reasoning       string     `yaml:"reasoning"`
	Sources         []string   `yaml:"sources"`
}

func (e CatalogEntry) rate() model.BaseRate {
	return model.BaseRate{
		MarketID:        e.MarketID,
		Rate:            e.Rate,
		Unit:            e.Unit,
		EventsPerPeriod: e.EventsPerPeriod,
		Confidence:      e.Confidence,
		Reasoning:       e.Reasoning,
		Sources:         e.Sources,
	}
}

func (e CatalogEntry) matches(title string) bool {
	if len(e.Match) == 0 {
		return false
	}
	for _, kw := range e.Match {
		if !strings.Contains(title, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

// Catalog answers research requests from a static list of base rates.
type Catalog struct {
	byID    map[string]CatalogEntry
	byMatch []CatalogEntry
	now     func() time.Time
}

type catalogFile struct {
	Rates []CatalogEntry `yaml:"rates"`
}

// LoadCatalog reads a YAML catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses a YAML catalog. Every entry must name a market or match
// keywords and carry a valid rate.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]CatalogEntry), now: time.Now}
	for i, e := range f.Rates {
		if e.MarketID == "" && len(e.Match) == 0 {
			return nil, fmt.Errorf("rates[%d]: market_id or match is required", i)
		}
		if err := probability.Validate(e.rate()); err != nil {
			return nil, fmt.Errorf("rates[%d]: %w", i, err)
		}
		if e.MarketID != "" {
			c.byID[e.MarketID] = e
		} else {
			c.byMatch = append(c.byMatch, e)
		}
	}
	return c, nil
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.byID) + len(c.byMatch) }

// Research returns the entry for the market's ID, else the first keyword
// entry matching its title.
func (c *Catalog) Research(_ context.Context, m model.Market) (model.BaseRate, error) {
	if e, ok := c.byID[m.ID]; ok {
		return Finalize(m, e.rate(), c.now())
	}
	title := strings.ToLower(m.Title)
	for _, e := range c.byMatch {
		if e.matches(title) {
			return Finalize(m, e.rate(), c.now())
		}
	}
	return model.BaseRate{}, fmt.Errorf("%w: %w for %s", ErrResearchFailed, ErrNotInCatalog, m.ID)
}
