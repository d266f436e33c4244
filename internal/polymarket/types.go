package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StringList decodes either a JSON array of strings/numbers or a string
// holding one, as Gamma does for outcomes, outcomePrices and clobTokenIds.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return err
		}
		if strings.TrimSpace(inner) == "" {
			*l = nil
			return nil
		}
		data = []byte(inner)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, string(r))
	}
	*l = out
	return nil
}

// Floats parses every element, returning false if any fails.
func (l StringList) Floats() ([]float64, bool) {
	out := make([]float64, len(l))
	for i, s := range l {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// Number decodes a JSON number or a numeric string. Invalid values decode to 0.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// GammaMarket is a market from GET /markets on the Gamma API.
type GammaMarket struct {
	ID               string     `json:"id"`
	ConditionID      string     `json:"conditionId"`
	Question         string     `json:"question"`
	Description      string     `json:"description"`
	ResolutionSource string     `json:"resolutionSource"`
	Slug             string     `json:"slug"`
	Category         string     `json:"category"`
	GroupItemTitle   string     `json:"groupItemTitle"`
	EndDate          string     `json:"endDate"`
	EndDateISO       string     `json:"end_date_iso"`
	Outcomes         StringList `json:"outcomes"`
	OutcomePrices    StringList `json:"outcomePrices"`
	ClobTokenIDs     StringList `json:"clobTokenIds"`
	Volume           Number     `json:"volume"`
	VolumeNum        Number     `json:"volumeNum"`
	Liquidity        Number     `json:"liquidity"`
	Active           bool       `json:"active"`
	Closed           bool       `json:"closed"`
	Events           []struct {
		Slug string `json:"slug"`
	} `json:"events"`
}

// GetMarketsOptions configures a Gamma markets listing.
type GetMarketsOptions struct {
	Limit        int
	Offset       int
	Active       *bool
	Closed       *bool
	ConditionIDs []string
	Order        string // e.g. "volumeNum"
	Ascending    bool
	Max          int // stop paginating after this many markets; 0 = all
}

// PriceLevel is one CLOB book level; values are decimal strings in dollars
// and shares.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BookResponse from GET /book on the CLOB.
type BookResponse struct {
	Market  string       `json:"market"`
	AssetID string       `json:"asset_id"`
	Bids    []PriceLevel `json:"bids"`
	Asks    []PriceLevel `json:"asks"`
}
