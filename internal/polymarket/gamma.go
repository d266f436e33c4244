package polymarket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultPaginationTimeout bounds a full listing when the caller's context
// has no deadline.
const DefaultPaginationTimeout = 5 * time.Minute

const maxPageSize = 500

// ErrMarketNotFound is returned when a lookup matches no market.
var ErrMarketNotFound = errors.New("polymarket market not found")

// GetMarkets fetches one page of Gamma markets.
func (c *Client) GetMarkets(ctx context.Context, opts GetMarketsOptions) ([]GammaMarket, error) {
	query := url.Values{}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Active != nil {
		query.Set("active", strconv.FormatBool(*opts.Active))
	}
	if opts.Closed != nil {
		query.Set("closed", strconv.FormatBool(*opts.Closed))
	}
	for _, id := range opts.ConditionIDs {
		query.Add("condition_ids", id)
	}
	if opts.Order != "" {
		query.Set("order", opts.Order)
		query.Set("ascending", strconv.FormatBool(opts.Ascending))
	}

	var markets []GammaMarket
	if err := c.get(ctx, c.gammaURL, "/markets", query, &markets); err != nil {
		return nil, fmt.Errorf("get markets: %w", err)
	}
	return markets, nil
}

// GetActiveMarkets pages through open markets, highest volume first, up to
// max markets (0 = all). Uses DefaultPaginationTimeout if the context has no
// deadline.
func (c *Client) GetActiveMarkets(ctx context.Context, max int) ([]GammaMarket, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultPaginationTimeout)
		defer cancel()
	}

	active, closed := true, false
	opts := GetMarketsOptions{
		Limit:  maxPageSize,
		Active: &active,
		Closed: &closed,
		Order:  "volumeNum",
	}
	if max > 0 && max < maxPageSize {
		opts.Limit = max
	}

	var all []GammaMarket
	for {
		page, err := c.GetMarkets(ctx, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		if max > 0 && len(all) >= max {
			return all[:max], nil
		}
		if len(page) < opts.Limit {
			break
		}
		opts.Offset += len(page)
	}
	return all, nil
}

// GetMarketByCondition fetches one market by condition ID, open or closed.
func (c *Client) GetMarketByCondition(ctx context.Context, conditionID string) (*GammaMarket, error) {
	markets, err := c.GetMarkets(ctx, GetMarketsOptions{ConditionIDs: []string{conditionID}, Limit: 1})
	if err != nil {
		return nil, err
	}
	for i := range markets {
		if strings.EqualFold(markets[i].ConditionID, conditionID) {
			return &markets[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMarketNotFound, conditionID)
}
