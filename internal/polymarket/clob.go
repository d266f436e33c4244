package polymarket

import (
	"context"
	"fmt"
	"net/url"
)

// GetBook fetches the CLOB order book for one outcome token.
func (c *Client) GetBook(ctx context.Context, tokenID string) (*BookResponse, error) {
	query := url.Values{}
	query.Set("token_id", tokenID)

	var resp BookResponse
	if err := c.get(ctx, c.clobURL, "/book", query, &resp); err != nil {
		return nil, fmt.Errorf("get book %s: %w", tokenID, err)
	}
	return &resp, nil
}
