package api

import (
	"context"
	"fmt"
)

// GetExchangeStatus fetches the current exchange status.
func (c *Client) GetExchangeStatus(ctx context.Context) (*ExchangeStatusResponse, error) {
	var resp ExchangeStatusResponse
	if err := c.get(ctx, "/exchange/status", nil, &resp); err != nil {
		return nil, fmt.Errorf("get exchange status: %w", err)
	}
	return &resp, nil
}

// Ping returns an error unless the exchange reports itself active.
func (c *Client) Ping(ctx context.Context) error {
	status, err := c.GetExchangeStatus(ctx)
	if err != nil {
		return err
	}
	if !status.ExchangeActive {
		return fmt.Errorf("exchange inactive (resume %s)", status.EstimatedResumeTime)
	}
	return nil
}
