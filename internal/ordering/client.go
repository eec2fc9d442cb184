// Package ordering talks to the checkout service that finalizes a
// quick-order submission into an order or a hosted-payment redirect.
package ordering

import (
	"context"

	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/pkg/config"
	"github.com/printforge/quickorder-backend/pkg/httpclient"
)

// Client implements pipeline.CheckoutGateway over HTTP.
type Client struct {
	http *httpclient.Client
}

// NewClient builds a checkout client from config.
func NewClient(cfg config.CheckoutConfig) (*Client, error) {
	http, err := httpclient.New(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &Client{http: http}, nil
}

// Submit sends the order for processing.
func (c *Client) Submit(ctx context.Context, req pipeline.CheckoutRequest) (pipeline.CheckoutResult, error) {
	var result pipeline.CheckoutResult
	if err := c.http.PostJSON(ctx, "/v1/checkout", req, &result); err != nil {
		return pipeline.CheckoutResult{}, err
	}
	return result, nil
}
