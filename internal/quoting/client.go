// Package quoting talks to the pricing service that quotes an assembled
// item list for a delivery location.
package quoting

import (
	"context"

	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/pkg/config"
	"github.com/printforge/quickorder-backend/pkg/httpclient"
)

// Client implements pipeline.Pricer over HTTP.
type Client struct {
	http *httpclient.Client
}

// NewClient builds a pricing client from config.
func NewClient(cfg config.PricingConfig) (*Client, error) {
	http, err := httpclient.New(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &Client{http: http}, nil
}

// Quote prices the given items and location.
func (c *Client) Quote(ctx context.Context, req pipeline.QuoteRequest) (pipeline.QuoteResponse, error) {
	var resp pipeline.QuoteResponse
	if err := c.http.PostJSON(ctx, "/v1/quote", req, &resp); err != nil {
		return pipeline.QuoteResponse{}, err
	}
	return resp, nil
}
