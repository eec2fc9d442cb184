// Package wallet reads the session's store-credit balance from the
// wallet service.
package wallet

import (
	"context"
	"net/url"

	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/pkg/config"
	"github.com/printforge/quickorder-backend/pkg/httpclient"
)

// Client implements pipeline.WalletReader over HTTP.
type Client struct {
	http *httpclient.Client
}

// NewClient builds a wallet client; a blank base URL disables the
// wallet entirely and the caller should wire a nil reader instead.
func NewClient(cfg config.WalletConfig) (*Client, error) {
	http, err := httpclient.New(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &Client{http: http}, nil
}

var _ pipeline.WalletReader = (*Client)(nil)

// Balance returns the available credit for a session.
func (c *Client) Balance(ctx context.Context, sessionID string) (float64, error) {
	var resp struct {
		Balance float64 `json:"balance"`
	}
	path := "/v1/wallet/" + url.PathEscape(sessionID) + "/balance"
	if err := c.http.GetJSON(ctx, path, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}
