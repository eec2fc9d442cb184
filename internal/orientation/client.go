// Package orientation persists locked orientation snapshots with the
// model service; the stored snapshot it returns is authoritative.
package orientation

import (
	"context"

	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/pkg/config"
	"github.com/printforge/quickorder-backend/pkg/httpclient"
)

// Client implements pipeline.OrientationPersister over HTTP.
type Client struct {
	http *httpclient.Client
}

// NewClient builds an orientation client from config.
func NewClient(cfg config.OrientationConfig) (*Client, error) {
	http, err := httpclient.New(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &Client{http: http}, nil
}

// Persist stores the snapshot and returns the normalized copy.
func (c *Client) Persist(ctx context.Context, req pipeline.OrientationPersistRequest) (pipeline.OrientationSnapshot, error) {
	var stored pipeline.OrientationSnapshot
	if err := c.http.PostJSON(ctx, "/v1/orientations", req, &stored); err != nil {
		return pipeline.OrientationSnapshot{}, err
	}
	return stored, nil
}
