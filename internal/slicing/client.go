// Package slicing talks to the slicing service that turns a configured
// model file into material and time estimates.
package slicing

import (
	"context"

	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/pkg/config"
	"github.com/printforge/quickorder-backend/pkg/httpclient"
)

// Client implements pipeline.Slicer over HTTP.
type Client struct {
	http *httpclient.Client
}

// NewClient builds a slicer client from config.
func NewClient(cfg config.SlicerConfig) (*Client, error) {
	http, err := httpclient.New(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &Client{http: http}, nil
}

// Slice requests metrics for one file with the given settings.
func (c *Client) Slice(ctx context.Context, req pipeline.SliceRequest) (pipeline.SliceResult, error) {
	var result pipeline.SliceResult
	if err := c.http.PostJSON(ctx, "/v1/slice", req, &result); err != nil {
		return pipeline.SliceResult{}, err
	}
	return result, nil
}
