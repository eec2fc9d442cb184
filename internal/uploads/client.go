// Package uploads streams model files to the upload service and hands
// back the registered file identity.
package uploads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/pkg/config"
	"github.com/printforge/quickorder-backend/pkg/httpclient"
)

// Client posts multipart uploads to the upload service.
type Client struct {
	baseURL  string
	http     *http.Client
	maxBytes int64
}

// NewClient builds an upload client from config.
func NewClient(cfg config.UploadsConfig) (*Client, error) {
	// Reuse the shared validation, then keep a raw http.Client: the
	// multipart body cannot go through the JSON helper.
	if _, err := httpclient.New(cfg.BaseURL, cfg.Timeout); err != nil {
		return nil, err
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     &http.Client{Timeout: cfg.Timeout},
		maxBytes: int64(cfg.MaxUploadMB) << 20,
	}, nil
}

// MaxBytes is the size cap enforced before streaming begins.
func (c *Client) MaxBytes() int64 {
	return c.maxBytes
}

// Upload streams one file to the service. Size is validated up front so
// an oversized body is rejected before any bytes move.
func (c *Client) Upload(ctx context.Context, filename string, size int64, r io.Reader) (pipeline.Upload, error) {
	if filename == "" {
		return pipeline.Upload{}, fmt.Errorf("filename required")
	}
	if size <= 0 {
		return pipeline.Upload{}, fmt.Errorf("file is empty")
	}
	if c.maxBytes > 0 && size > c.maxBytes {
		return pipeline.Upload{}, fmt.Errorf("file exceeds %d MB limit", c.maxBytes>>20)
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, io.LimitReader(r, size)); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/files", pr)
	if err != nil {
		return pipeline.Upload{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return pipeline.Upload{}, fmt.Errorf("upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pipeline.Upload{}, &httpclient.StatusError{Status: resp.StatusCode}
	}

	var upload pipeline.Upload
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		return pipeline.Upload{}, fmt.Errorf("decode response: %w", err)
	}
	if upload.ID == "" {
		return pipeline.Upload{}, fmt.Errorf("upload service returned no file id")
	}
	return upload, nil
}
