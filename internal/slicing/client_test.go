package slicing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/pkg/config"
	"github.com/printforge/quickorder-backend/pkg/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceDecodesMetrics(t *testing.T) {
	t.Parallel()

	var got pipeline.SliceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/slice", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(pipeline.SliceResult{Grams: 80, TimeSec: 3600})
	}))
	defer srv.Close()

	client, err := NewClient(config.SlicerConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	result, err := client.Slice(context.Background(), pipeline.SliceRequest{
		FileID:          "f1",
		MaterialID:      "pla-standard",
		LayerHeight:     0.2,
		Infill:          20,
		SupportsEnabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, result.Grams)
	assert.Equal(t, 3600, result.TimeSec)
	assert.Equal(t, "f1", got.FileID)
	assert.True(t, got.SupportsEnabled)
}

func TestSliceSurfacesServiceError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "mesh is not manifold"},
		})
	}))
	defer srv.Close()

	client, err := NewClient(config.SlicerConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = client.Slice(context.Background(), pipeline.SliceRequest{FileID: "f1"})
	require.Error(t, err)

	var statusErr *httpclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.Status)
	assert.Contains(t, statusErr.Message, "not manifold")
}

func TestNewClientRejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(config.SlicerConfig{BaseURL: "not a url"})
	assert.Error(t, err)
}
