package queue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientEnrich(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search-movie", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Arrival", body["title"])
		assert.Equal(t, true, body["aiOnly"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"genre":"Sci-Fi","mood":"Thought-provoking","streaming":["Netflix"]}`))
	}))
	defer server.Close()

	fields, err := NewClient(server.URL + "/").Enrich(context.Background(), "Arrival")
	require.NoError(t, err)
	assert.Equal(t, "Sci-Fi", fields.Genre)
	assert.Equal(t, []string{"Netflix"}, fields.Streaming)
}

func TestClientEnrichRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"AI temporarily unavailable","retry_after_seconds":42}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Enrich(context.Background(), "Arrival")

	var limited *RateLimitedError
	require.True(t, errors.As(err, &limited))
	assert.Equal(t, 42*time.Second, limited.RetryAfter)
}

func TestClientEnrichUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Could not get AI data"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Enrich(context.Background(), "Arrival")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "Could not get AI data")

	var limited *RateLimitedError
	assert.False(t, errors.As(err, &limited))
}

func TestClientStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/ai-status", r.URL.Path)
		_, _ = w.Write([]byte(`{"ai_available":false,"retry_after":1740859230000,"remaining_seconds":17}`))
	}))
	defer server.Close()

	status, err := NewClient(server.URL).Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Available)
	assert.Equal(t, 17, status.RemainingSeconds)
}

func TestClientStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Status(context.Background())
	assert.Error(t, err)
}
