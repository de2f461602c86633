package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movienighthub/movienight/internal/core"
	"github.com/movienighthub/movienight/internal/core/throttle"
)

type memoryRateStore struct {
	state map[string]*core.RateLimitState
}

func (m *memoryRateStore) GetRateLimit(_ context.Context, endpoint string) (*core.RateLimitState, error) {
	if v, ok := m.state[endpoint]; ok {
		copied := *v
		return &copied, nil
	}
	return nil, nil
}

func (m *memoryRateStore) UpdateRateLimit(_ context.Context, endpoint string, state *core.RateLimitState) error {
	if m.state == nil {
		m.state = map[string]*core.RateLimitState{}
	}
	m.state[endpoint] = state
	return nil
}

func TestGetJSONRecordsBackoffOn429(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &memoryRateStore{}
	fetcher := &Fetcher{
		Provider:   "tmdb",
		HTTPClient: server.Client(),
		Limiter:    &throttle.RateLimiter{Store: store, Clock: func() time.Time { return now }},
		Clock:      func() time.Time { return now },
	}

	var out map[string]any
	err := fetcher.GetJSON(context.Background(), "", server.URL+"/search/movie?api_key=secret", &out)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 30*time.Second, statusErr.RetryAfter)
	assert.NotContains(t, err.Error(), "secret")

	endpoint := throttle.EndpointFor(server.URL)
	require.Contains(t, store.state, endpoint)
	require.NotNil(t, store.state[endpoint].BackoffUntil)
	assert.Equal(t, now.Add(30*time.Second), *store.state[endpoint].BackoffUntil)

	err = fetcher.GetJSON(context.Background(), "", server.URL+"/search/movie", &out)
	assert.ErrorIs(t, err, throttle.ErrLimited)
}

func TestGetJSONDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	fetcher := &Fetcher{Provider: "omdb", HTTPClient: server.Client()}
	var out map[string]any
	err := fetcher.GetJSON(context.Background(), "", server.URL, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode omdb response")
}

func TestRedactDropsURL(t *testing.T) {
	fetcher := &Fetcher{Provider: "tmdb", HTTPClient: &http.Client{Timeout: time.Second}}
	var out map[string]any
	err := fetcher.GetJSON(context.Background(), "", "http://127.0.0.1:1/search?api_key=secret", &out)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
}
