package enrich

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movienighthub/movienight/internal/cache"
	"github.com/movienighthub/movienight/internal/llm"
	"github.com/movienighthub/movienight/internal/llm/driver"
	"github.com/movienighthub/movienight/internal/ratelimit"
)

type fakeDriver struct {
	mu       sync.Mutex
	calls    int
	requests []*driver.Request
	jsonMode bool
	respond  func(call int) (*driver.Response, error)
}

func (f *fakeDriver) Complete(_ context.Context, req *driver.Request) (*driver.Response, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.respond(call)
}

func (f *fakeDriver) Name() string { return "fake" }

func (f *fakeDriver) Capabilities() driver.Capabilities {
	return driver.Capabilities{SupportsWebSearch: true, SupportsJSONMode: f.jsonMode}
}

func (f *fakeDriver) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func textResponse(text string) func(int) (*driver.Response, error) {
	return func(int) (*driver.Response, error) {
		return &driver.Response{Blocks: []driver.Block{{Type: "text", Text: text}}}, nil
	}
}

func rateLimitResponse(retryAfter time.Duration) func(int) (*driver.Response, error) {
	return func(int) (*driver.Response, error) {
		return nil, &driver.ProviderError{
			Provider:   "fake",
			StatusCode: http.StatusTooManyRequests,
			Type:       driver.ErrorTypeRateLimit,
			RetryAfter: retryAfter,
		}
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memoryCache struct {
	mu     sync.Mutex
	values map[string][]byte
}

func (m *memoryCache) Get(_ context.Context, ns, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[ns+"/"+key]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, ns, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = map[string][]byte{}
	}
	m.values[ns+"/"+key] = value
	return nil
}

func (m *memoryCache) List(context.Context, string) ([]cache.Entry, error) { return nil, nil }
func (m *memoryCache) Reset(context.Context, string) (int64, error)      { return 0, nil }

type harness struct {
	requester *Requester
	driver    *fakeDriver
	clock     *testClock
	sleeps    []time.Duration
}

func newHarness(respond func(int) (*driver.Response, error)) *harness {
	h := &harness{
		driver: &fakeDriver{respond: respond},
		clock:  &testClock{now: time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)},
	}
	tracker := ratelimit.New()
	tracker.Clock = h.clock.Now

	h.requester = NewRequester(&llm.Resolved{Driver: h.driver, Model: "test-model", MaxTokens: 512, WebSearch: true}, tracker)
	h.requester.Sleep = func(_ context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		h.clock.Advance(d)
		return nil
	}
	return h
}

func TestGetAIDataArrival(t *testing.T) {
	h := newHarness(textResponse("Here you go:\n```json\n" +
		`{"title":"Arrival","director":"Denis Villeneuve","year":2016,"genre":"Sci-Fi","mood":"Thought-provoking","streaming":["Netflix","FakeService"]}` +
		"\n```"))

	result := h.requester.GetAIData(context.Background(), "Arrival")

	require.True(t, result.Success)
	assert.False(t, result.RateLimited)
	require.NotNil(t, result.Data)
	assert.Equal(t, "Sci-Fi", result.Data.Genre)
	assert.Equal(t, "Thought-provoking", result.Data.Mood)
	assert.Equal(t, []string{"Netflix"}, result.Data.Streaming)
	assert.Equal(t, "Denis Villeneuve", result.Director)
	require.NotNil(t, result.Year)
	assert.Equal(t, 2016, *result.Year)
	assert.Equal(t, 1, h.driver.Calls())

	req := h.driver.requests[0]
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, 512, req.MaxTokens)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, webSearchTool, req.Tools[0].Type)
	assert.Contains(t, req.Messages[0].Text, `"Arrival"`)
	assert.Contains(t, req.Messages[0].Text, "Thought-provoking")
	assert.False(t, req.JSONOutput)
}

func TestGetAIDataDropsUnknownGenre(t *testing.T) {
	h := newHarness(textResponse(`{"genre":"NotARealGenre","mood":"Scary","streaming":"Netflix"}`))

	result := h.requester.GetAIData(context.Background(), "Hereditary")

	require.True(t, result.Success)
	assert.Equal(t, "", result.Data.Genre)
	assert.Equal(t, "Scary", result.Data.Mood)
	assert.Empty(t, result.Data.Streaming)
}

func TestGetAIDataBoundedRetry(t *testing.T) {
	h := newHarness(rateLimitResponse(0))

	result := h.requester.GetAIData(context.Background(), "Heat", WithMaxRetries(2))

	assert.Equal(t, 3, h.driver.Calls())
	assert.False(t, result.Success)
	assert.True(t, result.RateLimited)
	assert.Nil(t, result.Data)
	assert.Equal(t, []time.Duration{DefaultRetryDelay, DefaultRetryDelay}, h.sleeps)

	// Cooldown restarts on the last 429, so the full default remains.
	require.NotNil(t, result.RemainingSeconds)
	assert.Equal(t, 60, *result.RemainingSeconds)
	assert.True(t, h.requester.Tracker.IsRateLimited())
}

func TestGetAIDataRetrySucceeds(t *testing.T) {
	h := newHarness(func(call int) (*driver.Response, error) {
		if call == 1 {
			return rateLimitResponse(10 * time.Second)(call)
		}
		return textResponse(`{"genre":"Crime","mood":"Intense","streaming":[]}`)(call)
	})

	result := h.requester.GetAIData(context.Background(), "Heat")

	require.True(t, result.Success)
	assert.Equal(t, 2, h.driver.Calls())
	assert.False(t, h.requester.Tracker.IsRateLimited())
}

func TestGetAIDataFailsFastWhileLimited(t *testing.T) {
	h := newHarness(textResponse(`{"genre":"Drama"}`))
	h.requester.Tracker.SetRateLimited(45 * time.Second)

	result := h.requester.GetAIData(context.Background(), "Heat")

	assert.Equal(t, 0, h.driver.Calls())
	assert.True(t, result.RateLimited)
	assert.False(t, result.Success)
	require.NotNil(t, result.RemainingSeconds)
	assert.Equal(t, 45, *result.RemainingSeconds)
}

func TestGetAIDataRetryAfterHint(t *testing.T) {
	h := newHarness(rateLimitResponse(30 * time.Second))
	start := h.clock.Now()

	first := h.requester.GetAIData(context.Background(), "Arrival", WithMaxRetries(0))
	require.True(t, first.RateLimited)
	assert.Equal(t, 1, h.driver.Calls())

	state := h.requester.Tracker.Snapshot()
	require.NotNil(t, state.RetryAfter)
	assert.Equal(t, start.Add(30*time.Second), *state.RetryAfter)

	h.clock.Advance(5 * time.Second)
	second := h.requester.GetAIData(context.Background(), "Arrival")

	assert.Equal(t, 1, h.driver.Calls())
	require.True(t, second.RateLimited)
	assert.Equal(t, 25, *second.RemainingSeconds)
}

func TestGetAIDataUnparseableIsTerminal(t *testing.T) {
	h := newHarness(textResponse("Sorry, I could not find that movie."))

	result := h.requester.GetAIData(context.Background(), "Zzzz")

	assert.False(t, result.Success)
	assert.False(t, result.RateLimited)
	assert.Nil(t, result.Data)
	assert.Equal(t, 1, h.driver.Calls())
	assert.Empty(t, h.sleeps)
}

func TestGetAIDataProviderErrorIsTerminal(t *testing.T) {
	h := newHarness(func(int) (*driver.Response, error) {
		return nil, &driver.ProviderError{Provider: "fake", StatusCode: http.StatusInternalServerError, Message: "boom"}
	})

	result := h.requester.GetAIData(context.Background(), "Heat")

	assert.False(t, result.Success)
	assert.False(t, result.RateLimited)
	assert.Equal(t, 1, h.driver.Calls())
	assert.False(t, h.requester.Tracker.IsRateLimited())
}

func TestGetAIDataTransportErrorIsTerminal(t *testing.T) {
	h := newHarness(func(int) (*driver.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	result := h.requester.GetAIData(context.Background(), "Heat")
	assert.False(t, result.Success)
	assert.False(t, result.RateLimited)
}

func TestGetAIDataStopsRetryingOnCancel(t *testing.T) {
	h := newHarness(rateLimitResponse(0))
	h.requester.Sleep = func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}

	result := h.requester.GetAIData(context.Background(), "Heat")
	assert.Equal(t, 1, h.driver.Calls())
	assert.True(t, result.RateLimited)
}

func TestGetAIDataUsesCache(t *testing.T) {
	h := newHarness(textResponse(`{"genre":"Sci-Fi","mood":"Thought-provoking","streaming":["Netflix"]}`))
	h.requester.Cache = &memoryCache{}

	first := h.requester.GetAIData(context.Background(), "Arrival")
	require.True(t, first.Success)
	assert.False(t, first.Cached)

	second := h.requester.GetAIData(context.Background(), "  arrival ")

	require.True(t, second.Success)
	assert.True(t, second.Cached)
	assert.Equal(t, "Sci-Fi", second.Data.Genre)
	assert.Equal(t, 1, h.driver.Calls())
}

func TestGetAIDataCooldownWinsOverCache(t *testing.T) {
	h := newHarness(textResponse(`{"genre":"Sci-Fi","mood":"Thought-provoking","streaming":["Netflix"]}`))
	h.requester.Cache = &memoryCache{}

	first := h.requester.GetAIData(context.Background(), "Arrival")
	require.True(t, first.Success)

	h.requester.Tracker.SetRateLimited()
	second := h.requester.GetAIData(context.Background(), "Arrival")

	assert.True(t, second.RateLimited)
	assert.False(t, second.Success)
	assert.False(t, second.Cached)
	require.NotNil(t, second.RemainingSeconds)
	assert.Equal(t, 60, *second.RemainingSeconds)
	assert.Equal(t, 1, h.driver.Calls())
}

func TestGetAIDataRequiresExactEnumerations(t *testing.T) {
	h := newHarness(textResponse(`{"genre":"Sci-Fi ","mood":"Thought-provoking","streaming":["Netflix"]}`))

	result := h.requester.GetAIData(context.Background(), "Arrival")

	require.True(t, result.Success)
	assert.Empty(t, result.Data.Genre)
	assert.Equal(t, "Thought-provoking", result.Data.Mood)
}

func TestGetAIDataJSONModeAndNoWebSearch(t *testing.T) {
	h := newHarness(textResponse(`{"genre":"Comedy"}`))
	h.driver.jsonMode = true
	h.requester.WebSearch = false

	h.requester.GetAIData(context.Background(), "Airplane!")

	req := h.driver.requests[0]
	assert.True(t, req.JSONOutput)
	assert.Empty(t, req.Tools)
}

func TestGetAIDataRejectsEmptyTitle(t *testing.T) {
	h := newHarness(textResponse(`{}`))
	result := h.requester.GetAIData(context.Background(), "")
	assert.False(t, result.Success)
	assert.Equal(t, 0, h.driver.Calls())
}

func TestRemainingSeconds(t *testing.T) {
	assert.Equal(t, 0, RemainingSeconds(-time.Second))
	assert.Equal(t, 1, RemainingSeconds(10*time.Millisecond))
	assert.Equal(t, 25, RemainingSeconds(25*time.Second))
	assert.Equal(t, 26, RemainingSeconds(25*time.Second+time.Nanosecond))
}
