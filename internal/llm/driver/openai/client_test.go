package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/movienighthub/movienight/internal/llm/driver"
)

func userRequest() *driver.Request {
	return &driver.Request{Model: "test", Messages: []driver.Message{{Role: "user", Text: "hi"}}}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.Complete(context.Background(), userRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestClientRejectsHostedTools(t *testing.T) {
	client := NewClient("", "test-key")
	req := userRequest()
	req.Tools = []driver.Tool{{Type: "web_search_20250305", Name: "web_search"}}

	_, err := client.Complete(context.Background(), req)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not supported")
}

func TestClientSendsRequestAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		messages, ok := payload["messages"].([]any)
		require.True(t, ok)
		require.Len(t, messages, 2)
		require.Equal(t, map[string]any{"type": "json_object"}, payload["response_format"])
		require.EqualValues(t, 256, payload["max_tokens"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"genre\":\"Drama\"}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.Complete(context.Background(), &driver.Request{
		Model:      "test-model",
		System:     "sys",
		Messages:   []driver.Message{{Role: "user", Text: "usr"}},
		JSONOutput: true,
		MaxTokens:  256,
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Equal(t, "stop", resp.StopReason)
	require.NotNil(t, resp.Usage)
	require.Equal(t, 2, resp.Usage.OutputTokens)
	require.True(t, strings.Contains(resp.Text(), "Drama"))
}

func TestClientErrorsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("nope"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), userRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 401")
	require.Contains(t, err.Error(), "nope")
}

func TestClientNormalizesRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"requests","code":"rate_limit_exceeded","message":"Rate limit reached"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), userRequest())
	perr, ok := driver.AsRateLimit(err)
	require.True(t, ok)
	require.Equal(t, driver.ErrorTypeRateLimit, perr.Type)
	require.Equal(t, 12*time.Second, perr.RetryAfter)
	require.Equal(t, "Rate limit reached", perr.Message)
}
