package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusFromCode(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatusFromCode("RATE_LIMITED"))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatusFromCode("SERVICE_UNAVAILABLE"))
	assert.Equal(t, http.StatusBadRequest, HTTPStatusFromCode("INVALID_INPUT"))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode("NOT_CONFIGURED"))
	assert.Equal(t, http.StatusBadGateway, HTTPStatusFromCode("EXTERNAL_SERVICE_ERROR"))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatusFromCode("TIMEOUT"))
}

func TestWrapExternalServiceKeepsCause(t *testing.T) {
	env := WrapExternalService(context.Background(), fmt.Errorf("tmdb returned status 500"), "Failed to search TMDB")

	assert.Equal(t, "EXTERNAL_SERVICE_ERROR", env.Code)
	assert.NotEmpty(t, env.CorrelationID)
	assert.Equal(t, "tmdb returned status 500", env.Context["wrapped_error"])
}

func TestRespondWithMessageWritesFlatBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/search-movie", nil)
	rec := httptest.NewRecorder()

	RespondWithMessage(rec, req, NewRateLimitedError("AI service is busy", 25), map[string]interface{}{
		"retry_after_seconds": 25,
	})

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "AI service is busy", body["error"])
	assert.EqualValues(t, 25, body["retry_after_seconds"])
}

func TestEnsureEnvelopeWrapsPlainErrors(t *testing.T) {
	env := EnsureEnvelope(fmt.Errorf("boom"))
	assert.Equal(t, "INTERNAL_ERROR", env.Code)
	assert.Equal(t, "boom", env.Context["wrapped_error"])

	original := NewNotFoundError("Movie not found")
	assert.Same(t, original, EnsureEnvelope(original))
}

func TestRespondWithEnvelopeNestedBody(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithEnvelope(rec, httptest.NewRequest(http.MethodGet, "/version", nil), NewInvalidInputError("bad"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_INPUT", body.Error.Code)
	assert.NotEmpty(t, body.Error.RequestID)
}
