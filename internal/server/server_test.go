package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/movienighthub/movienight/internal/errors"
	servermw "github.com/movienighthub/movienight/internal/server/middleware"
)

func serve(t *testing.T, srv *Server, method, path string) (*httptest.ResponseRecorder, apperrors.HTTPErrorResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	var body apperrors.HTTPErrorResponse
	if rec.Code >= 400 {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	}
	return rec, body
}

func TestUnknownRouteIsNotFoundEnvelope(t *testing.T) {
	rec, body := serve(t, New("127.0.0.1", 0, nil), http.MethodGet, "/does-not-exist")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.NotEmpty(t, rec.Header().Get(servermw.RequestIDHeader))
	assert.Equal(t, rec.Header().Get(servermw.RequestIDHeader), body.Error.RequestID)
}

func TestWrongMethodIsMethodNotAllowed(t *testing.T) {
	rec, body := serve(t, New("127.0.0.1", 0, nil), http.MethodDelete, "/version")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", body.Error.Code)
}

func TestHandlerPanicBecomesInternalError(t *testing.T) {
	srv := New("127.0.0.1", 0, nil)
	mux, ok := srv.Handler().(*chi.Mux)
	require.True(t, ok)
	mux.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("nil poster") })

	rec, body := serve(t, srv, http.MethodGet, "/boom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
}
