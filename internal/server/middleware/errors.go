package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/movienighthub/movienight/internal/metrics"
	"github.com/movienighthub/movienight/internal/observability"
)

// panicBody mirrors the error envelope written by the errors package, which
// cannot be imported here.
type panicBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

// Recovery turns a handler panic into a logged, counted 500. The stack trace
// goes to the log only. http.ErrAbortHandler is re-raised for net/http.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(recovered)
			}

			requestID := GetRequestID(r.Context())
			endpoint := endpointLabel(r)
			metrics.RecordPanic(endpoint)
			if logger := observability.Active(); logger != nil {
				logger.Error("Handler panic recovered",
					zap.String("panic", fmt.Sprint(recovered)),
					zap.String("method", r.Method),
					zap.String("endpoint", endpoint),
					zap.String("request_id", requestID),
					zap.String("severity", string(gferrors.SeverityCritical)),
					zap.ByteString("stack", debug.Stack()))
			}

			var body panicBody
			body.Error.Code = "INTERNAL_ERROR"
			body.Error.Message = "Internal server error"
			body.Error.RequestID = requestID
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(body)
		}()

		next.ServeHTTP(w, r)
	})
}
