package driver

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// TraceEntry is one provider round trip written as a single NDJSON line.
type TraceEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	Driver      string          `json:"driver"`
	RequestID   string          `json:"request_id,omitempty"`
	Model       string          `json:"model,omitempty"`
	RequestBody json.RawMessage `json:"request_body,omitempty"`
	StatusCode  int             `json:"status_code,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
}

type tracer struct {
	mu   sync.Mutex
	file *os.File
}

var (
	activeTracer *tracer
	tracerMu     sync.Mutex
)

// EnableTracing appends provider traces to path until the returned func runs.
func EnableTracing(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) // #nosec G304 -- operator supplied trace path
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}

	tracerMu.Lock()
	previous := activeTracer
	activeTracer = &tracer{file: f}
	tracerMu.Unlock()

	if previous != nil {
		previous.close()
	}

	return DisableTracing, nil
}

// DisableTracing stops tracing and closes the trace file.
func DisableTracing() {
	tracerMu.Lock()
	t := activeTracer
	activeTracer = nil
	tracerMu.Unlock()

	if t != nil {
		t.close()
	}
}

// TracingEnabled reports whether a trace file is open.
func TracingEnabled() bool {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	return activeTracer != nil
}

// Trace records an entry when tracing is enabled. Request bodies never carry
// credentials; drivers send keys in headers only.
func Trace(entry TraceEntry) {
	tracerMu.Lock()
	t := activeTracer
	tracerMu.Unlock()
	if t == nil {
		return
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return
	}
	_, _ = t.file.Write(append(data, '\n'))
}

func (t *tracer) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file != nil {
		_ = t.file.Close()
		t.file = nil
	}
}

// traceBody keeps raw JSON bodies valid inside the trace line.
func traceBody(body []byte) json.RawMessage {
	if len(body) == 0 || !json.Valid(body) {
		return nil
	}
	return json.RawMessage(body)
}

// RecordExchange is a convenience wrapper used by HTTP drivers.
func RecordExchange(name, requestID, model string, reqBody []byte, status int, respBody []byte, err error, started time.Time) {
	if !TracingEnabled() {
		return
	}
	entry := TraceEntry{
		Driver:      name,
		RequestID:   requestID,
		Model:       model,
		RequestBody: traceBody(reqBody),
		StatusCode:  status,
		Response:    traceBody(respBody),
		DurationMs:  time.Since(started).Milliseconds(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	Trace(entry)
}
