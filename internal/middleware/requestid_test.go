package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_GeneratesNewID(t *testing.T) {
	var capturedID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, capturedID)
	assert.Equal(t, capturedID, rec.Header().Get("X-Request-ID"))
}

func TestRequestID_IncomingHeader(t *testing.T) {
	tests := []struct {
		name     string
		headerID string
		wantNew  bool
	}{
		{"valid alphanumeric with hyphens", "abc-123_DEF", false},
		{"trace style", "req.2026-10-14.0001", false},
		{"log forging with newline", "fake-id\nINJECTED: malicious", true},
		{"spaces", "has space", true},
		{"too long", string(bytes.Repeat([]byte("a"), 129)), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var capturedID string
			handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				capturedID = RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", tc.headerID)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if tc.wantNew {
				assert.NotEqual(t, tc.headerID, capturedID)
				assert.Len(t, capturedID, 36)
			} else {
				assert.Equal(t, tc.headerID, capturedID)
			}
		})
	}
}

func TestRequestIDFromContext_Empty(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := RequestID(AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream"))
	})))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "probe-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "path=/healthz")
	assert.Contains(t, out, "status=502")
	assert.Contains(t, out, "bytes=8")
	assert.Contains(t, out, "request_id=probe-1")
}
