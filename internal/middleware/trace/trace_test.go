package trace

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "expenses/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareTagsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelDebug, Format: "json", Output: &buf, Component: applog.ComponentHTTP})
	m := NewMiddleware(logger, func(*http.Request) string { return "203.0.113.9" })

	var seenID string
	var seenComponent string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		seenComponent = applog.FromContext(r.Context()).Component()
		w.WriteHeader(http.StatusNotFound)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/expenses/9", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.True(t, strings.HasPrefix(seenID, "req_"))
	assert.Equal(t, seenID, rr.Header().Get(RequestIDHeader))
	assert.Equal(t, applog.ComponentTrace, seenComponent)
	assert.Equal(t, int64(1), m.GetMetrics().TotalRequests)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var end map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &end))
	assert.Equal(t, "WARN", end["level"])
	assert.Equal(t, float64(http.StatusNotFound), end[applog.FieldStatusCode])
	assert.Equal(t, "203.0.113.9", end[applog.FieldClientIP])
}

func TestGenerateRequestIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
