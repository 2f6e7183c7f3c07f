//nolint:testpackage // exercises unexported helpers
package gin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
)

func newTestServer(t *testing.T, checks map[string]HealthChecker, routes func(*gin.Engine)) *Server {
	t.Helper()

	b := NewServerBuilder("curation", 0).WithLogger(logger.NewNop())
	for name, c := range checks {
		b.WithHealthCheck(name, c)
	}
	return b.WithRoutes(routes).Build()
}

func TestRequestIDPropagated(t *testing.T) {
	srv := newTestServer(t, nil, func(r *gin.Engine) {
		r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	srv := newTestServer(t, nil, func(r *gin.Engine) {
		r.GET("/boom", func(*gin.Context) { panic("boom") })
	})

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/curate", nil)
	req.Header.Set("Origin", "https://parent.example")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAllowedOrigin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    string
	}{
		{"no origin", "", []string{"https://a"}, "*"},
		{"wildcard", "https://x", []string{"*"}, "*"},
		{"exact", "https://a", []string{"https://a"}, "https://a"},
		{"rejected", "https://b", []string{"https://a"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, allowedOrigin(tt.origin, tt.allowed))
		})
	}
}

func TestHealth_AggregatesChecks(t *testing.T) {
	okPing := func(context.Context) error { return nil }
	badPing := func(context.Context) error { return errors.New("down") }

	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantCode   int
		wantStatus HealthStatus
	}{
		{
			name:       "all healthy",
			checks:     map[string]HealthChecker{"database": PingChecker(okPing, HealthStatusUnhealthy)},
			wantCode:   http.StatusOK,
			wantStatus: HealthStatusHealthy,
		},
		{
			name:       "redis degraded",
			checks:     map[string]HealthChecker{"redis": PingChecker(badPing, HealthStatusDegraded)},
			wantCode:   http.StatusOK,
			wantStatus: HealthStatusDegraded,
		},
		{
			name: "database down",
			checks: map[string]HealthChecker{
				"redis":    PingChecker(badPing, HealthStatusDegraded),
				"database": PingChecker(badPing, HealthStatusUnhealthy),
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: HealthStatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.checks, nil)
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), `"status":"`+string(tt.wantStatus)+`"`)
		})
	}
}
