package httpx_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ghuser/lostfound/pkg/httpx"
)

type stubChecker struct{ err error }

func (s *stubChecker) Ping(_ context.Context) error { return s.err }

func TestHealthHandler(t *testing.T) {
	down := &stubChecker{err: errors.New("conn refused")}
	up := &stubChecker{}

	tests := []struct {
		name       string
		checks     httpx.HealthChecks
		wantStatus int
		want       map[string]string
	}{
		{
			name:       "all healthy",
			checks:     httpx.HealthChecks{Database: up, Redis: up, EventBus: up},
			wantStatus: http.StatusOK,
			want:       map[string]string{"status": "ok", "database": "ok", "redis": "ok", "event_bus": "ok"},
		},
		{
			name:       "sqlite mode without redis or bus",
			checks:     httpx.HealthChecks{Database: up},
			wantStatus: http.StatusOK,
			want:       map[string]string{"status": "ok", "redis": "disabled", "event_bus": "disabled"},
		},
		{
			name:       "database down",
			checks:     httpx.HealthChecks{Database: down, Redis: up, EventBus: up},
			wantStatus: http.StatusServiceUnavailable,
			want:       map[string]string{"status": "degraded", "database": "unreachable", "redis": "ok"},
		},
		{
			name:       "redis down",
			checks:     httpx.HealthChecks{Database: up, Redis: down},
			wantStatus: http.StatusServiceUnavailable,
			want:       map[string]string{"status": "degraded", "redis": "unreachable", "event_bus": "disabled"},
		},
		{
			name:       "event bus down",
			checks:     httpx.HealthChecks{Database: up, Redis: up, EventBus: down},
			wantStatus: http.StatusServiceUnavailable,
			want:       map[string]string{"status": "degraded", "event_bus": "unreachable"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			httpx.HealthHandler(tt.checks).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
				t.Errorf("Content-Type: got %q", ct)
			}
			var resp map[string]string
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			for k, v := range tt.want {
				if resp[k] != v {
					t.Errorf("%s: got %q, want %q", k, resp[k], v)
				}
			}
		})
	}
}
