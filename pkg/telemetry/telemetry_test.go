package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/ghuser/lostfound/pkg/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		ServiceName:    "test-service",
		ServiceVersion: "test",
		Environment:    config.EnvTesting,
	}
}

func TestSetup_ExposesDomainMetrics(t *testing.T) {
	tel, err := Setup(context.Background(), baseConfig())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer tel.Shutdown(context.Background()) //nolint:errcheck

	if tel.Metrics == nil || tel.Handler == nil {
		t.Fatalf("expected metrics and handler, got %+v", tel)
	}
	tel.Metrics.ClaimSubmitted(context.Background())
	tel.Metrics.ChatDenied(context.Background(), "join_room")

	rr := httptest.NewRecorder()
	tel.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Errorf("expected text/plain content-type, got %q", ct)
	}
	body, _ := io.ReadAll(rr.Body)
	for _, want := range []string{"submitted", "denied", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

func TestTelemetry_Shutdown(t *testing.T) {
	tel, err := Setup(context.Background(), baseConfig())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupSentry_EmptyDSNIsNoop(t *testing.T) {
	if err := SetupSentry(baseConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// no client configured, so this must not panic or block
	CaptureUpstream(context.Background(), "score_claim", uuid.New(), context.DeadlineExceeded)
}

func TestScrubEvent(t *testing.T) {
	event := &sentry.Event{Request: &sentry.Request{
		URL:         "https://lostfound.example.com/ws",
		QueryString: "token=secret-jwt&room=1",
		Data:        `{"answers":["blue strap"]}`,
		Cookies:     "lostfound_session=abc",
		Headers:     map[string]string{"Authorization": "Bearer x", "Cookie": "a=b", "User-Agent": "test"},
	}}
	got := scrubEvent(event).Request

	if got.Data != "" || got.Cookies != "" {
		t.Fatalf("body or cookies kept: %+v", got)
	}
	if _, ok := got.Headers["Authorization"]; ok {
		t.Fatal("authorization header kept")
	}
	if got.Headers["User-Agent"] != "test" {
		t.Fatal("unrelated headers should survive")
	}
	if strings.Contains(got.QueryString, "secret-jwt") || !strings.Contains(got.QueryString, "room=1") {
		t.Fatalf("unexpected query %q", got.QueryString)
	}

	if scrubEvent(&sentry.Event{}) == nil {
		t.Fatal("events without a request must pass through")
	}
}
