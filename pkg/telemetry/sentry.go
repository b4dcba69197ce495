package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/google/uuid"

	"github.com/ghuser/lostfound/pkg/config"
)

// SetupSentry initializes the Sentry SDK. An empty DSN leaves it disabled.
func SetupSentry(cfg *config.Config) error {
	if cfg.SentryDSN == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		Release:          cfg.ServiceName + "@" + cfg.ServiceVersion,
		TracesSampleRate: 0.2,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return scrubEvent(event)
		},
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	return nil
}

// scrubEvent removes credentials and request bodies. Bodies carry claim
// answers and contact details; websocket URLs carry the token parameter.
func scrubEvent(event *sentry.Event) *sentry.Event {
	req := event.Request
	if req == nil {
		return event
	}
	req.Data = ""
	req.Cookies = ""
	for _, h := range []string{"Authorization", "Cookie"} {
		delete(req.Headers, h)
	}
	if q, err := url.ParseQuery(req.QueryString); err == nil && q.Has("token") {
		q.Set("token", "[redacted]")
		req.QueryString = q.Encode()
	}
	return event
}

// SentryFlush waits up to two seconds for buffered events.
func SentryFlush() {
	sentry.Flush(2 * time.Second)
}

// SentryMiddleware captures panics and re-panics so logger.Recovery still
// writes the 500.
func SentryMiddleware() func(http.Handler) http.Handler {
	return sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle
}

// CaptureUpstream reports an AI provider failure that was absorbed by a
// fallback. Events group by operation rather than by error text.
func CaptureUpstream(ctx context.Context, operation string, itemID uuid.UUID, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelWarning)
		scope.SetTag("operation", operation)
		scope.SetTag("item_id", itemID.String())
		scope.SetFingerprint([]string{"ai-upstream", operation})
		hub.CaptureException(err)
	})
}
