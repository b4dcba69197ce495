package httpx

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const healthTimeout = 2 * time.Second

// HealthChecker is anything with a Ping: the database, Redis, the event bus.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthChecks names the checked dependencies. Redis and the event bus are
// optional; a nil checker is reported as "disabled" and never degrades.
type HealthChecks struct {
	Database HealthChecker
	Redis    HealthChecker
	EventBus HealthChecker
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	EventBus string `json:"event_bus"`
}

// HealthHandler pings every configured dependency concurrently and answers
// 503 "degraded" when any of them fails.
func HealthHandler(checks HealthChecks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		var mu sync.Mutex
		var g errgroup.Group
		check := func(c HealthChecker, out *string) {
			if c == nil {
				*out = "disabled"
				return
			}
			g.Go(func() error {
				state := "ok"
				if err := c.Ping(ctx); err != nil {
					state = "unreachable"
				}
				mu.Lock()
				defer mu.Unlock()
				*out = state
				if state != "ok" {
					resp.Status = "degraded"
				}
				return nil
			})
		}
		check(checks.Database, &resp.Database)
		check(checks.Redis, &resp.Redis)
		check(checks.EventBus, &resp.EventBus)
		_ = g.Wait()

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		JSON(w, status, resp)
	}
}
