// Package app holds the shared infrastructure container handed to every
// bounded context when routes and services are wired.
package app

import (
	"github.com/gorilla/sessions"

	"github.com/ghuser/lostfound/pkg/ai"
	"github.com/ghuser/lostfound/pkg/auth"
	"github.com/ghuser/lostfound/pkg/cache"
	"github.com/ghuser/lostfound/pkg/config"
	"github.com/ghuser/lostfound/pkg/database"
	"github.com/ghuser/lostfound/pkg/events"
	"github.com/ghuser/lostfound/pkg/imaging"
	"github.com/ghuser/lostfound/pkg/logger"
	"github.com/ghuser/lostfound/pkg/telemetry"
)

// Application holds shared infrastructure dependencies for all services.
// Each bounded context builds its services and routes from it.
//
// Logging: app.Logger is backed by a trace-aware handler; use slog's context
// methods and trace_id, span_id, and request_id are injected automatically:
//
//	app.Logger.InfoContext(ctx, "claim submitted", "item_id", id)
//	app.Logger.ErrorContext(ctx, "failed to save", "error", err)
//
// Use app.Logger.Info/Error (no context) only for startup and shutdown messages.
type Application struct {
	Config   *config.Config
	Db       *database.Database
	Logger   logger.Logger
	EventBus *events.EventBus   // nil with the sqlite driver
	Redis    *cache.RedisClient // nil when REDIS_URL is empty
	Metrics  *telemetry.Metrics

	// HTTP process only; nil in the worker.
	SessionStore sessions.Store
	Auth         *auth.Authenticator
	AI           *ai.Client
	Images       *imaging.Store
}
