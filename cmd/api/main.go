package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "github.com/ghuser/lostfound/docs/swagger"
	"github.com/ghuser/lostfound/migrations"
	"github.com/ghuser/lostfound/pkg/ai"
	"github.com/ghuser/lostfound/pkg/app"
	"github.com/ghuser/lostfound/pkg/auth"
	"github.com/ghuser/lostfound/pkg/cache"
	"github.com/ghuser/lostfound/pkg/config"
	"github.com/ghuser/lostfound/pkg/database"
	"github.com/ghuser/lostfound/pkg/events"
	"github.com/ghuser/lostfound/pkg/httpx"
	"github.com/ghuser/lostfound/pkg/imaging"
	"github.com/ghuser/lostfound/pkg/logger"
	"github.com/ghuser/lostfound/pkg/migrator"
	"github.com/ghuser/lostfound/pkg/telemetry"
	chatApi "github.com/ghuser/lostfound/services/chat/application/api"
	"github.com/ghuser/lostfound/services/chat/application/realtime"
	chatServices "github.com/ghuser/lostfound/services/chat/application/services"
	itemApi "github.com/ghuser/lostfound/services/item/application/api"
	itemServices "github.com/ghuser/lostfound/services/item/application/services"
)

// @title						Lost & Found API
// @version					1.0
// @description				Lost and found listings with claim verification and owner/claimant chat.
// @license.name				MIT
// @license.url				https://opensource.org/licenses/MIT
// @host						localhost:8080
// @BasePath					/api
// @schemes					http https
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	ctx := context.Background()
	tel, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer tel.Shutdown(ctx) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	db, err := database.Open(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1) //nolint:gocritic // intentional: startup failure, deferred flushes are best-effort
	}
	defer db.Close() //nolint:errcheck
	log.Info("database connected", "driver", db.Driver())

	// the embedded sqlite setup has no separate migration step
	if db.Driver() == config.DriverSQLite {
		n, err := migrator.RunMigrations(ctx, db.DB(), config.DriverSQLite, migrations.SQLite())
		if err != nil {
			log.Error("failed to migrate sqlite", "error", err)
			os.Exit(1) //nolint:gocritic
		}
		log.Info("sqlite migrated", "applied", n)
	}

	a := &app.Application{
		Config:  cfg,
		Db:      db,
		Logger:  log,
		Metrics: tel.Metrics,
	}
	if cfg.AIAPIKey != "" {
		a.AI = ai.New(cfg)
	} else {
		log.Warn("AI_API_KEY not set, using fallback questions and zero confidence")
	}
	checks := httpx.HealthChecks{Database: db}

	if db.Driver() == config.DriverPostgres {
		eventBus, err := events.NewEventBus(cfg, log)
		if err != nil {
			log.Error("failed to setup event bus", "error", err)
			os.Exit(1) //nolint:gocritic
		}
		defer eventBus.Close() //nolint:errcheck
		if err := eventBus.StartForwarder(ctx); err != nil {
			log.Error("failed to start event forwarder", "error", err)
			os.Exit(1) //nolint:gocritic
		}
		a.EventBus = eventBus
		checks.EventBus = eventBus
	}

	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1) //nolint:gocritic
		}
		defer redisClient.Close() //nolint:errcheck
		log.Info("redis connected")
		a.Redis = redisClient
		checks.Redis = redisClient
	}

	a.SessionStore = newSessionStore(cfg, a.Redis)
	a.Auth = auth.NewAuthenticator(cfg.JWTSecret, a.SessionStore, log)

	images, err := imaging.NewStore(cfg.UploadDir)
	if err != nil {
		log.Error("failed to prepare upload directory", "error", err, "dir", cfg.UploadDir)
		os.Exit(1) //nolint:gocritic
	}
	a.Images = images

	itemSvcs := itemServices.New(a)
	chatSvc := chatServices.New(a, itemSvcs.Items)
	hub := realtime.NewHub(chatSvc, a.Auth, realtime.Options{
		OriginPatterns: httpx.ParseOrigins(cfg.WSAllowedOrigins),
		Metrics:        tel.Metrics,
		Logger:         log,
	})

	r := httpx.NewRouter(httpx.RouterOptions{
		Development:        cfg.Environment == config.EnvDevelopment,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Middleware: []func(http.Handler) http.Handler{
			logger.Recovery(log),
			telemetry.SentryMiddleware(),
			otelhttp.NewMiddleware(cfg.ServiceName),
			logger.Middleware(log),
		},
	})

	r.Get("/health", httpx.HealthHandler(checks))
	r.Get("/metrics", tel.Handler.ServeHTTP)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Handle(imaging.PublicPrefix+"*", http.StripPrefix(imaging.PublicPrefix, http.FileServer(http.Dir(images.Dir()))))
	chatApi.RealtimeRoute(r, hub)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(httpx.HandlerTimeout))
		registerRoutes(r, a, itemSvcs, chatSvc)
	})

	srv := httpx.NewServer(cfg.HTTPAddr, r)

	go func() {
		log.Info("server listening", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// registerRoutes mounts all service routes under /api.
func registerRoutes(r chi.Router, a *app.Application, items *itemServices.Services, chat *chatServices.ChatService) {
	itemApi.SessionRoutes(r, a)
	itemApi.ItemRoutes(r, a, items, chatApi.HistoryRoutes(chat))
}

// newSessionStore keeps sessions in Redis when it is available and in the
// encrypted cookie otherwise.
func newSessionStore(cfg *config.Config, redisClient *cache.RedisClient) sessions.Store {
	secure := cfg.Environment == config.EnvProduction
	authKey, encKey := []byte(cfg.SessionAuthKey), []byte(cfg.SessionEncryptionKey)
	if redisClient != nil {
		return auth.NewSessionStore(redisClient.Client(), authKey, encKey, secure)
	}
	return auth.NewCookieStore(authKey, encKey, secure)
}
