package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
)

const (
	// HandlerTimeout bounds request/response routes. The websocket route is
	// mounted outside it.
	HandlerTimeout = 30 * time.Second

	// MaxBodyBytes caps request bodies, multipart image uploads included.
	MaxBodyBytes = 10 << 20

	// DefaultRateLimit applies when RouterOptions.RateLimitPerMinute is zero.
	DefaultRateLimit = 100
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Development bool
	// CORSAllowedOrigins is a comma-separated origin list; "*" disables
	// credentialed requests.
	CORSAllowedOrigins string
	RateLimitPerMinute int
	// Middleware runs right after the request id is assigned, outermost
	// first: recovery, crash reporting, tracing, access log.
	Middleware []func(http.Handler) http.Handler
}

// NewRouter returns a chi.Mux with the shared middleware chain installed.
func NewRouter(opts RouterOptions) *chi.Mux {
	limit := opts.RateLimitPerMinute
	if limit <= 0 {
		limit = DefaultRateLimit
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(opts.Middleware...)
	r.Use(
		middleware.RealIP,
		httprate.Limit(limit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				JSONError(w, http.StatusTooManyRequests, "too many requests")
			}),
		),
		CORSMiddleware(opts.CORSAllowedOrigins),
		RequestBodyLimit(MaxBodyBytes),
		securityHeaders(opts.Development),
	)
	return r
}

// securityHeaders sets HSTS, CSP and friends. Uploaded item images are
// served from the same origin, so img-src stays 'self'.
func securityHeaders(dev bool) func(http.Handler) http.Handler {
	return secure.New(secure.Options{
		STSSeconds:            63072000,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:; connect-src 'self' ws: wss:",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=()",
		IsDevelopment:         dev,
	}).Handler
}

// CORSMiddleware allows the listed origins. Session cookies cross origins
// only for an explicit list.
func CORSMiddleware(allowedOrigins string) func(http.Handler) http.Handler {
	origins := ParseOrigins(allowedOrigins)
	wildcard := len(origins) == 1 && origins[0] == "*"
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}

// ParseOrigins splits a comma-separated list. Empty input yields "*".
func ParseOrigins(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// RequestBodyLimit rejects declared oversize bodies with 413 up front and
// caps the rest; handlers map the resulting read error to 413 themselves.
func RequestBodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				JSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// NewServer returns an *http.Server whose write timeout outlasts
// HandlerTimeout. The websocket hub clears both deadlines after upgrade.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      HandlerTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
