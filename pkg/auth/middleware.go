package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/ghuser/lostfound/pkg/httpx"
	"github.com/ghuser/lostfound/pkg/logger"
)

const (
	sessionName       = "lostfound_session"
	sessionUserIDKey  = "user_id"
	sessionRoleKey    = "role"
	sessionNameKey    = "name"
	tokenQueryParam   = "token"
	bearerPrefix      = "bearer "
	msgAuthRequired   = "authentication required"
	msgAdminRequired  = "admin access required"
	msgInvalidSession = "invalid session data"
)

// Authenticator resolves a Principal from a bearer token or a session
// cookie. store may be nil, in which case only tokens are accepted.
type Authenticator struct {
	secret string
	store  sessions.Store
	log    logger.Logger
}

// NewAuthenticator returns an Authenticator verifying tokens with secret.
func NewAuthenticator(secret string, store sessions.Store, log logger.Logger) *Authenticator {
	return &Authenticator{secret: secret, store: store, log: log}
}

// Resolve identifies the caller. Sources are tried in order: the
// Authorization header, the "token" query parameter when allowQuery is set
// (websocket clients cannot send headers), then the session cookie.
func (a *Authenticator) Resolve(r *http.Request, allowQuery bool) (Principal, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) <= len(bearerPrefix) || !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
			return Principal{}, ErrInvalidToken
		}
		return ValidateToken(a.secret, strings.TrimSpace(h[len(bearerPrefix):]))
	}
	if allowQuery {
		if tok := r.URL.Query().Get(tokenQueryParam); tok != "" {
			return ValidateToken(a.secret, tok)
		}
	}
	if a.store == nil {
		return Principal{}, ErrUnauthenticated
	}
	return a.fromSession(r)
}

func (a *Authenticator) fromSession(r *http.Request) (Principal, error) {
	session, err := a.store.Get(r, sessionName)
	if err != nil {
		return Principal{}, errors.Join(ErrUnauthenticated, err)
	}
	raw, ok := session.Values[sessionUserIDKey].(string)
	if !ok || raw == "" {
		return Principal{}, ErrUnauthenticated
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return Principal{}, errors.New(msgInvalidSession)
	}
	role, _ := session.Values[sessionRoleKey].(string)
	name, _ := session.Values[sessionNameKey].(string)
	p := Principal{UserID: userID, Role: RoleUser, Name: name}
	if Role(role) == RoleAdmin {
		p.Role = RoleAdmin
	}
	return p, nil
}

// StartSession stores p in a new session cookie.
func (a *Authenticator) StartSession(w http.ResponseWriter, r *http.Request, p Principal) error {
	if a.store == nil {
		return errors.New("sessions are not configured")
	}
	// a stale cookie yields a fresh session alongside the error; reuse it
	session, err := a.store.Get(r, sessionName)
	if err != nil && session == nil {
		return err
	}
	session.Values[sessionUserIDKey] = p.UserID.String()
	session.Values[sessionRoleKey] = string(p.Role)
	session.Values[sessionNameKey] = p.Name
	return session.Save(r, w)
}

// EndSession deletes the session cookie and its stored values.
func (a *Authenticator) EndSession(w http.ResponseWriter, r *http.Request) error {
	if a.store == nil {
		return nil
	}
	session, err := a.store.Get(r, sessionName)
	if err != nil && session == nil {
		return err
	}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// RequireAuth rejects requests without a valid identity with 401 and
// injects the Principal into the context otherwise.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.Resolve(r, false)
		if err != nil {
			a.log.WarnContext(r.Context(), "authentication failed", "error", err)
			httpx.JSONError(w, http.StatusUnauthorized, msgAuthRequired)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// OptionalAuth injects the Principal when one can be resolved and lets
// anonymous requests through untouched.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, err := a.Resolve(r, false); err == nil {
			r = r.WithContext(WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin must run after RequireAuth. Non-admins get 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := PrincipalFromCtx(r.Context())
		if err != nil {
			httpx.JSONError(w, http.StatusUnauthorized, msgAuthRequired)
			return
		}
		if !p.IsAdmin() {
			httpx.JSONError(w, http.StatusForbidden, msgAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}
