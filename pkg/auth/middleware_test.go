package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/ghuser/lostfound/pkg/logger"
)

// newTestStore returns a gorilla CookieStore (no Redis required) for unit tests.
// In production the RedisStore is used; the sessions.Store interface is identical.
func newTestStore() sessions.Store {
	return NewCookieStore(
		[]byte("test-auth-key-must-be-32-bytes!!"),
		[]byte("test-enc-key-must-be-32-bytes!!!"),
		false,
	)
}

func newTestAuthenticator(store sessions.Store) *Authenticator {
	return NewAuthenticator(testSecret, store, logger.NewNop())
}

func mustToken(t *testing.T, p Principal) string {
	t.Helper()
	tok, err := GenerateToken(testSecret, p, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}

// requestWithSession starts a session for p and returns a request carrying
// the resulting cookie.
func requestWithSession(t *testing.T, a *Authenticator, p Principal) *http.Request {
	t.Helper()
	w := httptest.NewRecorder()
	if err := a.StartSession(w, httptest.NewRequest(http.MethodPost, "/api/auth/session", nil), p); err != nil {
		t.Fatalf("start session: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func capture(got *Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, _ = PrincipalFromCtx(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth_BearerToken(t *testing.T) {
	a := newTestAuthenticator(nil)
	p := Principal{UserID: uuid.New(), Role: RoleUser, Name: "Bo"}

	var got Principal
	r := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	r.Header.Set("Authorization", "Bearer "+mustToken(t, p))
	w := httptest.NewRecorder()
	a.RequireAuth(capture(&got)).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got != p {
		t.Fatalf("expected %+v in context, got %+v", p, got)
	}
}

func TestRequireAuth_ValidSession(t *testing.T) {
	a := newTestAuthenticator(newTestStore())
	p := Principal{UserID: uuid.New(), Role: RoleAdmin, Name: "Ada"}

	var got Principal
	w := httptest.NewRecorder()
	a.RequireAuth(capture(&got)).ServeHTTP(w, requestWithSession(t, a, p))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got != p {
		t.Fatalf("expected %+v in context, got %+v", p, got)
	}
}

func TestRequireAuth_Rejects(t *testing.T) {
	a := newTestAuthenticator(newTestStore())
	valid := mustToken(t, Principal{UserID: uuid.New(), Role: RoleUser})

	tests := []struct {
		name  string
		build func() *http.Request
	}{
		{"missing credentials", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/items", nil)
		}},
		{"bad bearer token", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/items", nil)
			r.Header.Set("Authorization", "Bearer garbage")
			return r
		}},
		{"non-bearer scheme", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/items", nil)
			r.Header.Set("Authorization", "Basic "+valid)
			return r
		}},
		{"query token not accepted on plain routes", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/items?token="+valid, nil)
		}},
		{"tampered session cookie", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/items", nil)
			r.AddCookie(&http.Cookie{Name: sessionName, Value: "tampered"})
			return r
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("next handler should not be called")
			})
			w := httptest.NewRecorder()
			a.RequireAuth(next).ServeHTTP(w, tt.build())
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestResolve_QueryTokenWhenAllowed(t *testing.T) {
	a := newTestAuthenticator(nil)
	p := Principal{UserID: uuid.New(), Role: RoleUser}
	r := httptest.NewRequest(http.MethodGet, "/ws?token="+mustToken(t, p), nil)

	got, err := a.Resolve(r, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != p.UserID {
		t.Fatalf("expected %v, got %v", p.UserID, got.UserID)
	}
}

func TestOptionalAuth(t *testing.T) {
	a := newTestAuthenticator(nil)

	var got Principal
	w := httptest.NewRecorder()
	a.OptionalAuth(capture(&got)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/items/x", nil))
	if w.Code != http.StatusOK || got.UserID != uuid.Nil {
		t.Fatalf("anonymous request should pass without principal, got %d %+v", w.Code, got)
	}

	p := Principal{UserID: uuid.New(), Role: RoleUser}
	r := httptest.NewRequest(http.MethodGet, "/api/items/x", nil)
	r.Header.Set("Authorization", "Bearer "+mustToken(t, p))
	a.OptionalAuth(capture(&got)).ServeHTTP(httptest.NewRecorder(), r)
	if got.UserID != p.UserID {
		t.Fatalf("expected principal %v, got %v", p.UserID, got.UserID)
	}
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name      string
		principal *Principal
		want      int
	}{
		{"admin", &Principal{UserID: uuid.New(), Role: RoleAdmin}, http.StatusOK},
		{"user", &Principal{UserID: uuid.New(), Role: RoleUser}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPut, "/api/items/x/approve", nil)
			if tt.principal != nil {
				r = r.WithContext(WithPrincipal(r.Context(), *tt.principal))
			}
			w := httptest.NewRecorder()
			RequireAdmin(ok).ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestEndSession_ExpiresCookie(t *testing.T) {
	a := newTestAuthenticator(newTestStore())
	r := requestWithSession(t, a, Principal{UserID: uuid.New(), Role: RoleUser})

	w := httptest.NewRecorder()
	if err := a.EndSession(w, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expiring cookie, got %+v", cookies)
	}
}

func TestStartSession_WithoutStore(t *testing.T) {
	a := newTestAuthenticator(nil)
	err := a.StartSession(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil), Principal{UserID: uuid.New()})
	if err == nil {
		t.Fatal("expected error without a session store")
	}
}
