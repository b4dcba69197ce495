package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set; skipping integration tests")
	}
	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close() //nolint:errcheck

	store := NewSessionStore(client,
		[]byte("test-auth-key-must-be-32-bytes!!"),
		[]byte("test-enc-key-must-be-32-bytes!!!"),
		false)
	a := newTestAuthenticator(store)
	p := Principal{UserID: uuid.New(), Role: RoleAdmin, Name: "Ada"}

	req := requestWithSession(t, a, p)
	got, err := a.Resolve(req, false)
	require.NoError(t, err)
	require.Equal(t, p, got)

	// the cookie only carries the id; the values live in redis
	session, err := store.New(req, sessionName)
	require.NoError(t, err)
	require.False(t, session.IsNew)
	ttl, err := client.TTL(req.Context(), sessionKeyPrefix+session.ID).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, SessionMaxAge/2)

	w := httptest.NewRecorder()
	require.NoError(t, a.EndSession(w, req))
	n, err := client.Exists(req.Context(), sessionKeyPrefix+session.ID).Result()
	require.NoError(t, err)
	require.Zero(t, n)

	stale := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	for _, c := range req.Cookies() {
		stale.AddCookie(c)
	}
	_, err = a.Resolve(stale, false)
	require.ErrorIs(t, err, ErrUnauthenticated)
}
