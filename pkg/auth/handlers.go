package auth

import (
	"net/http"

	"github.com/ghuser/lostfound/pkg/httpx"
)

// CreateSession exchanges a bearer token for a session cookie.
//
//	@Summary		Start browser session
//	@Description	Validates the bearer token and sets an HttpOnly session cookie, so websocket handshakes can authenticate without headers.
//	@Tags			auth
//	@Success		204
//	@Failure		401	{object}	map[string]string
//	@Security		BearerAuth
//	@Router			/auth/session [post]
func (a *Authenticator) CreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		httpx.JSONError(w, http.StatusUnauthorized, msgAuthRequired)
		return
	}
	p, err := a.Resolve(r, false)
	if err != nil {
		a.log.WarnContext(r.Context(), "session exchange rejected", "error", err)
		httpx.JSONError(w, http.StatusUnauthorized, msgAuthRequired)
		return
	}
	if err := a.StartSession(w, r, p); err != nil {
		a.log.ErrorContext(r.Context(), "failed to start session", "user_id", p.UserID, "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSession clears the session cookie.
//
//	@Summary	End browser session
//	@Tags		auth
//	@Success	204
//	@Router		/auth/session [delete]
func (a *Authenticator) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := a.EndSession(w, r); err != nil {
		a.log.WarnContext(r.Context(), "failed to end session", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
