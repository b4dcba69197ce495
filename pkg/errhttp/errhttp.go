// Package errhttp maps domain sentinel errors to HTTP status codes.
// Add a case to StatusFor for each new domain sentinel error.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/ghuser/lostfound/pkg/auth"
	"github.com/ghuser/lostfound/pkg/httpx"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
)

// WriteError maps err to an HTTP status code and writes
// {"error": msg, "message": msg}. Server errors never expose their text.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	httpx.JSONError(w, status, httpx.PublicMessage(err, status))
}

// StatusFor returns the HTTP status for err. Uses errors.Is so wrapped
// sentinels match; unrecognized errors are 500.
func StatusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, itemdomain.ErrValidation):
		return http.StatusBadRequest // 400
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge // 413
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized // 401
	case errors.Is(err, itemdomain.ErrForbidden):
		return http.StatusForbidden // 403
	case errors.Is(err, itemdomain.ErrItemNotFound),
		errors.Is(err, itemdomain.ErrClaimNotFound),
		errors.Is(err, itemdomain.ErrItemUnavailable):
		return http.StatusNotFound // 404
	case errors.Is(err, itemdomain.ErrConflict):
		return http.StatusConflict // 409
	default:
		return http.StatusInternalServerError // 500
	}
}
