package middleware

import (
	"errors"
	"net/http"

	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/httputil"
	"github.com/baynext/baynext/pkg/observability"
	"github.com/baynext/baynext/pkg/rbac"
	"github.com/baynext/baynext/pkg/storage"
)

// unauthenticated lists the 401 sentinels, most specific first. A decode
// failure wraps both ErrUnauthorized and ErrInvalidToken.
var unauthenticated = []error{
	auth.ErrInvalidToken,
	auth.ErrInvalidKey,
	auth.ErrInvalidCredentials,
	auth.ErrMissingCredentials,
	auth.ErrUnauthorized,
}

// StatusFor maps an auth, authorization or storage error to an HTTP status
// and the message shown to the client. Authentication failures report only
// the sentinel's message; the wrapped detail stays in the debug log.
// Unknown errors map to 500 with a generic message.
func StatusFor(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	// a mismatched key is valid, just not here
	if errors.Is(err, auth.ErrProjectMismatch) {
		return http.StatusForbidden, err.Error()
	}
	for _, sentinel := range unauthenticated {
		if errors.Is(err, sentinel) {
			return http.StatusUnauthorized, sentinel.Error()
		}
	}

	switch {
	case errors.Is(err, rbac.ErrProjectNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, rbac.ErrForbidden):
		return http.StatusForbidden, err.Error()

	case errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

// WriteError writes the response for err. Server errors are logged with the
// request's logger and never echoed to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := StatusFor(err)
	switch status {
	case http.StatusUnauthorized:
		httputil.WriteUnauthorized(w, message)
	case http.StatusForbidden:
		httputil.WriteForbidden(w, message)
	case http.StatusNotFound:
		httputil.WriteNotFound(w, message)
	case http.StatusConflict:
		httputil.WriteConflict(w, message)
	default:
		observability.FromContext(r.Context()).WithError(err).Error("request failed")
		httputil.WriteInternalError(w)
	}
}
