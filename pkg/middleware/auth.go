package middleware

import (
	"net/http"

	"github.com/baynext/baynext/pkg/audit"
	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/contextkeys"
	"github.com/baynext/baynext/pkg/httputil"
	"github.com/baynext/baynext/pkg/observability"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	// APIKeyHeader carries a project API key
	APIKeyHeader = "X-Baynext-Api-Key"

	// APIKeyQueryParam carries a project API key in the query string
	APIKeyQueryParam = "key"

	// ProjectIDVar is the route variable naming the target project
	ProjectIDVar = "project_id"
)

// AuthMiddleware authenticates every request through the auth gateway
type AuthMiddleware struct {
	gateway *auth.Gateway
	log     logrus.FieldLogger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(gateway *auth.Gateway, logger logrus.FieldLogger) *AuthMiddleware {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthMiddleware{
		gateway: gateway,
		log:     logger,
	}
}

// Handler rejects requests that do not authenticate and stores the principal
// in the context of those that do.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		creds := CredentialsFromRequest(r)

		principal, err := m.gateway.Authenticate(ctx, creds)
		if err != nil {
			m.log.WithError(err).WithFields(logrus.Fields{
				"method":  creds.Method(),
				"outcome": auth.Outcome(err),
				"path":    r.URL.Path,
			}).Debug("authentication failed")
			if aerr := audit.LogFailure(ctx, r, audit.EventTypeAuthAuthenticateFailed, auth.Outcome(err), err); aerr != nil {
				m.log.WithError(aerr).Warn("failed to write audit event")
			}
			WriteError(w, r, err)
			return
		}

		ctx = contextkeys.WithPrincipal(ctx, principal)
		ctx = observability.WithSubject(ctx, principal.SubjectID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CredentialsFromRequest collects every credential the request carries.
// The project ID comes from the route, so the router must have matched first.
func CredentialsFromRequest(r *http.Request) auth.Credentials {
	var creds auth.Credentials

	if token, ok := httputil.BearerToken(r); ok {
		creds.BearerToken = &token
	}
	if values, ok := r.Header[http.CanonicalHeaderKey(APIKeyHeader)]; ok && len(values) > 0 {
		key := values[0]
		creds.HeaderKey = &key
	}
	if values, ok := r.URL.Query()[APIKeyQueryParam]; ok && len(values) > 0 {
		key := values[0]
		creds.QueryKey = &key
	}
	creds.ProjectID = mux.Vars(r)[ProjectIDVar]

	return creds
}

// GetPrincipal returns the principal stored by AuthMiddleware, or nil
func GetPrincipal(r *http.Request) *auth.Principal {
	principal, _ := contextkeys.GetPrincipal(r.Context())
	return principal
}
