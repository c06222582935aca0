package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/baynext/baynext/pkg/audit"
	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/observability"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsFromRequest(t *testing.T) {
	t.Run("nothing sent", func(t *testing.T) {
		creds := CredentialsFromRequest(httptest.NewRequest("GET", "/", nil))
		assert.Nil(t, creds.BearerToken)
		assert.Nil(t, creds.HeaderKey)
		assert.Nil(t, creds.QueryKey)
		assert.Equal(t, auth.MethodNone, creds.Method())
	})

	t.Run("all sent", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/projects/p1/resource?key=q", nil)
		req.Header.Set("Authorization", "Bearer tok")
		req.Header.Set(APIKeyHeader, "h")
		req = mux.SetURLVars(req, map[string]string{ProjectIDVar: "p1"})

		creds := CredentialsFromRequest(req)
		require.NotNil(t, creds.BearerToken)
		require.NotNil(t, creds.HeaderKey)
		require.NotNil(t, creds.QueryKey)
		assert.Equal(t, "tok", *creds.BearerToken)
		assert.Equal(t, "h", *creds.HeaderKey)
		assert.Equal(t, "q", *creds.QueryKey)
		assert.Equal(t, "p1", creds.ProjectID)
		assert.Equal(t, auth.MethodBearer, creds.Method())
	})

	t.Run("blank values are still present", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/?key=", nil)
		req.Header.Set(APIKeyHeader, "")

		creds := CredentialsFromRequest(req)
		require.NotNil(t, creds.HeaderKey)
		require.NotNil(t, creds.QueryKey)
		assert.Empty(t, *creds.HeaderKey)
		assert.Equal(t, auth.MethodHeaderKey, creds.Method())
	})

	t.Run("non-bearer authorization is ignored", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		assert.Nil(t, CredentialsFromRequest(req).BearerToken)
	})
}

func TestAuthMiddleware_Handler(t *testing.T) {
	f := newFixture(t)

	var got *http.Request
	h := f.router(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name    string
		path    string
		bearer  string
		header  *string
		want    int
		subject string
	}{
		{name: "no credentials", path: "/v1/me", want: http.StatusUnauthorized},
		{name: "valid bearer", path: "/v1/me", bearer: f.token(t, "owner"), want: http.StatusOK, subject: "owner"},
		{name: "garbage bearer", path: "/v1/me", bearer: "not-a-jwt", want: http.StatusUnauthorized},
		{name: "key off project route", path: "/v1/me", header: &f.keyValue, want: http.StatusUnauthorized},
		{name: "key on its project", path: "/v1/projects/p1/resource", header: &f.keyValue, want: http.StatusOK},
		{name: "key on another project", path: "/v1/projects/p1/resource", header: &f.otherKey, want: http.StatusForbidden},
		{name: "bad bearer does not fall back to key", path: "/v1/projects/p1/resource", bearer: "bad", header: &f.keyValue, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			if tt.header != nil {
				req.Header.Set(APIKeyHeader, *tt.header)
			}

			rec := do(h, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want != http.StatusOK {
				assert.Nil(t, got, "handler must not run")
				return
			}
			require.NotNil(t, got)
			principal := GetPrincipal(got)
			require.NotNil(t, principal)
			assert.Equal(t, principal.SubjectID(), observability.GetSubject(got.Context()))
			if tt.subject != "" {
				assert.Equal(t, tt.subject, principal.SubjectID())
			}
		})
	}
}

func TestAuthMiddleware_QueryKey(t *testing.T) {
	f := newFixture(t)
	h := f.router(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, auth.PrincipalAPIKey, GetPrincipal(r).Kind)
		w.WriteHeader(http.StatusOK)
	})

	rec := do(h, httptest.NewRequest("GET", "/v1/projects/p1/resource?key="+f.keyValue, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// a present but invalid header key wins over a valid query key
	req := httptest.NewRequest("GET", "/v1/projects/p1/resource?key="+f.keyValue, nil)
	req.Header.Set(APIKeyHeader, "bnx_wrong")
	assert.Equal(t, http.StatusUnauthorized, do(h, req).Code)
}

type recordingAudit struct {
	events []*audit.AuditEvent
}

func (r *recordingAudit) Log(ctx context.Context, e *audit.AuditEvent) error {
	r.events = append(r.events, e)
	return nil
}

func (r *recordingAudit) Close() error { return nil }

func TestAuthMiddleware_AuditsFailures(t *testing.T) {
	f := newFixture(t)
	sink := &recordingAudit{}
	h := audit.NewMiddleware(sink, false, nil).Handler(f.router(func(w http.ResponseWriter, r *http.Request) {}))

	rec := do(h, httptest.NewRequest("GET", "/v1/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Len(t, sink.events, 2)
	assert.Equal(t, audit.EventTypeAuthAuthenticateFailed, sink.events[0].EventType)
	assert.Equal(t, "missing_credentials", sink.events[0].Message)
	assert.Equal(t, audit.EventTypeHTTPRequest, sink.events[1].EventType)
}

func TestAuthMiddleware_HidesFailureDetail(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.DeactivateAPIKey(context.Background(), f.keyID))

	logger, hook := logrustest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	r := mux.NewRouter()
	r.Use(NewAuthMiddleware(f.gateway, logger).Handler)
	r.HandleFunc("/v1/me", func(w http.ResponseWriter, r *http.Request) {})
	r.HandleFunc("/v1/projects/{project_id}/resource", func(w http.ResponseWriter, r *http.Request) {})

	tests := []struct {
		name   string
		req    func() *http.Request
		body   string
		detail string
	}{
		{
			name: "malformed bearer",
			req: func() *http.Request {
				req := httptest.NewRequest("GET", "/v1/me", nil)
				req.Header.Set("Authorization", "Bearer not-a-jwt")
				return req
			},
			body:   `{"error":"invalid or expired token"}`,
			detail: "malformed",
		},
		{
			name: "inactive key",
			req: func() *http.Request {
				req := httptest.NewRequest("GET", "/v1/projects/p1/resource", nil)
				req.Header.Set(APIKeyHeader, f.keyValue)
				return req
			},
			body:   `{"error":"invalid API key"}`,
			detail: "key is inactive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()
			rec := do(r, tt.req())
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, "authentication failed", entry.Message)
			assert.Contains(t, entry.Data[logrus.ErrorKey].(error).Error(), tt.detail)
		})
	}
}

func TestGetPrincipal_Unauthenticated(t *testing.T) {
	assert.Nil(t, GetPrincipal(httptest.NewRequest("GET", "/", nil)))
}
