package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/rbac"
	"github.com/baynext/baynext/pkg/storage"
	"github.com/baynext/baynext/pkg/storage/storagetest"
	"github.com/gorilla/mux"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fixture is a project p1 owned by "owner", with "editor" as an editor member,
// "outsider" as an unrelated user and one active key on p1.
type fixture struct {
	store     *storage.MemoryStore
	authn     *auth.Authenticator
	gateway   *auth.Gateway
	evaluator *rbac.Evaluator
	keyID     string
	keyValue  string
	otherKey  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := logrustest.NewNullLogger()

	store := storage.NewMemoryStore()
	storagetest.SeedUser(t, store, "owner")
	storagetest.SeedUser(t, store, "editor")
	storagetest.SeedUser(t, store, "outsider")
	storagetest.SeedProject(t, store, "p1", "owner")
	storagetest.SeedProject(t, store, "p2", "outsider")
	require.NoError(t, store.AddMembership(context.Background(), &rbac.Membership{
		ID:        "m1",
		ProjectID: "p1",
		UserID:    "editor",
		Role:      rbac.RoleEditor,
		InvitedBy: "owner",
		JoinedAt:  time.Now(),
	}))
	key, keyValue := storagetest.SeedKey(t, store, "p1", "ci")
	_, otherKey := storagetest.SeedKey(t, store, "p2", "ci")

	authn, err := auth.NewAuthenticator(auth.Config{
		Secret:     []byte("middleware-test-secret"),
		BcryptCost: bcrypt.MinCost,
	}, store, logger)
	require.NoError(t, err)

	policy, err := rbac.NewPolicy()
	require.NoError(t, err)

	return &fixture{
		store:     store,
		authn:     authn,
		gateway:   auth.NewGateway(authn, nil),
		evaluator: rbac.NewEvaluator(store, policy, logger),
		keyID:     key.ID,
		keyValue:  keyValue,
		otherKey:  otherKey,
	}
}

func (f *fixture) token(t *testing.T, userID string) string {
	t.Helper()
	user, err := f.store.GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	token, err := f.authn.IssueToken(user)
	require.NoError(t, err)
	return token
}

// router mounts handler at /v1/projects/{project_id}/resource and /v1/me
// behind the auth middleware and the given guards.
func (f *fixture) router(handler http.HandlerFunc, guards ...mux.MiddlewareFunc) *mux.Router {
	logger, _ := logrustest.NewNullLogger()
	r := mux.NewRouter()
	r.Use(NewAuthMiddleware(f.gateway, logger).Handler)
	r.HandleFunc("/v1/me", handler)

	project := r.PathPrefix("/v1/projects/{project_id}").Subrouter()
	for _, g := range guards {
		project.Use(g)
	}
	project.HandleFunc("/resource", handler)
	return r
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
