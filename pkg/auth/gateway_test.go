package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decision struct {
	method  string
	outcome string
}

type fakeRecorder struct {
	mu        sync.Mutex
	decisions []decision
}

func (r *fakeRecorder) RecordAuthentication(method, outcome string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, decision{method, outcome})
}

func strPtr(s string) *string {
	return &s
}

func TestCredentials_Method(t *testing.T) {
	assert.Equal(t, MethodNone, Credentials{}.Method())
	assert.Equal(t, MethodQueryKey, Credentials{QueryKey: strPtr("q")}.Method())
	assert.Equal(t, MethodHeaderKey, Credentials{HeaderKey: strPtr("h"), QueryKey: strPtr("q")}.Method())
	assert.Equal(t, MethodBearer, Credentials{BearerToken: strPtr(""), HeaderKey: strPtr("h")}.Method())
}

func TestGateway_Authenticate(t *testing.T) {
	store := newFakeStore()
	a := newTestAuthenticator(t, store)
	user := store.addUser(t, a.Hasher(), "u1", "ada@example.com", "pw", UserStatusActive)
	key, value := store.addKey(t, "p1")

	token, err := a.IssueToken(user)
	require.NoError(t, err)

	rec := &fakeRecorder{}
	gw := NewGateway(a, rec)

	tests := []struct {
		name        string
		creds       Credentials
		wantErr     error
		wantKind    PrincipalKind
		wantSubject string
		wantOutcome string
	}{
		{
			name:        "bearer token",
			creds:       Credentials{BearerToken: strPtr(token)},
			wantKind:    PrincipalUser,
			wantSubject: "u1",
			wantOutcome: "success",
		},
		{
			name:        "header key",
			creds:       Credentials{HeaderKey: strPtr(value), ProjectID: "p1"},
			wantKind:    PrincipalAPIKey,
			wantSubject: key.ID,
			wantOutcome: "success",
		},
		{
			name:        "query key",
			creds:       Credentials{QueryKey: strPtr(value), ProjectID: "p1"},
			wantKind:    PrincipalAPIKey,
			wantSubject: key.ID,
			wantOutcome: "success",
		},
		{
			name:        "nothing supplied",
			creds:       Credentials{ProjectID: "p1"},
			wantErr:     ErrMissingCredentials,
			wantOutcome: "missing_credentials",
		},
		{
			name:        "invalid bearer with valid header key does not fall back",
			creds:       Credentials{BearerToken: strPtr("bogus"), HeaderKey: strPtr(value), ProjectID: "p1"},
			wantErr:     ErrUnauthorized,
			wantOutcome: "invalid_token",
		},
		{
			name:        "empty bearer is present and invalid",
			creds:       Credentials{BearerToken: strPtr(""), QueryKey: strPtr(value), ProjectID: "p1"},
			wantErr:     ErrInvalidToken,
			wantOutcome: "invalid_token",
		},
		{
			name:        "invalid header key with valid query key does not fall back",
			creds:       Credentials{HeaderKey: strPtr(KeyPrefix + "bm9wZQ"), QueryKey: strPtr(value), ProjectID: "p1"},
			wantErr:     ErrInvalidKey,
			wantOutcome: "invalid_key",
		},
		{
			name:        "key for another project",
			creds:       Credentials{HeaderKey: strPtr(value), ProjectID: "p2"},
			wantErr:     ErrProjectMismatch,
			wantOutcome: "project_mismatch",
		},
		{
			name:        "key outside a project route",
			creds:       Credentials{QueryKey: strPtr(value)},
			wantErr:     ErrInvalidKey,
			wantOutcome: "invalid_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec.decisions = nil
			p, err := gw.Authenticate(context.Background(), tt.creds)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantKind, p.Kind)
				assert.Equal(t, tt.wantSubject, p.SubjectID())
			}

			require.Len(t, rec.decisions, 1)
			assert.Equal(t, tt.creds.Method(), rec.decisions[0].method)
			assert.Equal(t, tt.wantOutcome, rec.decisions[0].outcome)
		})
	}
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "invalid_credentials", Outcome(ErrInvalidCredentials))
	assert.Equal(t, "unauthorized", Outcome(ErrUnauthorized))
	assert.Equal(t, "project_mismatch", Outcome(&ProjectMismatchError{ProjectID: "p"}))
	assert.Equal(t, "error", Outcome(assert.AnError))
}
