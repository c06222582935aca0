package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Credential methods, in precedence order
const (
	MethodBearer    = "bearer"
	MethodHeaderKey = "header_key"
	MethodQueryKey  = "query_key"
	MethodNone      = "none"
)

// Credentials is the raw credential material taken from a request.
// A nil field means the credential was absent; a non-nil empty string
// means it was present but blank.
type Credentials struct {
	BearerToken *string
	HeaderKey   *string
	QueryKey    *string
	ProjectID   string
}

// Method returns which credential Authenticate will evaluate
func (c Credentials) Method() string {
	switch {
	case c.BearerToken != nil:
		return MethodBearer
	case c.HeaderKey != nil:
		return MethodHeaderKey
	case c.QueryKey != nil:
		return MethodQueryKey
	}
	return MethodNone
}

// DecisionRecorder observes authentication outcomes
type DecisionRecorder interface {
	RecordAuthentication(method, outcome string, duration time.Duration)
}

// Gateway is the single entry point for request authentication
type Gateway struct {
	authn    *Authenticator
	recorder DecisionRecorder
	tracer   trace.Tracer
}

// NewGateway creates a gateway over authn. recorder may be nil.
func NewGateway(authn *Authenticator, recorder DecisionRecorder) *Gateway {
	return &Gateway{
		authn:    authn,
		recorder: recorder,
		tracer:   otel.Tracer("github.com/baynext/baynext/pkg/auth"),
	}
}

// Authenticate resolves creds to a principal. Only the highest-priority credential
// present is evaluated (bearer, then header key, then query key); a failing
// credential is never retried with a lower-priority one.
func (g *Gateway) Authenticate(ctx context.Context, creds Credentials) (principal *Principal, err error) {
	method := creds.Method()
	ctx, span := g.tracer.Start(ctx, "auth.Authenticate",
		trace.WithAttributes(attribute.String("auth.method", method)))
	start := time.Now()
	defer func() {
		outcome := Outcome(err)
		if g.recorder != nil {
			g.recorder.RecordAuthentication(method, outcome, time.Since(start))
		}
		span.SetAttributes(attribute.String("auth.outcome", outcome))
		if err != nil {
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()

	switch method {
	case MethodBearer:
		user, err := g.authn.ResolveFromToken(ctx, *creds.BearerToken)
		if err != nil {
			return nil, err
		}
		return UserPrincipal(user), nil
	case MethodHeaderKey:
		return g.resolveKey(ctx, *creds.HeaderKey, creds.ProjectID)
	case MethodQueryKey:
		return g.resolveKey(ctx, *creds.QueryKey, creds.ProjectID)
	}
	return nil, ErrMissingCredentials
}

func (g *Gateway) resolveKey(ctx context.Context, value, projectID string) (*Principal, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: API keys are only accepted on project routes", ErrInvalidKey)
	}
	key, err := g.authn.ResolveFromAPIKey(ctx, value, projectID)
	if err != nil {
		return nil, err
	}
	return KeyPrincipal(key), nil
}

// Outcome names the error kind for metrics and logs
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrProjectMismatch):
		return "project_mismatch"
	case errors.Is(err, ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	}
	return "error"
}
