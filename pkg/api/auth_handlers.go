package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/baynext/baynext/pkg/async"
	"github.com/baynext/baynext/pkg/audit"
	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/httputil"
	"github.com/baynext/baynext/pkg/middleware"
)

// createToken handles POST /v1/auth/token
func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		httputil.WriteBadRequest(w, "invalid form body")
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if email == "" || password == "" {
		httputil.WriteBadRequest(w, "username and password are required")
		return
	}
	ip := httputil.ClientIP(r)

	if s.throttle != nil {
		if allowed, retryAfter := s.throttle.Check(ctx, email, ip); !allowed {
			s.logAudit(ctx, r, audit.EventTypeAuthLoginThrottled, audit.EventStatusDenied, email, nil)
			httputil.WriteTooManyRequests(w, "too many failed login attempts", retryAfter)
			return
		}
	}

	user, err := s.authn.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			if s.throttle != nil {
				s.throttle.Fail(ctx, email, ip)
			}
			s.logAudit(ctx, r, audit.EventTypeAuthLoginFailed, audit.EventStatusFailure, email, err)
		}
		middleware.WriteError(w, r, err)
		return
	}

	token, err := s.authn.IssueToken(user)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if s.throttle != nil {
		async.SafeGo(ctx, s.log, 2*time.Second, "reset login throttle", func(ctx context.Context) error {
			s.throttle.Reset(ctx, email, ip)
			return nil
		})
	}
	s.logAudit(ctx, r, audit.EventTypeAuthLogin, audit.EventStatusSuccess, user.Email, nil)

	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.authn.TokenTTL() / time.Second),
	})
}

// getMe handles GET /v1/me and GET /v1/auth/me
func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil || !principal.IsUser() {
		middleware.WriteError(w, r, auth.ErrUnauthorized)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, principal.User)
}

func (s *Server) logAudit(ctx context.Context, r *http.Request, eventType audit.EventType, status audit.EventStatus, email string, err error) {
	event := audit.NewEvent(ctx, r, eventType, status)
	event.Email = email
	event.ResourceType = audit.ResourceTypeUser
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	if aerr := audit.FromContext(ctx).Log(ctx, event); aerr != nil {
		s.log.WithError(aerr).Warn("failed to write audit event")
	}
}
