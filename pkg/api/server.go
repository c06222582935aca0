package api

import (
	"net/http"

	"github.com/baynext/baynext/pkg/audit"
	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/httputil"
	"github.com/baynext/baynext/pkg/middleware"
	"github.com/baynext/baynext/pkg/observability"
	"github.com/baynext/baynext/pkg/rbac"
	"github.com/baynext/baynext/pkg/storage"
	"github.com/baynext/baynext/pkg/swagger"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxBodyBytes bounds request bodies; every payload here is small
const maxBodyBytes = 1 << 20

// Deps are the components the server is assembled from. Throttle, Metrics,
// Health, Audit and TrustedProxies are optional.
type Deps struct {
	Store         storage.Store
	Authenticator *auth.Authenticator
	Gateway       *auth.Gateway
	Evaluator     *rbac.Evaluator
	Throttle      *middleware.LoginThrottle
	Metrics       *observability.Metrics
	Health        *observability.HealthChecker
	Audit         audit.Logger
	Logger        logrus.FieldLogger

	// TrustedProxies decides when X-Forwarded-For names the client
	TrustedProxies *httputil.TrustedProxies

	CORSAllowedOrigins []string
}

// Server represents our API server
type Server struct {
	router    *mux.Router
	handler   http.Handler
	store     storage.Store
	authn     *auth.Authenticator
	evaluator *rbac.Evaluator
	keys      *auth.KeyGenerator
	throttle  *middleware.LoginThrottle
	metrics   *observability.Metrics
	log       logrus.FieldLogger
}

// NewServer creates a new API server
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	auditLog := deps.Audit
	if auditLog == nil {
		auditLog = audit.NoOp()
	}

	s := &Server{
		router:    mux.NewRouter(),
		store:     deps.Store,
		authn:     deps.Authenticator,
		evaluator: deps.Evaluator,
		keys:      auth.NewKeyGenerator(),
		throttle:  deps.Throttle,
		metrics:   deps.Metrics,
		log:       logger,
	}

	s.setupRoutes(deps)

	chain := httputil.Chain(
		observability.RecoveryMiddleware(logger),
		httputil.RequestIDMiddleware,
		httputil.ClientIPMiddleware(deps.TrustedProxies),
		httputil.LoggingMiddleware(logger),
		httputil.CORSMiddleware(deps.CORSAllowedOrigins),
		audit.NewMiddleware(auditLog, false, logger).Handler,
		httputil.MaxBytesMiddleware(maxBodyBytes),
	)
	s.handler = otelhttp.NewHandler(chain(s.router), "baynext-api",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return r.Method + " " + s.routeName(r)
		}),
	)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(deps Deps) {
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}
	if deps.Health != nil {
		observability.RegisterHealthRoutes(s.router, deps.Health)
	}

	swagger.NewSwaggerHandlers().RegisterRoutes(s.router)

	// Login is the only unauthenticated API route
	s.router.HandleFunc("/v1/auth/token", s.createToken).Methods(http.MethodPost)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.Use(middleware.NewAuthMiddleware(deps.Gateway, s.log).Handler)

	v1.HandleFunc("/auth/me", s.getMe).Methods(http.MethodGet)
	v1.HandleFunc("/me", s.getMe).Methods(http.MethodGet)

	v1.HandleFunc("/projects", s.listProjects).Methods(http.MethodGet)
	v1.HandleFunc("/projects", s.createProject).Methods(http.MethodPost)

	project := v1.PathPrefix("/projects/{project_id}").Subrouter()
	project.Handle("", middleware.RequireProjectMember(s.evaluator)(http.HandlerFunc(s.getProject))).Methods(http.MethodGet)
	project.Handle("",
		middleware.RequirePermission(s.evaluator, rbac.ResourceProject, rbac.ActionDelete)(http.HandlerFunc(s.deleteProject)),
	).Methods(http.MethodDelete)
	project.Handle("/members",
		middleware.RequirePermission(s.evaluator, rbac.ResourceMember, rbac.ActionRead)(http.HandlerFunc(s.listMembers)),
	).Methods(http.MethodGet)
	project.Handle("/members",
		middleware.RequirePermission(s.evaluator, rbac.ResourceMember, rbac.ActionCreate)(http.HandlerFunc(s.addMember)),
	).Methods(http.MethodPost)
	project.Handle("/members/{user_id}",
		middleware.RequirePermission(s.evaluator, rbac.ResourceMember, rbac.ActionDelete)(http.HandlerFunc(s.removeMember)),
	).Methods(http.MethodDelete)

	keys := project.PathPrefix("/keys").Subrouter()
	keys.Use(middleware.RequireProjectRole(s.evaluator, rbac.RoleAdmin))
	keys.HandleFunc("", s.createKey).Methods(http.MethodPost)
	keys.HandleFunc("", s.listKeys).Methods(http.MethodGet)
	keys.HandleFunc("/{key_id}", s.getKey).Methods(http.MethodGet)
	keys.HandleFunc("/{key_id}/deactivate", s.deactivateKey).Methods(http.MethodPost)
	keys.HandleFunc("/{key_id}", s.deleteKey).Methods(http.MethodDelete)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the route table for registering extra routes
func (s *Server) Router() *mux.Router {
	return s.router
}

// routeName names spans by route template so IDs stay out of span names.
// The span starts before routing, so the router is asked directly.
func (s *Server) routeName(r *http.Request) string {
	var match mux.RouteMatch
	if s.router.Match(r, &match) && match.Route != nil {
		if tpl, err := match.Route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
