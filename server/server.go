package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/go-oidc-provider/auth"
	"github.com/jrsteele09/go-oidc-provider/cache"
	"github.com/jrsteele09/go-oidc-provider/internal/config"
	"github.com/jrsteele09/go-oidc-provider/internal/metrics"
	"github.com/jrsteele09/go-oidc-provider/keystore"
	"github.com/jrsteele09/go-oidc-provider/sessions"
	"github.com/jrsteele09/go-oidc-provider/token"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Deps holds everything the HTTP surface calls into.
type Deps struct {
	Config         config.Config
	Authorization  *auth.AuthorizationService
	Authentication *auth.AuthenticationService
	Sessions       *sessions.Manager
	Tokens         *token.Service
	Keys           *keystore.Engine
	Cache          *cache.Cache
	HealthChecks   map[string]HealthCheck
}

type Server struct {
	env            string // Environment (e.g., "DEV", "PROD")
	router         chi.Router
	routes         []string
	config         config.Config
	authorization  *auth.AuthorizationService
	authentication *auth.AuthenticationService
	sessions       *sessions.Manager
	tokens         *token.Service
	keys           *keystore.Engine
	cache          *cache.Cache
	healthChecks   map[string]HealthCheck
}

func New(deps Deps) (*Server, error) {
	switch {
	case deps.Config == nil:
		return nil, errors.New("[Server New] config is required")
	case deps.Authorization == nil:
		return nil, errors.New("[Server New] authorization service is required")
	case deps.Authentication == nil:
		return nil, errors.New("[Server New] authentication service is required")
	case deps.Sessions == nil:
		return nil, errors.New("[Server New] session manager is required")
	case deps.Tokens == nil:
		return nil, errors.New("[Server New] token service is required")
	case deps.Keys == nil:
		return nil, errors.New("[Server New] key engine is required")
	case deps.Cache == nil:
		return nil, errors.New("[Server New] cache is required")
	}

	s := &Server{
		env:            deps.Config.GetEnv(),
		router:         chi.NewRouter(),
		config:         deps.Config,
		authorization:  deps.Authorization,
		authentication: deps.Authentication,
		sessions:       deps.Sessions,
		tokens:         deps.Tokens,
		keys:           deps.Keys,
		cache:          deps.Cache,
		healthChecks:   deps.HealthChecks,
	}

	metrics.Register()
	s.router.Use(
		middleware.RealIP,
		hlog.NewHandler(log.Logger),
		hlog.RequestIDHandler("req_id", "X-Request-Id"),
		s.LoggingMiddleware,
		s.RecoverMiddleware,
	)
	s.initRoutes()
	s.logRoutes()

	if deps.Config.GetRotateKeysToken() == "" {
		log.Warn().Str("route", RouteRotateKeys).Msg("ROTATE_KEYS_TOKEN is not set, key rotation is open to any caller")
	}
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RegisterRouteHandler takes a pattern of the form "METHOD /path".
func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	method, path, found := strings.Cut(pattern, " ")
	if !found {
		s.router.Handle(pattern, handler)
		return
	}
	s.router.Method(method, path, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.RegisterRouteHandler(pattern, http.HandlerFunc(handler))
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		log.Debug().Msgf("[%-19s] %s", colourMethod(method), path)
	}
}
