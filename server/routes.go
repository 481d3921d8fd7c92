package server

import (
	"net/http"

	"github.com/jrsteele09/go-oidc-provider/internal/metrics"
)

func (s *Server) initRoutes() {
	// Authorization code flow, reached by the user agent
	s.RegisterRouteFunc("GET "+RouteAuthorization, ChainMiddleware(s.AuthorizationHandler(), s.BrowserMiddleware(RouteAuthorization)...))
	s.RegisterRouteFunc("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.BrowserMiddleware(RouteLogin)...))
	s.RegisterRouteFunc("GET "+RouteAuthenticationDetails, ChainMiddleware(s.AuthenticationDetailsHandler(), s.BrowserMiddleware(RouteAuthenticationDetails)...))
	s.RegisterRouteFunc("POST "+RouteAuthorize, ChainMiddleware(s.AuthorizeHandler(), s.BrowserMiddleware(RouteAuthorize)...))
	s.RegisterRouteFunc("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.BrowserMiddleware(RouteLogout)...))

	// Back channel, called by clients
	s.RegisterRouteFunc("POST "+RouteToken, ChainMiddleware(s.TokenHandler(), s.APIMiddleware(RouteToken, s.NoStoreMiddleware)...))
	s.RegisterRouteFunc("POST "+RouteRevoke, ChainMiddleware(s.RevokeHandler(), s.APIMiddleware(RouteRevoke)...))
	s.RegisterRouteFunc("GET "+RouteUserInfo, ChainMiddleware(s.UserInfoHandler(), s.APIMiddleware(RouteUserInfo, s.NoStoreMiddleware)...))
	s.RegisterRouteFunc("POST "+RouteUserInfo, ChainMiddleware(s.UserInfoHandler(), s.APIMiddleware(RouteUserInfo, s.NoStoreMiddleware)...))

	// Discovery
	s.RegisterRouteFunc("GET "+RouteWellKnownOpenIDConfig, ChainMiddleware(s.WellKnownOpenIDConfigHandler(), s.APIMiddleware(RouteWellKnownOpenIDConfig)...))
	s.RegisterRouteFunc("GET "+RouteJWKS, ChainMiddleware(s.JWKSHandler(), s.APIMiddleware(RouteJWKS)...))
	s.RegisterRouteFunc("POST "+RouteRotateKeys, ChainMiddleware(s.RotateKeysHandler(), s.APIMiddleware(RouteRotateKeys)...))

	// CORS preflight for everything a browser may call cross origin
	for _, route := range []string{RouteLogin, RouteAuthenticationDetails, RouteAuthorize, RouteLogout, RouteToken, RouteRevoke, RouteUserInfo, RouteWellKnownOpenIDConfig, RouteJWKS} {
		s.RegisterRouteFunc("OPTIONS "+route, s.CorsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
	}

	s.RegisterRouteHandler("GET "+RouteMetrics, metrics.Handler())
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}
