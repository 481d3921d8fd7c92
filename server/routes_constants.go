package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Authorization code flow
	RouteAuthorization         = "/authorization"
	RouteLogin                 = "/login"
	RouteAuthenticationDetails = "/get-authentication-details"
	RouteAuthorize             = "/authorize"
	RouteLogout                = "/logout"

	// Token endpoints
	RouteToken    = "/token"
	RouteRevoke   = "/revoke"
	RouteUserInfo = "/userinfo"

	// Discovery and keys
	RouteWellKnownOpenIDConfig = "/.well-known/openid-configuration"
	RouteJWKS                  = "/jwks.json"
	RouteRotateKeys            = "/rotate-keys"

	// Operations
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)

// Endpoint joins the issuer and a route path.
func Endpoint(issuer, route string) string {
	for len(issuer) > 0 && issuer[len(issuer)-1] == '/' {
		issuer = issuer[:len(issuer)-1]
	}
	return issuer + route
}

// UserInfoURL is the audience of every access token the provider issues.
func UserInfoURL(issuer string) string {
	return Endpoint(issuer, RouteUserInfo)
}
