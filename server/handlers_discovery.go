package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jrsteele09/go-oidc-provider/cache"
	"github.com/jrsteele09/go-oidc-provider/clients"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/keystore"
	"github.com/jrsteele09/go-oidc-provider/oauth2"
	"github.com/jrsteele09/go-oidc-provider/token"
	"github.com/rs/zerolog/hlog"
)

const (
	jwksCacheKey       = "jwks"
	jwksCacheTTL       = 5 * time.Minute
	healthCheckTimeout = 2 * time.Second
)

// DiscoveryDocument is served at /.well-known/openid-configuration.
type DiscoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserInfoEndpoint                  string   `json:"userinfo_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	EndSessionEndpoint                string   `json:"end_session_endpoint"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	ResponseModesSupported            []string `json:"response_modes_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
	ClaimsParameterSupported          bool     `json:"claims_parameter_supported"`
	RequestParameterSupported         bool     `json:"request_parameter_supported"`
	RequestURIParameterSupported      bool     `json:"request_uri_parameter_supported"`
}

// Discovery builds the discovery document for issuer.
func Discovery(issuer string) DiscoveryDocument {
	responseTypes := make([]string, 0, len(oauth2.SupportedResponseTypes))
	for _, rt := range oauth2.SupportedResponseTypes {
		responseTypes = append(responseTypes, string(rt))
	}
	return DiscoveryDocument{
		Issuer:                           strings.TrimRight(issuer, "/"),
		AuthorizationEndpoint:            Endpoint(issuer, RouteAuthorization),
		TokenEndpoint:                    Endpoint(issuer, RouteToken),
		UserInfoEndpoint:                 UserInfoURL(issuer),
		JWKSURI:                          Endpoint(issuer, RouteJWKS),
		RevocationEndpoint:               Endpoint(issuer, RouteRevoke),
		EndSessionEndpoint:               Endpoint(issuer, RouteLogout),
		ResponseTypesSupported:           responseTypes,
		ResponseModesSupported:           []string{"query"},
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: []string{"RS256"},
		ScopesSupported:                  oauth2.SupportedScopes,
		TokenEndpointAuthMethodsSupported: []string{
			string(clients.AuthMethodClientSecretBasic),
			string(clients.AuthMethodClientSecretPost),
		},
		GrantTypesSupported: []string{
			string(oauth2.AuthorizationCodeGrant),
			string(oauth2.RefreshTokenGrant),
		},
		CodeChallengeMethodsSupported: []string{
			string(oauth2.CodeMethodTypeS256),
			string(oauth2.CodeMethodTypePlain),
		},
		ClaimsSupported: token.SupportedClaims(),
	}
}

func (s *Server) WellKnownOpenIDConfigHandler() http.HandlerFunc {
	doc := Discovery(s.config.GetIssuerURL())
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		writeJSON(w, r, http.StatusOK, doc)
	}
}

// JWKSHandler publishes every signing key, current and previous. The set is cached
// until the next rotation.
func (s *Server) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, err := s.publishedKeys(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=300")
		writeJSON(w, r, http.StatusOK, keystore.JWKS{Keys: keys})
	}
}

func (s *Server) publishedKeys(ctx context.Context) ([]keystore.JWK, error) {
	keys, ok, err := cache.CachedSet(ctx, s.cache, jwksCacheKey, jwksCacheTTL, func(ctx context.Context) ([]keystore.JWK, error) {
		jwks, err := s.keys.JWKS(ctx)
		if err != nil {
			return nil, err
		}
		return jwks.Keys, nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		jwks, err := s.keys.JWKS(ctx)
		if err != nil {
			return nil, err
		}
		keys = jwks.Keys
	}
	slices.SortFunc(keys, func(a, b keystore.JWK) int {
		return strings.Compare(a.Kid, b.Kid)
	})
	return keys, nil
}

// RotateKeysHandler creates a new current signing key. When ROTATE_KEYS_TOKEN is set
// the caller must present it as a bearer token.
func (s *Server) RotateKeysHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if expected := s.config.GetRotateKeysToken(); expected != "" {
			presented, _ := bearerToken(r)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
				s.writeError(w, r, apperrors.Unauthorized(apperrors.CodeUnauthorizedAction, "key rotation requires the operator token"))
				return
			}
		}
		ctx := r.Context()
		jwk, err := s.keys.CreateKey(ctx, s.config.GetKeySize())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.cache.Invalidate(ctx, jwksCacheKey); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("jwks cache not invalidated, stale until ttl")
		}
		writeJSON(w, r, http.StatusCreated, jwk)
	}
}

// HealthResponse reports each dependency as "ok" or its error.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := HealthResponse{Status: "ok", Checks: map[string]string{}}
		var result *multierror.Error
		for name, check := range s.healthChecks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				result = multierror.Append(result, err)
				continue
			}
			resp.Checks[name] = "ok"
		}
		if err := result.ErrorOrNil(); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("health check failed")
			resp.Status = "unavailable"
			writeJSON(w, r, http.StatusServiceUnavailable, resp)
			return
		}
		writeJSON(w, r, http.StatusOK, resp)
	}
}
