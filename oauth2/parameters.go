package oauth2

import (
	"net/url"
	"strings"

	"github.com/jrsteele09/go-oidc-provider/internal/utils"
)

// AuthorizationParameters holds parameters for the OAuth2 authorization request.
// These are received as query parameters at /authorization, carried through the
// login page, and sent again to /login and /authorize.
type AuthorizationParameters struct {
	// ClientID identifies the application requesting authorization.
	// Required: Yes
	// Validated against: clients.Client.ID
	ClientID string `json:"client_id"`

	// RedirectURI is where the authorization response will be sent.
	// Required: Yes
	// Security: Must exactly match a pre-registered URI to prevent open redirects
	RedirectURI string `json:"redirect_uri"`

	// ResponseType specifies what the authorization endpoint should return.
	// Required: Yes, "code" is the only supported value
	ResponseType ResponseType `json:"response_type"`

	// Scope specifies the permissions being requested, space delimited.
	// Example: "openid profile email offline_access"
	// Validated against: SupportedScopes and clients.Client.Scopes
	Scope string `json:"scope"`

	// State is an opaque value used by the client to maintain state between request and callback.
	// Required: Recommended (CSRF protection)
	// Security: Replaced by a server generated opaque token while the user signs in
	State string `json:"state,omitempty"`

	// CodeChallenge is the PKCE challenge derived from code_verifier.
	// Example: BASE64URL(SHA256(code_verifier))
	CodeChallenge string `json:"code_challenge,omitempty"`

	// CodeChallengeMethod specifies how code_challenge was derived: "S256" or "plain".
	// Required: Yes if code_challenge is provided
	CodeChallengeMethod CodeMethodType `json:"code_challenge_method,omitempty"`

	// Nonce is echoed in the ID token so the client can bind it to its session.
	// Required: No
	Nonce string `json:"nonce,omitempty"`
}

// ParseAuthorizationParameters reads the parameters from a query string or form.
func ParseAuthorizationParameters(values url.Values) *AuthorizationParameters {
	return &AuthorizationParameters{
		ClientID:            values.Get("client_id"),
		RedirectURI:         values.Get("redirect_uri"),
		ResponseType:        ResponseType(values.Get("response_type")),
		Scope:               values.Get("scope"),
		State:               values.Get("state"),
		CodeChallenge:       values.Get("code_challenge"),
		CodeChallengeMethod: CodeMethodType(values.Get("code_challenge_method")),
		Nonce:               values.Get("nonce"),
	}
}

// Values encodes the parameters back into a query, omitting empty optional ones.
func (p *AuthorizationParameters) Values() url.Values {
	v := url.Values{}
	v.Set("client_id", p.ClientID)
	v.Set("redirect_uri", p.RedirectURI)
	v.Set("response_type", string(p.ResponseType))
	v.Set("scope", p.Scope)
	setIfNotEmpty(v, "state", p.State)
	setIfNotEmpty(v, "code_challenge", p.CodeChallenge)
	setIfNotEmpty(v, "code_challenge_method", string(p.CodeChallengeMethod))
	setIfNotEmpty(v, "nonce", p.Nonce)
	return v
}

// Scopes splits the space delimited scope parameter.
func (p *AuthorizationParameters) Scopes() []string {
	return utils.SplitSpaces(p.Scope)
}

// IsSupportedScope reports whether the provider knows the scope.
func IsSupportedScope(scope string) bool {
	return utils.Contains(SupportedScopes, scope)
}

// IsSupportedResponseType reports whether the provider can serve the response type.
func IsSupportedResponseType(rt ResponseType) bool {
	return utils.Contains(SupportedResponseTypes, rt)
}

// IsSupportedCodeMethod reports whether the PKCE method is S256 or plain.
func IsSupportedCodeMethod(m CodeMethodType) bool {
	return m == CodeMethodTypeS256 || m == CodeMethodTypePlain
}

// JoinScopes is the inverse of Scopes.
func JoinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

func setIfNotEmpty(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
