package oauth2

// TokenResponse represents the response from an OAuth2 token request.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749.
type TokenResponse struct {
	// AccessToken is the JWT used to call the userinfo endpoint.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken string `json:"access_token"`

	// IDToken is the OpenID Connect ID token containing user identity information.
	// Only present: In the authorization_code grant
	IDToken string `json:"id_token,omitempty"`

	// RefreshToken is "<record id>:<secret>", used with grant_type=refresh_token.
	// Only present: When offline_access was granted. Rotates on each use.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in"`

	// Scope indicates the access token's granted permissions, space separated.
	Scope string `json:"scope,omitempty"`
}
