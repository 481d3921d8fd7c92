package oauth2

import "net/url"

// TokenRequest is the form posted to the token endpoint, plus the Authorization header.
type TokenRequest struct {
	GrantType    GrantType
	Code         string
	RedirectURI  string
	CodeVerifier string
	RefreshToken string

	// ClientID and ClientSecret come from the form (client_secret_post).
	ClientID     string
	ClientSecret string

	// AuthorizationHeader is the raw header value, used for client_secret_basic.
	AuthorizationHeader string
}

// ParseTokenRequest reads a token request from a parsed form.
func ParseTokenRequest(form url.Values, authorizationHeader string) *TokenRequest {
	return &TokenRequest{
		GrantType:           GrantType(form.Get("grant_type")),
		Code:                form.Get("code"),
		RedirectURI:         form.Get("redirect_uri"),
		CodeVerifier:        form.Get("code_verifier"),
		RefreshToken:        form.Get("refresh_token"),
		ClientID:            form.Get("client_id"),
		ClientSecret:        form.Get("client_secret"),
		AuthorizationHeader: authorizationHeader,
	}
}
