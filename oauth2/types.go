package oauth2

// ResponseType represents the OAuth 2.0 response type.
// Determines what is returned from the authorization endpoint.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow.
	// Used in: Authorization Code Flow (most secure, requires server-side client)
	// Returns an authorization code that must be exchanged for tokens at the token endpoint.
	// Example: /authorization?response_type=code&client_id=...
	CodeResponseType ResponseType = "code"
)

// SupportedResponseTypes are the response types this provider can serve at all.
// A client must additionally be registered for the one it asks for.
var SupportedResponseTypes = []ResponseType{CodeResponseType}

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge method.
// Used to prevent authorization code interception attacks.
type CodeMethodType string

const (
	// CodeMethodTypeS256 indicates SHA-256 hashing is used for the code challenge.
	// Client sends: code_challenge = BASE64URL(SHA256(code_verifier)), no padding
	// Server validates: BASE64URL(SHA256(provided code_verifier)) == stored code_challenge
	CodeMethodTypeS256 CodeMethodType = "S256"

	// CodeMethodTypePlain means no hashing, code_verifier sent directly.
	// Client sends: code_challenge = code_verifier
	// Server validates: provided code_verifier == stored code_challenge
	// Security: Weaker than S256, only protects against passive attacks
	CodeMethodTypePlain CodeMethodType = "plain"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
// Determines what credentials are required to obtain tokens.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Token request includes: code, redirect_uri, code_verifier (if PKCE) and client credentials
	// Returns: access_token, id_token, refresh_token (if offline_access was granted)
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for new tokens.
	// Token request includes: refresh_token and client credentials
	// Returns: new access_token and a rotated refresh_token
	RefreshTokenGrant GrantType = "refresh_token"
)

// Scopes understood by the provider.
const (
	ScopeOpenID        = "openid"         // Returns ID token
	ScopeProfile       = "profile"        // name, family_name, given_name, picture, ...
	ScopeEmail         = "email"          // email, email_verified
	ScopePhone         = "phone"          // phone_number, phone_number_verified
	ScopeAddress       = "address"        // address object
	ScopeOfflineAccess = "offline_access" // Returns refresh token
)

// SupportedScopes is the server side scope set. Requests are checked against it and
// against the client's registered scopes.
var SupportedScopes = []string{
	ScopeOpenID,
	ScopeProfile,
	ScopeEmail,
	ScopePhone,
	ScopeAddress,
	ScopeOfflineAccess,
}

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "Bearer"
