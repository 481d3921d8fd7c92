package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-oidc-provider/keystore"
	"github.com/jrsteele09/go-oidc-provider/oauth2"
)

// Creator handles JWT token creation (ID tokens and access tokens)
type Creator struct {
	issuer         string
	accessAudience string
	accessExpiry   time.Duration
	idExpiry       time.Duration
	nowTime        func() time.Time
}

type CreatorOption func(*Creator)

func WithExpiry(accessToken, idToken time.Duration) CreatorOption {
	return func(c *Creator) {
		c.accessExpiry = accessToken
		c.idExpiry = idToken
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CreatorOption {
	return func(c *Creator) {
		c.nowTime = nowFunc
	}
}

// NewCreator signs tokens for issuer. Access tokens are addressed to accessAudience,
// the userinfo endpoint.
func NewCreator(issuer, accessAudience string, options ...CreatorOption) *Creator {
	c := &Creator{
		issuer:         issuer,
		accessAudience: accessAudience,
		accessExpiry:   time.Hour,
		idExpiry:       time.Hour,
		nowTime:        time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// AccessTokenExpiry is reported to clients as expires_in.
func (c *Creator) AccessTokenExpiry() time.Duration {
	return c.accessExpiry
}

// IDTokenRequest is what goes into an ID token besides the registered claims.
type IDTokenRequest struct {
	Subject  string
	ClientID string
	Nonce    string
	AuthTime time.Time
	Claims   map[string]any
}

// CreateIDToken creates an OpenID Connect ID token addressed to the client.
func (c *Creator) CreateIDToken(signer keystore.Signer, req IDTokenRequest) (string, error) {
	now := c.nowTime()
	claims := jwtlib.MapClaims{}
	for k, v := range req.Claims {
		claims[k] = v
	}
	claims["iss"] = c.issuer
	claims["sub"] = req.Subject
	claims["aud"] = req.ClientID
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(c.idExpiry).Unix()
	claims["jti"] = uuid.NewString()
	if !req.AuthTime.IsZero() {
		claims["auth_time"] = req.AuthTime.Unix()
	}
	if req.Nonce != "" {
		claims["nonce"] = req.Nonce
	}
	return sign(signer, claims)
}

// CreateAccessToken creates the bearer token accepted by the userinfo endpoint.
func (c *Creator) CreateAccessToken(signer keystore.Signer, subject, clientID string, scope []string) (string, error) {
	now := c.nowTime()
	claims := jwtlib.MapClaims{
		"iss":       c.issuer,                       // The issuer of the token
		"sub":       subject,                        // The user the token was issued for
		"aud":       c.accessAudience,               // Only the userinfo endpoint accepts it
		"client_id": clientID,                       // The OAuth2 client that requested the token
		"scope":     oauth2.JoinScopes(scope),       // OAuth2 scopes granted to this token
		"iat":       now.Unix(),                     // Issued At
		"exp":       now.Add(c.accessExpiry).Unix(), // Expiry
		"jti":       uuid.NewString(),               // Unique token ID
	}
	return sign(signer, claims)
}

func sign(signer keystore.Signer, claims jwtlib.MapClaims) (string, error) {
	signed, err := signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signed, nil
}
