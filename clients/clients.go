package clients

import (
	"errors"
	"time"

	"github.com/jrsteele09/go-oidc-provider/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// AuthMethod is how a client authenticates at the token endpoint.
type AuthMethod string

const (
	AuthMethodClientSecretBasic AuthMethod = "client_secret_basic" // Authorization: Basic header
	AuthMethodClientSecretPost  AuthMethod = "client_secret_post"  // client_id/client_secret form fields
)

const (
	idLength     = 16 // bytes, hex encoded to 32 chars
	secretLength = 32
)

var (
	ErrInvalidScope = errors.New("scope not allowed for client")
	ErrEmptySecret  = errors.New("client secret is empty")
)

type Client struct {
	ID                      string     `json:"id"`
	Name                    string     `json:"name"`
	SecretHash              string     `json:"-"` // bcrypt hash, the plain secret is never stored
	RedirectURIs            []string   `json:"redirect_uris"`
	Scopes                  []string   `json:"scopes"`
	ResponseTypes           []string   `json:"response_types"`
	TokenEndpointAuthMethod AuthMethod `json:"token_endpoint_auth_method"`
	Active                  bool       `json:"active"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// NewClientID returns a fixed length opaque identifier.
func NewClientID() (string, error) {
	return utils.RandomHex(idLength)
}

// GenerateSecret returns a new plain secret. Only its hash should be persisted.
func GenerateSecret() (string, error) {
	return utils.RandomToken(secretLength)
}

func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}

// SetSecret hashes secret into the client.
func (c *Client) SetSecret(secret string) error {
	hash, err := HashSecret(secret)
	if err != nil {
		return err
	}
	c.SecretHash = hash
	return nil
}

// VerifySecret compares a presented secret with the stored hash.
func (c *Client) VerifySecret(secret string) bool {
	if secret == "" || c.SecretHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.SecretHash), []byte(secret)) == nil
}

// AuthMethod defaults to client_secret_basic.
func (c *Client) AuthMethod() AuthMethod {
	if c.TokenEndpointAuthMethod == "" {
		return AuthMethodClientSecretBasic
	}
	return c.TokenEndpointAuthMethod
}

// HasScope checks if the client has permission for a specific scope
func (c *Client) HasScope(scope string) bool {
	return utils.Contains(c.Scopes, scope)
}

// HasRedirectURI is an exact string match against the registered set.
func (c *Client) HasRedirectURI(uri string) bool {
	return utils.Contains(c.RedirectURIs, uri)
}

func (c *Client) AllowsResponseType(responseType string) bool {
	return utils.Contains(c.ResponseTypes, responseType)
}

// ValidateScopes checks if all requested scopes are allowed for this client
func (c *Client) ValidateScopes(requested []string) error {
	for _, scope := range requested {
		if !c.HasScope(scope) {
			return ErrInvalidScope
		}
	}
	return nil
}
