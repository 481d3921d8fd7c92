package config

import (
	"strings"
	"time"
)

type OAuthConfig interface {
	GetIssuerURL() string
	GetLoginPageURL() string
	GetConsentPageURL() string
	GetAuthCodeTimeout() time.Duration
	GetStateTimeout() time.Duration
	GetDefaultAccessTokenExpiry() time.Duration
	GetDefaultIDTokenExpiry() time.Duration
	GetDefaultRefreshTokenExpiry() time.Duration
}

type OAuth struct {
	s Settings
}

var _ OAuthConfig = OAuth{}

// GetIssuerURL is the issuer without a trailing slash, the exact value published in
// discovery and written to every token's iss claim.
func (o OAuth) GetIssuerURL() string {
	return strings.TrimRight(o.s.IssuerURL, "/")
}

func (o OAuth) GetLoginPageURL() string {
	return o.s.LoginPageURL
}

func (o OAuth) GetConsentPageURL() string {
	return o.s.ConsentPageURL
}

func (OAuth) GetAuthCodeTimeout() time.Duration {
	return 5 * time.Minute
}

func (OAuth) GetStateTimeout() time.Duration {
	return 15 * time.Minute
}

func (OAuth) GetDefaultAccessTokenExpiry() time.Duration {
	return 1 * time.Hour
}

func (OAuth) GetDefaultIDTokenExpiry() time.Duration {
	return 1 * time.Hour
}

func (OAuth) GetDefaultRefreshTokenExpiry() time.Duration {
	return 24 * time.Hour
}
