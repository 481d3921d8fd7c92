package config

import "time"

type SecurityConfig interface {
	GetSessionCookieName() string
	GetMaxSessionAge() time.Duration
	GetRotateKeysToken() string
}

type Security struct {
	s Settings
}

var _ SecurityConfig = Security{}

func (s Security) GetSessionCookieName() string {
	if s.s.SessionCookieName == "" {
		return "oidc_session"
	}
	return s.s.SessionCookieName
}

func (s Security) GetMaxSessionAge() time.Duration {
	if s.s.SessionExpiry <= 0 {
		return 48 * time.Hour
	}
	return s.s.SessionExpiry
}

// GetRotateKeysToken is empty when key rotation is left unprotected.
func (s Security) GetRotateKeysToken() string {
	return s.s.RotateKeysToken
}
