package config

import (
	"fmt"
	"net/url"

	"github.com/hashicorp/go-multierror"
)

const secretLength = 32

// Validate reports every invalid setting at once.
func Validate(s Settings) error {
	var result *multierror.Error

	if len(s.KeyEncryptionSecret) != secretLength {
		result = multierror.Append(result, fmt.Errorf("KEY_ENCRYPTION_SECRET must be %d bytes, got %d", secretLength, len(s.KeyEncryptionSecret)))
	}
	if len(s.RefreshTokenSecret) != secretLength {
		result = multierror.Append(result, fmt.Errorf("REFRESH_TOKEN_SECRET must be %d bytes, got %d", secretLength, len(s.RefreshTokenSecret)))
	}
	for name, raw := range map[string]string{
		"ISSUER_URL":       s.IssuerURL,
		"LOGIN_PAGE_URL":   s.LoginPageURL,
		"CONSENT_PAGE_URL": s.ConsentPageURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			result = multierror.Append(result, fmt.Errorf("%s must be an absolute URL, got %q", name, raw))
		}
	}
	if s.KeySize != 0 && s.KeySize < 2048 {
		result = multierror.Append(result, fmt.Errorf("KEY_SIZE must be at least 2048, got %d", s.KeySize))
	}

	return result.ErrorOrNil()
}
