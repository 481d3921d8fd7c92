package jwt

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
)

// KeyResolver returns the public key published under kid.
type KeyResolver interface {
	VerificationKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Verifier checks tokens signed by this provider.
type Verifier struct {
	keys    KeyResolver
	issuer  string
	nowTime func() time.Time
}

type VerifierOption func(*Verifier)

// WithVerifierNowTime sets the now time function (primarily for testing)
func WithVerifierNowTime(nowFunc func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.nowTime = nowFunc
	}
}

func NewVerifier(keys KeyResolver, issuer string, options ...VerifierOption) (*Verifier, error) {
	if keys == nil {
		return nil, errors.New("[NewVerifier] key resolver is required")
	}
	v := &Verifier{
		keys:    keys,
		issuer:  issuer,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(v)
	}
	return v, nil
}

// Verify checks signature, issuer, audience and expiry, returning the claims.
// Every failure is a 401 coded error.
func (v *Verifier) Verify(ctx context.Context, raw, audience string) (jwtlib.MapClaims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.Unauthorized(apperrors.CodeTokenMalformed, "token is empty")
	}

	parser := jwtlib.NewParser(
		jwtlib.WithIssuer(v.issuer),
		jwtlib.WithAudience(audience),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(v.nowTime),
	)
	claims := jwtlib.MapClaims{}
	_, err := parser.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		if t.Method.Alg() != jwtlib.SigningMethodRS256.Alg() {
			return nil, apperrors.Unauthorized(apperrors.CodeAlgorithmNotAllowed, "signing algorithm not allowed")
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, apperrors.Unauthorized(apperrors.CodeTokenSignatureInvalid, "token has no key id")
		}
		return v.keys.VerificationKey(ctx, kid)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return claims, nil
}

func mapError(err error) error {
	var coded *apperrors.Error
	if errors.As(err, &coded) {
		return coded
	}
	switch {
	case errors.Is(err, jwtlib.ErrTokenMalformed):
		return apperrors.Wrap(err, apperrors.CodeTokenMalformed, http.StatusUnauthorized, "malformed token")
	case errors.Is(err, jwtlib.ErrTokenExpired):
		return apperrors.Wrap(err, apperrors.CodeTokenExpired, http.StatusUnauthorized, "token expired")
	case errors.Is(err, jwtlib.ErrTokenInvalidAudience):
		return apperrors.Wrap(err, apperrors.CodeInvalidAudience, http.StatusUnauthorized, "token not issued for this audience")
	case errors.Is(err, jwtlib.ErrTokenInvalidIssuer):
		return apperrors.Wrap(err, apperrors.CodeInvalidIssuer, http.StatusUnauthorized, "token not issued by this provider")
	default:
		return apperrors.Wrap(err, apperrors.CodeTokenSignatureInvalid, http.StatusUnauthorized, "invalid token signature")
	}
}
