package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/jrsteele09/go-oidc-provider/oauth2"
)

// S256Challenge is BASE64URL(SHA256(verifier)) without padding.
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// verifyPKCE checks the verifier against the challenge stored with the code. A code
// issued with a challenge needs a verifier; one issued without must not get one.
func verifyPKCE(challenge string, method oauth2.CodeMethodType, verifier string) bool {
	if challenge == "" {
		return verifier == ""
	}
	if verifier == "" {
		return false
	}
	var computed string
	switch method {
	case oauth2.CodeMethodTypeS256:
		computed = S256Challenge(verifier)
	case oauth2.CodeMethodTypePlain:
		computed = verifier
	default:
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}
