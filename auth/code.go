package auth

import (
	"strings"
	"time"

	"github.com/jrsteele09/go-oidc-provider/oauth2"
)

const codePrefix = "auc_"

// CodePayload is stored against an authorization code. It carries everything the
// token endpoint needs, so redeeming a code never goes back to the session.
type CodePayload struct {
	SessionID           string                `json:"session_id"`
	UserID              string                `json:"user_id"`
	ClientID            string                `json:"client_id"`
	RedirectURI         string                `json:"redirect_uri"`
	Scope               []string              `json:"scope"`
	CodeChallenge       string                `json:"code_challenge,omitempty"`
	CodeChallengeMethod oauth2.CodeMethodType `json:"code_challenge_method,omitempty"`
	Nonce               string                `json:"nonce,omitempty"`
	AuthTime            time.Time             `json:"auth_time"`
}

func (p *CodePayload) valid() bool {
	if p == nil || p.UserID == "" || p.ClientID == "" || p.RedirectURI == "" {
		return false
	}
	if p.CodeChallenge != "" && !oauth2.IsSupportedCodeMethod(p.CodeChallengeMethod) {
		return false
	}
	return true
}

// IsAuthorizationCode reports whether code has the shape of one this provider issues.
func IsAuthorizationCode(code string) bool {
	return strings.HasPrefix(code, codePrefix) && len(code) > len(codePrefix)
}
