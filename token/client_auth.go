package token

import (
	"context"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-oidc-provider/clients"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/oauth2"
)

func invalidClient() error {
	return apperrors.Unauthorized(apperrors.CodeInvalidClient, "client authentication failed")
}

// basicCredentials decodes "Basic base64(id:secret)". Both halves are form encoded
// before base64 per RFC 6749 section 2.3.1, so they are unescaped here.
func basicCredentials(header string) (id, secret string, ok bool) {
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return "", "", false
	}
	rawID, rawSecret, found := strings.Cut(string(decoded), ":")
	if !found {
		return "", "", false
	}
	if id, err = url.QueryUnescape(rawID); err != nil {
		return "", "", false
	}
	if secret, err = url.QueryUnescape(rawSecret); err != nil {
		return "", "", false
	}
	return id, secret, id != ""
}

// authenticateClient verifies the credentials that method calls for and returns the
// client they belong to. That client is not necessarily owner; callers compare.
func (s *Service) authenticateClient(ctx context.Context, req *oauth2.TokenRequest, owner *clients.Client) (*clients.Client, error) {
	var id, secret string
	switch owner.AuthMethod() {
	case clients.AuthMethodClientSecretBasic:
		var ok bool
		if id, secret, ok = basicCredentials(req.AuthorizationHeader); !ok {
			return nil, invalidClient()
		}
	case clients.AuthMethodClientSecretPost:
		id, secret = req.ClientID, req.ClientSecret
	default:
		return nil, invalidClient()
	}

	presented := owner
	if id != owner.ID {
		var err error
		if presented, err = s.getClient(ctx, id); err != nil {
			return nil, err
		}
	}
	if !presented.Active || !presented.VerifySecret(secret) {
		return nil, invalidClient()
	}
	return presented, nil
}

func (s *Service) getClient(ctx context.Context, id string) (*clients.Client, error) {
	if id == "" {
		return nil, invalidClient()
	}
	client, err := s.clients.Get(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, invalidClient()
	}
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to read client")
	}
	return client, nil
}
