package auth_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/jrsteele09/go-oidc-provider/auth"
	"github.com/jrsteele09/go-oidc-provider/cache"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/oauth2"
	"github.com/stretchr/testify/require"
)

func validParams() *oauth2.AuthorizationParameters {
	return &oauth2.AuthorizationParameters{
		ClientID:     clientID,
		RedirectURI:  redirectURI,
		ResponseType: oauth2.CodeResponseType,
		Scope:        "openid profile",
	}
}

func TestNewAuthorizationService(t *testing.T) {
	_, err := auth.NewAuthorizationService(nil, cache.New(cache.NewMemoryStore()))
	require.Error(t, err)
}

func TestAuthorizationService_ValidateRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name     string
		modify   func(p *oauth2.AuthorizationParameters)
		wantCode apperrors.Code
		status   int
	}{
		{"valid", func(p *oauth2.AuthorizationParameters) {}, "", 0},
		{"http redirect is allowed", func(p *oauth2.AuthorizationParameters) { p.RedirectURI = "http://localhost:8080/cb" }, "", 0},
		{"unknown client", func(p *oauth2.AuthorizationParameters) { p.ClientID = "nope" }, apperrors.CodeInvalidClient, http.StatusNotFound},
		{"unsupported scope", func(p *oauth2.AuthorizationParameters) { p.Scope = "openid admin" }, apperrors.CodeInvalidScope, http.StatusBadRequest},
		{"scope not registered", func(p *oauth2.AuthorizationParameters) { p.Scope = "openid phone" }, apperrors.CodeInvalidScope, http.StatusBadRequest},
		{"trailing slash", func(p *oauth2.AuthorizationParameters) { p.RedirectURI = redirectURI + "/" }, apperrors.CodeInvalidRedirectURI, http.StatusBadRequest},
		{"extra query", func(p *oauth2.AuthorizationParameters) { p.RedirectURI = redirectURI + "?x=1" }, apperrors.CodeInvalidRedirectURI, http.StatusBadRequest},
		{"subdomain", func(p *oauth2.AuthorizationParameters) { p.RedirectURI = "https://evil.app.test/cb" }, apperrors.CodeInvalidRedirectURI, http.StatusBadRequest},
		{"not a uri", func(p *oauth2.AuthorizationParameters) { p.RedirectURI = "::" }, apperrors.CodeInvalidRedirectURI, http.StatusBadRequest},
		{"implicit flow", func(p *oauth2.AuthorizationParameters) { p.ResponseType = "token" }, apperrors.CodeInvalidResponseType, http.StatusBadRequest},
		{"bad pkce method", func(p *oauth2.AuthorizationParameters) {
			p.CodeChallenge = "abc"
			p.CodeChallengeMethod = "S512"
		}, apperrors.CodeInvalidCodeChallenge, http.StatusBadRequest},
		{"pkce plain", func(p *oauth2.AuthorizationParameters) {
			p.CodeChallenge = "abc"
			p.CodeChallengeMethod = oauth2.CodeMethodTypePlain
		}, "", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := validParams()
			tc.modify(p)
			client, err := f.authz.ValidateRequest(ctx, p)
			if tc.wantCode == "" {
				require.NoError(t, err)
				require.Equal(t, clientID, client.ID)
				return
			}
			require.True(t, apperrors.IsCode(err, tc.wantCode), "got %v", err)
			require.Equal(t, tc.status, apperrors.From(err).Status)
		})
	}
}

func TestAuthorizationService_Authorize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("state is replaced with an opaque token", func(t *testing.T) {
		p := validParams()
		p.State = "client-state-123"
		p.Nonce = "n-1"

		var forwarded url.Values
		require.NoError(t, f.authz.Authorize(ctx, p, func(q url.Values) { forwarded = q }))

		opaque := forwarded.Get("state")
		require.True(t, strings.HasPrefix(opaque, "stq_"))
		require.Equal(t, clientID, forwarded.Get("client_id"))
		require.Equal(t, redirectURI, forwarded.Get("redirect_uri"))
		require.Equal(t, "openid profile", forwarded.Get("scope"))
		require.Equal(t, "n-1", forwarded.Get("nonce"))
		require.Equal(t, "client-state-123", p.State, "caller's parameters are not modified")

		original, err := f.authn.GetStateFromStore(ctx, opaque)
		require.NoError(t, err)
		require.Equal(t, "client-state-123", original)

		again, err := f.authn.GetStateFromStore(ctx, opaque)
		require.NoError(t, err)
		require.Equal(t, auth.InvalidOrExpiredState, again)
	})

	t.Run("no state", func(t *testing.T) {
		var forwarded url.Values
		require.NoError(t, f.authz.Authorize(ctx, validParams(), func(q url.Values) { forwarded = q }))
		_, ok := forwarded["state"]
		require.False(t, ok)
	})

	t.Run("invalid request does not redirect", func(t *testing.T) {
		p := validParams()
		p.Scope = "openid address"
		called := false
		err := f.authz.Authorize(ctx, p, func(url.Values) { called = true })
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidScope))
		require.False(t, called)
	})
}
