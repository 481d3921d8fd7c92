package auth_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-oidc-provider/auth"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/oauth2"
	"github.com/jrsteele09/go-oidc-provider/sessions"
	"github.com/stretchr/testify/require"
)

func TestAuthenticationService_GetUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.authn.GetUser(ctx, auth.Credentials{Email: " ADA@app.test ", Password: password})
	require.NoError(t, err)
	require.Equal(t, "user-1", user.ID)

	tests := []struct {
		name     string
		creds    auth.Credentials
		wantCode apperrors.Code
		status   int
	}{
		{"wrong password", auth.Credentials{Email: "ada@app.test", Password: "nope"}, apperrors.CodeInvalidCredentials, http.StatusUnauthorized},
		{"unknown user", auth.Credentials{Email: "ghost@app.test", Password: password}, apperrors.CodeInvalidCredentials, http.StatusUnauthorized},
		{"unverified", auth.Credentials{Email: "unverified@app.test", Password: password}, apperrors.CodeUnverifiedEmail, http.StatusBadRequest},
		{"suspended", auth.Credentials{Email: "suspended@app.test", Password: password}, apperrors.CodeSuspendedUser, http.StatusBadRequest},
	}
	var messages []string
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.authn.GetUser(ctx, tc.creds)
			coded := apperrors.From(err)
			require.Equal(t, tc.wantCode, coded.Code)
			require.Equal(t, tc.status, coded.Status)
			if tc.wantCode == apperrors.CodeInvalidCredentials {
				messages = append(messages, coded.Message)
			}
		})
	}
	require.Len(t, messages, 2)
	require.Equal(t, messages[0], messages[1], "unknown user and wrong password look the same")
}

func TestAuthenticationService_AuthenticateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user, err := f.authn.GetUser(ctx, auth.Credentials{Email: "ada@app.test", Password: password})
	require.NoError(t, err)

	cookie, err := f.authn.AuthenticateUser(ctx, user, sessions.Attributes{ClientID: clientID, UserAgent: "ua"})
	require.NoError(t, err)
	require.Equal(t, f.sessions.CookieName(), cookie.Name)
	require.True(t, cookie.Attributes.HTTPOnly)

	s, err := f.authn.ValidSession(ctx, cookie.Value)
	require.NoError(t, err)
	require.Equal(t, "user-1", s.UserID)
	require.Equal(t, clientID, s.ClientID)

	details, err := f.authn.GetAuthenticationDetails(ctx, s)
	require.NoError(t, err)
	require.Equal(t, "Test App", details.Client)
	require.Equal(t, "ada@app.test", details.Email)

	_, err = f.authn.ValidSession(ctx, "missing")
	require.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorizedAction))
}

func TestAuthenticationService_GetAuthenticationDetailsMissingJoin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.authn.GetAuthenticationDetails(ctx, &sessions.Session{ID: "s", UserID: "gone", ClientID: clientID})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidSession))
	require.Equal(t, http.StatusUnauthorized, apperrors.From(err).Status)

	_, err = f.authn.GetAuthenticationDetails(ctx, &sessions.Session{ID: "s", UserID: "user-1", ClientID: "gone"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidSession))

	_, err = f.authn.GetAuthenticationDetails(ctx, nil)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidSession))
}

func TestAuthenticationService_AuthorizationCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	payload := &auth.CodePayload{
		SessionID:           "session-1",
		UserID:              "user-1",
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		Scope:               []string{"openid"},
		CodeChallenge:       "challenge",
		CodeChallengeMethod: oauth2.CodeMethodTypeS256,
		AuthTime:            time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	code, err := f.authn.GenerateAuthorizationCode(ctx, payload)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(code, "auc_"))
	require.True(t, auth.IsAuthorizationCode(code))

	got, err := f.authn.ConsumeAuthorizationCode(ctx, code)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	_, err = f.authn.ConsumeAuthorizationCode(ctx, code)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidCode), "codes are single use")

	_, err = f.authn.ConsumeAuthorizationCode(ctx, "stq_notacode")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidCode))

	t.Run("malformed payload", func(t *testing.T) {
		for _, p := range []*auth.CodePayload{
			nil,
			{ClientID: clientID, RedirectURI: redirectURI},
			{UserID: "user-1", ClientID: clientID, RedirectURI: redirectURI, CodeChallenge: "x", CodeChallengeMethod: "S512"},
		} {
			_, err := f.authn.GenerateAuthorizationCode(ctx, p)
			require.True(t, apperrors.IsCode(err, apperrors.CodePayloadMalformed))
		}
	})
}

func TestAuthenticationService_CompleteAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s, err := f.sessions.Create(ctx, "user-1", sessions.Attributes{ClientID: clientID})
	require.NoError(t, err)

	p := validParams()
	p.State = "original"
	p.Nonce = "n-1"
	p.CodeChallenge = "verifier-hash"
	p.CodeChallengeMethod = oauth2.CodeMethodTypeS256

	var opaque string
	require.NoError(t, f.authz.Authorize(ctx, p, func(q url.Values) { opaque = q.Get("state") }))
	p.State = opaque

	resp, err := f.authn.CompleteAuthorization(ctx, s, p)
	require.NoError(t, err)
	require.Equal(t, "original", resp.State)
	require.Equal(t, redirectURI, resp.RedirectURI)

	payload, err := f.authn.ConsumeAuthorizationCode(ctx, resp.Code)
	require.NoError(t, err)
	require.Equal(t, s.ID, payload.SessionID)
	require.Equal(t, "user-1", payload.UserID)
	require.Equal(t, []string{"openid", "profile"}, payload.Scope)
	require.Equal(t, "n-1", payload.Nonce)
	require.Equal(t, "verifier-hash", payload.CodeChallenge)
	require.True(t, s.SignedInAt.Equal(payload.AuthTime))

	t.Run("replayed state echoes nothing", func(t *testing.T) {
		resp, err := f.authn.CompleteAuthorization(ctx, s, p)
		require.NoError(t, err)
		require.Empty(t, resp.State)
	})

	t.Run("session from another client", func(t *testing.T) {
		other := *s
		other.ClientID = "another"
		_, err := f.authn.CompleteAuthorization(ctx, &other, p)
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidSession))
	})
}
