package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-oidc-provider/auth"
	"github.com/jrsteele09/go-oidc-provider/cache"
	"github.com/jrsteele09/go-oidc-provider/clients"
	fakeclientrepo "github.com/jrsteele09/go-oidc-provider/clients/fakerepo"
	"github.com/jrsteele09/go-oidc-provider/sessions"
	fakesessionrepo "github.com/jrsteele09/go-oidc-provider/sessions/repofakes"
	"github.com/jrsteele09/go-oidc-provider/users"
	"github.com/jrsteele09/go-oidc-provider/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	clientID    = "0123456789abcdef0123456789abcdef"
	redirectURI = "https://app.test/cb"
	password    = "Correct-Horse-1"
)

type fixture struct {
	store    *cache.MemoryStore
	clients  *fakeclientrepo.FakeClientRepo
	users    *repofake.FakeUserRepo
	sessions *sessions.Manager
	authz    *auth.AuthorizationService
	authn    *auth.AuthenticationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store:   cache.NewMemoryStore(),
		clients: fakeclientrepo.NewFakeClientRepo(),
		users:   repofake.NewFakeUserRepo(),
	}
	c := cache.New(f.store, cache.WithRetries(2, time.Millisecond))

	require.NoError(t, f.clients.Upsert(ctx, &clients.Client{
		ID:            clientID,
		Name:          "Test App",
		RedirectURIs:  []string{redirectURI, "http://localhost:8080/cb"},
		Scopes:        []string{"openid", "profile", "email"},
		ResponseTypes: []string{"code"},
		Active:        true,
	}))

	hash, err := users.HashPasswordWithParams(users.HashParams{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}, password)
	require.NoError(t, err)
	for _, u := range []*users.User{
		{ID: "user-1", Email: "ada@app.test", Name: "Ada", PasswordHash: hash, EmailVerified: true},
		{ID: "user-2", Email: "unverified@app.test", PasswordHash: hash},
		{ID: "user-3", Email: "suspended@app.test", PasswordHash: hash, EmailVerified: true, Suspended: true},
	} {
		require.NoError(t, f.users.Upsert(ctx, u))
	}

	f.sessions, err = sessions.NewManager(fakesessionrepo.NewFakeSessionRepo(), c)
	require.NoError(t, err)
	f.authz, err = auth.NewAuthorizationService(f.clients, c)
	require.NoError(t, err)
	f.authn, err = auth.NewAuthenticationService(f.users, f.clients, f.sessions, c)
	require.NoError(t, err)
	return f
}
