package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-oidc-provider/auth"
	"github.com/jrsteele09/go-oidc-provider/cache"
	"github.com/jrsteele09/go-oidc-provider/clients"
	fakeclientrepo "github.com/jrsteele09/go-oidc-provider/clients/fakerepo"
	"github.com/jrsteele09/go-oidc-provider/internal/config"
	"github.com/jrsteele09/go-oidc-provider/internal/postgres"
	"github.com/jrsteele09/go-oidc-provider/keystore"
	keyrepofake "github.com/jrsteele09/go-oidc-provider/keystore/repofake"
	"github.com/jrsteele09/go-oidc-provider/server"
	"github.com/jrsteele09/go-oidc-provider/sessions"
	fakesessionrepo "github.com/jrsteele09/go-oidc-provider/sessions/repofakes"
	"github.com/jrsteele09/go-oidc-provider/token"
	"github.com/jrsteele09/go-oidc-provider/token/jwt"
	"github.com/jrsteele09/go-oidc-provider/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-oidc-provider/token/refresh/repofake"
	"github.com/jrsteele09/go-oidc-provider/users"
	userrepofake "github.com/jrsteele09/go-oidc-provider/users/repofake"
	"github.com/rs/zerolog/log"
)

// repos is one storage backend for every persisted entity.
type repos struct {
	Clients       clients.Repo
	Users         users.Repo
	Sessions      sessions.Repo
	SigningKeys   keystore.Repo
	RefreshTokens refresh.Repo

	ping  func(ctx context.Context) error
	close func()
}

// openRepos uses Postgres when DATABASE_URL is set and in-memory repositories otherwise.
func openRepos(ctx context.Context, c config.StorageConfig) (*repos, error) {
	if c.GetDatabaseURL() == "" {
		log.Warn().Msg("DATABASE_URL is not set, using in-memory storage; nothing survives a restart")
		return &repos{
			Clients:       fakeclientrepo.NewFakeClientRepo(),
			Users:         userrepofake.NewFakeUserRepo(),
			Sessions:      fakesessionrepo.NewFakeSessionRepo(),
			SigningKeys:   keyrepofake.NewFakeKeyRepo(),
			RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
			ping:          func(context.Context) error { return nil },
			close:         func() {},
		}, nil
	}

	store, err := postgres.New(ctx, c.GetDatabaseURL())
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return &repos{
		Clients:       store.Clients(),
		Users:         store.Users(),
		Sessions:      store.Sessions(),
		SigningKeys:   store.SigningKeys(),
		RefreshTokens: store.RefreshTokens(),
		ping:          store.Ping,
		close:         store.Close,
	}, nil
}

// openCache uses Redis when REDIS_URL is set and an in-process store otherwise.
func openCache(ctx context.Context, c config.StorageConfig) (cache.Store, error) {
	if c.GetRedisURL() == "" {
		log.Warn().Msg("REDIS_URL is not set, using the in-process cache; locks only hold within this instance")
		return cache.NewMemoryStore(), nil
	}
	return cache.NewRedisStore(ctx, c.GetRedisURL(), c.GetCachePrefix())
}

// app is the wired provider.
type app struct {
	config   config.Config
	repos    *repos
	store    cache.Store
	cache    *cache.Cache
	engine   *keystore.Engine
	sessions *sessions.Manager
	refresh  *refresh.Manager
	server   *server.Server
}

func newApp(ctx context.Context, c config.Config) (*app, error) {
	r, err := openRepos(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("[newApp] failed to open storage: %w", err)
	}
	store, err := openCache(ctx, c)
	if err != nil {
		r.close()
		return nil, fmt.Errorf("[newApp] failed to open cache: %w", err)
	}
	a := &app{config: c, repos: r, store: store, cache: cache.New(store)}
	if err := a.wire(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire() error {
	c := a.config
	var err error

	if a.engine, err = keystore.NewEngine(a.repos.SigningKeys, c.GetKeyEncryptionSecret()); err != nil {
		return fmt.Errorf("[newApp] failed to create key engine: %w", err)
	}
	a.sessions, err = sessions.NewManager(a.repos.Sessions, a.cache,
		sessions.WithExpiry(c.GetMaxSessionAge()),
		sessions.WithCookie(c.GetSessionCookieName(), c.IsProduction()),
	)
	if err != nil {
		return fmt.Errorf("[newApp] failed to create session manager: %w", err)
	}
	authorization, err := auth.NewAuthorizationService(a.repos.Clients, a.cache, auth.WithStateTTL(c.GetStateTimeout()))
	if err != nil {
		return fmt.Errorf("[newApp] failed to create authorization service: %w", err)
	}
	authentication, err := auth.NewAuthenticationService(a.repos.Users, a.repos.Clients, a.sessions, a.cache, auth.WithCodeTTL(c.GetAuthCodeTimeout()))
	if err != nil {
		return fmt.Errorf("[newApp] failed to create authentication service: %w", err)
	}
	if a.refresh, err = refresh.NewManager(a.repos.RefreshTokens, c.GetRefreshTokenSecret(), refresh.WithExpiry(c.GetDefaultRefreshTokenExpiry())); err != nil {
		return fmt.Errorf("[newApp] failed to create refresh token manager: %w", err)
	}

	userInfoURL := server.UserInfoURL(c.GetIssuerURL())
	verifier, err := jwt.NewVerifier(a.engine, c.GetIssuerURL())
	if err != nil {
		return fmt.Errorf("[newApp] failed to create token verifier: %w", err)
	}
	tokens, err := token.NewService(token.Deps{
		Clients:     a.repos.Clients,
		Users:       a.repos.Users,
		Codes:       authentication,
		Keys:        a.engine,
		Refresh:     a.refresh,
		Creator:     jwt.NewCreator(c.GetIssuerURL(), userInfoURL, jwt.WithExpiry(c.GetDefaultAccessTokenExpiry(), c.GetDefaultIDTokenExpiry())),
		Verifier:    verifier,
		UserInfoURL: userInfoURL,
	})
	if err != nil {
		return fmt.Errorf("[newApp] failed to create token service: %w", err)
	}

	a.server, err = server.New(server.Deps{
		Config:         c,
		Authorization:  authorization,
		Authentication: authentication,
		Sessions:       a.sessions,
		Tokens:         tokens,
		Keys:           a.engine,
		Cache:          a.cache,
		HealthChecks: map[string]server.HealthCheck{
			"storage": a.repos.ping,
			"cache":   a.store.Ping,
		},
	})
	if err != nil {
		return fmt.Errorf("[newApp] failed to create server: %w", err)
	}
	return nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close cache")
	}
	a.repos.close()
}
