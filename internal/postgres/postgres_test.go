package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-oidc-provider/clients"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/internal/postgres"
	"github.com/jrsteele09/go-oidc-provider/keystore"
	"github.com/jrsteele09/go-oidc-provider/sessions"
	"github.com/jrsteele09/go-oidc-provider/token/refresh"
	"github.com/jrsteele09/go-oidc-provider/users"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newStore(t *testing.T) *postgres.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("oidc"),
		tcpostgres.WithUsername("oidc"),
		tcpostgres.WithPassword("oidc"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	store, err := postgres.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "schema is idempotent")
	return store
}

func TestStore(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	client := &clients.Client{
		ID:                      "client-1",
		Name:                    "App",
		RedirectURIs:            []string{"https://app.test/cb"},
		Scopes:                  []string{"openid", "offline_access"},
		ResponseTypes:           []string{"code"},
		TokenEndpointAuthMethod: clients.AuthMethodClientSecretPost,
		Active:                  true,
	}
	require.NoError(t, client.SetSecret("secret"))
	user := &users.User{
		ID:            "user-1",
		Email:         "Ada@App.test",
		PasswordHash:  "$argon2id$hash",
		Name:          "Ada",
		EmailVerified: true,
		Address:       &users.Address{Country: "UK"},
	}

	t.Run("clients", func(t *testing.T) {
		repo := store.Clients()
		require.NoError(t, repo.Upsert(ctx, client))

		got, err := repo.Get(ctx, "client-1")
		require.NoError(t, err)
		require.Equal(t, client.RedirectURIs, got.RedirectURIs)
		require.Equal(t, clients.AuthMethodClientSecretPost, got.AuthMethod())
		require.True(t, got.VerifySecret("secret"))

		client.Name = "Renamed"
		require.NoError(t, repo.Upsert(ctx, client))
		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "Renamed", list[0].Name)

		_, err = repo.Get(ctx, "missing")
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("users", func(t *testing.T) {
		repo := store.Users()
		require.NoError(t, repo.Upsert(ctx, user))

		got, err := repo.GetByEmail(ctx, "ada@app.test")
		require.NoError(t, err)
		require.Equal(t, "user-1", got.ID)
		require.Equal(t, "$argon2id$hash", got.PasswordHash)
		require.Equal(t, "UK", got.Address.Country)
		require.True(t, got.EmailVerified)

		err = repo.Upsert(ctx, &users.User{ID: "user-2", Email: "ADA@app.test"})
		require.ErrorIs(t, err, apperrors.ErrConflict)

		_, err = repo.GetByID(ctx, "missing")
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("sessions", func(t *testing.T) {
		repo := store.Sessions()
		now := time.Now().UTC().Truncate(time.Microsecond)
		s := &sessions.Session{ID: "s-1", UserID: user.ID, ClientID: client.ID, UserAgent: "ua", SignedInAt: now, ExpiresAt: now.Add(time.Hour)}
		require.NoError(t, repo.Insert(ctx, s))
		require.ErrorIs(t, repo.Insert(ctx, s), apperrors.ErrConflict)

		require.NoError(t, repo.UpdateExpiry(ctx, "s-1", now.Add(2*time.Hour)))
		got, err := repo.Get(ctx, "s-1")
		require.NoError(t, err)
		require.True(t, now.Add(2*time.Hour).Equal(got.ExpiresAt))

		n, err := repo.DeleteExpired(ctx, now.Add(3*time.Hour))
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
		require.ErrorIs(t, repo.Delete(ctx, "s-1"), apperrors.ErrNotFound)
	})

	t.Run("signing keys keep one current", func(t *testing.T) {
		engine, err := keystore.NewEngine(store.SigningKeys(), []byte("0123456789abcdef0123456789abcdef"))
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			_, err := engine.CreateKey(ctx, 2048)
			require.NoError(t, err)
		}
		keys, err := store.SigningKeys().List(ctx)
		require.NoError(t, err)
		require.Len(t, keys, 3)
		current := 0
		for _, k := range keys {
			if k.Status == keystore.StatusCurrent {
				current++
			}
		}
		require.Equal(t, 1, current)

		kp, err := engine.ExtractKeysFromCurrent(ctx)
		require.NoError(t, err)
		require.Equal(t, keys[0].Kid, kp.KeyID)
	})

	t.Run("refresh rotation has one winner", func(t *testing.T) {
		repo := store.RefreshTokens()
		manager, err := refresh.NewManager(repo, []byte("0123456789abcdef0123456789abcdef"))
		require.NoError(t, err)

		token, rec, err := manager.Issue(ctx, user.ID, client.ID, []string{"openid", "offline_access"}, map[string]any{"email": "ada@app.test"})
		require.NoError(t, err)
		stored, err := repo.Get(ctx, rec.ID)
		require.NoError(t, err)
		require.Equal(t, rec.Scope, stored.Scope)
		require.Equal(t, "ada@app.test", stored.Claims["email"])

		const callers = 5
		var wg sync.WaitGroup
		errs := make(chan error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := manager.Redeem(ctx, token, client.ID)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		ok := 0
		for err := range errs {
			if err == nil {
				ok++
				continue
			}
			require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidRefreshToken), "got %v", err)
		}
		require.Equal(t, 1, ok)

		_, err = repo.Get(ctx, rec.ID)
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
