package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-oidc-provider/internal/bootstrap"
	"github.com/jrsteele09/go-oidc-provider/internal/config"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
clients:
  - id: 0123456789abcdef0123456789abcdef
    name: Demo App
    secret: demo-secret
    redirect_uris: [https://app.test/cb]
    scopes: [openid, profile]
users:
  - email: ada@app.test
    password: Correct-Horse-1
    name: Ada Lovelace
`

func TestNewAppInMemory(t *testing.T) {
	ctx := context.Background()
	c := config.New(config.Settings{
		Env:                 "DEV",
		IssuerURL:           "http://localhost:8080",
		KeyEncryptionSecret: strings.Repeat("k", 32),
		RefreshTokenSecret:  strings.Repeat("r", 32),
		KeySize:             2048,
	})

	a, err := newApp(ctx, c)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.NoError(t, bootstrap.EnsureSigningKey(ctx, a.engine, c.GetKeySize()))

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))
	require.NoError(t, seedFromFile(ctx, a, path))

	client, err := a.repos.Clients.Get(ctx, "0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	require.True(t, client.VerifySecret("demo-secret"))

	t.Run("serves discovery and health", func(t *testing.T) {
		for _, route := range []string{"/.well-known/openid-configuration", "/jwks.json", "/healthz"} {
			rec := httptest.NewRecorder()
			a.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, route, nil))
			require.Equal(t, http.StatusOK, rec.Code, route)
		}
	})

	t.Run("cleanup stops with its context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			runCleanup(cctx, a, time.Millisecond)
			close(done)
		}()
		time.Sleep(10 * time.Millisecond)
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("cleanup did not stop")
		}
	})
}

func TestRootCommand(t *testing.T) {
	root := newRootCommand()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	require.ElementsMatch(t, []string{"serve", "keys", "seed"}, names)

	rotate, _, err := root.Find([]string{"keys", "rotate"})
	require.NoError(t, err)
	require.Equal(t, "rotate", rotate.Name())
}
