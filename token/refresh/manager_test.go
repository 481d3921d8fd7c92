package refresh_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/token/refresh"
	"github.com/jrsteele09/go-oidc-provider/token/refresh/repofake"
	"github.com/stretchr/testify/require"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func newManager(t *testing.T, now *time.Time) (*refresh.Manager, *repofake.FakeRefreshTokenRepo) {
	t.Helper()
	repo := repofake.NewFakeRefreshTokenRepo()
	m, err := refresh.NewManager(repo, secret, refresh.WithNowTime(func() time.Time { return *now }))
	require.NoError(t, err)
	return m, repo
}

func TestManager_IssueAndRedeem(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m, repo := newManager(t, &now)

	token, rec, err := m.Issue(ctx, "user-1", "client-1", []string{"openid", "offline_access"}, map[string]any{"email": "a@b.test"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(token, rec.ID+":"))
	require.NotContains(t, rec.EncryptedSecret, strings.SplitN(token, ":", 2)[1])
	require.Equal(t, now.Add(refresh.DefaultExpiry), rec.ExpiresAt)

	t.Run("client id lookup", func(t *testing.T) {
		clientID, err := m.ClientIDFor(ctx, token)
		require.NoError(t, err)
		require.Equal(t, "client-1", clientID)
	})

	t.Run("wrong client", func(t *testing.T) {
		_, _, err := m.Redeem(ctx, token, "client-2")
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidRefreshTokenForClient))
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, _, err := m.Redeem(ctx, rec.ID+":not-the-secret", "client-1")
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidRefreshToken))
	})

	t.Run("rotation", func(t *testing.T) {
		next, nextRec, err := m.Redeem(ctx, token, "client-1")
		require.NoError(t, err)
		require.NotEqual(t, rec.ID, nextRec.ID)
		require.Equal(t, rec.FamilyID, nextRec.FamilyID)
		require.Equal(t, rec.Scope, nextRec.Scope)
		require.Equal(t, rec.Claims, nextRec.Claims)
		require.Equal(t, 1, repo.Len())

		_, _, err = m.Redeem(ctx, token, "client-1")
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidRefreshToken))

		_, _, err = m.Redeem(ctx, next, "client-1")
		require.NoError(t, err)
		_, _, err = m.Redeem(ctx, next, "client-1")
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidRefreshToken))
	})
}

func TestManager_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m, _ := newManager(t, &now)

	token, _, err := m.Issue(ctx, "user-1", "client-1", nil, nil)
	require.NoError(t, err)

	now = now.Add(refresh.DefaultExpiry)
	_, _, err = m.Redeem(ctx, token, "client-1")
	require.True(t, apperrors.IsCode(err, apperrors.CodeRefreshTokenExpired))

	n, err := m.DeleteExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	now = now.Add(time.Second)
	n, err = m.DeleteExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestManager_ConcurrentRedeem(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m, _ := newManager(t, &now)

	token, _, err := m.Issue(ctx, "user-1", "client-1", nil, nil)
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := m.Redeem(ctx, token, "client-1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidRefreshToken))
	}
	require.Equal(t, 1, ok)
}

func TestParse(t *testing.T) {
	id, s, err := refresh.Parse("abc:def:ghi")
	require.NoError(t, err)
	require.Equal(t, "abc", id)
	require.Equal(t, "def:ghi", s)

	for _, bad := range []string{"", "nocolon", ":secret", "id:"} {
		_, _, err := refresh.Parse(bad)
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidRefreshToken), bad)
	}
}

func TestManager_Revoke(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m, repo := newManager(t, &now)
	token, _, err := m.Issue(ctx, "user-1", "client-1", nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, token))
	require.NoError(t, m.Revoke(ctx, token))
	require.Zero(t, repo.Len())
}
