package keystore_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/keystore"
	"github.com/jrsteele09/go-oidc-provider/keystore/repofake"
	"github.com/stretchr/testify/require"
)

const masterSecret = "0123456789abcdef0123456789abcdef"

func newEngine(t *testing.T) (*keystore.Engine, *repofake.FakeKeyRepo) {
	t.Helper()
	repo := repofake.NewFakeKeyRepo()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	engine, err := keystore.NewEngine(repo, []byte(masterSecret), keystore.WithNowTime(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	require.NoError(t, err)
	return engine, repo
}

func TestNewEngine(t *testing.T) {
	_, err := keystore.NewEngine(nil, []byte(masterSecret))
	require.Error(t, err)
	_, err = keystore.NewEngine(repofake.NewFakeKeyRepo(), nil)
	require.Error(t, err)
}

func TestEngine_CreateKey(t *testing.T) {
	ctx := context.Background()
	engine, repo := newEngine(t)

	jwk, err := engine.CreateKey(ctx, 2048)
	require.NoError(t, err)
	require.Equal(t, "RSA", jwk.Kty)
	require.Equal(t, "sig", jwk.Use)
	require.Equal(t, keystore.RS256, jwk.Alg)
	require.NotEmpty(t, jwk.Kid)

	stored, err := repo.GetCurrent(ctx)
	require.NoError(t, err)
	require.Equal(t, jwk.Kid, stored.Kid)
	require.NotContains(t, stored.EncryptedPrivateKey, "PRIVATE KEY")

	intermediate, err := keystore.Decrypt([]byte(masterSecret), stored.EncryptedIntermediateKey)
	require.NoError(t, err)
	require.Len(t, intermediate, 64)

	opened, err := keystore.Decrypt([]byte(masterSecret), stored.EncryptedPrivateKey)
	if err == nil {
		require.NotContains(t, string(opened), "PRIVATE KEY", "private key is sealed under the intermediate key")
	}

	opened, err = keystore.Decrypt(intermediate, stored.EncryptedPrivateKey)
	require.NoError(t, err)
	require.Contains(t, string(opened), "RSA PRIVATE KEY")
}

func TestEngine_Rotation(t *testing.T) {
	ctx := context.Background()
	engine, repo := newEngine(t)

	first, err := engine.CreateKey(ctx, 2048)
	require.NoError(t, err)
	second, err := engine.CreateKey(ctx, 2048)
	require.NoError(t, err)
	third, err := engine.CreateKey(ctx, 2048)
	require.NoError(t, err)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	current := 0
	for _, k := range all {
		if k.Status == keystore.StatusCurrent {
			current++
			require.Equal(t, third.Kid, k.Kid)
		}
	}
	require.Equal(t, 1, current)

	kp, err := engine.ExtractKeysFromCurrent(ctx)
	require.NoError(t, err)
	require.Equal(t, third.Kid, kp.KeyID)
	require.NotEqual(t, first.Kid, kp.KeyID)

	jwks, err := engine.JWKS(ctx)
	require.NoError(t, err)
	kids := []string{}
	for _, k := range jwks.Keys {
		kids = append(kids, k.Kid)
	}
	require.ElementsMatch(t, []string{first.Kid, second.Kid, third.Kid}, kids)
}

// cancellableKeyRepo fails reads once the context is done, as a database driver would.
type cancellableKeyRepo struct {
	*repofake.FakeKeyRepo
}

func (r cancellableKeyRepo) GetCurrent(ctx context.Context) (*keystore.SigningKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.FakeKeyRepo.GetCurrent(ctx)
}

func TestEngine_ExtractKeysFromCurrent(t *testing.T) {
	ctx := context.Background()

	t.Run("no key", func(t *testing.T) {
		engine, _ := newEngine(t)
		_, err := engine.ExtractKeysFromCurrent(ctx)
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidKey))
	})

	t.Run("wrong master secret", func(t *testing.T) {
		engine, repo := newEngine(t)
		_, err := engine.CreateKey(ctx, 2048)
		require.NoError(t, err)

		other, err := keystore.NewEngine(repo, []byte("fedcba9876543210fedcba9876543210"))
		require.NoError(t, err)
		_, err = other.ExtractKeysFromCurrent(ctx)
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidKey))
	})

	t.Run("tampered private key", func(t *testing.T) {
		engine, repo := newEngine(t)
		_, err := engine.CreateKey(ctx, 2048)
		require.NoError(t, err)

		repo.Tamper("00112233445566778899aabbccddeeff.00112233445566778899aabbccddeeff")
		_, err = engine.ExtractKeysFromCurrent(ctx)
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidKey))
	})

	t.Run("cancelled caller does not fail the shared extraction", func(t *testing.T) {
		repo := cancellableKeyRepo{repofake.NewFakeKeyRepo()}
		engine, err := keystore.NewEngine(repo, []byte(masterSecret))
		require.NoError(t, err)
		_, err = engine.CreateKey(ctx, 2048)
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		kp, err := engine.ExtractKeysFromCurrent(cancelled)
		require.NoError(t, err)
		require.NotNil(t, kp.PrivateKey)
	})

	t.Run("signs tokens verifiable with published key", func(t *testing.T) {
		engine, _ := newEngine(t)
		_, err := engine.CreateKey(ctx, 2048)
		require.NoError(t, err)

		signer, err := engine.Signer(ctx)
		require.NoError(t, err)
		raw, err := signer.Sign(jwt.MapClaims{"sub": "user-1"})
		require.NoError(t, err)

		parsed, err := jwt.Parse(raw, func(tok *jwt.Token) (any, error) {
			require.Equal(t, "JWT", tok.Header["typ"])
			return engine.VerificationKey(ctx, tok.Header["kid"].(string))
		}, jwt.WithValidMethods([]string{keystore.RS256}))
		require.NoError(t, err)
		require.True(t, parsed.Valid)
	})
}

func TestEngine_EnsureCurrentKey(t *testing.T) {
	ctx := context.Background()
	engine, repo := newEngine(t)

	created, err := engine.EnsureCurrentKey(ctx, 2048)
	require.NoError(t, err)
	require.True(t, created)

	created, err = engine.EnsureCurrentKey(ctx, 2048)
	require.NoError(t, err)
	require.False(t, created)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestEngine_JWKSParsesAsStandardKeySet(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)
	_, err := engine.CreateKey(ctx, 2048)
	require.NoError(t, err)

	jwks, err := engine.JWKS(ctx)
	require.NoError(t, err)
	raw, err := json.Marshal(jwks)
	require.NoError(t, err)

	var fields map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	require.Len(t, fields["keys"], 1)
	for name := range fields["keys"][0] {
		require.Contains(t, []string{"kty", "kid", "use", "alg", "n", "e"}, name)
	}

	var set jose.JSONWebKeySet
	require.NoError(t, json.Unmarshal(raw, &set))
	require.Len(t, set.Keys, 1)
	require.True(t, set.Keys[0].Valid())
	require.True(t, set.Keys[0].IsPublic())
}

func TestJWK_PublicKey(t *testing.T) {
	kp, err := keystore.GenerateRSAKeyPair("kid-1", 1024)
	require.NoError(t, err)
	require.Equal(t, 2048, kp.PublicKey.N.BitLen())

	pub, err := kp.ToJWK().PublicKey()
	require.NoError(t, err)
	require.True(t, kp.PublicKey.Equal(pub))

	_, err = keystore.JWK{Kty: "RSA", Kid: "bad", N: "!!", E: "AQAB"}.PublicKey()
	require.Error(t, err)
}
