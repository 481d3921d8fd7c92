package users_test

import (
	"context"
	"strings"
	"testing"

	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/users"
	"github.com/jrsteele09/go-oidc-provider/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword("Correct-Horse-1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=1$"))

	require.True(t, users.CheckPasswordHash("Correct-Horse-1", hash))
	require.False(t, users.CheckPasswordHash("correct-horse-1", hash))
	require.False(t, users.CheckPasswordHash("Correct-Horse-1", "$2a$10$notargon"))
	require.False(t, users.CheckPasswordHash("Correct-Horse-1", ""))

	other, err := users.HashPassword("Correct-Horse-1")
	require.NoError(t, err)
	require.NotEqual(t, hash, other, "salt must differ")

	_, err = users.HashPassword("")
	require.Error(t, err)

	users.CheckPasswordAgainstNothing("anything")
}

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		wantErr  string
	}{
		{"Sh0rt", "at least 8"},
		{"alllowercase1", "uppercase"},
		{"ALLUPPERCASE1", "lowercase"},
		{"NoNumbersHere", "number"},
		{"Valid-Passw0rd", ""},
	}
	for _, tc := range tests {
		t.Run(tc.password, func(t *testing.T) {
			err := users.ValidatePasswordStrength(tc.password)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestFakeUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := repofake.NewFakeUserRepo()

	u := &users.User{Email: "Ada@Example.com", Name: "Ada"}
	require.NoError(t, repo.Upsert(ctx, u))
	require.NotEmpty(t, u.ID)

	byEmail, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada", byID.Name)

	_, err = repo.GetByID(ctx, "nope")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	require.ErrorIs(t, repo.Upsert(ctx, &users.User{Email: "ada@example.com"}), apperrors.ErrConflict)
}
