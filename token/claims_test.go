package token_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-oidc-provider/token"
	"github.com/jrsteele09/go-oidc-provider/users"
	"github.com/stretchr/testify/require"
)

func TestProjectClaims(t *testing.T) {
	u := &users.User{
		ID:                  "user-1",
		Email:               "ada@app.test",
		Name:                "Ada",
		FamilyName:          "Lovelace",
		Picture:             "https://img.test/ada.png",
		PhoneNumber:         "+1",
		PhoneNumberVerified: true,
		Address:             &users.Address{Country: "UK"},
		UpdatedAt:           time.Unix(1700000000, 0),
	}

	t.Run("openid only", func(t *testing.T) {
		sets := token.ProjectClaims(u, []string{"openid"})
		require.Empty(t, sets.IDToken)
		require.Equal(t, map[string]any{"sub": "user-1"}, sets.UserInfo)
	})

	t.Run("profile", func(t *testing.T) {
		sets := token.ProjectClaims(u, []string{"openid", "profile"})
		require.Equal(t, map[string]any{"name": "Ada", "picture": "https://img.test/ada.png"}, sets.IDToken)
		require.Equal(t, "Lovelace", sets.UserInfo["family_name"])
		require.Equal(t, int64(1700000000), sets.UserInfo["updated_at"])
		require.NotContains(t, sets.UserInfo, "nickname", "empty values are omitted")
	})

	t.Run("email unverified is still released", func(t *testing.T) {
		sets := token.ProjectClaims(u, []string{"email"})
		require.Equal(t, false, sets.IDToken["email_verified"])
		require.Equal(t, "ada@app.test", sets.UserInfo["email"])
	})

	t.Run("phone and address are userinfo only", func(t *testing.T) {
		sets := token.ProjectClaims(u, []string{"phone", "address"})
		require.Empty(t, sets.IDToken)
		require.Equal(t, true, sets.UserInfo["phone_number_verified"])
		require.Equal(t, users.Address{Country: "UK"}, sets.UserInfo["address"])
	})
}

func TestSupportedClaims(t *testing.T) {
	claims := token.SupportedClaims()
	require.Contains(t, claims, "email_verified")
	require.Contains(t, claims, "address")
	require.Equal(t, "sub", claims[0])
}

func TestS256Challenge(t *testing.T) {
	// RFC 7636 appendix B
	require.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URLbWPk-fn2uBA", token.S256Challenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))
}
