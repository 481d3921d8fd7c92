package config_test

import (
	"strings"
	"testing"

	"github.com/jrsteele09/go-oidc-provider/internal/config"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validSettings() config.Settings {
	return config.Settings{
		Env:                 "dev",
		Port:                "9090",
		IssuerURL:           "https://id.example.com",
		LoginPageURL:        "https://id.example.com/login",
		ConsentPageURL:      "https://id.example.com/consent",
		KeyEncryptionSecret: testSecret,
		RefreshTokenSecret:  testSecret,
		KeySize:             2048,
		AllowedOrigins:      []string{"https://app.example.com", " "},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, config.Validate(validSettings()))
	})

	t.Run("reports every problem", func(t *testing.T) {
		s := validSettings()
		s.KeyEncryptionSecret = "short"
		s.RefreshTokenSecret = ""
		s.IssuerURL = "not a url"
		s.KeySize = 1024

		err := config.Validate(s)
		require.Error(t, err)
		msg := err.Error()
		require.Contains(t, msg, "KEY_ENCRYPTION_SECRET")
		require.Contains(t, msg, "REFRESH_TOKEN_SECRET")
		require.Contains(t, msg, "ISSUER_URL")
		require.Contains(t, msg, "KEY_SIZE")
		require.Equal(t, 4, strings.Count(msg, "* "))
	})
}

func TestNew(t *testing.T) {
	c := config.New(validSettings())

	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.False(t, c.IsProduction())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("https://app.example.com"))
	require.Len(t, c.GetAllowedOrigins(), 1)
	require.Equal(t, []byte(testSecret), c.GetKeyEncryptionSecret())
	require.Equal(t, "oidc_session", c.GetSessionCookieName())
	require.Equal(t, 2048, c.GetKeySize())

	t.Run("issuer drops trailing slashes", func(t *testing.T) {
		s := validSettings()
		s.IssuerURL = "https://id.example.com/"
		require.NoError(t, config.Validate(s))
		require.Equal(t, "https://id.example.com", config.New(s).GetIssuerURL())
	})
}

func TestLoad(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("ISSUER_URL", "https://id.example.com")
	t.Setenv("KEY_ENCRYPTION_SECRET", testSecret)
	t.Setenv("REFRESH_TOKEN_SECRET", testSecret)
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	c, err := config.Load(t.TempDir() + "/missing.env")
	require.NoError(t, err)
	require.True(t, c.IsProduction())
	require.Equal(t, "https://id.example.com", c.GetIssuerURL())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("https://b.example.com"))
	require.Equal(t, 48*3600.0, c.GetMaxSessionAge().Seconds())
}
