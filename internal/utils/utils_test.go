package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-oidc-provider/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestRandomToken(t *testing.T) {
	a, err := utils.RandomToken(32)
	require.NoError(t, err)
	b, err := utils.RandomToken(32)
	require.NoError(t, err)
	require.Len(t, a, 43)
	require.NotEqual(t, a, b)
	require.NotContains(t, a, "=")
}

func TestRandomHex(t *testing.T) {
	h, err := utils.RandomHex(16)
	require.NoError(t, err)
	require.Len(t, h, 32)
}

func TestConversions(t *testing.T) {
	require.Equal(t, []string{"openid", "profile"}, utils.SplitSpaces("  openid   profile "))
	require.True(t, utils.Contains([]string{"x", "y"}, "y"))
	require.False(t, utils.Contains([]string{"x"}, "z"))
}
