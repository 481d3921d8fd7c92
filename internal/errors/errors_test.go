package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("coded error survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", apperrors.BadRequest(apperrors.CodeInvalidScope, "scope not allowed"))
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidScope))
		require.False(t, apperrors.IsCode(err, apperrors.CodeInvalidClient))

		coded := apperrors.From(err)
		require.Equal(t, http.StatusBadRequest, coded.Status)
		require.Equal(t, "scope not allowed", coded.Message)
	})

	t.Run("unknown errors become internal", func(t *testing.T) {
		coded := apperrors.From(fmt.Errorf("boom"))
		require.Equal(t, apperrors.CodeInternal, coded.Code)
		require.Equal(t, http.StatusInternalServerError, coded.Status)
	})

	t.Run("internal keeps cause with stack", func(t *testing.T) {
		cause := fmt.Errorf("connection refused")
		err := apperrors.Internal(cause, apperrors.CodeFailedQuery, "query failed")
		require.ErrorIs(t, err, cause)
		require.Contains(t, fmt.Sprintf("%+v", err.Err), "errors_test.go")
	})

	t.Run("nil passes through", func(t *testing.T) {
		require.Nil(t, apperrors.From(nil))
		require.NoError(t, apperrors.Wrapf(nil, "ctx"))
	})
}
