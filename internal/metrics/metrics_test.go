package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-oidc-provider/internal/metrics"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	metrics.Register()
	metrics.Register()
	metrics.TokensIssued.WithLabelValues("authorization_code").Inc()

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `oidc_tokens_issued_total{grant_type="authorization_code"}`)
}
