package bootstrap

import (
	"context"

	"github.com/jrsteele09/go-oidc-provider/keystore"
	"github.com/rs/zerolog/log"
)

// EnsureSigningKey creates the first signing key of a new deployment.
func EnsureSigningKey(ctx context.Context, engine *keystore.Engine, bits int) error {
	created, err := engine.EnsureCurrentKey(ctx, bits)
	if err != nil {
		return err
	}
	if created {
		log.Info().Int("bits", bits).Msg("🔐 no current signing key, created one")
	}
	return nil
}
