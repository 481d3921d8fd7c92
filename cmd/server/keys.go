package main

import (
	"fmt"

	"github.com/jrsteele09/go-oidc-provider/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newKeysCommand(loadConfig func() (config.Config, error)) *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Manage signing keys",
	}

	var bits int
	rotate := &cobra.Command{
		Use:   "rotate",
		Short: "Create a new current signing key, demoting the existing one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			if c.GetDatabaseURL() == "" {
				return fmt.Errorf("[keys rotate] DATABASE_URL is required, in-memory keys would be lost on exit")
			}
			if bits == 0 {
				bits = c.GetKeySize()
			}
			a, err := newApp(cmd.Context(), c)
			if err != nil {
				return err
			}
			defer a.Close()

			jwk, err := a.engine.CreateKey(cmd.Context(), bits)
			if err != nil {
				return fmt.Errorf("[keys rotate] %w", err)
			}
			// Cached JWKS responses would otherwise hide the new key until they expire.
			if err := a.cache.Invalidate(cmd.Context(), "jwks"); err != nil {
				log.Warn().Err(err).Msg("jwks cache not invalidated")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "current key: %s\n", jwk.Kid)
			return nil
		},
	}
	rotate.Flags().IntVar(&bits, "bits", 0, "RSA key size, defaults to KEY_SIZE")

	keys.AddCommand(rotate)
	return keys
}
