package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-oidc-provider/internal/bootstrap"
	"github.com/jrsteele09/go-oidc-provider/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newSeedCommand(loadConfig func() (config.Config, error)) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load clients and users from a YAML seed file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			if file == "" {
				file = c.GetSeedFile()
			}
			if file == "" {
				return fmt.Errorf("[seed] no seed file, pass --file or set SEED_FILE")
			}
			if c.GetDatabaseURL() == "" {
				return fmt.Errorf("[seed] DATABASE_URL is required, set SEED_FILE to seed in-memory storage at serve time")
			}
			a, err := newApp(cmd.Context(), c)
			if err != nil {
				return err
			}
			defer a.Close()
			return seedFromFile(cmd.Context(), a, file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file, defaults to SEED_FILE")
	return cmd
}

func seedFromFile(ctx context.Context, a *app, path string) error {
	seed, err := bootstrap.LoadSeedFile(path)
	if err != nil {
		return fmt.Errorf("[seed] %w", err)
	}
	result, err := bootstrap.Seed(ctx, seed, a.repos.Clients, a.repos.Users)
	if err != nil {
		return err
	}
	for _, client := range result.Clients {
		event := log.Info().Str("client_id", client.ID)
		if client.Secret != "" {
			// Generated secrets are only ever shown here.
			event = event.Str("client_secret", client.Secret)
		}
		event.Msg("🔑 client seeded")
	}
	log.Info().Int("users", len(result.Users)).Str("file", path).Msg("seed complete")
	return nil
}
