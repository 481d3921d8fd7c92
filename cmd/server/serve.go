package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/go-oidc-provider/internal/bootstrap"
	"github.com/jrsteele09/go-oidc-provider/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 5 * time.Second
	cleanupInterval = time.Hour
)

func newServeCommand(loadConfig func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the provider's HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c)
		},
	}
}

func serve(ctx context.Context, c config.Config) error {
	displayAppname(c.GetAppName())

	a, err := newApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := bootstrap.EnsureSigningKey(ctx, a.engine, c.GetKeySize()); err != nil {
		return fmt.Errorf("[serve] failed to ensure a signing key: %w", err)
	}
	if path := c.GetSeedFile(); path != "" {
		if err := seedFromFile(ctx, a, path); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           a.server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("issuer", c.GetIssuerURL()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server.ListenAndServe %w", err)
		}
		return nil
	})
	g.Go(func() error {
		runCleanup(ctx, a, cleanupInterval)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return shutdown(srv)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

// runCleanup purges expired sessions and refresh tokens until ctx is done.
func runCleanup(ctx context.Context, a *app, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := a.sessions.DeleteExpired(ctx); err != nil {
				log.Error().Err(err).Msg("failed to purge expired sessions")
			} else if n > 0 {
				log.Info().Int64("count", n).Msg("purged expired sessions")
			}
			if n, err := a.refresh.DeleteExpired(ctx); err != nil {
				log.Error().Err(err).Msg("failed to purge expired refresh tokens")
			} else if n > 0 {
				log.Info().Int64("count", n).Msg("purged expired refresh tokens")
			}
		}
	}
}
