package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"zombiefinance/internal/auth"
	"zombiefinance/internal/cache"
	apphttp "zombiefinance/internal/http"
	"zombiefinance/internal/log"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(o *rootOptions) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				if err := os.Setenv("PORT", port); err != nil {
					return err
				}
			}
			return runServe(cmd.Context(), o)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}

func runServe(ctx context.Context, o *rootOptions) error {
	e, err := openEnv(ctx, o, os.Stdout)
	if err != nil {
		return err
	}
	defer e.Close()
	logger := e.logger

	caches := cache.NewManager(logger)
	defer caches.Stop()

	var provider *auth.Provider
	if e.cfg.AuthEnabled() {
		sessions := cache.NewLRUCache[auth.Session](e.cfg.AuthCacheSize, e.cfg.AuthSessionTTL)
		caches.Register(sessions)
		client := auth.NewClient(e.cfg.SupabaseURL, e.cfg.SupabaseAnonKey, nil)
		provider = auth.NewProvider(client, sessions, logger)
		logger.Info("Auth scaffold enabled", "supabase_url", e.cfg.SupabaseURL)
	}
	caches.StartCleanup(ctx, e.cfg.CacheCleanupInterval)

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + e.cfg.Port,
		Ledger:         e.ledger,
		Auth:           provider,
		Currency:       e.cfg.CurrencySymbol,
		MetricsEnabled: e.cfg.MetricsEnabled,
		Ready:          e.backend.Ping,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting zombie server",
			"port", e.cfg.Port, log.FieldBackend, e.cfg.DataBackend, log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
