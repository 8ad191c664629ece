package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kolah/portico/internal/config"
	"github.com/kolah/portico/internal/fetch"
	"github.com/kolah/portico/internal/gateway"
	"github.com/kolah/portico/internal/registry"
	"github.com/spf13/cobra"
)

func ServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve registered OpenAPI services as MCP servers",
		RunE:  runServe,
	}

	config.BindServeFlags(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New(registry.Options{
		SpecsDir: cfg.Specs.Dir,
		UseLocal: cfg.Specs.UseLocal,
		Fetcher:  newFetcher(cfg, logger),
		BaseURLs: cfg.Specs.BaseURLOverrides,
	}, logger)

	if _, err := reg.Load(ctx); err != nil {
		return fmt.Errorf("loading API specs: %w", err)
	}

	g := gateway.New(reg, gateway.Options{
		Name:           cfg.Gateway.Name,
		Version:        cfg.Gateway.Version,
		ToolPrefix:     cfg.Gateway.ToolPrefix,
		RequestTimeout: cfg.Gateway.RequestTimeout,
		DefaultHeaders: cfg.Gateway.DefaultHeaders,
		APIHeaders:     cfg.Gateway.APIHeaders,
	}, logger)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: g.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info("gateway listening",
		zap.String("addr", cfg.Addr()),
		zap.Strings("mounts", g.Mounts()))

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newFetcher builds the remote spec fetcher. Local mode gets nil; the
// registry never touches it.
func newFetcher(cfg *config.Config, logger *zap.Logger) registry.Fetcher {
	if cfg.Specs.UseLocal {
		return nil
	}
	return fetch.New(fetch.Options{
		CatalogURL:       cfg.Specs.CatalogURL,
		SpecBaseURL:      cfg.Specs.BaseURL,
		Timeout:          cfg.Client.Timeout,
		RequestDelay:     cfg.Client.RequestDelay,
		MaxRetries:       cfg.Client.MaxRetries,
		RetryDelay:       cfg.Client.RetryDelay,
		RetryStatusCodes: cfg.Client.RetryStatusCodes,
		RetryMethods:     cfg.Client.RetryMethods,
		MaxConnections:   cfg.Client.MaxConnections,
		VerifySSL:        cfg.Client.VerifySSL,
	}, logger)
}
