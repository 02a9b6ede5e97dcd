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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sector-intel/database"
	"sector-intel/handlers"
	"sector-intel/pages"
	"sector-intel/query"
	"sector-intel/telemetry"
	"sector-intel/viewstate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard web server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{Enabled: cfg.Tracing.Enabled, Pretty: cfg.Tracing.Pretty})
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	store, err := database.Open(cfg.Database.Path, log)
	if err != nil {
		return err
	}
	defer store.Close()

	client := newAPIClient()
	catalog := loadCatalog(ctx, client)

	queries := query.NewClient(query.Options{
		StaleTime:     cfg.Query.StaleTime,
		RetryDelay:    cfg.Query.RetryDelay,
		MaxRetryDelay: cfg.Query.MaxRetryDelay,
		Logger:        log,
	})
	defer queries.Close()

	sessions := pages.NewSessions(pages.SessionsConfig{
		Backend:  client,
		Queries:  queries,
		StoreFor: func(id string) viewstate.Storage { return store.ForClient(id) },
		Catalog:  catalog,
		Logger:   log,
		IdleTTL:  cfg.Sessions.IdleTTL,
	})
	go sessions.Run(ctx)

	gin.SetMode(cfg.Server.Mode)
	router := handlers.NewRouter(handlers.Deps{
		Sessions:       sessions,
		Backend:        client,
		Queries:        queries,
		Catalog:        catalog,
		Logger:         log,
		RenderWait:     cfg.Render.Wait,
		RefreshSeconds: cfg.Render.RefreshSeconds,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", cfg.Server.Addr), zap.String("backend", client.BaseURL()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	sessions.Close()
	return nil
}
