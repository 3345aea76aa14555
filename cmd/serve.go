package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/runclub/internal/auth"
	"github.com/Shivanand-hulikatti/runclub/internal/handler"
	"github.com/Shivanand-hulikatti/runclub/internal/log"
	"github.com/Shivanand-hulikatti/runclub/internal/repository"
	"github.com/Shivanand-hulikatti/runclub/internal/service"
	"github.com/Shivanand-hulikatti/runclub/internal/tracing"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "apply pending Postgres migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// ── 1. Tracing and storage ───────────────────────────────────────────
	tp, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.ErrorErr(log.CatTracing, "Tracer shutdown failed", err)
		}
	}()

	st, err := openStores(ctx, cfg.Database, serveMigrate)
	if err != nil {
		return err
	}
	defer st.close()

	// ── 2. Wire up layers ────────────────────────────────────────────────
	scheme, err := auth.ParseScheme(cfg.Auth.LoginScheme)
	if err != nil {
		return err
	}
	runs := repository.NewCachedRunStore(st.runs, cfg.Cache.RunTTL, cfg.Cache.CleanupInterval)
	runSvc := service.NewRunService(runs)
	regSvc := service.NewRegistrationService(runs, st.signups, cfg.Registration, tp.Tracer())
	accountSvc := service.NewAccountService(st.users, cfg.Auth.BcryptCost)
	authn := auth.NewPasswordAuthenticator(st.users, scheme, cfg.Auth.BcryptCost)

	if cfg.Auth.AdminToken == "" {
		log.Warn(log.CatConfig, "auth.admin_token is empty; organizer routes are disabled")
	}
	router := handler.NewRouter(handler.NewRunHandler(runSvc, regSvc, accountSvc), authn, cfg.Auth.AdminToken)

	// ── 3. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(log.CatHTTP, "Server listening", "addr", "http://localhost:"+cfg.Server.Port, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-quit:
	}

	log.Info(log.CatHTTP, "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info(log.CatHTTP, "Server stopped")
	return nil
}
