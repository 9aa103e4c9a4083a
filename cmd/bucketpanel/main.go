package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	keyfileadapter "github.com/ericfisherdev/bucketpanel/internal/adapter/driven/keyfile"
	s3adapter "github.com/ericfisherdev/bucketpanel/internal/adapter/driven/s3"
	sqliteadapter "github.com/ericfisherdev/bucketpanel/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/bucketpanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/bucketpanel/internal/application"
	"github.com/ericfisherdev/bucketpanel/internal/config"
	"github.com/ericfisherdev/bucketpanel/internal/domain/model"
	"github.com/ericfisherdev/bucketpanel/internal/domain/port/driven"
)

// purgeInterval is how often expired sessions and stale rate-limit records
// are swept from the database.
const purgeInterval = time.Hour

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"key_path", cfg.KeyPath,
		"login_workers", cfg.LoginWorkers,
	)

	// 2. Enforce password strength before anything is served. A weak admin
	// password is a refusal to start, not a warning.
	if err := application.CheckStrength(cfg.AdminPassword); err != nil {
		return fmt.Errorf("BUCKETPANEL_ADMIN_PASSWORD rejected: %w", err)
	}
	digest, err := application.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	// 3. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 5. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 6. Load or generate the vault key and build the vault.
	key, err := keyfileadapter.NewProvider(cfg.KeyPath).Key(ctx)
	if err != nil {
		return err
	}
	vault, err := application.NewVault(key)
	if err != nil {
		return err
	}
	slog.Info("vault key loaded", "path", cfg.KeyPath)

	// 7. Wire adapters.
	attemptStore := sqliteadapter.NewRateLimitRepo(db)
	sessionStore := sqliteadapter.NewSessionRepo(db)
	connectionStore := sqliteadapter.NewConnectionRepo(db)

	// 8. Create the client provider for hot-swap; empty until a profile is
	// activated or restored.
	provider := application.NewObjectClientProvider(nil, "")
	factory := func(c model.ConnectionConfig) driven.ObjectStoreClient {
		return s3adapter.NewClient(c)
	}

	// 9. Create services.
	authSvc := application.NewAuthService(digest, attemptStore, sessionStore, cfg.LoginWorkers, slog.Default())
	connSvc := application.NewConnectionService(connectionStore, vault, factory, provider, slog.Default())

	// 10. Restore the persisted active connection so activation survives
	// restarts. A corrupt stored secret here is fatal.
	if err := connSvc.RestoreActive(ctx); err != nil {
		return fmt.Errorf("restore active connection: %w", err)
	}

	// 11. Background sweep of expired sessions and stale login attempts.
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				authSvc.PurgeExpired(ctx)
			}
		}
	}()

	// 12. Create HTTP handler and register routes.
	apiHandler := httphandler.NewHandler(authSvc, connSvc, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("bucketpanel started", "listen_addr", cfg.ListenAddr)

	// 13. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 14. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
