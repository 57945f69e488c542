package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	hibpadapter "github.com/securevault/securevault/internal/adapter/driven/hibp"
	sqliteadapter "github.com/securevault/securevault/internal/adapter/driven/sqlite"
	"github.com/securevault/securevault/internal/application"
	"github.com/securevault/securevault/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"db_path", cfg.DBPath,
		"sweep_interval", cfg.SweepInterval,
		"hibp_api_key_set", cfg.HasHIBPAPIKey(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
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

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	credStore := sqliteadapter.NewCredentialRepo(db)
	breachClient := hibpadapter.NewClient(cfg.HIBPAPIKey)

	// 6. Create the sweep service and start the scheduled email sweep. The
	// password sweep is never scheduled: it needs the master secret, which
	// only exists inside a single authenticated request.
	sweepSvc := application.NewSweepService(
		breachClient,
		credStore,
		cfg.EncryptionPepper,
		cfg.PasswordScanDelay,
		cfg.EmailScanDelay,
		cfg.SweepInterval,
	)
	if cfg.HasHIBPAPIKey() {
		go sweepSvc.Start(ctx)
		slog.Info("scheduled email sweep enabled", "interval", cfg.SweepInterval)
	} else {
		slog.Info("no HIBP API key configured, scheduled email sweeps disabled")
	}

	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}
