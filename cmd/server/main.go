package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"invscreen/internal/config"
	"invscreen/internal/email/noop"
	"invscreen/internal/email/ses"
	"invscreen/internal/handler"
	"invscreen/internal/logger"
	"invscreen/internal/port"
	"invscreen/internal/repository/csvledger"
	"invscreen/internal/repository/postgres"
	"invscreen/internal/router"
	"invscreen/internal/screening"
	"invscreen/internal/service"
	s3storage "invscreen/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The CSV backend runs without a database: no audit trail and no HSN rate check.
	var (
		db      *sqlx.DB
		ledgers port.LedgerRepository
		audits  port.ScreeningRepository
		pinger  handler.Pinger
	)
	switch cfg.Ledger.Backend {
	case config.LedgerBackendPostgres:
		db, err = postgres.NewDB(ctx, &cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() { _ = db.Close() }()
		ledgers = postgres.NewLedgerRepo(db)
		audits = postgres.NewScreeningRepo(db)
		pinger = db
	case config.LedgerBackendCSV:
		ledgers = csvledger.New(cfg.Ledger.CSVDir)
	}

	opts := cfg.Screening.Options()
	if db != nil {
		entries, err := postgres.NewHSNRepo(db).LoadAll(ctx)
		if err != nil {
			zl.Warn("HSN master unavailable; rate check disabled", zap.Error(err))
		} else {
			opts.HSN = screening.NewHSNLookup(entries)
			zl.Info("HSN master loaded", zap.Int("codes", opts.HSN.Len()))
		}
	}

	var storage port.ObjectStorage
	if cfg.S3.Bucket != "" {
		storage, err = s3storage.NewS3Client(ctx, &cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	}

	alerts, err := newAlertSender(ctx, &cfg.Alert, zl)
	if err != nil {
		return err
	}

	// Initialize services
	screeningSvc := service.NewScreeningService(
		screening.NewEngine(opts), ledgers, audits, storage, alerts,
		service.ScreeningServiceConfig{
			BatchConcurrency: cfg.Screening.BatchConcurrency,
			ArchiveBucket:    cfg.S3.Bucket,
			ArchivePrefix:    cfg.S3.Prefix,
		}, zl)
	ledgerSvc := service.NewLedgerService(ledgers)

	// Setup router
	r := router.Setup(router.Handlers{
		Health:    handler.NewHealthHandler(pinger),
		Screening: handler.NewScreeningHandler(screeningSvc),
		Ledger:    handler.NewLedgerHandler(ledgerSvc),
	}, cfg.CORS.AllowedOrigins, zl)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("ledger_backend", cfg.Ledger.Backend),
			zap.String("environment", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func newAlertSender(ctx context.Context, cfg *config.AlertConfig, zl *zap.Logger) (port.AlertSender, error) {
	switch cfg.Provider {
	case "", "noop":
		return noop.NewNoopSender(zl), nil
	case "ses":
		sender, err := ses.NewSESSender(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SES alerts: %w", err)
		}
		return sender, nil
	default:
		return nil, fmt.Errorf("unknown alert provider %q", cfg.Provider)
	}
}
