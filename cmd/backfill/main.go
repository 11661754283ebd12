// Command backfill imports legacy CSV ledger files into the PostgreSQL ledger.
// Rows that cannot be decoded are reported and left out.
//
// Usage: go run ./cmd/backfill -ledger main -file exports/main.csv [-dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"invscreen/internal/config"
	"invscreen/internal/domain"
	"invscreen/internal/logger"
	"invscreen/internal/port"
	"invscreen/internal/repository/csvledger"
	"invscreen/internal/repository/postgres"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	name := flag.String("ledger", "", "target ledger name")
	path := flag.String("file", "", "legacy CSV ledger file")
	dryRun := flag.Bool("dry-run", false, "parse and report without writing")
	flag.Parse()
	if *name == "" || *path == "" {
		flag.Usage()
		return fmt.Errorf("-ledger and -file are required")
	}
	if err := domain.ValidateLedgerName(*name); err != nil {
		return fmt.Errorf("%w: %q", err, *name)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	zl, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	zl = zl.Named("backfill").With(zap.String("ledger", *name), zap.String("file", *path))

	f, err := os.Open(*path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", *path, err)
	}
	defer func() { _ = f.Close() }()

	legacy, err := csvledger.Read(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *path, err)
	}
	for _, s := range legacy.Skipped {
		zl.Warn("skipping row", zap.Int64("row", s.Index), zap.String("reason", s.Reason))
	}
	if *dryRun {
		zl.Info("dry run complete", zap.Int("importable", len(legacy.Entries)), zap.Int("skipped", len(legacy.Skipped)))
		return nil
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, &cfg.DB)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	imported, err := importEntries(ctx, postgres.NewLedgerRepo(db), *name, legacy.Entries, zl)
	if err != nil {
		return err
	}
	zl.Info("backfill complete", zap.Int("imported", imported), zap.Int("skipped", len(legacy.Skipped)))
	return nil
}

// importEntries appends entries in file order and stops at the first failure,
// so a rerun after fixing the cause must start from a clean ledger.
func importEntries(ctx context.Context, repo port.LedgerRepository, name string, entries []domain.LedgerEntry, zl *zap.Logger) (int, error) {
	for i := range entries {
		if err := repo.AppendClean(ctx, name, &entries[i].Invoice); err != nil {
			return i, fmt.Errorf("importing row %d: %w", entries[i].Index, err)
		}
		if (i+1)%100 == 0 {
			zl.Info("progress", zap.Int("imported", i+1))
		}
	}
	return len(entries), nil
}
