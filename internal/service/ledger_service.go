package service

import (
	"context"
	"fmt"
	"io"

	"invscreen/internal/domain"
	"invscreen/internal/export"
	"invscreen/internal/port"
)

// LedgerService exposes read access to ledgers.
type LedgerService interface {
	List(ctx context.Context) ([]string, error)
	Entries(ctx context.Context, name string) (*domain.Ledger, error)
	Export(ctx context.Context, name string, format domain.ExportFormat, w io.Writer) error
}

type ledgerService struct {
	ledgers port.LedgerRepository
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(ledgers port.LedgerRepository) LedgerService {
	return &ledgerService{ledgers: ledgers}
}

func (s *ledgerService) List(ctx context.Context) ([]string, error) {
	return s.ledgers.ListLedgers(ctx)
}

func (s *ledgerService) Entries(ctx context.Context, name string) (*domain.Ledger, error) {
	return s.ledgers.LoadLedger(ctx, name)
}

// Export writes the ledger in the requested format. The format is checked
// before the ledger is loaded so nothing is written for a bad request.
func (s *ledgerService) Export(ctx context.Context, name string, format domain.ExportFormat, w io.Writer) error {
	if _, ok := domain.ContentTypes[format]; !ok {
		return domain.ErrUnsupportedExportFormat
	}
	ledger, err := s.ledgers.LoadLedger(ctx, name)
	if err != nil {
		return fmt.Errorf("ledgerService.Export: %w", err)
	}
	if err := export.Write(w, ledger, format); err != nil {
		return fmt.Errorf("ledgerService.Export: %w", err)
	}
	return nil
}
