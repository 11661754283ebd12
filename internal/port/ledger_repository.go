package port

import (
	"context"

	"invscreen/internal/domain"
)

// LedgerRepository is the append-only store of clean invoices, one ledger per name.
type LedgerRepository interface {
	// LoadLedger reads the full ledger. A ledger that does not exist yet is
	// returned empty, not as an error. Rows that cannot be decoded are reported
	// in Ledger.Skipped.
	LoadLedger(ctx context.Context, name string) (*domain.Ledger, error)
	AppendClean(ctx context.Context, name string, record *domain.InvoiceRecord) error
	ListLedgers(ctx context.Context) ([]string, error)
}
