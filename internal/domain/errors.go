package domain

import "errors"

var (
	ErrNotFound                = errors.New("resource not found")
	ErrLedgerUnavailable       = errors.New("ledger unavailable")
	ErrInvalidInvoice          = errors.New("invalid invoice payload")
	ErrInvalidLedgerName       = errors.New("invalid ledger name")
	ErrUnsupportedExportFormat = errors.New("unsupported export format")
	ErrBatchTooLarge           = errors.New("batch exceeds maximum size")
	ErrEmptyBatch              = errors.New("batch contains no invoices")
)
