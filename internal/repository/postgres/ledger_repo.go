package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"invscreen/internal/domain"
	"invscreen/internal/port"
	"invscreen/internal/screening"
)

// ledgerRow is one row of ledger_invoices.
type ledgerRow struct {
	Seq           int64           `db:"seq"`
	Ledger        string          `db:"ledger"`
	InvoiceNumber string          `db:"invoice_number"`
	InvoiceDate   string          `db:"invoice_date"`
	VendorName    string          `db:"vendor_name"`
	GSTIN         string          `db:"gstin"`
	IRN           string          `db:"irn"`
	LineItems     json.RawMessage `db:"line_items"`
	SGST          decimal.Decimal `db:"sgst_amount"`
	CGST          decimal.Decimal `db:"cgst_amount"`
	IGST          decimal.Decimal `db:"igst_amount"`
	UTGST         decimal.Decimal `db:"utgst_amount"`
	Cess          decimal.Decimal `db:"cess_amount"`
	Freight       decimal.Decimal `db:"freight"`
	TotalDiscount decimal.Decimal `db:"total_discount"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
}

type ledgerRepo struct {
	db *sqlx.DB
}

// NewLedgerRepo creates a new PostgreSQL-backed LedgerRepository.
func NewLedgerRepo(db *sqlx.DB) port.LedgerRepository {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) LoadLedger(ctx context.Context, name string) (*domain.Ledger, error) {
	if err := domain.ValidateLedgerName(name); err != nil {
		return nil, err
	}
	var rows []ledgerRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT seq, ledger, invoice_number, invoice_date, vendor_name, gstin, irn, line_items,
			sgst_amount, cgst_amount, igst_amount, utgst_amount, cess_amount,
			freight, total_discount, total_amount
		 FROM ledger_invoices
		 WHERE ledger = $1
		 ORDER BY seq`, name)
	if err != nil {
		return nil, fmt.Errorf("ledgerRepo.LoadLedger: %w: %w", domain.ErrLedgerUnavailable, err)
	}

	ledger := &domain.Ledger{
		Name:    name,
		Entries: make([]domain.LedgerEntry, 0, len(rows)),
		Skipped: []domain.SkipReason{},
	}
	for i := range rows {
		rec, skip := rows[i].toRecord()
		if skip != nil {
			ledger.Skipped = append(ledger.Skipped, *skip)
			continue
		}
		ledger.Entries = append(ledger.Entries, domain.LedgerEntry{Index: rows[i].Seq, Invoice: rec})
	}
	return ledger, nil
}

func (r *ledgerRepo) AppendClean(ctx context.Context, name string, rec *domain.InvoiceRecord) error {
	if err := domain.ValidateLedgerName(name); err != nil {
		return err
	}
	row, err := fromRecord(name, rec)
	if err != nil {
		return fmt.Errorf("ledgerRepo.AppendClean: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO ledger_invoices (
			ledger, invoice_number, invoice_date, vendor_name, gstin, irn, line_items,
			sgst_amount, cgst_amount, igst_amount, utgst_amount, cess_amount,
			freight, total_discount, total_amount, fingerprint
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16
		)`,
		row.Ledger, row.InvoiceNumber, row.InvoiceDate, row.VendorName, row.GSTIN, row.IRN, row.LineItems,
		row.SGST, row.CGST, row.IGST, row.UTGST, row.Cess,
		row.Freight, row.TotalDiscount, row.TotalAmount, screening.Fingerprint(rec))
	if err != nil {
		return fmt.Errorf("ledgerRepo.AppendClean: %w", err)
	}
	return nil
}

func (r *ledgerRepo) ListLedgers(ctx context.Context) ([]string, error) {
	names := []string{}
	if err := r.db.SelectContext(ctx, &names,
		`SELECT DISTINCT ledger FROM ledger_invoices ORDER BY ledger`); err != nil {
		return nil, fmt.Errorf("ledgerRepo.ListLedgers: %w", err)
	}
	return names, nil
}

// toRecord decodes the stored line items strictly: anything but a JSON array of
// objects skips the row.
func (row *ledgerRow) toRecord() (domain.InvoiceRecord, *domain.SkipReason) {
	var items []domain.LineItem
	if len(row.LineItems) > 0 {
		if err := json.Unmarshal(row.LineItems, &items); err != nil {
			return domain.InvoiceRecord{}, &domain.SkipReason{
				Index:  row.Seq,
				Reason: fmt.Sprintf("line items: %v", err),
			}
		}
	}
	if items == nil {
		items = []domain.LineItem{}
	}
	return domain.InvoiceRecord{
		InvoiceNumber: domain.Text(row.InvoiceNumber),
		Date:          domain.Text(row.InvoiceDate),
		VendorName:    domain.Text(row.VendorName),
		GSTIN:         domain.Text(row.GSTIN),
		IRN:           row.IRN,
		LineItems:     domain.LineItems(items),
		SGST:          amount(row.SGST),
		CGST:          amount(row.CGST),
		IGST:          amount(row.IGST),
		UTGST:         amount(row.UTGST),
		Cess:          amount(row.Cess),
		Freight:       amount(row.Freight),
		TotalDiscount: amount(row.TotalDiscount),
		TotalAmount:   amount(row.TotalAmount),
	}, nil
}

func fromRecord(ledger string, rec *domain.InvoiceRecord) (*ledgerRow, error) {
	items := []domain.LineItem(rec.LineItems)
	if items == nil {
		items = []domain.LineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encoding line items: %w", err)
	}
	return &ledgerRow{
		Ledger:        ledger,
		InvoiceNumber: rec.InvoiceNumber.String(),
		InvoiceDate:   rec.Date.String(),
		VendorName:    rec.VendorName.String(),
		GSTIN:         rec.GSTIN.String(),
		IRN:           rec.IRN,
		LineItems:     raw,
		SGST:          money(rec.SGST),
		CGST:          money(rec.CGST),
		IGST:          money(rec.IGST),
		UTGST:         money(rec.UTGST),
		Cess:          money(rec.Cess),
		Freight:       money(rec.Freight),
		TotalDiscount: money(rec.TotalDiscount),
		TotalAmount:   money(rec.TotalAmount),
	}, nil
}

func money(a domain.Amount) decimal.Decimal {
	return decimal.NewFromFloat(float64(a)).Round(2)
}

func amount(d decimal.Decimal) domain.Amount {
	return domain.Amount(d.InexactFloat64())
}
