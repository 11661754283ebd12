// Package csvledger stores ledgers as flat CSV files, one file per ledger, in
// the column layout of the legacy spreadsheet workflow.
package csvledger

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"invscreen/internal/domain"
	"invscreen/internal/port"
)

// Header is the legacy column layout.
var Header = []string{
	"invoiceNumber", "date", "vendorName", "gstNumber", "irn", "lineItems",
	"sgstAmount", "cgstAmount", "igstAmount", "utgstAmount", "cessAmount",
	"freightAndDelivery", "totalDiscount", "totalAmountStr", "totalAmountFloat",
}

// legacyLineItem is the line-item shape stored in the lineItems column. Older
// files use "Discount" and "GST" for the per-item discount and tax.
type legacyLineItem struct {
	Description  domain.Text   `json:"description"`
	HSNSAC       domain.Text   `json:"hsnSac"`
	Quantity     domain.Amount `json:"quantity"`
	UnitPrice    domain.Amount `json:"unitPrice"`
	ItemDiscount domain.Amount `json:"itemDiscount"`
	ItemTax      domain.Amount `json:"itemTax"`
	Discount     domain.Amount `json:"Discount,omitempty"`
	GST          domain.Amount `json:"GST,omitempty"`
}

func (li *legacyLineItem) toDomain() domain.LineItem {
	out := domain.LineItem{
		Description: li.Description,
		HSNSAC:      li.HSNSAC,
		Quantity:    li.Quantity,
		UnitPrice:   li.UnitPrice,
		Discount:    li.ItemDiscount,
		Tax:         li.ItemTax,
	}
	if out.Discount == 0 {
		out.Discount = li.Discount
	}
	if out.Tax == 0 {
		out.Tax = li.GST
	}
	return out
}

// Repo is a file-backed LedgerRepository.
type Repo struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// New creates a CSV ledger store rooted at dir. The directory is created on first append.
func New(dir string) *Repo {
	return &Repo{dir: dir, locks: make(map[string]*sync.RWMutex)}
}

var _ port.LedgerRepository = (*Repo)(nil)

func (r *Repo) lock(name string) *sync.RWMutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[name]
	if !ok {
		l = &sync.RWMutex{}
		r.locks[name] = l
	}
	return l
}

// Path returns the file backing the named ledger.
func (r *Repo) Path(name string) string {
	return filepath.Join(r.dir, name+".csv")
}

func (r *Repo) LoadLedger(ctx context.Context, name string) (*domain.Ledger, error) {
	if err := domain.ValidateLedgerName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := r.lock(name)
	l.RLock()
	defer l.RUnlock()

	f, err := os.Open(r.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &domain.Ledger{Name: name, Entries: []domain.LedgerEntry{}, Skipped: []domain.SkipReason{}}, nil
		}
		return nil, fmt.Errorf("csvledger.LoadLedger: %w: %w", domain.ErrLedgerUnavailable, err)
	}
	defer func() { _ = f.Close() }()

	ledger, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("csvledger.LoadLedger %s: %w: %w", name, domain.ErrLedgerUnavailable, err)
	}
	ledger.Name = name
	return ledger, nil
}

// Read parses a legacy CSV ledger. Rows that cannot be decoded are reported as
// skipped; only an unreadable stream is an error.
func Read(rd io.Reader) (*domain.Ledger, error) {
	ledger := &domain.Ledger{Entries: []domain.LedgerEntry{}, Skipped: []domain.SkipReason{}}

	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ledger, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	var idx int64
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				ledger.Skipped = append(ledger.Skipped, domain.SkipReason{Index: idx, Reason: perr.Error()})
				idx++
				continue
			}
			return nil, fmt.Errorf("reading row %d: %w", idx, err)
		}
		inv, skip := parseRow(cols, rec, idx)
		if skip != nil {
			ledger.Skipped = append(ledger.Skipped, *skip)
		} else {
			ledger.Entries = append(ledger.Entries, domain.LedgerEntry{Index: idx, Invoice: inv})
		}
		idx++
	}
	return ledger, nil
}

// parseRow turns one CSV record into an invoice, or explains why it cannot.
func parseRow(cols map[string]int, rec []string, idx int64) (domain.InvoiceRecord, *domain.SkipReason) {
	if len(rec) != len(cols) {
		return domain.InvoiceRecord{}, &domain.SkipReason{
			Index:  idx,
			Reason: fmt.Sprintf("expected %d columns, got %d", len(cols), len(rec)),
		}
	}
	get := func(col string) string {
		if i, ok := cols[col]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	items, err := decodeLineItems(get("lineItems"))
	if err != nil {
		return domain.InvoiceRecord{}, &domain.SkipReason{Index: idx, Reason: fmt.Sprintf("lineItems: %v", err)}
	}

	total := domain.ParseAmount(get("totalAmountFloat"))
	if total == 0 {
		total = domain.ParseAmount(get("totalAmountStr"))
	}

	return domain.InvoiceRecord{
		InvoiceNumber: domain.Text(get("invoiceNumber")),
		Date:          domain.Text(get("date")),
		VendorName:    domain.Text(get("vendorName")),
		GSTIN:         domain.Text(get("gstNumber")),
		IRN:           get("irn"),
		LineItems:     items,
		SGST:          domain.ParseAmount(get("sgstAmount")),
		CGST:          domain.ParseAmount(get("cgstAmount")),
		IGST:          domain.ParseAmount(get("igstAmount")),
		UTGST:         domain.ParseAmount(get("utgstAmount")),
		Cess:          domain.ParseAmount(get("cessAmount")),
		Freight:       domain.ParseAmount(get("freightAndDelivery")),
		TotalDiscount: domain.ParseAmount(get("totalDiscount")),
		TotalAmount:   total,
	}, nil
}

// decodeLineItems reads the lineItems cell as a JSON array of objects. The cell
// is data, never code: anything else is rejected.
func decodeLineItems(cell string) (domain.LineItems, error) {
	if cell == "" {
		return domain.LineItems{}, nil
	}
	var legacy []legacyLineItem
	if err := json.Unmarshal([]byte(cell), &legacy); err != nil {
		return nil, err
	}
	items := make(domain.LineItems, 0, len(legacy))
	for i := range legacy {
		items = append(items, legacy[i].toDomain())
	}
	return items, nil
}

func (r *Repo) AppendClean(ctx context.Context, name string, rec *domain.InvoiceRecord) error {
	if err := domain.ValidateLedgerName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	row, err := formatRow(rec)
	if err != nil {
		return fmt.Errorf("csvledger.AppendClean: %w", err)
	}

	l := r.lock(name)
	l.Lock()
	defer l.Unlock()

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("csvledger.AppendClean: %w", err)
	}
	f, err := os.OpenFile(r.Path(name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("csvledger.AppendClean: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("csvledger.AppendClean: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("csvledger.AppendClean header: %w", err)
		}
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("csvledger.AppendClean: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csvledger.AppendClean flush: %w", err)
	}
	return nil
}

func formatRow(rec *domain.InvoiceRecord) ([]string, error) {
	legacy := make([]legacyLineItem, 0, len(rec.LineItems))
	for i := range rec.LineItems {
		li := &rec.LineItems[i]
		legacy = append(legacy, legacyLineItem{
			Description:  li.Description,
			HSNSAC:       li.HSNSAC,
			Quantity:     li.Quantity,
			UnitPrice:    li.UnitPrice,
			ItemDiscount: li.Discount,
			ItemTax:      li.Tax,
		})
	}
	items, err := json.Marshal(legacy)
	if err != nil {
		return nil, fmt.Errorf("encoding line items: %w", err)
	}
	return []string{
		rec.InvoiceNumber.String(),
		rec.Date.String(),
		rec.VendorName.String(),
		rec.GSTIN.String(),
		rec.IRN,
		string(items),
		rec.SGST.String(),
		rec.CGST.String(),
		rec.IGST.String(),
		rec.UTGST.String(),
		rec.Cess.String(),
		rec.Freight.String(),
		rec.TotalDiscount.String(),
		rec.TotalAmount.String(),
		rec.TotalAmount.String(),
	}, nil
}

// ListLedgers returns the names of the ledger files in the directory.
func (r *Repo) ListLedgers(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("csvledger.ListLedgers: %w", err)
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".csv")
		if domain.ValidateLedgerName(name) == nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
