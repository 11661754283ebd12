// Package export renders ledgers as CSV or XLSX downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"invscreen/internal/domain"
)

// BOM is the UTF-8 byte order mark Excel on Windows needs to detect UTF-8 CSV.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns is the ledger export header row.
var columns = []string{
	"Index",
	"Invoice Number",
	"Invoice Date",
	"Vendor Name",
	"GSTIN",
	"IRN",
	"Line Item Count",
	"HSN Codes",
	"SGST",
	"CGST",
	"IGST",
	"UTGST",
	"Cess",
	"Freight",
	"Total Discount",
	"Total Amount",
}

// Columns returns a copy of the export header.
func Columns() []string {
	return append([]string(nil), columns...)
}

// CSVWriter writes ledger entries as CSV rows.
type CSVWriter struct {
	csv *csv.Writer
}

// NewCSVWriter creates a CSVWriter that writes to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *CSVWriter) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteEntries writes one row per ledger entry.
func (w *CSVWriter) WriteEntries(entries []domain.LedgerEntry) error {
	for i := range entries {
		if err := w.csv.Write(entryToRow(&entries[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *CSVWriter) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *CSVWriter) Error() error {
	return w.csv.Error()
}

// WriteCSV writes a complete CSV export of the ledger, BOM first.
func WriteCSV(out io.Writer, ledger *domain.Ledger) error {
	if _, err := out.Write(BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}
	w := NewCSVWriter(out)
	if err := w.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := w.WriteEntries(ledger.Entries); err != nil {
		return fmt.Errorf("writing entries: %w", err)
	}
	w.Flush()
	return w.Error()
}

func entryToRow(e *domain.LedgerEntry) []string {
	inv := &e.Invoice
	return []string{
		strconv.FormatInt(e.Index, 10),
		inv.InvoiceNumber.String(),
		inv.Date.String(),
		inv.VendorName.String(),
		inv.GSTIN.String(),
		inv.IRN,
		strconv.Itoa(len(inv.LineItems)),
		hsnList(inv),
		inv.SGST.String(),
		inv.CGST.String(),
		inv.IGST.String(),
		inv.UTGST.String(),
		inv.Cess.String(),
		inv.Freight.String(),
		inv.TotalDiscount.String(),
		inv.TotalAmount.String(),
	}
}

func hsnList(inv *domain.InvoiceRecord) string {
	codes := make([]string, 0, len(inv.LineItems))
	for code := range inv.HSNCodes() {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return strings.Join(codes, ";")
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename makes name safe for a Content-Disposition header.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "ledger"
	}
	return s
}

// BuildFilename returns "{ledger}_{YYYY-MM-DD}.{ext}" for the given format.
func BuildFilename(ledger string, format domain.ExportFormat, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(ledger), now.Format("2006-01-02"), format)
}
