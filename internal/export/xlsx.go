package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"invscreen/internal/domain"
)

// Sheet names in the XLSX export.
const (
	SheetLedger    = "Ledger"
	SheetLineItems = "Line Items"
	SheetSkipped   = "Skipped Rows"
)

var lineItemColumns = []string{"Index", "Invoice Number", "Line", "Description", "HSN/SAC", "Quantity", "Unit Price", "Discount", "Tax"}

// WriteXLSX writes the ledger as a workbook with one sheet of invoices, one of
// line items and, when any rows were skipped, one listing them.
func WriteXLSX(out io.Writer, ledger *domain.Ledger) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetLedger); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if err := writeRow(f, SheetLedger, 1, columns); err != nil {
		return err
	}
	for i := range ledger.Entries {
		if err := writeRow(f, SheetLedger, i+2, entryCells(&ledger.Entries[i])); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetLineItems); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	if err := writeRow(f, SheetLineItems, 1, lineItemColumns); err != nil {
		return err
	}
	row := 2
	for i := range ledger.Entries {
		e := &ledger.Entries[i]
		for j := range e.Invoice.LineItems {
			li := &e.Invoice.LineItems[j]
			cells := []any{
				e.Index, e.Invoice.InvoiceNumber.String(), j + 1, li.Description.String(), li.HSNSAC.String(),
				float64(li.Quantity), float64(li.UnitPrice), float64(li.Discount), float64(li.Tax),
			}
			if err := writeRow(f, SheetLineItems, row, cells); err != nil {
				return err
			}
			row++
		}
	}

	if len(ledger.Skipped) > 0 {
		if _, err := f.NewSheet(SheetSkipped); err != nil {
			return fmt.Errorf("creating sheet: %w", err)
		}
		if err := writeRow(f, SheetSkipped, 1, []string{"Index", "Reason"}); err != nil {
			return err
		}
		for i, s := range ledger.Skipped {
			if err := writeRow(f, SheetSkipped, i+2, []any{s.Index, s.Reason}); err != nil {
				return err
			}
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// entryCells keeps amounts numeric so spreadsheet formulas work on them.
func entryCells(e *domain.LedgerEntry) []any {
	inv := &e.Invoice
	return []any{
		e.Index,
		inv.InvoiceNumber.String(),
		inv.Date.String(),
		inv.VendorName.String(),
		inv.GSTIN.String(),
		inv.IRN,
		len(inv.LineItems),
		hsnList(inv),
		float64(inv.SGST),
		float64(inv.CGST),
		float64(inv.IGST),
		float64(inv.UTGST),
		float64(inv.Cess),
		float64(inv.Freight),
		float64(inv.TotalDiscount),
		float64(inv.TotalAmount),
	}
}

func writeRow[T any](f *excelize.File, sheet string, row int, cells []T) error {
	values := make([]any, len(cells))
	for i := range cells {
		values[i] = cells[i]
	}
	if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(row), &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

// Write renders the ledger in the requested format.
func Write(out io.Writer, ledger *domain.Ledger, format domain.ExportFormat) error {
	switch format {
	case domain.ExportFormatCSV:
		return WriteCSV(out, ledger)
	case domain.ExportFormatXLSX:
		return WriteXLSX(out, ledger)
	default:
		return domain.ErrUnsupportedExportFormat
	}
}
