package csvledger_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invscreen/internal/domain"
	"invscreen/internal/repository/csvledger"
)

const legacyFile = `invoiceNumber,date,vendorName,gstNumber,irn,lineItems,sgstAmount,cgstAmount,igstAmount,utgstAmount,cessAmount,freightAndDelivery,totalDiscount,totalAmountStr,totalAmountFloat
INV-1,10-01-2025,Acme Supplies,27AAPFU0939F1ZV,,"[{""description"": ""Widget"", ""hsnSac"": 8471, ""quantity"": ""2"", ""unitPrice"": ""100.00"", ""Discount"": 0, ""GST"": ""36""}]",18,18,0,0,0,0,0,"₹ 236.00",236
INV-2,11-01-2025,Acme Supplies,27AAPFU0939F1ZV,,"[{'description': 'Widget'}]",0,0,0,0,0,0,0,100,100
INV-3,12-01-2025,Acme Supplies,27AAPFU0939F1ZV,,,0,0,0,0,0,0,0,"1,250.50",
INV-4,13-01-2025,short row
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadLedger_LegacyFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.csv", legacyFile)

	l, err := csvledger.New(dir).LoadLedger(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, "main", l.Name)

	require.Len(t, l.Entries, 2)
	first := l.Entries[0]
	assert.Equal(t, int64(0), first.Index)
	assert.Equal(t, "INV-1", first.Invoice.InvoiceNumber.String())
	assert.Equal(t, domain.Amount(236), first.Invoice.TotalAmount)
	require.Len(t, first.Invoice.LineItems, 1)
	li := first.Invoice.LineItems[0]
	assert.Equal(t, "8471", li.HSNSAC.String())
	assert.Equal(t, domain.Amount(2), li.Quantity)
	assert.Equal(t, domain.Amount(100), li.UnitPrice)
	assert.Equal(t, domain.Amount(36), li.Tax)

	third := l.Entries[1]
	assert.Equal(t, int64(2), third.Index)
	assert.Empty(t, third.Invoice.LineItems)
	assert.Equal(t, domain.Amount(1250.50), third.Invoice.TotalAmount)

	require.Len(t, l.Skipped, 2)
	assert.Equal(t, int64(1), l.Skipped[0].Index)
	assert.Contains(t, l.Skipped[0].Reason, "lineItems")
	assert.Equal(t, int64(3), l.Skipped[1].Index)
	assert.Contains(t, l.Skipped[1].Reason, "columns")
}

func TestLoadLedger_MissingAndHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	repo := csvledger.New(dir)

	l, err := repo.LoadLedger(context.Background(), "absent")
	require.NoError(t, err)
	assert.Empty(t, l.Entries)
	assert.NotNil(t, l.Entries)

	writeFile(t, dir, "header.csv", strings.Join(csvledger.Header, ",")+"\n")
	l, err = repo.LoadLedger(context.Background(), "header")
	require.NoError(t, err)
	assert.Empty(t, l.Entries)
	assert.Empty(t, l.Skipped)

	writeFile(t, dir, "blank.csv", "")
	l, err = repo.LoadLedger(context.Background(), "blank")
	require.NoError(t, err)
	assert.Empty(t, l.Entries)
}

func TestLoadLedger_InvalidName(t *testing.T) {
	_, err := csvledger.New(t.TempDir()).LoadLedger(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrInvalidLedgerName)
}

func TestAppendClean_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	repo := csvledger.New(dir)
	ctx := context.Background()

	rec := &domain.InvoiceRecord{
		InvoiceNumber: "INV-9",
		Date:          "2025-02-01",
		VendorName:    "Acme, Supplies",
		GSTIN:         "27AAPFU0939F1ZV",
		LineItems: domain.LineItems{
			{Description: `Widget "XL"`, HSNSAC: "8471", Quantity: 1, UnitPrice: 120, Discount: 5, Tax: 20.7},
		},
		CGST:        10.35,
		SGST:        10.35,
		TotalAmount: 135.7,
	}
	require.NoError(t, repo.AppendClean(ctx, "q1", rec))
	require.NoError(t, repo.AppendClean(ctx, "q1", rec))

	raw, err := os.ReadFile(repo.Path("q1"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), "invoiceNumber,"))

	l, err := repo.LoadLedger(ctx, "q1")
	require.NoError(t, err)
	require.Len(t, l.Entries, 2)
	assert.Empty(t, l.Skipped)
	got := l.Entries[1].Invoice
	assert.Equal(t, int64(1), l.Entries[1].Index)
	assert.Equal(t, "Acme, Supplies", got.VendorName.String())
	assert.Equal(t, domain.Amount(135.7), got.TotalAmount)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, `Widget "XL"`, got.LineItems[0].Description.String())
	assert.Equal(t, domain.Amount(5), got.LineItems[0].Discount)
	assert.Equal(t, domain.Amount(20.7), got.LineItems[0].Tax)
}

func TestAppendClean_Concurrent(t *testing.T) {
	repo := csvledger.New(t.TempDir())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := &domain.InvoiceRecord{InvoiceNumber: "INV", TotalAmount: 10}
			assert.NoError(t, repo.AppendClean(ctx, "busy", rec))
		}()
	}
	wg.Wait()

	l, err := repo.LoadLedger(ctx, "busy")
	require.NoError(t, err)
	assert.Len(t, l.Entries, 20)
}

func TestListLedgers(t *testing.T) {
	dir := t.TempDir()
	repo := csvledger.New(dir)

	names, err := csvledger.New(filepath.Join(dir, "missing")).ListLedgers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)

	writeFile(t, dir, "zeta.csv", "")
	writeFile(t, dir, "alpha.csv", "")
	writeFile(t, dir, "Not Valid.csv", "")
	writeFile(t, dir, "notes.txt", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))

	names, err = repo.ListLedgers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}
