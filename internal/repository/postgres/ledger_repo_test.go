package postgres

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invscreen/internal/domain"
	"invscreen/internal/port"
)

func TestLedgerRow_RoundTrip(t *testing.T) {
	rec := &domain.InvoiceRecord{
		InvoiceNumber: "INV-1",
		Date:          "2025-01-10",
		VendorName:    "Acme Supplies",
		GSTIN:         "27AAPFU0939F1ZV",
		LineItems: domain.LineItems{
			{Description: "Widget", HSNSAC: "8471", Quantity: 2, UnitPrice: 100.005, Tax: 36},
		},
		CGST:        18,
		SGST:        18,
		TotalAmount: 236.004,
	}

	row, err := fromRecord("main", rec)
	require.NoError(t, err)
	assert.Equal(t, "main", row.Ledger)
	assert.True(t, decimal.RequireFromString("236").Equal(row.TotalAmount))
	row.Seq = 42

	got, skip := row.toRecord()
	require.Nil(t, skip)
	assert.Equal(t, domain.Amount(236), got.TotalAmount)
	assert.Equal(t, domain.Amount(18), got.CGST)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, "8471", got.LineItems[0].HSNSAC.String())
	assert.Equal(t, domain.Amount(100.005), got.LineItems[0].UnitPrice)
}

func TestLedgerRow_EmptyLineItems(t *testing.T) {
	row, err := fromRecord("main", &domain.InvoiceRecord{InvoiceNumber: "X"})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(row.LineItems))

	got, skip := row.toRecord()
	require.Nil(t, skip)
	assert.NotNil(t, got.LineItems)
	assert.Empty(t, got.LineItems)
}

func TestLedgerRow_MalformedLineItemsAreSkipped(t *testing.T) {
	for name, raw := range map[string]string{
		"not an array":       `{"description":"Widget"}`,
		"non-object element": `[1, 2]`,
		"serialized string":  `"[{\"description\":\"Widget\"}]"`,
	} {
		t.Run(name, func(t *testing.T) {
			row := &ledgerRow{Seq: 7, LineItems: json.RawMessage(raw)}
			_, skip := row.toRecord()
			require.NotNil(t, skip)
			assert.Equal(t, int64(7), skip.Index)
			assert.Contains(t, skip.Reason, "line items")
		})
	}
}

func TestDedupeHSN(t *testing.T) {
	in := []port.HSNEntry{
		{Code: "8471", GSTRate: 18, Description: "old"},
		{Code: "8471", GSTRate: 12, ConditionDesc: "used"},
		{Code: "8471", GSTRate: 18, Description: "new"},
	}
	out := dedupeHSN(in)
	require.Len(t, out, 2)
	assert.Equal(t, "new", out[0].Description)
	assert.Equal(t, 12.0, out[1].GSTRate)
}
