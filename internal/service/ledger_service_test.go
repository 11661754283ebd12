package service_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invscreen/internal/domain"
	"invscreen/internal/export"
	"invscreen/internal/service"
	"invscreen/mocks"
)

func TestLedgerService_List(t *testing.T) {
	repo := new(mocks.MockLedgerRepository)
	repo.On("ListLedgers", mock.Anything).Return([]string{"main", "q1"}, nil)

	names, err := service.NewLedgerService(repo).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "q1"}, names)
	repo.AssertExpectations(t)
}

func TestLedgerService_Entries(t *testing.T) {
	repo := new(mocks.MockLedgerRepository)
	ledger := emptyLedger("main")
	ledger.Skipped = append(ledger.Skipped, domain.SkipReason{Index: 3, Reason: "lineItems: bad json"})
	repo.On("LoadLedger", mock.Anything, "main").Return(ledger, nil)

	got, err := service.NewLedgerService(repo).Entries(context.Background(), "main")
	require.NoError(t, err)
	assert.Len(t, got.Skipped, 1)
}

func TestLedgerService_ExportCSV(t *testing.T) {
	repo := new(mocks.MockLedgerRepository)
	ledger := emptyLedger("main")
	ledger.Entries = append(ledger.Entries, domain.LedgerEntry{Index: 0, Invoice: sampleInvoice("INV-1")})
	repo.On("LoadLedger", mock.Anything, "main").Return(ledger, nil)

	var buf bytes.Buffer
	err := service.NewLedgerService(repo).Export(context.Background(), "main", domain.ExportFormatCSV, &buf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), export.BOM))
	assert.Contains(t, buf.String(), "INV-1")
}

func TestLedgerService_ExportUnsupportedFormat(t *testing.T) {
	repo := new(mocks.MockLedgerRepository)

	var buf bytes.Buffer
	err := service.NewLedgerService(repo).Export(context.Background(), "main", domain.ExportFormat("pdf"), &buf)
	assert.ErrorIs(t, err, domain.ErrUnsupportedExportFormat)
	assert.Zero(t, buf.Len())
	repo.AssertNotCalled(t, "LoadLedger", mock.Anything, mock.Anything)
}

func TestLedgerService_ExportInvalidName(t *testing.T) {
	repo := new(mocks.MockLedgerRepository)
	repo.On("LoadLedger", mock.Anything, "../x").Return(nil, domain.ErrInvalidLedgerName)

	err := service.NewLedgerService(repo).Export(context.Background(), "../x", domain.ExportFormatXLSX, &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrInvalidLedgerName)
}
