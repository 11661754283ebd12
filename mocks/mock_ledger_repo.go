package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invscreen/internal/domain"
)

// MockLedgerRepository is a mock implementation of port.LedgerRepository.
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) LoadLedger(ctx context.Context, name string) (*domain.Ledger, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ledger), args.Error(1)
}

func (m *MockLedgerRepository) AppendClean(ctx context.Context, name string, rec *domain.InvoiceRecord) error {
	args := m.Called(ctx, name, rec)
	return args.Error(0)
}

func (m *MockLedgerRepository) ListLedgers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
