package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"invscreen/internal/domain"
)

// MockLedgerService is a mock implementation of service.LedgerService.
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLedgerService) Entries(ctx context.Context, name string) (*domain.Ledger, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ledger), args.Error(1)
}

func (m *MockLedgerService) Export(ctx context.Context, name string, format domain.ExportFormat, w io.Writer) error {
	args := m.Called(ctx, name, format, w)
	return args.Error(0)
}
