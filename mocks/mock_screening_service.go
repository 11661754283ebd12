package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"invscreen/internal/domain"
	"invscreen/internal/service"
)

// MockScreeningService is a mock implementation of service.ScreeningService.
type MockScreeningService struct {
	mock.Mock
}

func (m *MockScreeningService) Screen(ctx context.Context, ledger string, inv *domain.InvoiceRecord) (*service.ScreeningResult, error) {
	args := m.Called(ctx, ledger, inv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ScreeningResult), args.Error(1)
}

func (m *MockScreeningService) Submit(ctx context.Context, ledger string, inv *domain.InvoiceRecord) (*service.ScreeningResult, error) {
	args := m.Called(ctx, ledger, inv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ScreeningResult), args.Error(1)
}

func (m *MockScreeningService) ScreenBatch(ctx context.Context, ledger string, invoices []domain.InvoiceRecord) ([]service.ScreeningResult, error) {
	args := m.Called(ctx, ledger, invoices)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.ScreeningResult), args.Error(1)
}

func (m *MockScreeningService) Get(ctx context.Context, id uuid.UUID) (*domain.Screening, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Screening), args.Error(1)
}

func (m *MockScreeningService) List(ctx context.Context, ledger string, offset, limit int) ([]domain.Screening, int, error) {
	args := m.Called(ctx, ledger, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Screening), args.Int(1), args.Error(2)
}
