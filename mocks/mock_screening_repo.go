package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"invscreen/internal/domain"
)

// MockScreeningRepository is a mock implementation of port.ScreeningRepository.
type MockScreeningRepository struct {
	mock.Mock
}

func (m *MockScreeningRepository) Create(ctx context.Context, s *domain.Screening) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockScreeningRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Screening, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Screening), args.Error(1)
}

func (m *MockScreeningRepository) ListByLedger(ctx context.Context, ledger string, offset, limit int) ([]domain.Screening, int, error) {
	args := m.Called(ctx, ledger, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Screening), args.Int(1), args.Error(2)
}
