package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invscreen/internal/port"
)

// MockHSNRepository is a mock implementation of port.HSNRepository.
type MockHSNRepository struct {
	mock.Mock
}

func (m *MockHSNRepository) LoadAll(ctx context.Context) ([]port.HSNEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.HSNEntry), args.Error(1)
}

func (m *MockHSNRepository) Upsert(ctx context.Context, entries []port.HSNEntry) (int, error) {
	args := m.Called(ctx, entries)
	return args.Int(0), args.Error(1)
}
