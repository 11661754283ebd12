package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invscreen/internal/domain"
)

// MockAlertSender is a mock implementation of port.AlertSender.
type MockAlertSender struct {
	mock.Mock
}

func (m *MockAlertSender) SendFlagAlert(ctx context.Context, alert *domain.FlagAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}
