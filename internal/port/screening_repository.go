package port

import (
	"context"

	"github.com/google/uuid"

	"invscreen/internal/domain"
)

// ScreeningRepository persists the audit trail of screening calls.
type ScreeningRepository interface {
	Create(ctx context.Context, s *domain.Screening) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Screening, error)
	ListByLedger(ctx context.Context, ledger string, offset, limit int) ([]domain.Screening, int, error)
}
