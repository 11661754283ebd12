package port

import (
	"context"

	"invscreen/internal/domain"
)

// AlertSender notifies reviewers about invoices that did not screen clean.
type AlertSender interface {
	SendFlagAlert(ctx context.Context, alert *domain.FlagAlert) error
}
