// Package noop provides an AlertSender that only logs.
package noop

import (
	"context"

	"go.uber.org/zap"

	"invscreen/internal/domain"
	"invscreen/internal/port"
)

type noopSender struct {
	log *zap.Logger
}

// NewNoopSender creates an AlertSender that writes alerts to the log instead of sending them.
func NewNoopSender(log *zap.Logger) port.AlertSender {
	return &noopSender{log: log.Named("alert")}
}

func (s *noopSender) SendFlagAlert(_ context.Context, alert *domain.FlagAlert) error {
	s.log.Info("flag alert (noop)",
		zap.String("screening_id", alert.ScreeningID.String()),
		zap.String("ledger", alert.Ledger),
		zap.String("invoice_number", alert.InvoiceNumber),
		zap.String("flag", string(alert.Flag)),
		zap.Strings("reasons", alert.Reasons),
	)
	return nil
}
