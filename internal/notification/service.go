package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// Service fans notifications out to the configured provider
type Service struct {
	provider Provider
	logger   *slog.Logger
}

// NewService creates a notification service
func NewService(provider Provider, logger *slog.Logger) *Service {
	return &Service{provider: provider, logger: logger}
}

// NotifyOrderStatus tells a customer their order changed status. Errors are
// logged, not returned.
func (s *Service) NotifyOrderStatus(ctx context.Context, recipientID, orderID types.ID, status string) {
	n := &Notification{
		ID:          types.NewID(),
		RecipientID: recipientID,
		Channel:     ChannelLog,
		Subject:     "Order update",
		Body:        fmt.Sprintf("Your order %s is now %s", orderID, status),
		Data: map[string]any{
			"order_id": orderID.String(),
			"status":   status,
		},
		CreatedAt: time.Now(),
	}

	if err := s.provider.Send(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "notification send failed",
			"recipient_id", recipientID,
			"order_id", orderID,
			"error", err,
		)
	}
}
