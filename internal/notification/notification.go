// Package notification sends order status updates to customers. Sending is
// best effort; a failed notification never fails the order operation that
// triggered it.
package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// Channel represents the delivery channel for a notification
type Channel string

const (
	ChannelPush Channel = "push"
	ChannelSMS  Channel = "sms"
	ChannelLog  Channel = "log"
)

// Notification represents a message to a user
type Notification struct {
	ID          types.ID       `json:"id"`
	RecipientID types.ID       `json:"recipient_id"`
	Channel     Channel        `json:"channel"`
	Subject     string         `json:"subject"`
	Body        string         `json:"body"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Provider sends notifications over a single channel
type Provider interface {
	Send(ctx context.Context, n *Notification) error
}

// LogProvider writes notifications to the structured log. It stands in for a
// real push or SMS gateway in environments that have none configured.
type LogProvider struct {
	logger *slog.Logger
}

// NewLogProvider creates a log-backed provider
func NewLogProvider(logger *slog.Logger) *LogProvider {
	return &LogProvider{logger: logger}
}

// Send logs the notification
func (p *LogProvider) Send(ctx context.Context, n *Notification) error {
	p.logger.InfoContext(ctx, "notification",
		"recipient_id", n.RecipientID,
		"subject", n.Subject,
		"body", n.Body,
	)
	return nil
}
