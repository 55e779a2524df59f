package notification

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/krishbavarva/freshcart/internal/shared/types"
)

type captureProvider struct {
	sent []*Notification
	err  error
}

func (p *captureProvider) Send(ctx context.Context, n *Notification) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, n)
	return nil
}

func TestNotifyOrderStatus(t *testing.T) {
	provider := &captureProvider{}
	svc := NewService(provider, slog.New(slog.NewTextHandler(io.Discard, nil)))

	recipient := types.NewID()
	orderID := types.NewID()
	svc.NotifyOrderStatus(context.Background(), recipient, orderID, "paid")

	if len(provider.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(provider.sent))
	}

	n := provider.sent[0]
	if n.RecipientID != recipient {
		t.Errorf("wrong recipient: %s", n.RecipientID)
	}
	if n.Data["status"] != "paid" {
		t.Errorf("expected status data 'paid', got %v", n.Data["status"])
	}
}

func TestNotifyOrderStatusSwallowsSendFailure(t *testing.T) {
	provider := &captureProvider{err: context.DeadlineExceeded}
	svc := NewService(provider, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Must not panic or propagate; notifications are best effort.
	svc.NotifyOrderStatus(context.Background(), types.NewID(), types.NewID(), "delivering")
}
