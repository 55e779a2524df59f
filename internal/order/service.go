package order

import (
	"context"
	stderrors "errors"
	"log/slog"
	"math"

	"github.com/krishbavarva/freshcart/internal/cart"
	"github.com/krishbavarva/freshcart/internal/delivery"
	"github.com/krishbavarva/freshcart/internal/payment"
	"github.com/krishbavarva/freshcart/internal/shared/auth"
	"github.com/krishbavarva/freshcart/internal/shared/config"
	"github.com/krishbavarva/freshcart/internal/shared/errors"
	"github.com/krishbavarva/freshcart/internal/shared/events"
	"github.com/krishbavarva/freshcart/internal/shared/metrics"
	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// Store persists orders
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	Update(ctx context.Context, o *Order) error
	List(ctx context.Context, filter ListOrdersFilter) ([]Order, int, error)
}

// CartReader reads and clears a customer's cart
type CartReader interface {
	GetItems(ctx context.Context, userID types.ID) ([]cart.Item, error)
	Clear(ctx context.Context, userID types.ID) error
}

// DeliveryQuoter prices a delivery for an address
type DeliveryQuoter interface {
	Quote(ctx context.Context, addressText string) (delivery.Quote, error)
}

// Notifier tells a customer about an order status change
type Notifier interface {
	NotifyOrderStatus(ctx context.Context, recipientID, orderID types.ID, status string)
}

// Service implements checkout. Totals are always computed server side from
// the cart and a fresh delivery quote; nothing priced by the client is
// trusted.
type Service struct {
	store     Store
	carts     CartReader
	quoter    DeliveryQuoter
	payments  payment.Provider
	publisher events.Publisher
	notifier  Notifier

	taxRate  float64
	currency string
	logger   *slog.Logger
}

// NewService creates the order service. publisher and notifier may be nil.
func NewService(
	store Store,
	carts CartReader,
	quoter DeliveryQuoter,
	payments payment.Provider,
	publisher events.Publisher,
	notifier Notifier,
	cfg *config.Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		carts:     carts,
		quoter:    quoter,
		payments:  payments,
		publisher: publisher,
		notifier:  notifier,
		taxRate:   cfg.Delivery.TaxRate,
		currency:  cfg.Payment.Currency,
		logger:    logger,
	}
}

// feeToCents converts a delivery fee in euros to integer cents. Tier fees
// are exact in binary floating point, so the rounding is belt and braces.
func feeToCents(fee float64) int64 {
	return int64(math.Round(fee * 100))
}

func (s *Service) taxCents(subtotalCents int64) int64 {
	return int64(math.Round(float64(subtotalCents) * s.taxRate))
}

func (s *Service) loadCart(ctx context.Context, userID types.ID) ([]cart.Item, int64, error) {
	items, err := s.carts.GetItems(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if len(items) == 0 {
		return nil, 0, errors.Unprocessable("EMPTY_CART", "cart is empty", nil)
	}
	return items, cart.Subtotal(items), nil
}

// QuoteCheckout prices the current cart plus delivery without placing an
// order.
func (s *Service) QuoteCheckout(ctx context.Context, userID types.ID, addr types.Address) (*CheckoutQuote, error) {
	_, subtotal, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	q, err := s.quoter.Quote(ctx, addr.Text())
	if err != nil {
		return nil, err
	}

	tax := s.taxCents(subtotal)
	fee := feeToCents(q.Fee)

	return &CheckoutQuote{
		SubtotalCents:    subtotal,
		TaxCents:         tax,
		DeliveryFeeCents: fee,
		TotalCents:       subtotal + tax + fee,
		DistanceKm:       q.DistanceKm,
		DurationMinutes:  q.DurationMinutes,
		UsedFallback:     q.UsedFallback,
	}, nil
}

// Create places an order: quote the delivery fresh, snapshot the cart,
// open a payment intent for the total, persist.
func (s *Service) Create(ctx context.Context, userID types.ID, addr types.Address) (*Order, error) {
	cartItems, subtotal, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	q, err := s.quoter.Quote(ctx, addr.Text())
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(cartItems))
	for _, ci := range cartItems {
		items = append(items, Item{
			ProductID:      ci.ProductID,
			ProductName:    ci.ProductName,
			UnitPriceCents: ci.PriceCents,
			Quantity:       ci.Quantity,
		})
	}

	tax := s.taxCents(subtotal)
	fee := feeToCents(q.Fee)

	o := &Order{
		ID:              types.NewID(),
		UserID:          userID,
		Status:          StatusPending,
		DeliveryAddress: addr,
		DistanceKm:      q.DistanceKm,
		DurationMinutes: q.DurationMinutes,
		UsedFallback:    q.UsedFallback,

		Items:            items,
		SubtotalCents:    subtotal,
		TaxCents:         tax,
		DeliveryFeeCents: fee,
		TotalCents:       subtotal + tax + fee,
	}

	intent, err := s.payments.CreateIntent(ctx, o.TotalCents, s.currency, o.ID.String())
	if err != nil {
		return nil, errors.Unavailable("payment provider is unreachable")
	}
	o.PaymentIntentID = intent.ID

	if err := s.store.Create(ctx, o); err != nil {
		// The order was never persisted, so release the hold.
		if cancelErr := s.payments.CancelIntent(ctx, intent.ID); cancelErr != nil {
			s.logger.ErrorContext(ctx, "failed to cancel orphaned payment intent",
				"intent_id", intent.ID, "error", cancelErr)
		}
		return nil, err
	}

	metrics.RecordOrderCreated()
	s.publish(ctx, "order.created", o, userID)

	return o, nil
}

// Confirm completes payment for a pending order. The distance and fee are
// recomputed and the fresh computation is authoritative: if it disagrees
// with the stored snapshot the order is repriced before the charge.
func (s *Service) Confirm(ctx context.Context, userID, orderID types.ID) (*Order, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.UserID != userID {
		return nil, errors.NotFound("order", orderID.String())
	}
	if o.Status != StatusPending {
		return nil, errors.Conflict("order is not awaiting payment")
	}

	q, err := s.quoter.Quote(ctx, o.DeliveryAddress.Text())
	if err != nil {
		return nil, err
	}

	fee := feeToCents(q.Fee)
	if fee != o.DeliveryFeeCents {
		s.logger.WarnContext(ctx, "delivery fee changed between placement and confirmation",
			"order_id", o.ID,
			"placed_fee_cents", o.DeliveryFeeCents,
			"confirmed_fee_cents", fee,
		)
		if err := s.repriceIntent(ctx, o, q, fee); err != nil {
			return nil, err
		}
	} else {
		// Same fee, keep the snapshot fresh anyway.
		o.DistanceKm = q.DistanceKm
		o.DurationMinutes = q.DurationMinutes
		o.UsedFallback = q.UsedFallback
	}

	if err := s.payments.ConfirmIntent(ctx, o.PaymentIntentID); err != nil {
		if stderrors.Is(err, payment.ErrDeclined) {
			return nil, errors.Unprocessable("PAYMENT_DECLINED", "payment was declined", nil)
		}
		return nil, errors.Unavailable("payment provider is unreachable")
	}

	prev := o.Status
	o.Status = StatusPaid
	if err := s.store.Update(ctx, o); err != nil {
		return nil, err
	}

	metrics.RecordOrderStatusChange(string(prev), string(o.Status))
	s.publish(ctx, "order.paid", o, userID)
	s.notify(ctx, o)

	if err := s.carts.Clear(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
			"user_id", userID, "error", err)
	}

	return o, nil
}

// repriceIntent replaces the payment intent after a fee change: cancel the
// stale hold, open a new one for the recomputed total, update the snapshot.
func (s *Service) repriceIntent(ctx context.Context, o *Order, q delivery.Quote, feeCents int64) error {
	if err := s.payments.CancelIntent(ctx, o.PaymentIntentID); err != nil {
		s.logger.WarnContext(ctx, "failed to cancel stale payment intent",
			"intent_id", o.PaymentIntentID, "error", err)
	}

	o.DistanceKm = q.DistanceKm
	o.DurationMinutes = q.DurationMinutes
	o.UsedFallback = q.UsedFallback
	o.DeliveryFeeCents = feeCents
	o.TotalCents = o.SubtotalCents + o.TaxCents + feeCents

	intent, err := s.payments.CreateIntent(ctx, o.TotalCents, s.currency, o.ID.String())
	if err != nil {
		return errors.Unavailable("payment provider is unreachable")
	}
	o.PaymentIntentID = intent.ID

	return s.store.Update(ctx, o)
}

// UpdateStatus moves an order along its lifecycle. Riders take paid orders
// and deliver them; managers may make any valid transition.
func (s *Service) UpdateStatus(ctx context.Context, actor *auth.User, orderID types.ID, next Status) (*Order, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !ValidStatus(string(next)) {
		return nil, errors.Validation("validation failed", map[string]string{
			"status": "unknown status",
		})
	}
	if !CanTransition(o.Status, next) {
		return nil, errors.Conflict("order cannot move from " + string(o.Status) + " to " + string(next))
	}

	if actor.Role == auth.RoleRider {
		switch next {
		case StatusDelivering:
			// A rider taking the order assigns themselves.
			if o.RiderID != nil && *o.RiderID != actor.ID {
				return nil, errors.Conflict("order is already assigned to another rider")
			}
			rider := actor.ID
			o.RiderID = &rider
		case StatusDelivered:
			if o.RiderID == nil || *o.RiderID != actor.ID {
				return nil, errors.Forbidden("only the assigned rider can mark this order delivered")
			}
		default:
			return nil, errors.Forbidden("riders can only take and deliver orders")
		}
	}

	if next == StatusCancelled && o.PaymentIntentID != "" && o.Status == StatusPending {
		if err := s.payments.CancelIntent(ctx, o.PaymentIntentID); err != nil {
			s.logger.WarnContext(ctx, "failed to cancel payment intent",
				"intent_id", o.PaymentIntentID, "error", err)
		}
	}

	prev := o.Status
	o.Status = next
	if err := s.store.Update(ctx, o); err != nil {
		return nil, err
	}

	metrics.RecordOrderStatusChange(string(prev), string(next))
	if next == StatusDelivered {
		s.publish(ctx, "order.delivered", o, actor.ID)
	}
	s.notify(ctx, o)

	return o, nil
}

func (s *Service) publish(ctx context.Context, name string, o *Order, actorID types.ID) {
	if s.publisher == nil {
		return
	}

	event := events.NewEvent(name, map[string]any{
		"order_id":    o.ID.String(),
		"user_id":     o.UserID.String(),
		"status":      string(o.Status),
		"total_cents": o.TotalCents,
	}).WithActor(actorID)

	if err := s.publisher.Publish(ctx, name, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"event", name, "order_id", o.ID, "error", err)
	}
}

func (s *Service) notify(ctx context.Context, o *Order) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyOrderStatus(ctx, o.UserID, o.ID, string(o.Status))
}
