package order

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishbavarva/freshcart/internal/cart"
	"github.com/krishbavarva/freshcart/internal/delivery"
	"github.com/krishbavarva/freshcart/internal/payment"
	"github.com/krishbavarva/freshcart/internal/shared/auth"
	"github.com/krishbavarva/freshcart/internal/shared/config"
	"github.com/krishbavarva/freshcart/internal/shared/errors"
	"github.com/krishbavarva/freshcart/internal/shared/events"
	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// --- Stubs ---

type stubStore struct {
	orders map[types.ID]*Order
}

func newStubStore() *stubStore {
	return &stubStore{orders: make(map[types.ID]*Order)}
}

func (s *stubStore) Create(ctx context.Context, o *Order) error {
	copied := *o
	s.orders[o.ID] = &copied
	return nil
}

func (s *stubStore) Get(ctx context.Context, id types.ID) (*Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, errors.NotFound("order", id.String())
	}
	copied := *o
	return &copied, nil
}

func (s *stubStore) Update(ctx context.Context, o *Order) error {
	if _, ok := s.orders[o.ID]; !ok {
		return errors.NotFound("order", o.ID.String())
	}
	copied := *o
	s.orders[o.ID] = &copied
	return nil
}

func (s *stubStore) List(ctx context.Context, filter ListOrdersFilter) ([]Order, int, error) {
	var out []Order
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out, len(out), nil
}

type stubCarts struct {
	items   []cart.Item
	cleared bool
}

func (s *stubCarts) GetItems(ctx context.Context, userID types.ID) ([]cart.Item, error) {
	return s.items, nil
}

func (s *stubCarts) Clear(ctx context.Context, userID types.ID) error {
	s.cleared = true
	return nil
}

type stubQuoter struct {
	quote delivery.Quote
	err   error
	calls int
}

func (s *stubQuoter) Quote(ctx context.Context, addressText string) (delivery.Quote, error) {
	s.calls++
	if s.err != nil {
		return delivery.Quote{}, s.err
	}
	return s.quote, nil
}

type stubPayments struct {
	created    []*payment.Intent
	confirmed  []string
	cancelled  []string
	confirmErr error
	createErr  error
}

func (s *stubPayments) CreateIntent(ctx context.Context, amountCents int64, currency, reference string) (*payment.Intent, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	intent := &payment.Intent{
		ID:          fmt.Sprintf("pi_%d", len(s.created)+1),
		AmountCents: amountCents,
		Currency:    currency,
		Status:      payment.StatusRequiresConfirmation,
	}
	s.created = append(s.created, intent)
	return intent, nil
}

func (s *stubPayments) ConfirmIntent(ctx context.Context, intentID string) error {
	if s.confirmErr != nil {
		return s.confirmErr
	}
	s.confirmed = append(s.confirmed, intentID)
	return nil
}

func (s *stubPayments) CancelIntent(ctx context.Context, intentID string) error {
	s.cancelled = append(s.cancelled, intentID)
	return nil
}

type stubPublisher struct {
	published []events.Event
}

func (s *stubPublisher) Publish(ctx context.Context, routingKey string, event events.Event) error {
	s.published = append(s.published, event)
	return nil
}

func (s *stubPublisher) Close() error  { return nil }
func (s *stubPublisher) Health() error { return nil }

// --- Fixtures ---

func testConfig() *config.Config {
	return &config.Config{
		Delivery: config.DeliveryConfig{TaxRate: 0.055},
		Payment:  config.PaymentConfig{Currency: "eur"},
	}
}

func testCartItems() []cart.Item {
	return []cart.Item{
		{ProductID: types.NewID(), ProductName: "Milk 1L", PriceCents: 119, Quantity: 2},
		{ProductID: types.NewID(), ProductName: "Bread", PriceCents: 250, Quantity: 1},
	}
}

func testAddress() types.Address {
	return types.Address{
		Street:  "8 Avenue du Général de Gaulle",
		City:    "Créteil",
		Country: "France",
	}
}

type fixture struct {
	service   *Service
	store     *stubStore
	carts     *stubCarts
	quoter    *stubQuoter
	payments  *stubPayments
	publisher *stubPublisher
}

func newFixture() *fixture {
	f := &fixture{
		store:     newStubStore(),
		carts:     &stubCarts{items: testCartItems()},
		quoter:    &stubQuoter{quote: delivery.Quote{DistanceKm: 12.3, DurationMinutes: 25, Fee: 5.00}},
		payments:  &stubPayments{},
		publisher: &stubPublisher{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.service = NewService(f.store, f.carts, f.quoter, f.payments, f.publisher, nil, testConfig(), logger)
	return f
}

// --- Tests ---

func TestQuoteCheckout(t *testing.T) {
	f := newFixture()

	quote, err := f.service.QuoteCheckout(context.Background(), types.NewID(), testAddress())
	require.NoError(t, err)

	// Subtotal 2*119 + 250 = 488, tax round(488*0.055) = 27, fee 500.
	assert.Equal(t, int64(488), quote.SubtotalCents)
	assert.Equal(t, int64(27), quote.TaxCents)
	assert.Equal(t, int64(500), quote.DeliveryFeeCents)
	assert.Equal(t, int64(1015), quote.TotalCents)
	assert.Equal(t, 12.3, quote.DistanceKm)
}

func TestQuoteCheckoutEmptyCart(t *testing.T) {
	f := newFixture()
	f.carts.items = nil

	_, err := f.service.QuoteCheckout(context.Background(), types.NewID(), testAddress())
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, "EMPTY_CART", appErr.Code)
}

func TestCreateOrder(t *testing.T) {
	f := newFixture()
	userID := types.NewID()

	o, err := f.service.Create(context.Background(), userID, testAddress())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, int64(1015), o.TotalCents)
	assert.Len(t, o.Items, 2)
	assert.Equal(t, "Milk 1L", o.Items[0].ProductName)
	assert.Equal(t, int64(119), o.Items[0].UnitPriceCents)

	require.Len(t, f.payments.created, 1)
	assert.Equal(t, int64(1015), f.payments.created[0].AmountCents)
	assert.Equal(t, f.payments.created[0].ID, o.PaymentIntentID)

	stored, err := f.store.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)

	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, "order.created", f.publisher.published[0].Name)
}

func TestCreateOrderDeliveryOutOfRange(t *testing.T) {
	f := newFixture()
	f.quoter.err = &delivery.OutOfRangeError{DistanceKm: 45}

	_, err := f.service.Create(context.Background(), types.NewID(), testAddress())
	require.Error(t, err)
	assert.ErrorIs(t, err, delivery.ErrOutOfRange)

	// No intent is opened for an order that cannot be priced.
	assert.Empty(t, f.payments.created)
}

func TestCreateOrderPaymentDown(t *testing.T) {
	f := newFixture()
	f.payments.createErr = fmt.Errorf("connection refused")

	_, err := f.service.Create(context.Background(), types.NewID(), testAddress())
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, 503, appErr.HTTPStatus)
}

func TestConfirmOrder(t *testing.T) {
	f := newFixture()
	userID := types.NewID()

	o, err := f.service.Create(context.Background(), userID, testAddress())
	require.NoError(t, err)

	confirmed, err := f.service.Confirm(context.Background(), userID, o.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusPaid, confirmed.Status)
	assert.Equal(t, []string{o.PaymentIntentID}, f.payments.confirmed)
	assert.True(t, f.carts.cleared)

	// order.created then order.paid.
	require.Len(t, f.publisher.published, 2)
	assert.Equal(t, "order.paid", f.publisher.published[1].Name)
}

func TestConfirmRepricesWhenFeeChanges(t *testing.T) {
	f := newFixture()
	userID := types.NewID()

	o, err := f.service.Create(context.Background(), userID, testAddress())
	require.NoError(t, err)
	firstIntent := o.PaymentIntentID

	// The routing provider now reports a longer distance, one tier up.
	f.quoter.quote = delivery.Quote{DistanceKm: 22.0, DurationMinutes: 40, Fee: 8.00}

	confirmed, err := f.service.Confirm(context.Background(), userID, o.ID)
	require.NoError(t, err)

	// The confirm-time computation wins.
	assert.Equal(t, int64(800), confirmed.DeliveryFeeCents)
	assert.Equal(t, int64(488+27+800), confirmed.TotalCents)
	assert.Equal(t, 22.0, confirmed.DistanceKm)

	// Old hold released, new one confirmed.
	assert.Equal(t, []string{firstIntent}, f.payments.cancelled)
	require.Len(t, f.payments.created, 2)
	assert.NotEqual(t, firstIntent, confirmed.PaymentIntentID)
	assert.Equal(t, []string{confirmed.PaymentIntentID}, f.payments.confirmed)
}

func TestConfirmDeclined(t *testing.T) {
	f := newFixture()
	userID := types.NewID()

	o, err := f.service.Create(context.Background(), userID, testAddress())
	require.NoError(t, err)

	f.payments.confirmErr = payment.ErrDeclined

	_, err = f.service.Confirm(context.Background(), userID, o.ID)
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, "PAYMENT_DECLINED", appErr.Code)

	// Order stays pending and the cart survives.
	stored, err := f.store.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.False(t, f.carts.cleared)
}

func TestConfirmWrongCustomer(t *testing.T) {
	f := newFixture()

	o, err := f.service.Create(context.Background(), types.NewID(), testAddress())
	require.NoError(t, err)

	_, err = f.service.Confirm(context.Background(), types.NewID(), o.ID)
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.HTTPStatus)
}

func TestConfirmTwice(t *testing.T) {
	f := newFixture()
	userID := types.NewID()

	o, err := f.service.Create(context.Background(), userID, testAddress())
	require.NoError(t, err)

	_, err = f.service.Confirm(context.Background(), userID, o.ID)
	require.NoError(t, err)

	_, err = f.service.Confirm(context.Background(), userID, o.ID)
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, 409, appErr.HTTPStatus)
}

func paidOrder(t *testing.T, f *fixture) (*Order, types.ID) {
	t.Helper()
	userID := types.NewID()
	o, err := f.service.Create(context.Background(), userID, testAddress())
	require.NoError(t, err)
	o, err = f.service.Confirm(context.Background(), userID, o.ID)
	require.NoError(t, err)
	return o, userID
}

func TestRiderTakesAndDeliversOrder(t *testing.T) {
	f := newFixture()
	o, _ := paidOrder(t, f)

	rider := &auth.User{ID: types.NewID(), Role: auth.RoleRider}

	o2, err := f.service.UpdateStatus(context.Background(), rider, o.ID, StatusDelivering)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivering, o2.Status)
	require.NotNil(t, o2.RiderID)
	assert.Equal(t, rider.ID, *o2.RiderID)

	o3, err := f.service.UpdateStatus(context.Background(), rider, o.ID, StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, o3.Status)

	last := f.publisher.published[len(f.publisher.published)-1]
	assert.Equal(t, "order.delivered", last.Name)
}

func TestOtherRiderCannotDeliver(t *testing.T) {
	f := newFixture()
	o, _ := paidOrder(t, f)

	rider := &auth.User{ID: types.NewID(), Role: auth.RoleRider}
	_, err := f.service.UpdateStatus(context.Background(), rider, o.ID, StatusDelivering)
	require.NoError(t, err)

	other := &auth.User{ID: types.NewID(), Role: auth.RoleRider}
	_, err = f.service.UpdateStatus(context.Background(), other, o.ID, StatusDelivered)
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, 403, appErr.HTTPStatus)
}

func TestInvalidTransition(t *testing.T) {
	f := newFixture()
	o, _ := paidOrder(t, f)

	manager := &auth.User{ID: types.NewID(), Role: auth.RoleManager}
	_, err := f.service.UpdateStatus(context.Background(), manager, o.ID, StatusDelivered)
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, 409, appErr.HTTPStatus)
}

func TestManagerCancelsPendingOrderReleasesIntent(t *testing.T) {
	f := newFixture()
	userID := types.NewID()

	o, err := f.service.Create(context.Background(), userID, testAddress())
	require.NoError(t, err)

	manager := &auth.User{ID: types.NewID(), Role: auth.RoleManager}
	cancelled, err := f.service.UpdateStatus(context.Background(), manager, o.ID, StatusCancelled)
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, []string{o.PaymentIntentID}, f.payments.cancelled)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusCancelled, true},
		{StatusPaid, StatusDelivering, true},
		{StatusDelivering, StatusDelivered, true},
		{StatusPending, StatusDelivered, false},
		{StatusDelivered, StatusDelivering, false},
		{StatusCancelled, StatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to))
		})
	}
}
