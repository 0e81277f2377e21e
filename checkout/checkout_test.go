package checkout

import (
	"context"
	"errors"
	"testing"

	"vendo/models"
	"vendo/paystack"
)

// --- fakes ---

type fakeOrders struct {
	orders    map[string]models.Order
	items     map[string][]models.OrderItem
	createErr error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		orders: make(map[string]models.Order),
		items:  make(map[string][]models.OrderItem),
	}
}

func (f *fakeOrders) Create(_ context.Context, order models.Order, items []models.OrderItem) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.orders[order.OrderID] = order
	f.items[order.OrderID] = items
	return nil
}

func (f *fakeOrders) SetPaymentRef(_ context.Context, orderID, reference, paymentURL string) error {
	order, ok := f.orders[orderID]
	if !ok {
		return errors.New("order not found")
	}
	order.PaymentRef = reference
	order.PaymentURL = paymentURL
	f.orders[orderID] = order
	return nil
}

func (f *fakeOrders) TransitionStatus(_ context.Context, orderID, from, to string) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok || order.PaymentStatus != from {
		return false, nil
	}
	order.PaymentStatus = to
	f.orders[orderID] = order
	return true, nil
}

type fakeCart struct {
	cleared []string
}

func (f *fakeCart) ClearCart(_ context.Context, userID string) error {
	f.cleared = append(f.cleared, userID)
	return nil
}

type gatewayCall struct {
	Email  string
	Amount int64
	Meta   paystack.Metadata
}

type fakeGateway struct {
	calls  []gatewayCall
	result paystack.InitResult
	err    error
}

func (f *fakeGateway) InitializeTransaction(_ context.Context, email string, amount int64, meta paystack.Metadata) (paystack.InitResult, error) {
	f.calls = append(f.calls, gatewayCall{Email: email, Amount: amount, Meta: meta})
	if f.err != nil {
		return paystack.InitResult{}, f.err
	}
	return f.result, nil
}

type published struct {
	UserID string
	Event  models.PaymentOutcome
}

type fakeNotifier struct {
	events []published
}

func (f *fakeNotifier) Publish(userID string, event models.PaymentOutcome) {
	f.events = append(f.events, published{UserID: userID, Event: event})
}

type memSessions map[string]models.PaymentSession

func (m memSessions) Save(_ context.Context, session models.PaymentSession) error {
	m[session.OrderID] = session
	return nil
}

func (m memSessions) Get(_ context.Context, orderID string) (models.PaymentSession, error) {
	session, ok := m[orderID]
	if !ok {
		return session, errors.New("not found")
	}
	return session, nil
}

type fixture struct {
	svc      *Service
	orders   *fakeOrders
	cart     *fakeCart
	gateway  *fakeGateway
	notifier *fakeNotifier
	sessions memSessions
}

func newFixture() *fixture {
	f := &fixture{
		orders:   newFakeOrders(),
		cart:     &fakeCart{},
		gateway:  &fakeGateway{result: paystack.InitResult{AuthorizationURL: "https://pay.example/go", Reference: "ref_abc"}},
		notifier: &fakeNotifier{},
		sessions: make(memSessions),
	}
	f.svc = NewService(f.orders, f.cart, f.gateway, f.notifier, f.sessions, "whsec")
	return f
}

func (f *fixture) singleOrder(t *testing.T) models.Order {
	t.Helper()
	if len(f.orders.orders) != 1 {
		t.Fatalf("expected exactly one order, got %d", len(f.orders.orders))
	}
	for _, order := range f.orders.orders {
		return order
	}
	return models.Order{}
}

var sampleRequest = InitiateRequest{
	Amount:          15000,
	ShippingAddress: "12 Market Street",
	Cart: []CartLine{
		{ProductID: "7", ProductName: "Ceramic Mug", Quantity: 2, Price: 5000},
	},
}

// --- checkout initiation ---

func TestInitiateCheckoutCreatesOrderAndItems(t *testing.T) {
	f := newFixture()

	res, err := f.svc.InitiateCheckout(context.Background(), "42", "buyer@example.com", sampleRequest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := f.singleOrder(t)
	if order.PaymentStatus != models.StatusUnpaid {
		t.Errorf("new order status = %q, want unpaid", order.PaymentStatus)
	}
	if order.TotalAmount != 15000 || order.UserID != "42" {
		t.Errorf("unexpected order: %+v", order)
	}

	items := f.orders.items[order.OrderID]
	if len(items) != 1 {
		t.Fatalf("expected 1 order item, got %d", len(items))
	}
	if items[0].ProductID != "7" || items[0].Quantity != 2 || items[0].PriceAtPurchase != 5000 {
		t.Errorf("price snapshot wrong: %+v", items[0])
	}

	if len(f.gateway.calls) != 1 {
		t.Fatalf("expected 1 gateway call, got %d", len(f.gateway.calls))
	}
	call := f.gateway.calls[0]
	if call.Amount != 15000 || call.Email != "buyer@example.com" {
		t.Errorf("unexpected gateway call: %+v", call)
	}
	if call.Meta.UserID != "42" || call.Meta.OrderID != order.OrderID {
		t.Errorf("metadata not embedded: %+v", call.Meta)
	}

	if res.AuthorizationURL != "https://pay.example/go" || res.OrderID != order.OrderID {
		t.Errorf("unexpected result: %+v", res)
	}

	session, err := f.sessions.Get(context.Background(), order.OrderID)
	if err != nil {
		t.Fatal("payment session not cached")
	}
	if session.Reference != "ref_abc" || session.UserID != "42" || session.Amount != 15000 {
		t.Errorf("unexpected session: %+v", session)
	}
}

func TestInitiateCheckoutValidation(t *testing.T) {
	cases := []struct {
		name string
		req  InitiateRequest
	}{
		{"zero amount", InitiateRequest{Amount: 0, Cart: sampleRequest.Cart}},
		{"empty cart", InitiateRequest{Amount: 1000}},
		{"zero quantity line", InitiateRequest{Amount: 1000, Cart: []CartLine{{ProductID: "7", Quantity: 0, Price: 100}}}},
		{"zero price line", InitiateRequest{Amount: 1000, Cart: []CartLine{{ProductID: "7", Quantity: 1, Price: 0}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.InitiateCheckout(context.Background(), "42", "buyer@example.com", tc.req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
			if len(f.orders.orders) != 0 {
				t.Error("no order should be created")
			}
			if len(f.gateway.calls) != 0 {
				t.Error("gateway should not be contacted")
			}
		})
	}
}

func TestInitiateCheckoutOrderFailureSkipsGateway(t *testing.T) {
	f := newFixture()
	f.orders.createErr = errors.New("db down")

	_, err := f.svc.InitiateCheckout(context.Background(), "42", "buyer@example.com", sampleRequest)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(f.gateway.calls) != 0 {
		t.Error("gateway must not be called when order creation fails")
	}
}

func TestInitiateCheckoutGatewayFailureLeavesOrderUnpaid(t *testing.T) {
	f := newFixture()
	f.gateway.err = paystack.ErrGatewayUnavailable

	_, err := f.svc.InitiateCheckout(context.Background(), "42", "buyer@example.com", sampleRequest)
	if !errors.Is(err, paystack.ErrGatewayUnavailable) {
		t.Fatalf("want ErrGatewayUnavailable, got %v", err)
	}

	order := f.singleOrder(t)
	if order.PaymentStatus != models.StatusUnpaid {
		t.Errorf("order status = %q, want unpaid", order.PaymentStatus)
	}
}

// --- webhook-driven lifecycle ---

func successEvent(orderID string) ProviderEvent {
	return ProviderEvent{
		Event:     EventChargeSuccess,
		Reference: "ref_abc",
		Amount:    15000,
		UserID:    "42",
		OrderID:   orderID,
	}
}

func initiated(t *testing.T, f *fixture) models.Order {
	t.Helper()
	if _, err := f.svc.InitiateCheckout(context.Background(), "42", "buyer@example.com", sampleRequest); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	return f.singleOrder(t)
}

func TestChargeSuccessMarksPaidClearsCartAndNotifies(t *testing.T) {
	f := newFixture()
	order := initiated(t, f)

	if err := f.svc.ProcessEvent(context.Background(), successEvent(order.OrderID)); err != nil {
		t.Fatalf("process: %v", err)
	}

	if got := f.orders.orders[order.OrderID].PaymentStatus; got != models.StatusPaid {
		t.Errorf("status = %q, want paid", got)
	}
	if len(f.cart.cleared) != 1 || f.cart.cleared[0] != "42" {
		t.Errorf("cart clears = %v, want exactly one for user 42", f.cart.cleared)
	}
	if len(f.notifier.events) != 1 {
		t.Fatalf("notifications = %d, want 1", len(f.notifier.events))
	}
	evt := f.notifier.events[0]
	if evt.UserID != "42" || evt.Event.Status != "success" {
		t.Errorf("unexpected notification: %+v", evt)
	}
}

func TestChargeSuccessRedeliveryIsNoop(t *testing.T) {
	f := newFixture()
	order := initiated(t, f)

	for i := 0; i < 2; i++ {
		if err := f.svc.ProcessEvent(context.Background(), successEvent(order.OrderID)); err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
	}

	if len(f.cart.cleared) != 1 {
		t.Errorf("cart cleared %d times, want 1", len(f.cart.cleared))
	}
	if len(f.notifier.events) != 1 {
		t.Errorf("published %d times, want 1", len(f.notifier.events))
	}
	if got := f.orders.orders[order.OrderID].PaymentStatus; got != models.StatusPaid {
		t.Errorf("status = %q, want paid", got)
	}
}

func TestChargeFailedKeepsCart(t *testing.T) {
	f := newFixture()
	order := initiated(t, f)

	evt := successEvent(order.OrderID)
	evt.Event = EventChargeFailed
	if err := f.svc.ProcessEvent(context.Background(), evt); err != nil {
		t.Fatalf("process: %v", err)
	}

	if got := f.orders.orders[order.OrderID].PaymentStatus; got != models.StatusFailed {
		t.Errorf("status = %q, want failed", got)
	}
	if len(f.cart.cleared) != 0 {
		t.Error("cart must stay intact on failed charge")
	}
	if len(f.notifier.events) != 1 || f.notifier.events[0].Event.Status != "failed" {
		t.Errorf("unexpected notifications: %+v", f.notifier.events)
	}
}

func TestRefundOnlyValidFromPaid(t *testing.T) {
	f := newFixture()
	order := initiated(t, f)

	evt := successEvent(order.OrderID)
	evt.Event = EventRefundProcessed
	if err := f.svc.ProcessEvent(context.Background(), evt); err != nil {
		t.Fatalf("process: %v", err)
	}

	if got := f.orders.orders[order.OrderID].PaymentStatus; got != models.StatusUnpaid {
		t.Errorf("status = %q, refund from unpaid must be a no-op", got)
	}
	if len(f.notifier.events) != 0 {
		t.Error("no notification expected for a rejected refund")
	}
}

func TestPaidOrderCanBeRefundedOnce(t *testing.T) {
	f := newFixture()
	order := initiated(t, f)

	if err := f.svc.ProcessEvent(context.Background(), successEvent(order.OrderID)); err != nil {
		t.Fatal(err)
	}

	refund := successEvent(order.OrderID)
	refund.Event = EventRefundProcessed
	for i := 0; i < 2; i++ {
		if err := f.svc.ProcessEvent(context.Background(), refund); err != nil {
			t.Fatal(err)
		}
	}

	if got := f.orders.orders[order.OrderID].PaymentStatus; got != models.StatusRefunded {
		t.Errorf("status = %q, want refunded", got)
	}
	// one success + one refunded notification; the second refund is stale
	if len(f.notifier.events) != 2 {
		t.Errorf("notifications = %d, want 2", len(f.notifier.events))
	}
	if f.notifier.events[1].Event.Status != "refunded" {
		t.Errorf("unexpected second notification: %+v", f.notifier.events[1])
	}
}

func TestFailedOrderCannotBecomePaid(t *testing.T) {
	f := newFixture()
	order := initiated(t, f)

	failed := successEvent(order.OrderID)
	failed.Event = EventChargeFailed
	if err := f.svc.ProcessEvent(context.Background(), failed); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.ProcessEvent(context.Background(), successEvent(order.OrderID)); err != nil {
		t.Fatal(err)
	}

	if got := f.orders.orders[order.OrderID].PaymentStatus; got != models.StatusFailed {
		t.Errorf("status = %q, failed is terminal", got)
	}
	if len(f.cart.cleared) != 0 {
		t.Error("cart must not be cleared after a late charge.success")
	}
}
