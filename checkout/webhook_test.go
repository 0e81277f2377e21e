package checkout

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"vendo/models"
)

const testSecret = "whsec"

func sign(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	good := sign(body, testSecret)

	if !VerifySignature(body, good, testSecret) {
		t.Error("valid signature rejected")
	}
	if VerifySignature(body, good, "other-secret") {
		t.Error("signature accepted under the wrong secret")
	}
	if VerifySignature([]byte(`{"event":"charge.success","amount":1}`), good, testSecret) {
		t.Error("signature accepted over tampered body")
	}
	if VerifySignature(body, "not-hex!!", testSecret) {
		t.Error("non-hex signature accepted")
	}
	if VerifySignature(body, "", testSecret) {
		t.Error("empty signature accepted")
	}
}

func TestParseEventSchemaValidation(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid success", `{"event":"charge.success","data":{"reference":"r1","metadata":{"userId":"42","orderId":"o1"}}}`, false},
		{"not json", `not-json`, true},
		{"missing event", `{"data":{}}`, true},
		{"known event missing metadata", `{"event":"charge.success","data":{"reference":"r1"}}`, true},
		{"unknown event without metadata ok", `{"event":"subscription.create","data":{}}`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseEvent([]byte(tc.body))
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func postWebhook(t *testing.T, svc *Service, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	svc.Webhook(w, req, nil)
	return w
}

func successBody(orderID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"charge.success","data":{"reference":"ref_abc","amount":15000,"metadata":{"userId":"42","orderId":"%s"}}}`,
		orderID,
	))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture()
	order := initiated(t, f)

	body := successBody(order.OrderID)
	w := postWebhook(t, f.svc, body, sign(body, "wrong-secret"))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if got := f.orders.orders[order.OrderID].PaymentStatus; got != models.StatusUnpaid {
		t.Errorf("order mutated by unauthenticated webhook: %q", got)
	}
	if len(f.cart.cleared) != 0 || len(f.notifier.events) != 0 {
		t.Error("side effects ran for unauthenticated webhook")
	}
}

func TestWebhookMissingSignatureRejected(t *testing.T) {
	f := newFixture()
	order := initiated(t, f)

	w := postWebhook(t, f.svc, successBody(order.OrderID), "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestWebhookHappyPath(t *testing.T) {
	f := newFixture()
	order := initiated(t, f)

	body := successBody(order.OrderID)
	w := postWebhook(t, f.svc, body, sign(body, testSecret))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := f.orders.orders[order.OrderID].PaymentStatus; got != models.StatusPaid {
		t.Errorf("status = %q, want paid", got)
	}
}

func TestWebhookDuplicateDeliveryStillAcknowledged(t *testing.T) {
	f := newFixture()
	order := initiated(t, f)

	body := successBody(order.OrderID)
	signature := sign(body, testSecret)

	first := postWebhook(t, f.svc, body, signature)
	second := postWebhook(t, f.svc, body, signature)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("codes = %d, %d; both deliveries must be acknowledged", first.Code, second.Code)
	}
	if len(f.cart.cleared) != 1 || len(f.notifier.events) != 1 {
		t.Errorf("duplicate delivery caused duplicate side effects: clears=%d publishes=%d",
			len(f.cart.cleared), len(f.notifier.events))
	}
}

func TestWebhookUnknownEventAcknowledged(t *testing.T) {
	f := newFixture()
	order := initiated(t, f)

	body := []byte(`{"event":"transfer.success","data":{"reference":"r9"}}`)
	w := postWebhook(t, f.svc, body, sign(body, testSecret))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for unknown event", w.Code)
	}
	if got := f.orders.orders[order.OrderID].PaymentStatus; got != models.StatusUnpaid {
		t.Errorf("unknown event mutated order: %q", got)
	}
}

func TestWebhookMalformedPayloadRejected(t *testing.T) {
	f := newFixture()

	body := []byte(`{"event":"charge.success","data":{"reference":"r1"}}`)
	w := postWebhook(t, f.svc, body, sign(body, testSecret))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for payload missing metadata", w.Code)
	}
}

func TestProcessEventSurfacesStoreErrors(t *testing.T) {
	f := newFixture()
	order := initiated(t, f)

	failing := &failingOrders{inner: f.orders}
	f.svc.Orders = failing

	err := f.svc.ProcessEvent(context.Background(), successEvent(order.OrderID))
	if err == nil {
		t.Fatal("expected error so the provider retries")
	}
	if len(f.cart.cleared) != 0 || len(f.notifier.events) != 0 {
		t.Error("side effects must not run when the transition errored")
	}
}

type failingOrders struct {
	inner *fakeOrders
}

func (f *failingOrders) Create(ctx context.Context, order models.Order, items []models.OrderItem) error {
	return f.inner.Create(ctx, order, items)
}

func (f *failingOrders) SetPaymentRef(ctx context.Context, orderID, reference, paymentURL string) error {
	return f.inner.SetPaymentRef(ctx, orderID, reference, paymentURL)
}

func (f *failingOrders) TransitionStatus(context.Context, string, string, string) (bool, error) {
	return false, fmt.Errorf("db down")
}
