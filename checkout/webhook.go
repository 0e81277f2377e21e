package checkout

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"vendo/models"
	"vendo/utils"

	"github.com/julienschmidt/httprouter"
)

// SignatureHeader is where the provider puts the hex HMAC-SHA512 of the
// raw request body.
const SignatureHeader = "x-paystack-signature"

const (
	EventChargeSuccess   = "charge.success"
	EventChargeFailed    = "charge.failed"
	EventRefundProcessed = "refund.processed"
)

var errBadPayload = errors.New("malformed webhook payload")

// VerifySignature recomputes the keyed hash over the body bytes exactly
// as received and compares it to the header value in constant time. Any
// re-serialization before this point would break the comparison, so the
// webhook handler keeps the raw body.
func VerifySignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(mac.Sum(nil), expected)
}

// ProviderEvent is the validated shape of an inbound webhook call.
type ProviderEvent struct {
	Event     string
	Reference string
	Amount    int64
	UserID    string
	OrderID   string
}

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Metadata  struct {
			UserID  string `json:"userId"`
			OrderID string `json:"orderId"`
		} `json:"metadata"`
	} `json:"data"`
}

func knownEvent(event string) bool {
	switch event {
	case EventChargeSuccess, EventChargeFailed, EventRefundProcessed:
		return true
	}
	return false
}

// parseEvent validates the payload against the expected schema instead
// of trusting the provider JSON loosely. Known events missing the
// routing metadata are rejected rather than half-processed.
func parseEvent(body []byte) (ProviderEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return ProviderEvent{}, fmt.Errorf("%w: %v", errBadPayload, err)
	}
	if payload.Event == "" {
		return ProviderEvent{}, fmt.Errorf("%w: missing event", errBadPayload)
	}

	evt := ProviderEvent{
		Event:     payload.Event,
		Reference: payload.Data.Reference,
		Amount:    payload.Data.Amount,
		UserID:    payload.Data.Metadata.UserID,
		OrderID:   payload.Data.Metadata.OrderID,
	}

	if knownEvent(evt.Event) && (evt.OrderID == "" || evt.UserID == "") {
		return ProviderEvent{}, fmt.Errorf("%w: missing order metadata", errBadPayload)
	}
	return evt, nil
}

// ProcessEvent applies one authenticated provider event to the order
// state machine. Every status change is a conditional write; when the
// order already left the `from` status the event is a stale redelivery
// and the compensating actions (cart clear, notification) are skipped.
func (s *Service) ProcessEvent(ctx context.Context, evt ProviderEvent) error {
	switch evt.Event {
	case EventChargeSuccess:
		transitioned, err := s.Orders.TransitionStatus(ctx, evt.OrderID, models.StatusUnpaid, models.StatusPaid)
		if err != nil {
			return fmt.Errorf("transition order %s to paid: %w", evt.OrderID, err)
		}
		if !transitioned {
			log.Printf("webhook: stale charge.success for order %s, ignoring", evt.OrderID)
			return nil
		}

		s.checkSessionAmount(ctx, evt)

		if err := s.Cart.ClearCart(ctx, evt.UserID); err != nil {
			// The order is paid regardless; a stale cart is recoverable.
			log.Printf("webhook: clear cart for user %s: %v", evt.UserID, err)
		}
		s.Notifier.Publish(evt.UserID, models.PaymentOutcome{
			Type:    "payment",
			OrderID: evt.OrderID,
			Status:  "success",
			Message: "Payment successful, order confirmed!",
		})

	case EventChargeFailed:
		transitioned, err := s.Orders.TransitionStatus(ctx, evt.OrderID, models.StatusUnpaid, models.StatusFailed)
		if err != nil {
			return fmt.Errorf("transition order %s to failed: %w", evt.OrderID, err)
		}
		if !transitioned {
			log.Printf("webhook: stale charge.failed for order %s, ignoring", evt.OrderID)
			return nil
		}
		// Cart stays intact so the buyer can retry.
		s.Notifier.Publish(evt.UserID, models.PaymentOutcome{
			Type:    "payment",
			OrderID: evt.OrderID,
			Status:  "failed",
			Message: "Payment failed, please try again.",
		})

	case EventRefundProcessed:
		// Refund is only legal from paid; the conditional write enforces it.
		transitioned, err := s.Orders.TransitionStatus(ctx, evt.OrderID, models.StatusPaid, models.StatusRefunded)
		if err != nil {
			return fmt.Errorf("transition order %s to refunded: %w", evt.OrderID, err)
		}
		if !transitioned {
			log.Printf("webhook: refund.processed for order %s not in paid status, ignoring", evt.OrderID)
			return nil
		}
		s.Notifier.Publish(evt.UserID, models.PaymentOutcome{
			Type:    "payment",
			OrderID: evt.OrderID,
			Status:  "refunded",
			Message: "Your payment has been refunded.",
		})

	default:
		// Acknowledged so the provider stops retrying, otherwise ignored.
		log.Printf("webhook: unhandled event %q", evt.Event)
	}
	return nil
}

// checkSessionAmount cross-checks the webhook amount against the cached
// payment session. A mismatch is logged for reconciliation, not acted on.
func (s *Service) checkSessionAmount(ctx context.Context, evt ProviderEvent) {
	if s.Sessions == nil || evt.Amount == 0 {
		return
	}
	session, err := s.Sessions.Get(ctx, evt.OrderID)
	if err != nil {
		return
	}
	if session.Amount != evt.Amount {
		log.Printf("webhook: amount mismatch for order %s: session=%d event=%d", evt.OrderID, session.Amount, evt.Amount)
	}
}

// Webhook is the provider-facing endpoint. Contract: HTTP 200 once
// processing, including no-ops, will not require redelivery; non-200 on
// authentication or transient failure. Responses stay opaque since the
// provider is the only caller.
func (s *Service) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if !VerifySignature(body, r.Header.Get(SignatureHeader), s.WebhookSecret) {
		// Potential forgery; worth an operator's attention.
		log.Printf("webhook: invalid signature from %s", r.RemoteAddr)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	evt, err := parseEvent(body)
	if err != nil {
		log.Printf("webhook: rejected payload: %v", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if err := s.ProcessEvent(ctx, evt); err != nil {
		log.Printf("webhook: processing failed: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
