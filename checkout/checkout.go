package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"vendo/models"
	"vendo/paystack"
	"vendo/utils"

	"github.com/julienschmidt/httprouter"
)

// ErrValidation marks caller mistakes surfaced synchronously; nothing
// has been persisted when it is returned.
var ErrValidation = errors.New("invalid checkout request")

// OrderStore is the slice of the order persistence layer the lifecycle
// controller writes through. TransitionStatus must be a single
// conditional write: it reports false when the order was not in the
// `from` status, which is what makes webhook redelivery a no-op.
type OrderStore interface {
	Create(ctx context.Context, order models.Order, items []models.OrderItem) error
	SetPaymentRef(ctx context.Context, orderID, reference, paymentURL string) error
	TransitionStatus(ctx context.Context, orderID, from, to string) (bool, error)
}

type CartStore interface {
	ClearCart(ctx context.Context, userID string) error
}

type Gateway interface {
	InitializeTransaction(ctx context.Context, email string, amount int64, meta paystack.Metadata) (paystack.InitResult, error)
}

type Notifier interface {
	Publish(userID string, event models.PaymentOutcome)
}

// SessionCache keeps the order <-> provider reference correlation for
// the lifetime of a checkout.
type SessionCache interface {
	Save(ctx context.Context, session models.PaymentSession) error
	Get(ctx context.Context, orderID string) (models.PaymentSession, error)
}

// Service owns the order lifecycle state machine. It is the single
// writer of order payment status.
type Service struct {
	Orders        OrderStore
	Cart          CartStore
	Gateway       Gateway
	Notifier      Notifier
	Sessions      SessionCache
	WebhookSecret string
}

func NewService(orders OrderStore, cart CartStore, gateway Gateway, notifier Notifier, sessions SessionCache, webhookSecret string) *Service {
	return &Service{
		Orders:        orders,
		Cart:          cart,
		Gateway:       gateway,
		Notifier:      notifier,
		Sessions:      sessions,
		WebhookSecret: webhookSecret,
	}
}

// CartLine is one submitted purchase line. Price is the unit price in
// minor units as shown to the buyer; it becomes the immutable
// price-at-purchase snapshot on the order item.
type CartLine struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName,omitempty"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
}

type InitiateRequest struct {
	Amount          int64      `json:"amount"`
	ShippingAddress string     `json:"shippingAddress"`
	Cart            []CartLine `json:"cart"`
}

type InitiateResult struct {
	OrderID          string `json:"orderId"`
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

// InitiateCheckout creates the unpaid order with its line items, then
// opens the provider transaction with {userId, orderId} in metadata so
// the webhook can route its way back. Order creation failing aborts
// before the gateway is contacted; a gateway failure afterwards leaves
// the order unpaid with no rollback.
func (s *Service) InitiateCheckout(ctx context.Context, userID, email string, req InitiateRequest) (InitiateResult, error) {
	if req.Amount <= 0 {
		return InitiateResult{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if len(req.Cart) == 0 {
		return InitiateResult{}, fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	if email == "" {
		return InitiateResult{}, fmt.Errorf("%w: email is required", ErrValidation)
	}
	for _, line := range req.Cart {
		if line.ProductID == "" || line.Quantity <= 0 || line.Price <= 0 {
			return InitiateResult{}, fmt.Errorf("%w: malformed cart line", ErrValidation)
		}
	}

	now := time.Now()
	order := models.Order{
		OrderID:         "o" + utils.GenerateID(14),
		UserID:          userID,
		TotalAmount:     req.Amount,
		ShippingAddress: req.ShippingAddress,
		PaymentStatus:   models.StatusUnpaid,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	items := make([]models.OrderItem, 0, len(req.Cart))
	for _, line := range req.Cart {
		items = append(items, models.OrderItem{
			OrderID:         order.OrderID,
			ProductID:       line.ProductID,
			ProductName:     line.ProductName,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.Price,
		})
	}

	if err := s.Orders.Create(ctx, order, items); err != nil {
		return InitiateResult{}, fmt.Errorf("create order: %w", err)
	}

	init, err := s.Gateway.InitializeTransaction(ctx, email, req.Amount, paystack.Metadata{
		UserID:  userID,
		OrderID: order.OrderID,
	})
	if err != nil {
		// Order stays unpaid; the buyer can re-checkout.
		return InitiateResult{}, err
	}

	if err := s.Orders.SetPaymentRef(ctx, order.OrderID, init.Reference, init.AuthorizationURL); err != nil {
		log.Printf("checkout: record payment ref for order %s: %v", order.OrderID, err)
	}

	if s.Sessions != nil {
		session := models.PaymentSession{
			OrderID:   order.OrderID,
			UserID:    userID,
			Reference: init.Reference,
			Amount:    req.Amount,
			CreatedAt: now,
		}
		if err := s.Sessions.Save(ctx, session); err != nil {
			log.Printf("checkout: cache payment session for order %s: %v", order.OrderID, err)
		}
	}

	return InitiateResult{
		OrderID:          order.OrderID,
		AuthorizationURL: init.AuthorizationURL,
		Reference:        init.Reference,
	}, nil
}

// Initialize is the HTTP front of InitiateCheckout.
func (s *Service) Initialize(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	email := utils.GetEmailFromRequest(r)

	var req InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	res, err := s.InitiateCheckout(ctx, userID, email, req)
	switch {
	case err == nil:
	case errors.Is(err, ErrValidation):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, paystack.ErrGatewayRejected):
		log.Printf("checkout: gateway rejected for user %s: %v", userID, err)
		utils.RespondWithError(w, http.StatusBadRequest, "Payment could not be started")
		return
	default:
		log.Printf("checkout: initiation failed for user %s: %v", userID, err)
		utils.RespondWithError(w, http.StatusBadGateway, "Payment could not be started")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message":           "success",
		"orderId":           res.OrderID,
		"authorization_url": res.AuthorizationURL,
		"reference":         res.Reference,
	})
}
