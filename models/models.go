package models

import "time"

// Payment statuses an order moves through. An order starts unpaid and
// settles into exactly one terminal status; the only follow-up
// transition allowed is paid -> refunded.
const (
	StatusUnpaid   = "unpaid"
	StatusPaid     = "paid"
	StatusFailed   = "failed"
	StatusRefunded = "refunded"
)

// Order is one checkout attempt. TotalAmount is in minor currency units.
type Order struct {
	OrderID         string    `json:"orderId" bson:"orderid"`
	UserID          string    `json:"userId" bson:"userid"`
	TotalAmount     int64     `json:"totalAmount" bson:"total_amount"`
	ShippingAddress string    `json:"shippingAddress" bson:"shipping_address"`
	PaymentStatus   string    `json:"paymentStatus" bson:"payment_status"`
	PaymentRef      string    `json:"paymentRef,omitempty" bson:"payment_ref,omitempty"`
	PaymentURL      string    `json:"paymentUrl,omitempty" bson:"payment_url,omitempty"`
	CreatedAt       time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updated_at"`
}

// OrderItem is a single product line within an order. PriceAtPurchase is
// a snapshot in minor units; later catalog price edits never touch it.
type OrderItem struct {
	OrderID         string `json:"orderId" bson:"orderid"`
	ProductID       string `json:"productId" bson:"productid"`
	ProductName     string `json:"productName,omitempty" bson:"product_name,omitempty"`
	Quantity        int    `json:"quantity" bson:"quantity"`
	PriceAtPurchase int64  `json:"priceAtPurchase" bson:"price_at_purchase"`
}

// CartItem is one pending purchase line for a user.
type CartItem struct {
	UserID      string    `json:"userId" bson:"userid"`
	ProductID   string    `json:"productId" bson:"productid"`
	ProductName string    `json:"productName" bson:"product_name"`
	Quantity    int       `json:"quantity" bson:"quantity"`
	Price       int64     `json:"price" bson:"price"`
	AddedAt     time.Time `json:"addedAt" bson:"added_at"`
}

type Product struct {
	ProductID   string    `json:"productId" bson:"productid"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Price       int64     `json:"price" bson:"price"`
	Stock       int       `json:"stock" bson:"stock"`
	Category    string    `json:"category" bson:"category"`
	ImageURL    string    `json:"imageUrl,omitempty" bson:"image_url,omitempty"`
	ThumbURL    string    `json:"thumbUrl,omitempty" bson:"thumb_url,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

type User struct {
	UserID        string    `json:"userid" bson:"userid"`
	Username      string    `json:"username" bson:"username"`
	Email         string    `json:"email" bson:"email"`
	Password      string    `json:"password,omitempty" bson:"password"`
	Role          []string  `json:"role" bson:"role"`
	RefreshToken  string    `json:"-" bson:"refresh_token,omitempty"`
	RefreshExpiry time.Time `json:"-" bson:"refresh_expiry,omitempty"`
	LastLogin     time.Time `json:"lastLogin,omitempty" bson:"last_login,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"created_at"`
}

// PaymentSession correlates an order with the provider transaction that
// should settle it. Kept in Redis for the lifetime of the checkout.
type PaymentSession struct {
	OrderID   string    `json:"orderId"`
	UserID    string    `json:"userId"`
	Reference string    `json:"reference"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// PaymentOutcome is the one-shot event pushed to a user's live
// connections after a webhook settles their order.
type PaymentOutcome struct {
	Type    string `json:"type"`
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
