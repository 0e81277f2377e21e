package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.paystack.co"

var (
	// ErrGatewayUnavailable covers transport failures and non-2xx
	// responses; callers may retry conservatively.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayRejected means the provider understood the request and
	// refused it; retrying the same request will not help.
	ErrGatewayRejected = errors.New("payment gateway rejected transaction")
)

// Metadata rides on the provider transaction so the webhook can recover
// which order and user it settles.
type Metadata struct {
	UserID  string `json:"userId"`
	OrderID string `json:"orderId"`
}

// InitResult is the subset of the provider's initialize response we use.
type InitResult struct {
	AuthorizationURL string
	Reference        string
}

type Client struct {
	secret  string
	baseURL string
	http    *http.Client
}

func New(secret, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		secret:  secret,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type initRequest struct {
	Email    string   `json:"email"`
	Amount   int64    `json:"amount"`
	Metadata Metadata `json:"metadata"`
}

type initResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// InitializeTransaction opens a provider transaction for amount (minor
// currency units) and returns the redirect URL the buyer completes
// payment on.
func (c *Client) InitializeTransaction(ctx context.Context, email string, amount int64, meta Metadata) (InitResult, error) {
	payload, err := json.Marshal(initRequest{Email: email, Amount: amount, Metadata: meta})
	if err != nil {
		return InitResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return InitResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return InitResult{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return InitResult{}, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var body initResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return InitResult{}, fmt.Errorf("%w: malformed response: %v", ErrGatewayUnavailable, err)
	}
	if !body.Status {
		return InitResult{}, fmt.Errorf("%w: %s", ErrGatewayRejected, body.Message)
	}
	if body.Data.AuthorizationURL == "" || body.Data.Reference == "" {
		return InitResult{}, fmt.Errorf("%w: incomplete response", ErrGatewayRejected)
	}

	return InitResult{
		AuthorizationURL: body.Data.AuthorizationURL,
		Reference:        body.Data.Reference,
	}, nil
}

type verifyResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Status string `json:"status"`
		Amount int64  `json:"amount"`
	} `json:"data"`
}

// VerifyTransaction asks the provider for the settled state of a
// transaction reference. Used by the manual reconcile path.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", ErrGatewayUnavailable, err)
	}
	if !body.Status {
		return "", ErrGatewayRejected
	}
	return body.Data.Status, nil
}
