package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInitializeTransactionSuccess(t *testing.T) {
	var gotAuth string
	var gotBody initRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]string{
				"authorization_url": "https://pay.example/abc",
				"reference":         "ref_123",
			},
		})
	}))
	defer srv.Close()

	c := New("sk_test_secret", srv.URL)
	res, err := c.InitializeTransaction(context.Background(), "buyer@example.com", 15000, Metadata{UserID: "42", OrderID: "o1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.AuthorizationURL != "https://pay.example/abc" || res.Reference != "ref_123" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if gotAuth != "Bearer sk_test_secret" {
		t.Errorf("bad auth header %q", gotAuth)
	}
	if gotBody.Amount != 15000 || gotBody.Email != "buyer@example.com" {
		t.Errorf("bad request body: %+v", gotBody)
	}
	if gotBody.Metadata.UserID != "42" || gotBody.Metadata.OrderID != "o1" {
		t.Errorf("metadata not carried: %+v", gotBody.Metadata)
	}
}

func TestInitializeTransactionNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New("sk", srv.URL)
	_, err := c.InitializeTransaction(context.Background(), "a@b.c", 100, Metadata{})
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("want ErrGatewayUnavailable, got %v", err)
	}
}

func TestInitializeTransactionRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Invalid amount",
		})
	}))
	defer srv.Close()

	c := New("sk", srv.URL)
	_, err := c.InitializeTransaction(context.Background(), "a@b.c", 0, Metadata{})
	if !errors.Is(err, ErrGatewayRejected) {
		t.Fatalf("want ErrGatewayRejected, got %v", err)
	}
}

func TestInitializeTransactionConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := New("sk", srv.URL)
	_, err := c.InitializeTransaction(context.Background(), "a@b.c", 100, Metadata{})
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("want ErrGatewayUnavailable, got %v", err)
	}
}

func TestVerifyTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/ref_9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data":   map[string]any{"status": "success", "amount": 15000},
		})
	}))
	defer srv.Close()

	c := New("sk", srv.URL)
	status, err := c.VerifyTransaction(context.Background(), "ref_9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != "success" {
		t.Fatalf("want success, got %q", status)
	}
}
