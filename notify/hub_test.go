package notify

import (
	"encoding/json"
	"testing"
	"time"

	"vendo/models"
)

func TestHubRegisterPublishUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{
		Send:   make(chan []byte, 10),
		UserID: "42",
	}
	hub.register <- client

	event := models.PaymentOutcome{Type: "payment", OrderID: "o1", Status: "success"}
	hub.Publish("42", event)

	select {
	case got := <-client.Send:
		var decoded models.PaymentOutcome
		if err := json.Unmarshal(got, &decoded); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if decoded.Status != "success" || decoded.OrderID != "o1" {
			t.Fatalf("unexpected event: %+v", decoded)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for event")
	}

	hub.unregister <- client

	select {
	case _, open := <-client.Send:
		if open {
			t.Fatal("expected send channel closed after unregister")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for channel close")
	}
}

func TestHubFanOutToAllUserConnections(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	tab1 := &Client{Send: make(chan []byte, 10), UserID: "42"}
	tab2 := &Client{Send: make(chan []byte, 10), UserID: "42"}
	other := &Client{Send: make(chan []byte, 10), UserID: "7"}
	hub.register <- tab1
	hub.register <- tab2
	hub.register <- other

	hub.Publish("42", models.PaymentOutcome{Type: "payment", Status: "failed"})

	for _, c := range []*Client{tab1, tab2} {
		select {
		case <-c.Send:
		case <-time.After(1 * time.Second):
			t.Fatal("timeout: a tab missed the event")
		}
	}

	select {
	case <-other.Send:
		t.Fatal("event leaked to another user")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubPublishWithNoSessionsIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	done := make(chan struct{})
	go func() {
		hub.Publish("nobody", models.PaymentOutcome{Type: "payment", Status: "success"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("publish to absent user should not block")
	}
}

func TestHubUnregisterUnknownClientIsNoop(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	stranger := &Client{Send: make(chan []byte, 1), UserID: "42"}

	done := make(chan struct{})
	go func() {
		hub.unregister <- stranger
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("unregistering an unknown client should be a no-op")
	}
}
