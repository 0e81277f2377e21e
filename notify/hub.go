package notify

import (
	"encoding/json"
	"log"
	"sync"

	"vendo/models"

	"github.com/gorilla/websocket"
)

// Client is one live browser connection belonging to a user. A user may
// hold several at once (multiple tabs); every one of them receives
// published events.
type Client struct {
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
}

type publishMsg struct {
	UserID string
	Data   []byte
}

// Hub is the process-wide registry of live connections, keyed by user.
// All mutation goes through the register/unregister/publish channels so
// connect, disconnect and fan-out never race.
type Hub struct {
	sessions   map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	publish    chan publishMsg
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan publishMsg),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.sessions[c.UserID] == nil {
				h.sessions[c.UserID] = make(map[*Client]bool)
			}
			h.sessions[c.UserID][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			h.drop(c)
			h.mu.Unlock()

		case m := <-h.publish:
			h.mu.Lock()
			for c := range h.sessions[m.UserID] {
				select {
				case c.Send <- m.Data:
				default:
					// Slow consumer; evict rather than block the hub.
					h.drop(c)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for _, conns := range h.sessions {
				for c := range conns {
					h.drop(c)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// drop removes a client and closes its send channel. Safe to call for a
// client that was never registered. Caller holds h.mu.
func (h *Hub) drop(c *Client) {
	conns := h.sessions[c.UserID]
	if conns == nil || !conns[c] {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.sessions, c.UserID)
	}
	close(c.Send)
}

// Stop shuts the hub down and disconnects every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Publish delivers a one-shot outcome event to every live connection of
// the user. Fire-and-forget: with no connections registered the event
// is dropped, the client recovers state by polling the order endpoint.
func (h *Hub) Publish(userID string, event models.PaymentOutcome) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify: marshal event for user %s: %v", userID, err)
		return
	}
	select {
	case h.publish <- publishMsg{UserID: userID, Data: data}:
	case <-h.done:
	}
}
