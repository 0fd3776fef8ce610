// internal/session/hub.go
// State synchronization layer: every committed session write is pushed to
// both participants' live clients as the full current record. Delivery is
// at-least-once; clients treat updates as idempotent replacements keyed by
// updated_at.

package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionUpdate is the wire format for pushed state. The full record is
// carried (not a delta) so duplicate or out-of-order delivery is
// self-correcting by timestamp comparison on the client.
type SessionUpdate struct {
	Type      string    `json:"type"`
	Session   *Session  `json:"session"`
	Timestamp time.Time `json:"timestamp"`
}

type subscriptionKey struct {
	sessionID uuid.UUID
	userID    int64
}

// Hub maintains the live subscriptions for all planning sessions
type Hub struct {
	clients    map[subscriptionKey]*Client
	clientsMux sync.RWMutex

	broadcast  chan *Session
	register   chan *Client
	unregister chan *Client

	repo Repository

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHub(repo Repository) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:    make(map[subscriptionKey]*Client),
		broadcast:  make(chan *Session, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		repo:       repo,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case sess := <-h.broadcast:
			h.broadcastSession(sess)

		case <-h.ctx.Done():
			h.cleanup()
			return
		}
	}
}

// BroadcastSession queues the committed state for delivery to both
// participants. Non-blocking: if the hub is saturated the update is dropped
// here and the subscriber recovers it from the snapshot sent on reconnect.
func (h *Hub) BroadcastSession(s *Session) {
	select {
	case h.broadcast <- s:
	default:
		log.Printf("hub broadcast queue full, dropping update for session %s", s.ID)
	}
}

func (h *Hub) registerClient(client *Client) {
	key := subscriptionKey{client.sessionID, client.userID}

	h.clientsMux.Lock()
	// Replace a stale connection for the same participant
	if old, exists := h.clients[key]; exists {
		old.Close()
	}
	h.clients[key] = client
	total := len(h.clients)
	h.clientsMux.Unlock()

	// Send the current snapshot on subscribe. Combined with the broadcast on
	// every write this gives at-least-once delivery.
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.sendSnapshot(client)
	}()

	log.Printf("user %d subscribed to session %s. Total subscriptions: %d", client.userID, client.sessionID, total)
}

func (h *Hub) unregisterClient(client *Client) {
	key := subscriptionKey{client.sessionID, client.userID}

	h.clientsMux.Lock()
	if current, exists := h.clients[key]; exists && current == client {
		client.Close()
		delete(h.clients, key)
	}
	total := len(h.clients)
	h.clientsMux.Unlock()

	log.Printf("user %d unsubscribed from session %s. Total subscriptions: %d", client.userID, client.sessionID, total)
}

func (h *Hub) broadcastSession(sess *Session) {
	update := SessionUpdate{
		Type:      "session_update",
		Session:   sess,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(update)
	if err != nil {
		log.Printf("error marshalling session update: %v", err)
		return
	}

	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	for _, userID := range []int64{sess.InitiatorID, sess.PartnerID} {
		client, exists := h.clients[subscriptionKey{sess.ID, userID}]
		if !exists {
			continue
		}
		if !client.trySend(data) {
			// Slow consumer: drop the connection, it resyncs on reconnect
			go client.detach()
		}
	}
}

func (h *Hub) sendSnapshot(client *Client) {
	sess, err := h.repo.Get(h.ctx, client.sessionID)
	if err != nil {
		log.Printf("error loading snapshot for session %s: %v", client.sessionID, err)
		return
	}

	update := SessionUpdate{
		Type:      "session_snapshot",
		Session:   sess,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(update)
	if err != nil {
		return
	}

	// The subscriber may have disconnected while the snapshot was loading;
	// trySend tolerates the already-closed channel.
	client.trySend(data)
}

func (h *Hub) cleanup() {
	h.clientsMux.Lock()
	for _, client := range h.clients {
		client.Close()
	}
	h.clients = make(map[subscriptionKey]*Client)
	h.clientsMux.Unlock()

	h.wg.Wait()
}

// Shutdown stops the hub and closes all client connections
func (h *Hub) Shutdown() {
	h.cancel()
}

// ActiveSubscriptions reports the current live client count
func (h *Hub) ActiveSubscriptions() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients)
}
