package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Message is the envelope written to every client.
type Message struct {
	Type       string `json:"type"`
	QuestionID uint   `json:"question_id"`
	Payload    any    `json:"payload"`
}

// Client is one browser watching one question.
type Client struct {
	QuestionID uint
	send       chan []byte
}

func newClient(questionID uint) *Client {
	return &Client{QuestionID: questionID, send: make(chan []byte, 256)}
}

// Hub tracks connected clients grouped by question.
type Hub struct {
	clients    map[uint]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With("component", "ws_hub"),
	}
}

// Run processes registrations until ctx is done, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[client.QuestionID]; !ok {
				h.clients[client.QuestionID] = make(map[*Client]bool)
			}
			h.clients[client.QuestionID][client] = true
			total := len(h.clients[client.QuestionID])
			h.mu.Unlock()
			h.logger.Debug("client registered", "question_id", client.QuestionID, "clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "question_id", client.QuestionID)

		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for _, clients := range h.clients {
				for client := range clients {
					h.remove(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.QuestionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.QuestionID)
	}
}

// Broadcast sends msg to every client watching msg.QuestionID. Clients whose
// buffer is full are dropped.
func (h *Hub) Broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encoding websocket message failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[msg.QuestionID]
	for client := range clients {
		select {
		case client.send <- payload:
		default:
			h.remove(client)
		}
	}
	h.logger.Debug("broadcast", "question_id", msg.QuestionID, "clients", len(clients))
}

// ClientCount reports how many clients watch questionID.
func (h *Hub) ClientCount(questionID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[questionID])
}

// RegisterClient returns false once the hub has stopped.
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
