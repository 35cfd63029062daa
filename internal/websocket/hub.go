package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Message types
const (
	MessageTypeSubscribe     = "subscribe"
	MessageTypeUnsubscribe   = "unsubscribe"
	MessageTypeCurrentWave   = "current_wave"
	MessageTypeSelectAnswer  = "select_answer"
	MessageTypeApplyBoost    = "apply_boost"
	MessageTypeAnswerApplied = "answer_applied"
	MessageTypeBoostApplied  = "boost_applied"
	MessageTypeWaveScreen    = "wave_screen"
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
	MessageTypeError         = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string    `json:"type"`
	RequestID string    `json:"mes_id,omitempty"`
	ChannelID string    `json:"channel_id,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub tracks connected players by user and by watched channel
type Hub struct {
	// Subscribed clients by channel ID
	channels map[string]map[*Client]bool

	// Connected clients by user ID
	users map[string]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	deliver     chan *delivery
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest

	mu sync.RWMutex

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client    *Client
	channelID string
}

type delivery struct {
	userID string
	data   []byte
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		channels:    make(map[string]map[*Client]bool),
		users:       make(map[string]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		deliver:     make(chan *delivery, 1024),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			addClient(h.users, client.userID, client)
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id, "user_id", client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				removeClient(h.users, client.userID, client)
				for channelID := range h.channels {
					removeClient(h.channels, channelID, client)
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.allClients[req.client]; ok {
				addClient(h.channels, req.channelID, req.client)
			}
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "channel_id", req.channelID)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			removeClient(h.channels, req.channelID, req.client)
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", "client_id", req.client.id, "channel_id", req.channelID)

		case d := <-h.deliver:
			h.deliverToUser(d)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

func addClient(index map[string]map[*Client]bool, key string, client *Client) {
	if _, ok := index[key]; !ok {
		index[key] = make(map[*Client]bool)
	}
	index[key][client] = true
}

func removeClient(index map[string]map[*Client]bool, key string, client *Client) {
	if clients, ok := index[key]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(index, key)
		}
	}
}

// deliverToUser sends a payload to every socket of a user
func (h *Hub) deliverToUser(d *delivery) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.users[d.userID] {
		select {
		case client.send <- d.data:
		default:
			// Client's buffer is full, skip
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

// SendToUser queues a message for all sockets of a user and returns how many are connected
func (h *Hub) SendToUser(userID, msgType string, data any) int {
	h.mu.RLock()
	connected := len(h.users[userID])
	h.mu.RUnlock()
	if connected == 0 {
		return 0
	}

	payload, err := json.Marshal(Message{Type: msgType, Data: data, Timestamp: time.Now()})
	if err != nil {
		h.logger.Error("failed to marshal message", "type", msgType, "error", err)
		return 0
	}

	select {
	case h.deliver <- &delivery{userID: userID, data: payload}:
	default:
		h.logger.Warn("delivery channel full, dropping message", "user_id", userID, "type", msgType)
	}
	return connected
}

// ChannelUsers returns the distinct users watching a channel
func (h *Hub) ChannelUsers(channelID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool)
	users := make([]string, 0, len(h.channels[channelID]))
	for client := range h.channels[channelID] {
		if !seen[client.userID] {
			seen[client.userID] = true
			users = append(users, client.userID)
		}
	}
	return users
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds a client to a channel subscription
func (h *Hub) Subscribe(client *Client, channelID string) {
	h.subscribe <- &subscriptionRequest{
		client:    client,
		channelID: channelID,
	}
}

// Unsubscribe removes a client from a channel subscription
func (h *Hub) Unsubscribe(client *Client, channelID string) {
	h.unsubscribe <- &subscriptionRequest{
		client:    client,
		channelID: channelID,
	}
}

// GetSubscriberCount returns the number of sockets watching a channel
func (h *Hub) GetSubscriberCount(channelID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channelID])
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
