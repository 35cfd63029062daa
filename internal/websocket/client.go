package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/trivia-wave/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Time allowed to serve one inbound action
	actionTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Actions is what a connected player can do over the socket
type Actions interface {
	CurrentWave(ctx context.Context, channelID, userID string) (domain.WaveScreen, error)
	SubmitAnswer(ctx context.Context, req domain.SubmitAnswerRequest) (*domain.PlayerAction, error)
	ApplyBoost(ctx context.Context, req domain.ApplyBoostRequest) (*domain.UserBoost, error)
}

// ActionLimiter bounds how often a user may act
type ActionLimiter interface {
	Allow(key string) bool
}

// Client represents a WebSocket client connection of an authenticated user
type Client struct {
	id      string
	userID  string
	hub     *Hub
	actions Actions
	limiter ActionLimiter
	conn    *websocket.Conn
	send    chan []byte
	logger  *slog.Logger
}

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"mes_id,omitempty"`
	ChannelID string          `json:"channel_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ErrorPayload describes a failed inbound action
type ErrorPayload struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, actions Actions, conn *websocket.Conn, userID string, logger *slog.Logger) *Client {
	return &Client{
		id:      uuid.New().String(),
		userID:  userID,
		hub:     hub,
		actions: actions,
		conn:    conn,
		send:    make(chan []byte, 256),
		logger:  logger,
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			break
		}

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.logger.Warn("invalid message format", "error", err)
			c.sendError("", domain.ErrInvalidRequest)
			continue
		}

		c.handleMessage(&clientMsg)
	}
}

// handleMessage processes incoming client messages
func (c *Client) handleMessage(msg *ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	switch msg.Type {
	case MessageTypeSubscribe:
		if msg.ChannelID == "" {
			c.sendError(msg.RequestID, domain.ErrInvalidRequest)
			return
		}
		c.hub.Subscribe(c, msg.ChannelID)
		c.sendCurrentWave(ctx, msg)

	case MessageTypeUnsubscribe:
		if msg.ChannelID != "" {
			c.hub.Unsubscribe(c, msg.ChannelID)
		}

	case MessageTypeCurrentWave:
		c.sendCurrentWave(ctx, msg)

	case MessageTypeSelectAnswer:
		if !c.allow(msg) {
			return
		}
		var req domain.SubmitAnswerRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError(msg.RequestID, domain.ErrInvalidRequest)
			return
		}
		req.UserID = c.userID
		if req.ChannelID == "" {
			req.ChannelID = msg.ChannelID
		}
		if _, err := c.actions.SubmitAnswer(ctx, req); err != nil {
			c.sendError(msg.RequestID, err)
			return
		}
		c.sendMessage(Message{Type: MessageTypeAnswerApplied, RequestID: msg.RequestID, ChannelID: req.ChannelID})

	case MessageTypeApplyBoost:
		if !c.allow(msg) {
			return
		}
		var req domain.ApplyBoostRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError(msg.RequestID, domain.ErrInvalidRequest)
			return
		}
		req.UserID = c.userID
		inventory, err := c.actions.ApplyBoost(ctx, req)
		if err != nil {
			c.sendError(msg.RequestID, err)
			return
		}
		c.sendMessage(Message{Type: MessageTypeBoostApplied, RequestID: msg.RequestID, Data: inventory})

	case MessageTypePing:
		c.sendMessage(Message{Type: MessageTypePong})

	default:
		c.logger.Debug("unknown message type", "type", msg.Type)
	}
}

// allow applies the per-user action limit shared with the HTTP routes
func (c *Client) allow(msg *ClientMessage) bool {
	if c.limiter == nil || c.limiter.Allow(c.userID) {
		return true
	}
	c.sendError(msg.RequestID, domain.ErrRateLimited)
	return false
}

func (c *Client) sendCurrentWave(ctx context.Context, msg *ClientMessage) {
	if msg.ChannelID == "" {
		c.sendError(msg.RequestID, domain.ErrInvalidRequest)
		return
	}
	screen, err := c.actions.CurrentWave(ctx, msg.ChannelID, c.userID)
	if err != nil {
		c.sendError(msg.RequestID, err)
		return
	}
	c.sendMessage(Message{Type: MessageTypeWaveScreen, RequestID: msg.RequestID, ChannelID: msg.ChannelID, Data: screen})
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendError reports a failed action back to the client with its request id
func (c *Client) sendError(requestID string, err error) {
	payload := ErrorPayload{
		Code:    domain.ErrInternalError.Code,
		Kind:    string(domain.KindInternal),
		Message: domain.ErrInternalError.Message,
	}
	var de *domain.Error
	if errors.As(err, &de) {
		payload = ErrorPayload{Code: de.Code, Kind: string(de.Kind), Message: de.Message}
	}
	if !domain.IsExpected(err) {
		c.logger.Error("websocket action failed", "user_id", c.userID, "mes_id", requestID, "error", err)
	}
	c.sendMessage(Message{Type: MessageTypeError, RequestID: requestID, Data: payload})
}

func (c *Client) sendMessage(msg Message) {
	msg.Timestamp = time.Now()
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal message", "type", msg.Type, "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// ServeWs upgrades an authenticated request and starts the client pumps.
// A nil limiter leaves socket actions unlimited.
func ServeWs(hub *Hub, actions Actions, limiter ActionLimiter, userID string, logger *slog.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(hub, actions, conn, userID, logger)
	client.limiter = limiter
	hub.Register(client)

	go client.writePump()
	go client.readPump()

	logger.Debug("new websocket connection", "client_id", client.id, "user_id", userID)
}
