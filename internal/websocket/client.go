package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"flowboard/internal/events"
	"flowboard/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 32 * 1024
)

// Frame rate limits per minute
const (
	maxTypingFrames = 60
	maxPingFrames   = 60
)

// frameLimiter is a per-connection token bucket for client-initiated
// frames.
type frameLimiter struct {
	mu           sync.Mutex
	typingTokens int
	pingTokens   int
	lastRefill   time.Time
}

func newFrameLimiter() *frameLimiter {
	return &frameLimiter{
		typingTokens: maxTypingFrames,
		pingTokens:   maxPingFrames,
		lastRefill:   time.Now(),
	}
}

func (rl *frameLimiter) Allow(frameType string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastRefill) >= time.Minute {
		rl.typingTokens = maxTypingFrames
		rl.pingTokens = maxPingFrames
		rl.lastRefill = time.Now()
	}

	switch frameType {
	case frameTypingStart, frameTypingStop:
		if rl.typingTokens > 0 {
			rl.typingTokens--
			return true
		}
	case framePing:
		if rl.pingTokens > 0 {
			rl.pingTokens--
			return true
		}
	default:
		return true
	}
	return false
}

// Client represents one live WebSocket connection. A user may hold
// several at once.
type Client struct {
	ID     string
	UserID uuid.UUID
	Send   chan []byte

	hub        *Hub
	conn       *websocket.Conn
	authorizer *ChannelAuthorizer
	limiter    *frameLimiter
	log        *logger.Logger

	mu       sync.RWMutex
	channels map[string]bool

	sendMu     sync.Mutex
	sendClosed bool
}

// NewClient creates a client for an admitted connection. The user id is
// the gateway-verified identity; nothing downstream re-validates it.
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, authorizer *ChannelAuthorizer, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		ID:         uuid.New().String(),
		UserID:     userID,
		Send:       make(chan []byte, 256),
		hub:        hub,
		conn:       conn,
		authorizer: authorizer,
		limiter:    newFrameLimiter(),
		log:        log,
	}
}

func (c *Client) addChannel(channel string) {
	c.mu.Lock()
	if c.channels == nil {
		c.channels = make(map[string]bool)
	}
	c.channels[channel] = true
	c.mu.Unlock()
}

func (c *Client) removeChannel(channel string) {
	c.mu.Lock()
	delete(c.channels, channel)
	c.mu.Unlock()
}

func (c *Client) channelList() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		list = append(list, ch)
	}
	return list
}

// IsSubscribed checks if the client is subscribed to a channel.
func (c *Client) IsSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channels[channel]
}

// SendMessage queues a message without blocking. Full buffers drop the
// message; durable history is the recovery path. Sends after the hub
// has closed the queue are discarded, so the read goroutine's direct
// replies cannot hit a closed channel during shutdown.
func (c *Client) SendMessage(msg []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	select {
	case c.Send <- msg:
	default:
		c.log.Warnf("client %s send buffer full, dropping frame", c.ID)
	}
}

// closeSend shuts the send queue exactly once. Called by the hub when
// the client is removed or the hub stops.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.Send)
}

// Client frame types
const (
	frameJoin        = "join"
	frameLeave       = "leave"
	frameTypingStart = "typing:start"
	frameTypingStop  = "typing:stop"
	framePing        = "ping"
)

// ClientFrame is an inbound frame from the client.
type ClientFrame struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversation_id,omitempty"`
}

// ReadPump consumes inbound frames until the connection drops. A silent
// network drop is caught by the pong deadline and ends the loop, so the
// disconnect always reaches the hub.
func (c *Client) ReadPump() {
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
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warnf("client %s unexpected close: %v", c.ID, err)
			}
			return
		}
		if err := c.handleFrame(raw); err != nil {
			c.log.Warnf("client %s frame failed: %v", c.ID, err)
		}
	}
}

func (c *Client) handleFrame(raw []byte) error {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return err
	}

	if !c.limiter.Allow(frame.Type) {
		c.log.Logger.Warn("frame rate limit exceeded",
			zap.String("client_id", c.ID),
			zap.String("frame_type", frame.Type))
		return nil
	}

	switch frame.Type {
	case frameJoin:
		return c.handleJoin(frame)
	case frameLeave:
		c.hub.Unsubscribe(c, events.ConversationChannel(frame.ConversationID))
		return nil
	case frameTypingStart:
		return c.handleTyping(frame, true)
	case frameTypingStop:
		return c.handleTyping(frame, false)
	case framePing:
		c.SendMessage([]byte(`{"event":"pong"}`))
		return nil
	default:
		c.log.Logger.Warn("unknown frame type",
			zap.String("client_id", c.ID),
			zap.String("frame_type", frame.Type))
		return nil
	}
}

func (c *Client) handleJoin(frame ClientFrame) error {
	channel := events.ConversationChannel(frame.ConversationID)

	// Membership is checked against the store here, in the connection's
	// own goroutine, never under a hub lock.
	ok, err := c.authorizer.CanSubscribe(context.Background(), c.UserID, channel)
	if err != nil {
		return err
	}
	if !ok {
		c.log.Logger.Warn("channel subscription denied",
			zap.String("client_id", c.ID),
			zap.String("channel", channel))
		return nil
	}

	c.hub.Subscribe(c, channel)
	return nil
}

// handleTyping relays the indicator to the other members currently in
// the channel. Nothing is persisted.
func (c *Client) handleTyping(frame ClientFrame, typing bool) error {
	channel := events.ConversationChannel(frame.ConversationID)
	if !c.IsSubscribed(channel) {
		return nil
	}
	c.hub.broadcastToChannelExcept(channel, c, events.EventTyping, events.TypingEvent{
		ConversationID: frame.ConversationID,
		UserID:         c.UserID,
		Typing:         typing,
	})
	return nil
}

// WritePump drains the send queue onto the socket and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
