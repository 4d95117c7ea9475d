package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"flowboard/internal/events"
	"flowboard/pkg/logger"

	"github.com/google/uuid"
)

// subscriptionRequest represents a channel subscription/unsubscription request
type subscriptionRequest struct {
	client    *Client
	channel   string
	subscribe bool
}

// Hub routes events to logically scoped channels. A channel is an opaque
// string key mapped to the set of subscribed connections; the registry is
// an explicit map rather than a transport library's room feature.
// Delivery is fire-and-forget and at-most-once per connected socket.
type Hub struct {
	mu sync.RWMutex

	// clients maps connection ID to client (for cleanup)
	clients map[string]*Client

	// channels maps channel key to the set of subscribed clients
	channels map[string]map[*Client]struct{}

	presence *PresenceRegistry

	register     chan *Client
	unregister   chan *Client
	subscription chan subscriptionRequest

	// presenceHook, when set, observes online/offline transitions. Used
	// to persist last-seen timestamps outside the hub.
	presenceHook func(userID uuid.UUID, online bool)

	log *logger.Logger
}

// NewHub creates a hub around the given presence registry.
func NewHub(presence *PresenceRegistry, log *logger.Logger) *Hub {
	if presence == nil {
		presence = NewPresenceRegistry()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{
		clients:      make(map[string]*Client),
		channels:     make(map[string]map[*Client]struct{}),
		presence:     presence,
		register:     make(chan *Client, 256),
		unregister:   make(chan *Client, 256),
		subscription: make(chan subscriptionRequest, 512),
		log:          log,
	}
}

// Presence exposes the hub's presence registry.
func (h *Hub) Presence() *PresenceRegistry {
	return h.presence
}

// SetPresenceHook registers an observer for presence transitions. Must
// be called before Run.
func (h *Hub) SetPresenceHook(hook func(userID uuid.UUID, online bool)) {
	h.presenceHook = hook
}

// Run processes connection lifecycle events until the context is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case req := <-h.subscription:
			if req.subscribe {
				h.subscribeToChannel(req.client, req.channel)
			} else {
				h.unsubscribeFromChannel(req.client, req.channel)
			}
		}
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe subscribes a client to a channel
func (h *Hub) Subscribe(client *Client, channel string) {
	h.subscription <- subscriptionRequest{client: client, channel: channel, subscribe: true}
}

// Unsubscribe unsubscribes a client from a channel
func (h *Hub) Unsubscribe(client *Client, channel string) {
	h.subscription <- subscriptionRequest{client: client, channel: channel, subscribe: false}
}

// Broadcast sends an event to every client currently subscribed to the
// channel. Clients that join afterwards do not receive it.
func (h *Hub) Broadcast(channel, event string, payload any) {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		h.log.Errorf("failed to encode %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	for c := range h.channels[channel] {
		c.SendMessage(data)
	}
	h.mu.RUnlock()
}

// BroadcastToUser sends an event to all of a user's connections
// regardless of channel membership.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event string, payload any) {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		h.log.Errorf("failed to encode %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	for _, client := range h.clients {
		if client.UserID == userID {
			client.SendMessage(data)
		}
	}
	h.mu.RUnlock()
}

// broadcastToChannelExcept relays an event to every channel member other
// than the sender. Used for typing indicators.
func (h *Hub) broadcastToChannelExcept(channel string, sender *Client, event string, payload any) {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		h.log.Errorf("failed to encode %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	for c := range h.channels[channel] {
		if c != sender {
			c.SendMessage(data)
		}
	}
	h.mu.RUnlock()
}

// broadcastPresence tells every other user's connections about an
// online/offline transition.
func (h *Hub) broadcastPresence(userID uuid.UUID, online bool) {
	event := events.EventOffline
	if online {
		event = events.EventOnline
	}
	data, err := marshalEnvelope(event, events.PresenceEvent{UserID: userID, Online: online})
	if err != nil {
		h.log.Errorf("failed to encode presence event: %v", err)
		return
	}

	h.mu.RLock()
	for _, client := range h.clients {
		if client.UserID != userID {
			client.SendMessage(data)
		}
	}
	h.mu.RUnlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ChannelSubscriberCount returns the number of subscribers for a channel.
func (h *Hub) ChannelSubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	if h.presence.Register(client.UserID, client.ID) {
		h.broadcastPresence(client.UserID, true)
		if h.presenceHook != nil {
			h.presenceHook(client.UserID, true)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		return
	}
	for _, channel := range client.channelList() {
		if subscribers, ok := h.channels[channel]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.channels, channel)
			}
		}
	}
	delete(h.clients, client.ID)
	client.closeSend()
	h.mu.Unlock()

	if h.presence.Unregister(client.UserID, client.ID) {
		h.broadcastPresence(client.UserID, false)
		if h.presenceHook != nil {
			h.presenceHook(client.UserID, false)
		}
	}
}

func (h *Hub) subscribeToChannel(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[*Client]struct{})
	}
	h.channels[channel][client] = struct{}{}
	client.addChannel(channel)
}

func (h *Hub) unsubscribeFromChannel(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subscribers, ok := h.channels[channel]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.channels, channel)
		}
	}
	client.removeChannel(channel)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.closeSend()
	}
	h.clients = make(map[string]*Client)
	h.channels = make(map[string]map[*Client]struct{})
}

func marshalEnvelope(event string, payload any) ([]byte, error) {
	return json.Marshal(events.Envelope{Event: event, Data: payload})
}
