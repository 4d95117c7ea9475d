package events

import (
	"time"

	"github.com/google/uuid"
)

// Event names emitted over WebSocket connections.
const (
	EventMessage    = "message"
	EventNewMessage = "newMessage"
	EventReaction   = "reaction"
	EventOnline     = "online"
	EventOffline    = "offline"
	EventTyping     = "typing"
)

// Channel key prefixes. A channel is an opaque string key partitioning
// connections into broadcast groups.
const (
	channelPrefixConversation = "conversation:"
	channelPrefixUser         = "user:"
)

// ConversationChannel returns the channel key for a conversation.
func ConversationChannel(conversationID uuid.UUID) string {
	return channelPrefixConversation + conversationID.String()
}

// UserChannel returns the personal channel key for a user.
func UserChannel(userID uuid.UUID) string {
	return channelPrefixUser + userID.String()
}

// ParseConversationChannel extracts the conversation id from a channel
// key, reporting whether the key names a conversation channel at all.
func ParseConversationChannel(channel string) (uuid.UUID, bool) {
	if len(channel) <= len(channelPrefixConversation) ||
		channel[:len(channelPrefixConversation)] != channelPrefixConversation {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(channel[len(channelPrefixConversation):])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// IsUserChannel reports whether the channel key is the personal channel
// of the given user.
func IsUserChannel(channel string, userID uuid.UUID) bool {
	return channel == UserChannel(userID)
}

// Envelope is the wire frame for every outbound event.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// UserSummary is the sender summary embedded in message payloads.
type UserSummary struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
}

// MessageEvent is emitted on the conversation channel when a message is
// created.
type MessageEvent struct {
	ID             uuid.UUID   `json:"id"`
	ConversationID uuid.UUID   `json:"conversationId"`
	SenderID       uuid.UUID   `json:"senderId"`
	Content        string      `json:"content"`
	CreatedAt      time.Time   `json:"createdAt"`
	Sender         UserSummary `json:"sender"`
}

// NewMessageEvent is emitted on each other participant's personal channel
// so devices not viewing the conversation still get notified.
type NewMessageEvent struct {
	ConversationID uuid.UUID    `json:"conversationId"`
	Message        MessageEvent `json:"message"`
}

// Reaction actions
const (
	ReactionActionAdd    = "add"
	ReactionActionRemove = "remove"
)

// ReactionEvent is emitted on the conversation channel when a reaction is
// added or removed.
type ReactionEvent struct {
	MessageID uuid.UUID `json:"messageId"`
	Emoji     string    `json:"emoji"`
	UserID    uuid.UUID `json:"userId"`
	Action    string    `json:"action"`
}

// PresenceEvent is broadcast to all other connections when a user
// transitions online or offline.
type PresenceEvent struct {
	UserID uuid.UUID `json:"userId"`
	Online bool      `json:"online"`
}

// TypingEvent is relayed to the other members of a conversation channel.
// It is ephemeral and never persisted.
type TypingEvent struct {
	ConversationID uuid.UUID `json:"conversationId"`
	UserID         uuid.UUID `json:"userId"`
	Typing         bool      `json:"typing"`
}
