package websocket

import (
	"context"

	"flowboard/internal/events"

	"github.com/google/uuid"
)

// ParticipantChecker is the single authorization primitive the hub needs
// from the conversation store.
type ParticipantChecker interface {
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
}

// ChannelAuthorizer decides whether a connection may subscribe to a
// channel. Conversation channels require store-backed membership; a
// user's own personal channel is always allowed.
type ChannelAuthorizer struct {
	participants ParticipantChecker
}

func NewChannelAuthorizer(participants ParticipantChecker) *ChannelAuthorizer {
	return &ChannelAuthorizer{participants: participants}
}

func (a *ChannelAuthorizer) CanSubscribe(ctx context.Context, userID uuid.UUID, channel string) (bool, error) {
	if events.IsUserChannel(channel, userID) {
		return true, nil
	}
	if convID, ok := events.ParseConversationChannel(channel); ok {
		return a.participants.IsParticipant(ctx, convID, userID)
	}
	// Default deny
	return false, nil
}
