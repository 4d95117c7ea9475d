package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"flowboard/internal/domain/conversation"
	"flowboard/internal/domain/message"
	"flowboard/internal/domain/user"
	"flowboard/internal/events"
	"flowboard/internal/repository"
	flowboard_errors "flowboard/pkg/errors"
	"flowboard/pkg/logger"

	"github.com/google/uuid"
)

const (
	defaultMessagePageSize = 50
	maxMessagePageSize     = 100
	maxMessageLength       = 8 * 1024
)

// Broadcaster fans events out to live connections. Delivery is
// fire-and-forget: connections joining after a broadcast never see it,
// durable history is the source of truth.
type Broadcaster interface {
	Broadcast(channel, event string, payload any)
	BroadcastToUser(userID uuid.UUID, event string, payload any)
}

// ChatService orchestrates the conversation store and the hub. Every
// operation authorizes the caller through participant membership before
// touching the store, and only broadcasts after the store mutation has
// committed.
type ChatService struct {
	convRepo    repository.ConversationRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	broadcaster Broadcaster
	log         *logger.Logger
}

func NewChatService(
	convRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	broadcaster Broadcaster,
	log *logger.Logger,
) *ChatService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ChatService{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		broadcaster: broadcaster,
		log:         log,
	}
}

// GetOrCreateDirect returns the direct conversation between the caller
// and the other user, creating it when missing. Safe under concurrent
// invocation from either side: the pair-key unique constraint resolves
// the race and the loser re-reads the winner's row.
func (s *ChatService) GetOrCreateDirect(ctx context.Context, userID, otherID uuid.UUID) (conversation.Conversation, error) {
	if userID == otherID {
		return conversation.Conversation{}, fmt.Errorf("%w: cannot start a conversation with yourself", flowboard_errors.ErrInvalidInput)
	}
	if _, err := s.userRepo.GetByID(ctx, otherID); err != nil {
		return conversation.Conversation{}, err
	}

	conv, err := s.convRepo.FindDirect(ctx, userID, otherID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, flowboard_errors.ErrNotFound) {
		return conversation.Conversation{}, err
	}

	now := time.Now()
	conv = conversation.Conversation{
		ID:            uuid.New(),
		Type:          conversation.TypeDirect,
		PairKey:       sql.NullString{String: conversation.PairKeyFor(userID, otherID), Valid: true},
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
		Participants: []conversation.Participant{
			{UserID: userID, JoinedAt: now},
			{UserID: otherID, JoinedAt: now},
		},
	}
	// Participant ConversationID is filled by the association insert.
	for i := range conv.Participants {
		conv.Participants[i].ConversationID = conv.ID
	}

	err = s.convRepo.Create(ctx, &conv)
	if err == nil {
		return conv, nil
	}
	if errors.Is(err, flowboard_errors.ErrAlreadyExists) {
		// The other side won the race; their row is the conversation.
		return s.convRepo.FindDirect(ctx, userID, otherID)
	}
	return conversation.Conversation{}, err
}

// ListConversations returns the caller's conversations annotated with
// last message and unread count.
func (s *ChatService) ListConversations(ctx context.Context, userID uuid.UUID) ([]repository.ConversationListing, error) {
	return s.convRepo.ListForUser(ctx, userID)
}

// SendMessage persists the message, then fans it out: the conversation
// channel gets the message event, every other participant's personal
// channel gets a newMessage notification. The write fully commits before
// any broadcast fires.
func (s *ChatService) SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string) (message.Message, error) {
	if content == "" || len(content) > maxMessageLength {
		return message.Message{}, flowboard_errors.ErrInvalidInput
	}
	if err := s.authorize(ctx, conversationID, senderID); err != nil {
		return message.Message{}, err
	}

	msg := message.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	if err := s.messageRepo.Create(ctx, &msg); err != nil {
		return message.Message{}, err
	}
	if err := s.convRepo.Touch(ctx, conversationID, msg.CreatedAt); err != nil {
		s.log.Warnf("failed to bump conversation activity: %v", err)
	}

	event := s.messageEvent(ctx, msg)
	s.broadcaster.Broadcast(events.ConversationChannel(conversationID), events.EventMessage, event)

	participants, err := s.convRepo.GetParticipants(ctx, conversationID)
	if err != nil {
		s.log.Warnf("failed to load participants for fan-out: %v", err)
		return msg, nil
	}
	for _, p := range participants {
		if p.UserID == senderID {
			continue
		}
		s.broadcaster.BroadcastToUser(p.UserID, events.EventNewMessage, events.NewMessageEvent{
			ConversationID: conversationID,
			Message:        event,
		})
	}

	return msg, nil
}

// GetMessages returns a page of messages bounded by the before cursor,
// oldest first for chronological display. Fetching history marks the
// conversation read for the caller.
func (s *ChatService) GetMessages(ctx context.Context, conversationID, userID uuid.UUID, limit int, before time.Time) ([]message.Message, error) {
	if err := s.authorize(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultMessagePageSize
	}
	if limit > maxMessagePageSize {
		limit = maxMessagePageSize
	}

	messages, err := s.messageRepo.ListBefore(ctx, conversationID, before, limit)
	if err != nil {
		return nil, err
	}

	if err := s.convRepo.MarkRead(ctx, conversationID, userID); err != nil {
		s.log.Warnf("failed to mark conversation read: %v", err)
	}

	// Store order is newest first; display order is chronological.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// AddReaction upserts the (message, user, emoji) reaction and notifies
// the conversation channel.
func (s *ChatService) AddReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	if emoji == "" {
		return flowboard_errors.ErrInvalidInput
	}
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, msg.ConversationID, userID); err != nil {
		return err
	}

	reaction := message.MessageReaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now(),
	}
	if err := s.messageRepo.AddReaction(ctx, &reaction); err != nil {
		return err
	}

	s.broadcaster.Broadcast(events.ConversationChannel(msg.ConversationID), events.EventReaction, events.ReactionEvent{
		MessageID: messageID,
		Emoji:     emoji,
		UserID:    userID,
		Action:    events.ReactionActionAdd,
	})
	return nil
}

// RemoveReaction deletes the reaction if present. Removing a reaction
// that does not exist is a no-op and broadcasts nothing.
func (s *ChatService) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, msg.ConversationID, userID); err != nil {
		return err
	}

	removed, err := s.messageRepo.RemoveReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	s.broadcaster.Broadcast(events.ConversationChannel(msg.ConversationID), events.EventReaction, events.ReactionEvent{
		MessageID: messageID,
		Emoji:     emoji,
		UserID:    userID,
		Action:    events.ReactionActionRemove,
	})
	return nil
}

// MarkAsRead moves the caller's read watermark. Read state is pulled by
// peers, never pushed, so there is no broadcast.
func (s *ChatService) MarkAsRead(ctx context.Context, conversationID, userID uuid.UUID) error {
	if err := s.authorize(ctx, conversationID, userID); err != nil {
		return err
	}
	return s.convRepo.MarkRead(ctx, conversationID, userID)
}

// ListContacts returns the users the caller can start a conversation
// with.
func (s *ChatService) ListContacts(ctx context.Context, userID uuid.UUID) ([]user.User, error) {
	return s.userRepo.ListExcept(ctx, userID)
}

// authorize is the hard precondition on every operation: callers outside
// the participant set are rejected before any mutation or broadcast.
func (s *ChatService) authorize(ctx context.Context, conversationID, userID uuid.UUID) error {
	ok, err := s.convRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return flowboard_errors.ErrForbidden
	}
	return nil
}

func (s *ChatService) messageEvent(ctx context.Context, msg message.Message) events.MessageEvent {
	event := events.MessageEvent{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
		Sender:         events.UserSummary{ID: msg.SenderID},
	}
	if sender, err := s.userRepo.GetByID(ctx, msg.SenderID); err == nil {
		event.Sender.DisplayName = sender.DisplayName
	}
	return event
}
