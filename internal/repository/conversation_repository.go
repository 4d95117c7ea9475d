package repository

import (
	"context"
	"errors"
	"time"

	"flowboard/internal/domain/conversation"
	"flowboard/internal/domain/message"
	flowboard_errors "flowboard/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

func (r *PostgresConversationRepository) Create(ctx context.Context, c *conversation.Conversation) error {
	// Participants ride along as an association so the conversation and
	// its membership land in one transaction.
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	var c conversation.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return conversation.Conversation{}, translateError(err)
	}
	return c, nil
}

func (r *PostgresConversationRepository) FindDirect(ctx context.Context, userA, userB uuid.UUID) (conversation.Conversation, error) {
	var c conversation.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("type = ? AND pair_key = ?", conversation.TypeDirect, conversation.PairKeyFor(userA, userB)).
		First(&c).Error
	if err != nil {
		return conversation.Conversation{}, translateError(err)
	}
	return c, nil
}

func (r *PostgresConversationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]ConversationListing, error) {
	var conversations []conversation.Conversation

	subQuery := r.db.Model(&conversation.Participant{}).
		Select("conversation_id").
		Where("user_id = ?", userID)

	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id IN (?)", subQuery).
		Order("last_message_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, translateError(err)
	}

	listings := make([]ConversationListing, 0, len(conversations))
	for _, c := range conversations {
		listing := ConversationListing{Conversation: c}

		var last message.Message
		err := r.db.WithContext(ctx).
			Where("conversation_id = ?", c.ID).
			Order("created_at DESC").
			First(&last).Error
		if err == nil {
			listing.LastMessage = &last
		} else if !errors.Is(translateError(err), flowboard_errors.ErrNotFound) {
			return nil, translateError(err)
		}

		unread, err := r.countUnread(ctx, c, userID)
		if err != nil {
			return nil, err
		}
		listing.UnreadCount = unread

		listings = append(listings, listing)
	}

	return listings, nil
}

// countUnread derives the unread count from the participant's read
// watermark: messages from others created after it, or all messages from
// others when the watermark is null.
func (r *PostgresConversationRepository) countUnread(ctx context.Context, c conversation.Conversation, userID uuid.UUID) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("conversation_id = ? AND sender_id <> ?", c.ID, userID)

	for _, p := range c.Participants {
		if p.UserID == userID && p.LastReadAt.Valid {
			q = q.Where("created_at > ?", p.LastReadAt.Time)
			break
		}
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

func (r *PostgresConversationRepository) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&conversation.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

func (r *PostgresConversationRepository) GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]conversation.Participant, error) {
	var participants []conversation.Participant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Find(&participants).Error
	if err != nil {
		return nil, translateError(err)
	}
	return participants, nil
}

func (r *PostgresConversationRepository) MarkRead(ctx context.Context, conversationID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("last_read_at", time.Now())
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return flowboard_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) Touch(ctx context.Context, conversationID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"last_message_at": at,
			"updated_at":      at,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return flowboard_errors.ErrNotFound
	}
	return nil
}
