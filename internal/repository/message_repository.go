package repository

import (
	"context"
	"time"

	"flowboard/internal/domain/message"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).
		Preload("Reactions").
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		return message.Message{}, translateError(err)
	}
	return m, nil
}

func (r *PostgresMessageRepository) ListBefore(ctx context.Context, conversationID uuid.UUID, before time.Time, limit int) ([]message.Message, error) {
	q := r.db.WithContext(ctx).
		Preload("Reactions").
		Where("conversation_id = ?", conversationID)

	if !before.IsZero() {
		q = q.Where("created_at < ?", before)
	}

	var messages []message.Message
	err := q.Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, translateError(err)
	}
	return messages, nil
}

func (r *PostgresMessageRepository) AddReaction(ctx context.Context, reaction *message.MessageReaction) error {
	// ON CONFLICT DO NOTHING keeps re-adds idempotent without a
	// read-then-write race.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(reaction).Error
	if err != nil {
		return translateError(err)
	}
	return nil
}

func (r *PostgresMessageRepository) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error) {
	res := r.db.WithContext(ctx).
		Delete(&message.MessageReaction{}, "message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji)
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresMessageRepository) GetReactions(ctx context.Context, messageID uuid.UUID) ([]message.MessageReaction, error) {
	var reactions []message.MessageReaction
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Find(&reactions).Error
	if err != nil {
		return nil, translateError(err)
	}
	return reactions, nil
}
