package message

import (
	"time"

	"github.com/google/uuid"
)

// Message represents the messages table. Messages are immutable after
// creation; they belong to their conversation and are removed with it.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null"`
	Content        string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"index"`

	// Relationships
	Reactions []MessageReaction `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
}

// MessageReaction represents the message_reactions table. The composite
// primary key makes (message, user, emoji) unique; re-adding the same
// reaction is a no-op.
type MessageReaction struct {
	MessageID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Emoji     string    `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (Message) TableName() string {
	return "messages"
}

func (MessageReaction) TableName() string {
	return "message_reactions"
}
