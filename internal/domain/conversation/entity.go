package conversation

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Conversation types
const (
	TypeDirect = "DIRECT"
	TypeGroup  = "GROUP"
)

// Conversation represents the conversations table. A DIRECT conversation
// holds exactly two participants and is unique per unordered user pair,
// enforced by the pair_key unique index. GROUP conversations leave
// pair_key null and may be scoped to a project or board.
type Conversation struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type          string    `gorm:"not null"`
	PairKey       sql.NullString `gorm:"uniqueIndex"`
	ProjectID     uuid.NullUUID  `gorm:"type:uuid"`
	BoardID       uuid.NullUUID  `gorm:"type:uuid"`
	LastMessageAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Relationships
	Participants []Participant `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// Participant represents the participants table. LastReadAt is the read
// watermark: messages from others created after it count as unread; a null
// watermark means everything is unread.
type Participant struct {
	ConversationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	LastReadAt     sql.NullTime
	JoinedAt       time.Time
}

func (Conversation) TableName() string {
	return "conversations"
}

func (Participant) TableName() string {
	return "participants"
}

// PairKeyFor builds the canonical pair key for a direct conversation
// between two users. The key is order independent.
func PairKeyFor(a, b uuid.UUID) string {
	if a.String() < b.String() {
		return a.String() + ":" + b.String()
	}
	return b.String() + ":" + a.String()
}

// OtherParticipants returns the user ids of every participant except the
// given one.
func (c Conversation) OtherParticipants(userID uuid.UUID) []uuid.UUID {
	others := make([]uuid.UUID, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p.UserID != userID {
			others = append(others, p.UserID)
		}
	}
	return others
}

// HasParticipant reports whether the preloaded participant set includes
// the given user.
func (c Conversation) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
