package database

import (
	"database/sql"
	"fmt"
	"time"

	"flowboard/internal/domain/conversation"
	"flowboard/internal/domain/message"
	"flowboard/internal/domain/project"
	"flowboard/internal/domain/user"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedConfig holds configuration for seeding demo data
type SeedConfig struct {
	UserPassword string
	UserCount    int
}

// DefaultSeedConfig returns default seed configuration
func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		UserPassword: "Demo@123!",
		UserCount:    4,
	}
}

// SeedResult holds the result of the seeding operation
type SeedResult struct {
	Users        []*user.User
	Project      *project.Project
	Conversation *conversation.Conversation
}

// Seed populates the database with demo users, a sample project with a
// populated board, and a direct conversation with a short exchange.
// Idempotent: if any demo user already exists the whole run is skipped.
func Seed(db *gorm.DB, cfg *SeedConfig) (*SeedResult, error) {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}
	if cfg.UserCount < 2 {
		cfg.UserCount = 2
	}

	var existing int64
	if err := db.Model(&user.User{}).Where("email = ?", demoEmail(1)).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check for existing demo data: %w", err)
	}
	if existing > 0 {
		return nil, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.UserPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash demo password: %w", err)
	}

	result := &SeedResult{}

	err = db.Transaction(func(tx *gorm.DB) error {
		for i := 1; i <= cfg.UserCount; i++ {
			u := &user.User{
				ID:           uuid.New(),
				Email:        demoEmail(i),
				DisplayName:  fmt.Sprintf("Demo User %d", i),
				PasswordHash: string(hash),
			}
			if err := tx.Create(u).Error; err != nil {
				return fmt.Errorf("failed to create demo user %d: %w", i, err)
			}
			result.Users = append(result.Users, u)
		}

		owner := result.Users[0]
		p := &project.Project{
			ID:          uuid.New(),
			Name:        "Launch Plan",
			Description: sql.NullString{String: "Demo project seeded at startup", Valid: true},
			OwnerID:     owner.ID,
		}
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("failed to create demo project: %w", err)
		}
		result.Project = p

		boards := []*project.Board{
			{ID: uuid.New(), ProjectID: p.ID, Name: "Todo", Position: 0},
			{ID: uuid.New(), ProjectID: p.ID, Name: "In Progress", Position: 1},
			{ID: uuid.New(), ProjectID: p.ID, Name: "Done", Position: 2},
		}
		for _, b := range boards {
			if err := tx.Create(b).Error; err != nil {
				return fmt.Errorf("failed to create demo board: %w", err)
			}
		}

		cards := []*project.Card{
			{
				ID:       uuid.New(),
				BoardID:  boards[0].ID,
				Title:    "Write launch checklist",
				Position: 0,
				AssigneeID: uuid.NullUUID{
					UUID: result.Users[1].ID, Valid: true,
				},
			},
			{ID: uuid.New(), BoardID: boards[0].ID, Title: "Draft announcement", Position: 1},
			{ID: uuid.New(), BoardID: boards[1].ID, Title: "Set up staging", Position: 0},
		}
		for _, card := range cards {
			if err := tx.Create(card).Error; err != nil {
				return fmt.Errorf("failed to create demo card: %w", err)
			}
		}

		note := &project.Note{
			ID:       uuid.New(),
			CardID:   cards[0].ID,
			AuthorID: owner.ID,
			Body:     "Remember to include the rollback steps.",
		}
		if err := tx.Create(note).Error; err != nil {
			return fmt.Errorf("failed to create demo note: %w", err)
		}

		a, b := result.Users[0], result.Users[1]
		conv := &conversation.Conversation{
			ID:      uuid.New(),
			Type:    conversation.TypeDirect,
			PairKey: sql.NullString{String: conversation.PairKeyFor(a.ID, b.ID), Valid: true},
			Participants: []conversation.Participant{
				{UserID: a.ID, JoinedAt: time.Now()},
				{UserID: b.ID, JoinedAt: time.Now()},
			},
		}
		if err := tx.Create(conv).Error; err != nil {
			return fmt.Errorf("failed to create demo conversation: %w", err)
		}
		result.Conversation = conv

		lines := []struct {
			sender  uuid.UUID
			content string
		}{
			{a.ID, "Hey, did you see the new board layout?"},
			{b.ID, "Yes, looks much cleaner. I moved the staging card."},
			{a.ID, "Great, let's sync on the checklist tomorrow."},
		}
		var last time.Time
		for i, line := range lines {
			m := &message.Message{
				ID:             uuid.New(),
				ConversationID: conv.ID,
				SenderID:       line.sender,
				Content:        line.content,
				CreatedAt:      time.Now().Add(time.Duration(i-len(lines)) * time.Minute),
			}
			if err := tx.Create(m).Error; err != nil {
				return fmt.Errorf("failed to create demo message: %w", err)
			}
			last = m.CreatedAt
		}

		return tx.Model(&conversation.Conversation{}).
			Where("id = ?", conv.ID).
			Update("last_message_at", last).Error
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func demoEmail(i int) string {
	return fmt.Sprintf("demo%d@flowboard.dev", i)
}
