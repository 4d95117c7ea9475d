package repository

import (
	"context"
	"time"

	"flowboard/internal/domain/conversation"
	"flowboard/internal/domain/message"
	"flowboard/internal/domain/project"
	"flowboard/internal/domain/user"

	"github.com/google/uuid"
)

// ConversationListing is a conversation annotated for the caller's inbox
// view: its most recent message and the caller's unread count derived
// from the read watermark.
type ConversationListing struct {
	Conversation conversation.Conversation
	LastMessage  *message.Message
	UnreadCount  int64
}

type ConversationRepository interface {
	// Create persists the conversation together with its participants.
	// A duplicate direct pair key yields ErrAlreadyExists.
	Create(ctx context.Context, c *conversation.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error)
	// FindDirect returns the direct conversation between the two users,
	// or ErrNotFound.
	FindDirect(ctx context.Context, userA, userB uuid.UUID) (conversation.Conversation, error)
	// ListForUser returns the caller's conversations ordered by last
	// activity, each annotated with last message and unread count.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]ConversationListing, error)
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]conversation.Participant, error)
	// MarkRead moves the participant's read watermark to now.
	MarkRead(ctx context.Context, conversationID, userID uuid.UUID) error
	// Touch bumps the conversation's last-activity timestamp.
	Touch(ctx context.Context, conversationID uuid.UUID, at time.Time) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	// ListBefore returns up to limit messages newest first, bounded by
	// the before timestamp when it is non-zero.
	ListBefore(ctx context.Context, conversationID uuid.UUID, before time.Time, limit int) ([]message.Message, error)
	// AddReaction is an idempotent upsert keyed by (message, user, emoji).
	AddReaction(ctx context.Context, r *message.MessageReaction) error
	// RemoveReaction deletes the reaction if present and reports whether
	// anything was removed. A missing reaction is not an error.
	RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error)
	GetReactions(ctx context.Context, messageID uuid.UUID) ([]message.MessageReaction, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	// ListExcept returns every user except the given one, for starting
	// new conversations.
	ListExcept(ctx context.Context, userID uuid.UUID) ([]user.User, error)
}

type ProjectRepository interface {
	CreateProject(ctx context.Context, p *project.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (project.Project, error)
	ListProjects(ctx context.Context, ownerID uuid.UUID) ([]project.Project, error)
	UpdateProject(ctx context.Context, p project.Project) error
	DeleteProject(ctx context.Context, id uuid.UUID) error

	CreateBoard(ctx context.Context, b *project.Board) error
	ListBoards(ctx context.Context, projectID uuid.UUID) ([]project.Board, error)
	UpdateBoard(ctx context.Context, b project.Board) error
	DeleteBoard(ctx context.Context, id uuid.UUID) error

	CreateCard(ctx context.Context, c *project.Card) error
	GetCard(ctx context.Context, id uuid.UUID) (project.Card, error)
	ListCards(ctx context.Context, boardID uuid.UUID) ([]project.Card, error)
	UpdateCard(ctx context.Context, c project.Card) error
	DeleteCard(ctx context.Context, id uuid.UUID) error

	CreateNote(ctx context.Context, n *project.Note) error
	ListNotes(ctx context.Context, cardID uuid.UUID) ([]project.Note, error)
	DeleteNote(ctx context.Context, id uuid.UUID) error
}
