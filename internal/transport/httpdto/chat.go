package httpdto

import (
	"time"

	"flowboard/internal/domain/conversation"
	"flowboard/internal/domain/message"
	"flowboard/internal/domain/user"
	"flowboard/internal/repository"
)

type CreateDirectConversationRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type AddReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

type ParticipantResponse struct {
	UserID     string     `json:"user_id"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
	JoinedAt   time.Time  `json:"joined_at"`
}

type ConversationResponse struct {
	ID            string                `json:"id"`
	Type          string                `json:"type"`
	ProjectID     string                `json:"project_id,omitempty"`
	BoardID       string                `json:"board_id,omitempty"`
	LastMessageAt time.Time             `json:"last_message_at"`
	CreatedAt     time.Time             `json:"created_at"`
	Participants  []ParticipantResponse `json:"participants"`
}

type ConversationListingResponse struct {
	Conversation ConversationResponse `json:"conversation"`
	LastMessage  *MessageResponse     `json:"last_message,omitempty"`
	UnreadCount  int64                `json:"unread_count"`
}

type ReactionResponse struct {
	UserID string `json:"user_id"`
	Emoji  string `json:"emoji"`
}

type MessageResponse struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversation_id"`
	SenderID       string             `json:"sender_id"`
	Content        string             `json:"content"`
	CreatedAt      time.Time          `json:"created_at"`
	Reactions      []ReactionResponse `json:"reactions,omitempty"`
}

type ContactResponse struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email"`
	Online      bool       `json:"online"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
}

func FromConversation(c conversation.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:            c.ID.String(),
		Type:          c.Type,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		Participants:  make([]ParticipantResponse, 0, len(c.Participants)),
	}
	if c.ProjectID.Valid {
		resp.ProjectID = c.ProjectID.UUID.String()
	}
	if c.BoardID.Valid {
		resp.BoardID = c.BoardID.UUID.String()
	}
	for _, p := range c.Participants {
		pr := ParticipantResponse{
			UserID:   p.UserID.String(),
			JoinedAt: p.JoinedAt,
		}
		if p.LastReadAt.Valid {
			t := p.LastReadAt.Time
			pr.LastReadAt = &t
		}
		resp.Participants = append(resp.Participants, pr)
	}
	return resp
}

func FromMessage(m message.Message) MessageResponse {
	resp := MessageResponse{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		SenderID:       m.SenderID.String(),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
	for _, r := range m.Reactions {
		resp.Reactions = append(resp.Reactions, ReactionResponse{
			UserID: r.UserID.String(),
			Emoji:  r.Emoji,
		})
	}
	return resp
}

func FromMessageSlice(messages []message.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, FromMessage(m))
	}
	return out
}

func FromConversationListing(l repository.ConversationListing) ConversationListingResponse {
	resp := ConversationListingResponse{
		Conversation: FromConversation(l.Conversation),
		UnreadCount:  l.UnreadCount,
	}
	if l.LastMessage != nil {
		m := FromMessage(*l.LastMessage)
		resp.LastMessage = &m
	}
	return resp
}

func FromContact(u user.User, online bool, lastSeen *time.Time) ContactResponse {
	return ContactResponse{
		ID:          u.ID.String(),
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Online:      online,
		LastSeenAt:  lastSeen,
	}
}
