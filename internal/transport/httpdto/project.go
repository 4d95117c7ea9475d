package httpdto

import (
	"time"

	"flowboard/internal/domain/project"
)

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type CreateBoardRequest struct {
	Name     string `json:"name" binding:"required"`
	Position int    `json:"position"`
}

type CreateCardRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Position    int    `json:"position"`
	AssigneeID  string `json:"assignee_id"`
}

type UpdateCardRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Position    int    `json:"position"`
	AssigneeID  string `json:"assignee_id"`
}

type CreateNoteRequest struct {
	Body string `json:"body" binding:"required"`
}

type ProjectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type BoardResponse struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
}

type CardResponse struct {
	ID          string    `json:"id"`
	BoardID     string    `json:"board_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Position    int       `json:"position"`
	AssigneeID  string    `json:"assignee_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type NoteResponse struct {
	ID        string    `json:"id"`
	CardID    string    `json:"card_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func FromProject(p project.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description.String,
		OwnerID:     p.OwnerID.String(),
		CreatedAt:   p.CreatedAt,
	}
}

func FromBoard(b project.Board) BoardResponse {
	return BoardResponse{
		ID:        b.ID.String(),
		ProjectID: b.ProjectID.String(),
		Name:      b.Name,
		Position:  b.Position,
	}
}

func FromCard(c project.Card) CardResponse {
	resp := CardResponse{
		ID:          c.ID.String(),
		BoardID:     c.BoardID.String(),
		Title:       c.Title,
		Description: c.Description.String,
		Position:    c.Position,
		CreatedAt:   c.CreatedAt,
	}
	if c.AssigneeID.Valid {
		resp.AssigneeID = c.AssigneeID.UUID.String()
	}
	return resp
}

func FromNote(n project.Note) NoteResponse {
	return NoteResponse{
		ID:        n.ID.String(),
		CardID:    n.CardID.String(),
		AuthorID:  n.AuthorID.String(),
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
	}
}
