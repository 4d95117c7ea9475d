package services

import (
	"context"
	"database/sql"
	"time"

	"flowboard/internal/domain/project"
	"flowboard/internal/repository"
	flowboard_errors "flowboard/pkg/errors"

	"github.com/google/uuid"
)

// ProjectService covers the kanban CRUD surface: projects, boards, cards
// and card notes.
type ProjectService struct {
	repo repository.ProjectRepository
}

func NewProjectService(repo repository.ProjectRepository) *ProjectService {
	return &ProjectService{repo: repo}
}

type CreateProjectInput struct {
	Name        string
	Description string
	OwnerID     uuid.UUID
}

func (s *ProjectService) CreateProject(ctx context.Context, in CreateProjectInput) (project.Project, error) {
	if in.Name == "" {
		return project.Project{}, flowboard_errors.ErrInvalidInput
	}
	now := time.Now()
	p := project.Project{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: toNullString(in.Description),
		OwnerID:     in.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateProject(ctx, &p); err != nil {
		return project.Project{}, err
	}
	return p, nil
}

func (s *ProjectService) GetProject(ctx context.Context, id uuid.UUID) (project.Project, error) {
	return s.repo.GetProject(ctx, id)
}

func (s *ProjectService) ListProjects(ctx context.Context, ownerID uuid.UUID) ([]project.Project, error) {
	return s.repo.ListProjects(ctx, ownerID)
}

func (s *ProjectService) UpdateProject(ctx context.Context, p project.Project) error {
	p.UpdatedAt = time.Now()
	return s.repo.UpdateProject(ctx, p)
}

func (s *ProjectService) DeleteProject(ctx context.Context, ownerID, id uuid.UUID) error {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if p.OwnerID != ownerID {
		return flowboard_errors.ErrForbidden
	}
	return s.repo.DeleteProject(ctx, id)
}

func (s *ProjectService) CreateBoard(ctx context.Context, projectID uuid.UUID, name string, position int) (project.Board, error) {
	if name == "" {
		return project.Board{}, flowboard_errors.ErrInvalidInput
	}
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return project.Board{}, err
	}
	now := time.Now()
	b := project.Board{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      name,
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateBoard(ctx, &b); err != nil {
		return project.Board{}, err
	}
	return b, nil
}

func (s *ProjectService) ListBoards(ctx context.Context, projectID uuid.UUID) ([]project.Board, error) {
	return s.repo.ListBoards(ctx, projectID)
}

func (s *ProjectService) UpdateBoard(ctx context.Context, b project.Board) error {
	b.UpdatedAt = time.Now()
	return s.repo.UpdateBoard(ctx, b)
}

func (s *ProjectService) DeleteBoard(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteBoard(ctx, id)
}

type CreateCardInput struct {
	BoardID     uuid.UUID
	Title       string
	Description string
	Position    int
	AssigneeID  *uuid.UUID
}

func (s *ProjectService) CreateCard(ctx context.Context, in CreateCardInput) (project.Card, error) {
	if in.Title == "" {
		return project.Card{}, flowboard_errors.ErrInvalidInput
	}
	now := time.Now()
	c := project.Card{
		ID:          uuid.New(),
		BoardID:     in.BoardID,
		Title:       in.Title,
		Description: toNullString(in.Description),
		Position:    in.Position,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.AssigneeID != nil {
		c.AssigneeID = uuid.NullUUID{UUID: *in.AssigneeID, Valid: true}
	}
	if err := s.repo.CreateCard(ctx, &c); err != nil {
		return project.Card{}, err
	}
	return c, nil
}

func (s *ProjectService) GetCard(ctx context.Context, id uuid.UUID) (project.Card, error) {
	return s.repo.GetCard(ctx, id)
}

func (s *ProjectService) ListCards(ctx context.Context, boardID uuid.UUID) ([]project.Card, error) {
	return s.repo.ListCards(ctx, boardID)
}

func (s *ProjectService) UpdateCard(ctx context.Context, c project.Card) error {
	c.UpdatedAt = time.Now()
	return s.repo.UpdateCard(ctx, c)
}

func (s *ProjectService) DeleteCard(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteCard(ctx, id)
}

func (s *ProjectService) CreateNote(ctx context.Context, cardID, authorID uuid.UUID, body string) (project.Note, error) {
	if body == "" {
		return project.Note{}, flowboard_errors.ErrInvalidInput
	}
	if _, err := s.repo.GetCard(ctx, cardID); err != nil {
		return project.Note{}, err
	}
	n := project.Note{
		ID:        uuid.New(),
		CardID:    cardID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateNote(ctx, &n); err != nil {
		return project.Note{}, err
	}
	return n, nil
}

func (s *ProjectService) ListNotes(ctx context.Context, cardID uuid.UUID) ([]project.Note, error) {
	return s.repo.ListNotes(ctx, cardID)
}

func (s *ProjectService) DeleteNote(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteNote(ctx, id)
}

func toNullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
