package repository

import (
	"context"

	"flowboard/internal/domain/project"
	flowboard_errors "flowboard/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &PostgresProjectRepository{db: db}
}

func (r *PostgresProjectRepository) CreateProject(ctx context.Context, p *project.Project) error {
	return translateError(r.db.WithContext(ctx).Create(p).Error)
}

func (r *PostgresProjectRepository) GetProject(ctx context.Context, id uuid.UUID) (project.Project, error) {
	var p project.Project
	err := r.db.WithContext(ctx).
		Preload("Boards").
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return project.Project{}, translateError(err)
	}
	return p, nil
}

func (r *PostgresProjectRepository) ListProjects(ctx context.Context, ownerID uuid.UUID) ([]project.Project, error) {
	var projects []project.Project
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&projects).Error
	if err != nil {
		return nil, translateError(err)
	}
	return projects, nil
}

func (r *PostgresProjectRepository) UpdateProject(ctx context.Context, p project.Project) error {
	res := r.db.WithContext(ctx).Save(&p)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return flowboard_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresProjectRepository) DeleteProject(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&project.Project{}, "id = ?", id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return flowboard_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresProjectRepository) CreateBoard(ctx context.Context, b *project.Board) error {
	return translateError(r.db.WithContext(ctx).Create(b).Error)
}

func (r *PostgresProjectRepository) ListBoards(ctx context.Context, projectID uuid.UUID) ([]project.Board, error) {
	var boards []project.Board
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("position ASC").
		Find(&boards).Error
	if err != nil {
		return nil, translateError(err)
	}
	return boards, nil
}

func (r *PostgresProjectRepository) UpdateBoard(ctx context.Context, b project.Board) error {
	res := r.db.WithContext(ctx).Save(&b)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return flowboard_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresProjectRepository) DeleteBoard(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&project.Board{}, "id = ?", id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return flowboard_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresProjectRepository) CreateCard(ctx context.Context, c *project.Card) error {
	return translateError(r.db.WithContext(ctx).Create(c).Error)
}

func (r *PostgresProjectRepository) GetCard(ctx context.Context, id uuid.UUID) (project.Card, error) {
	var c project.Card
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		return project.Card{}, translateError(err)
	}
	return c, nil
}

func (r *PostgresProjectRepository) ListCards(ctx context.Context, boardID uuid.UUID) ([]project.Card, error) {
	var cards []project.Card
	err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("position ASC").
		Find(&cards).Error
	if err != nil {
		return nil, translateError(err)
	}
	return cards, nil
}

func (r *PostgresProjectRepository) UpdateCard(ctx context.Context, c project.Card) error {
	res := r.db.WithContext(ctx).Save(&c)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return flowboard_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresProjectRepository) DeleteCard(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&project.Card{}, "id = ?", id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return flowboard_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresProjectRepository) CreateNote(ctx context.Context, n *project.Note) error {
	return translateError(r.db.WithContext(ctx).Create(n).Error)
}

func (r *PostgresProjectRepository) ListNotes(ctx context.Context, cardID uuid.UUID) ([]project.Note, error) {
	var notes []project.Note
	err := r.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("created_at ASC").
		Find(&notes).Error
	if err != nil {
		return nil, translateError(err)
	}
	return notes, nil
}

func (r *PostgresProjectRepository) DeleteNote(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&project.Note{}, "id = ?", id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return flowboard_errors.ErrNotFound
	}
	return nil
}
