package services

import (
	"context"
	"sort"
	"sync"
	"testing"

	"flowboard/internal/domain/project"
	flowboard_errors "flowboard/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[uuid.UUID]project.Project
	boards   map[uuid.UUID]project.Board
	cards    map[uuid.UUID]project.Card
	notes    map[uuid.UUID]project.Note
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{
		projects: make(map[uuid.UUID]project.Project),
		boards:   make(map[uuid.UUID]project.Board),
		cards:    make(map[uuid.UUID]project.Card),
		notes:    make(map[uuid.UUID]project.Note),
	}
}

func (r *fakeProjectRepo) CreateProject(ctx context.Context, p *project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID] = *p
	return nil
}

func (r *fakeProjectRepo) GetProject(ctx context.Context, id uuid.UUID) (project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return project.Project{}, flowboard_errors.ErrNotFound
	}
	return p, nil
}

func (r *fakeProjectRepo) ListProjects(ctx context.Context, ownerID uuid.UUID) ([]project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []project.Project
	for _, p := range r.projects {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProjectRepo) UpdateProject(ctx context.Context, p project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[p.ID]; !ok {
		return flowboard_errors.ErrNotFound
	}
	r.projects[p.ID] = p
	return nil
}

func (r *fakeProjectRepo) DeleteProject(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, id)
	for bid, b := range r.boards {
		if b.ProjectID == id {
			delete(r.boards, bid)
		}
	}
	return nil
}

func (r *fakeProjectRepo) CreateBoard(ctx context.Context, b *project.Board) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boards[b.ID] = *b
	return nil
}

func (r *fakeProjectRepo) ListBoards(ctx context.Context, projectID uuid.UUID) ([]project.Board, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []project.Board
	for _, b := range r.boards {
		if b.ProjectID == projectID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *fakeProjectRepo) UpdateBoard(ctx context.Context, b project.Board) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.boards[b.ID]; !ok {
		return flowboard_errors.ErrNotFound
	}
	r.boards[b.ID] = b
	return nil
}

func (r *fakeProjectRepo) DeleteBoard(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.boards, id)
	return nil
}

func (r *fakeProjectRepo) CreateCard(ctx context.Context, c *project.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[c.ID] = *c
	return nil
}

func (r *fakeProjectRepo) GetCard(ctx context.Context, id uuid.UUID) (project.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cards[id]
	if !ok {
		return project.Card{}, flowboard_errors.ErrNotFound
	}
	return c, nil
}

func (r *fakeProjectRepo) ListCards(ctx context.Context, boardID uuid.UUID) ([]project.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []project.Card
	for _, c := range r.cards {
		if c.BoardID == boardID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *fakeProjectRepo) UpdateCard(ctx context.Context, c project.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cards[c.ID]; !ok {
		return flowboard_errors.ErrNotFound
	}
	r.cards[c.ID] = c
	return nil
}

func (r *fakeProjectRepo) DeleteCard(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cards, id)
	return nil
}

func (r *fakeProjectRepo) CreateNote(ctx context.Context, n *project.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[n.ID] = *n
	return nil
}

func (r *fakeProjectRepo) ListNotes(ctx context.Context, cardID uuid.UUID) ([]project.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []project.Note
	for _, n := range r.notes {
		if n.CardID == cardID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeProjectRepo) DeleteNote(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.notes, id)
	return nil
}

func TestProjectLifecycle(t *testing.T) {
	repo := newFakeProjectRepo()
	svc := NewProjectService(repo)
	ctx := context.Background()
	owner := uuid.New()

	p, err := svc.CreateProject(ctx, CreateProjectInput{Name: "Launch", Description: "Q4 launch", OwnerID: owner})
	require.NoError(t, err)
	assert.Equal(t, "Launch", p.Name)
	assert.True(t, p.Description.Valid)

	_, err = svc.CreateProject(ctx, CreateProjectInput{OwnerID: owner})
	assert.ErrorIs(t, err, flowboard_errors.ErrInvalidInput, "name is required")

	listed, err := svc.ListProjects(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	board, err := svc.CreateBoard(ctx, p.ID, "Todo", 0)
	require.NoError(t, err)

	_, err = svc.CreateBoard(ctx, uuid.New(), "Orphan", 0)
	assert.ErrorIs(t, err, flowboard_errors.ErrNotFound, "boards need an existing project")

	assignee := uuid.New()
	card, err := svc.CreateCard(ctx, CreateCardInput{BoardID: board.ID, Title: "Ship it", Position: 0, AssigneeID: &assignee})
	require.NoError(t, err)
	assert.True(t, card.AssigneeID.Valid)
	assert.Equal(t, assignee, card.AssigneeID.UUID)

	note, err := svc.CreateNote(ctx, card.ID, owner, "Blocked on review")
	require.NoError(t, err)

	notes, err := svc.ListNotes(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, note.Body, notes[0].Body)

	_, err = svc.CreateNote(ctx, uuid.New(), owner, "dangling")
	assert.ErrorIs(t, err, flowboard_errors.ErrNotFound, "notes need an existing card")
}

func TestDeleteProject_OwnerOnly(t *testing.T) {
	repo := newFakeProjectRepo()
	svc := NewProjectService(repo)
	ctx := context.Background()
	owner, intruder := uuid.New(), uuid.New()

	p, err := svc.CreateProject(ctx, CreateProjectInput{Name: "Private", OwnerID: owner})
	require.NoError(t, err)

	err = svc.DeleteProject(ctx, intruder, p.ID)
	assert.ErrorIs(t, err, flowboard_errors.ErrForbidden)
	_, err = svc.GetProject(ctx, p.ID)
	assert.NoError(t, err, "denied delete must not remove the project")

	require.NoError(t, svc.DeleteProject(ctx, owner, p.ID))
	_, err = svc.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, flowboard_errors.ErrNotFound)
}

func TestBoardOrdering(t *testing.T) {
	repo := newFakeProjectRepo()
	svc := NewProjectService(repo)
	ctx := context.Background()
	owner := uuid.New()

	p, err := svc.CreateProject(ctx, CreateProjectInput{Name: "Ordered", OwnerID: owner})
	require.NoError(t, err)

	for i, name := range []string{"Done", "Doing", "Todo"} {
		_, err := svc.CreateBoard(ctx, p.ID, name, 2-i)
		require.NoError(t, err)
	}

	boards, err := svc.ListBoards(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, boards, 3)
	assert.Equal(t, "Todo", boards[0].Name)
	assert.Equal(t, "Done", boards[2].Name)
}
