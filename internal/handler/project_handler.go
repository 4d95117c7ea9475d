package handler

import (
	"database/sql"
	"net/http"

	"flowboard/internal/services"
	"flowboard/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProjectHandler struct {
	service *services.ProjectService
}

func NewProjectHandler(service *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

func (h *ProjectHandler) Create(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var req httpdto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	p, err := h.service.CreateProject(c.Request.Context(), services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromProject(p)))
}

func (h *ProjectHandler) List(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	projects, err := h.service.ListProjects(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]httpdto.ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, httpdto.FromProject(p))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(out))
}

func (h *ProjectHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid project id", "INVALID_REQUEST"))
		return
	}

	p, err := h.service.GetProject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromProject(p)))
}

func (h *ProjectHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid project id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	p, err := h.service.GetProject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	p.Name = req.Name
	p.Description = nullString(req.Description)
	p.Boards = nil

	if err := h.service.UpdateProject(c.Request.Context(), p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromProject(p)))
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid project id", "INVALID_REQUEST"))
		return
	}

	if err := h.service.DeleteProject(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}

func (h *ProjectHandler) CreateBoard(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid project id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	b, err := h.service.CreateBoard(c.Request.Context(), projectID, req.Name, req.Position)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromBoard(b)))
}

func (h *ProjectHandler) ListBoards(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid project id", "INVALID_REQUEST"))
		return
	}

	boards, err := h.service.ListBoards(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]httpdto.BoardResponse, 0, len(boards))
	for _, b := range boards {
		out = append(out, httpdto.FromBoard(b))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(out))
}

func (h *ProjectHandler) DeleteBoard(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid board id", "INVALID_REQUEST"))
		return
	}

	if err := h.service.DeleteBoard(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}

func (h *ProjectHandler) CreateCard(c *gin.Context) {
	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid board id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	in := services.CreateCardInput{
		BoardID:     boardID,
		Title:       req.Title,
		Description: req.Description,
		Position:    req.Position,
	}
	if req.AssigneeID != "" {
		assigneeID, err := uuid.Parse(req.AssigneeID)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid assignee id", "INVALID_REQUEST"))
			return
		}
		in.AssigneeID = &assigneeID
	}

	card, err := h.service.CreateCard(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromCard(card)))
}

func (h *ProjectHandler) ListCards(c *gin.Context) {
	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid board id", "INVALID_REQUEST"))
		return
	}

	cards, err := h.service.ListCards(c.Request.Context(), boardID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]httpdto.CardResponse, 0, len(cards))
	for _, card := range cards {
		out = append(out, httpdto.FromCard(card))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(out))
}

func (h *ProjectHandler) UpdateCard(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid card id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	card, err := h.service.GetCard(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	card.Title = req.Title
	card.Description = nullString(req.Description)
	card.Position = req.Position
	card.AssigneeID = uuid.NullUUID{}
	if req.AssigneeID != "" {
		assigneeID, err := uuid.Parse(req.AssigneeID)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid assignee id", "INVALID_REQUEST"))
			return
		}
		card.AssigneeID = uuid.NullUUID{UUID: assigneeID, Valid: true}
	}

	if err := h.service.UpdateCard(c.Request.Context(), card); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromCard(card)))
}

func (h *ProjectHandler) DeleteCard(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid card id", "INVALID_REQUEST"))
		return
	}

	if err := h.service.DeleteCard(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}

func (h *ProjectHandler) CreateNote(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid card id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	note, err := h.service.CreateNote(c.Request.Context(), cardID, userID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromNote(note)))
}

func (h *ProjectHandler) ListNotes(c *gin.Context) {
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid card id", "INVALID_REQUEST"))
		return
	}

	notes, err := h.service.ListNotes(c.Request.Context(), cardID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]httpdto.NoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, httpdto.FromNote(n))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(out))
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}