package project

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Project represents the projects table
type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"not null"`
	Description sql.NullString
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Relationships
	Boards []Board `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// Board represents the boards table
type Board struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	Position  int
	CreatedAt time.Time
	UpdatedAt time.Time

	// Relationships
	Cards []Card `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE"`
}

// Card represents the cards table
type Card struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	BoardID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Title       string    `gorm:"not null"`
	Description sql.NullString
	Position    int
	AssigneeID  uuid.NullUUID `gorm:"type:uuid"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Note represents the notes table
type Note struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CardID    uuid.UUID `gorm:"type:uuid;not null;index"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null"`
	Body      string    `gorm:"not null"`
	CreatedAt time.Time
}

func (Project) TableName() string {
	return "projects"
}

func (Board) TableName() string {
	return "boards"
}

func (Card) TableName() string {
	return "cards"
}

func (Note) TableName() string {
	return "notes"
}
