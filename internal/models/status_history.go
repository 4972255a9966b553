package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectStatusHistory is one append-only audit row recording a project state
// change. Rows are immutable once written: there is no UpdatedAt and no soft
// delete, and nothing in the codebase updates or deletes them.
type ProjectStatusHistory struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"project_id"`
	Project      Project    `gorm:"foreignKey:ProjectID" json:"-"`
	StatusID     int        `gorm:"not null" json:"status_id"`
	PrevStatusID *int       `json:"prev_status_id"`
	ReasonID     *int       `json:"reason_id"`
	ActingUserID *uuid.UUID `gorm:"type:uuid" json:"acting_user_id"`
	Description  string     `gorm:"type:text" json:"description"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}

// BeforeCreate sets the row ID
func (h *ProjectStatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
