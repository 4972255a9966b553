package models

import "github.com/google/uuid"

// ProjectUpdate is a progress post the project owner publishes. Creating,
// editing or removing one counts as project activity and restarts the
// badge-revocation clock via an explicit TouchProjectActivity call.
type ProjectUpdate struct {
	Base
	ProjectID uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id"`
	Project   Project   `gorm:"foreignKey:ProjectID" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
}
