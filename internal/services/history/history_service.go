// Package history is the append-only audit trail of project state changes.
// Rows are written exactly once per actual change and are never updated or
// deleted.
package history

import (
	"fmt"
	"time"

	"github.com/givehub/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// History row descriptions
const (
	DescChangedToVerified         = "Changed to verified"
	DescChangedToUnverified       = "Changed to unverified"
	DescChangedToUnverifiedByCron = "Changed to unverified by cronjob"
	DescChangedToListed           = "Changed to listed"
	DescChangedToUnlisted         = "Changed to unlisted"
)

// Entry is the input for one audit row
type Entry struct {
	ProjectID    uuid.UUID
	StatusID     int
	PrevStatusID *int
	ReasonID     *int
	ActingUserID *uuid.UUID
	Description  string
}

// Service appends and reads project status history
type Service struct {
	db *gorm.DB
}

// NewService creates a new history service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Append writes one audit row
func (s *Service) Append(entry Entry) error {
	return AppendTx(s.db, entry)
}

// AppendTx writes one audit row on the given connection, so callers can
// include the append in a larger transaction
func AppendTx(db *gorm.DB, entry Entry) error {
	row := models.ProjectStatusHistory{
		ProjectID:    entry.ProjectID,
		StatusID:     entry.StatusID,
		PrevStatusID: entry.PrevStatusID,
		ReasonID:     entry.ReasonID,
		ActingUserID: entry.ActingUserID,
		Description:  entry.Description,
		CreatedAt:    time.Now(),
	}

	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}

	return nil
}

// ForProject returns all audit rows for a project, oldest first
func (s *Service) ForProject(projectID uuid.UUID) ([]models.ProjectStatusHistory, error) {
	var rows []models.ProjectStatusHistory
	if err := s.db.Where("project_id = ?", projectID).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}

	return rows, nil
}
