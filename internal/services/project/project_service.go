// Package project covers the thin CRUD surface around projects and their
// updates. Its one lifecycle responsibility is explicit: any operation that
// counts as project activity calls TouchProjectActivity on the lifecycle
// manager, restarting the badge-revocation clock.
package project

import (
	"context"
	"errors"
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/givehub/backend/internal/errs"
	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/services/lifecycle"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Service manages project CRUD
type Service struct {
	db        *gorm.DB
	lifecycle *lifecycle.Service
}

// NewService creates a new project service
func NewService(db *gorm.DB, lifecycleSvc *lifecycle.Service) *Service {
	return &Service{
		db:        db,
		lifecycle: lifecycleSvc,
	}
}

// CreateInput is the input for creating a project
type CreateInput struct {
	Title         string
	Description   string
	WalletAddress string
	OwnerID       uuid.UUID
}

// Create creates a new draft project. The donation-recipient wallet address
// must be a valid hex address.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Project, error) {
	if input.Title == "" {
		return nil, errs.NewValidation("title", "title is required")
	}
	if !ethcommon.IsHexAddress(input.WalletAddress) {
		return nil, errs.NewValidation("wallet_address", "not a valid address")
	}

	projectSlug, err := s.uniqueSlug(input.Title)
	if err != nil {
		return nil, err
	}

	project := models.Project{
		Title:         input.Title,
		Slug:          projectSlug,
		Description:   input.Description,
		WalletAddress: ethcommon.HexToAddress(input.WalletAddress).Hex(),
		AdminUserID:   input.OwnerID,
		StatusID:      models.StatusDrafted,
		ReviewStatus:  models.ReviewStatusNotReviewed,
	}

	if err := s.db.Create(&project).Error; err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return &project, nil
}

// AddUpdate publishes a progress update on a project and records it as
// project activity
func (s *Service) AddUpdate(ctx context.Context, projectID, userID uuid.UUID, title, content string) (*models.ProjectUpdate, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("project", projectID.String())
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	update := models.ProjectUpdate{
		ProjectID: projectID,
		UserID:    userID,
		Title:     title,
		Content:   content,
	}
	if err := s.db.Create(&update).Error; err != nil {
		return nil, fmt.Errorf("failed to create project update: %w", err)
	}

	if err := s.lifecycle.TouchProjectActivity(projectID); err != nil {
		return nil, err
	}

	return &update, nil
}

// EditUpdate edits a progress update and records it as project activity
func (s *Service) EditUpdate(ctx context.Context, updateID uuid.UUID, title, content string) (*models.ProjectUpdate, error) {
	var update models.ProjectUpdate
	if err := s.db.First(&update, "id = ?", updateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("project update", updateID.String())
		}
		return nil, fmt.Errorf("failed to load project update: %w", err)
	}

	update.Title = title
	update.Content = content
	if err := s.db.Save(&update).Error; err != nil {
		return nil, fmt.Errorf("failed to edit project update: %w", err)
	}

	if err := s.lifecycle.TouchProjectActivity(update.ProjectID); err != nil {
		return nil, err
	}

	return &update, nil
}

// DeleteUpdate removes a progress update and records it as project activity
func (s *Service) DeleteUpdate(ctx context.Context, updateID uuid.UUID) error {
	var update models.ProjectUpdate
	if err := s.db.First(&update, "id = ?", updateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NewNotFound("project update", updateID.String())
		}
		return fmt.Errorf("failed to load project update: %w", err)
	}

	if err := s.db.Delete(&update).Error; err != nil {
		return fmt.Errorf("failed to delete project update: %w", err)
	}

	return s.lifecycle.TouchProjectActivity(update.ProjectID)
}

// uniqueSlug derives a URL slug from the title, suffixing a counter when the
// slug is already taken
func (s *Service) uniqueSlug(title string) (string, error) {
	base := slug.Make(title)
	candidate := base

	for i := 1; ; i++ {
		var count int64
		if err := s.db.Model(&models.Project{}).Where("slug = ?", candidate).
			Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
