package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/givehub/backend/internal/models"
	"gorm.io/gorm"
)

// seedProjectStatuses seeds the static status catalog and the predefined
// reasons an admin can attach to deactivation and cancellation.
var seedProjectStatuses = &gormigrate.Migration{
	ID: "000001_seed_project_statuses",
	Migrate: func(tx *gorm.DB) error {
		statuses := []models.ProjectStatus{
			{ID: models.StatusPending, Symbol: models.StatusSymbolPending, Name: "Pending", Description: "Project is created but pending review"},
			{ID: models.StatusClarification, Symbol: models.StatusSymbolClarification, Name: "Clarification", Description: "Clarification requested from the project owner"},
			{ID: models.StatusVerification, Symbol: models.StatusSymbolVerification, Name: "Verification", Description: "Project is under verification review"},
			{ID: models.StatusActive, Symbol: models.StatusSymbolActive, Name: "Active", Description: "Project is active and can receive donations"},
			{ID: models.StatusDeactive, Symbol: models.StatusSymbolDeactive, Name: "Deactivated", Description: "Project has been deactivated"},
			{ID: models.StatusCancelled, Symbol: models.StatusSymbolCancelled, Name: "Cancelled", Description: "Project has been cancelled by an admin"},
			{ID: models.StatusDrafted, Symbol: models.StatusSymbolDrafted, Name: "Draft", Description: "Project is a draft and not yet submitted"},
			{ID: models.StatusRejected, Symbol: models.StatusSymbolRejected, Name: "Rejected", Description: "Project did not pass review"},
		}

		for _, status := range statuses {
			if err := tx.Where(models.ProjectStatus{ID: status.ID}).FirstOrCreate(&status).Error; err != nil {
				return err
			}
		}

		reasons := []models.ProjectStatusReason{
			{ID: 1, StatusID: models.StatusDeactive, Description: "The project has completed its goals"},
			{ID: 2, StatusID: models.StatusDeactive, Description: "The project is no longer in need of funding"},
			{ID: 3, StatusID: models.StatusDeactive, Description: "The project is no longer active"},
			{ID: 4, StatusID: models.StatusDeactive, Description: "The project was made by mistake"},
			{ID: 5, StatusID: models.StatusDeactive, Description: "Other / prefer not to say"},
			{ID: 6, StatusID: models.StatusCancelled, Description: "The project breaks the platform guidelines"},
			{ID: 7, StatusID: models.StatusCancelled, Description: "The project is fraudulent or misleading"},
		}

		for _, reason := range reasons {
			if err := tx.Where(models.ProjectStatusReason{ID: reason.ID}).FirstOrCreate(&reason).Error; err != nil {
				return err
			}
		}

		return nil
	},
	Rollback: func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.ProjectStatusReason{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&models.ProjectStatus{}).Error
	},
}
