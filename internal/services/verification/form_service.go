// Package verification implements the verification-form workflow gating the
// project verified badge: Draft -> Submitted -> Verified | Rejected, with
// admin-driven resets back to Draft.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/givehub/backend/internal/errs"
	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/services/history"
	"github.com/givehub/backend/internal/services/notification"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages verification forms
type Service struct {
	db         *gorm.DB
	dispatcher notification.Dispatcher
}

// NewService creates a new verification form service
func NewService(db *gorm.DB, dispatcher notification.Dispatcher) *Service {
	return &Service{
		db:         db,
		dispatcher: dispatcher,
	}
}

// Create opens a new draft form for a project. It fails with a guard
// violation if the project already carries the badge or an unresolved form
// already exists.
func (s *Service) Create(ctx context.Context, projectID, userID uuid.UUID) (*models.VerificationForm, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("project", projectID.String())
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	if project.Verified {
		return nil, errs.GuardViolationf("project %s is already verified", projectID)
	}

	var existing models.VerificationForm
	err := s.db.Where("project_id = ? AND status IN ?", projectID,
		[]models.FormStatus{models.FormStatusDraft, models.FormStatusSubmitted}).
		First(&existing).Error
	if err == nil {
		return nil, errs.GuardViolationf("project %s already has an unresolved verification form", projectID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing forms: %w", err)
	}

	form := models.VerificationForm{
		ProjectID: projectID,
		UserID:    userID,
		Status:    models.FormStatusDraft,
		LastStep:  models.FormStepPersonalInfo,
	}

	if err := s.db.Create(&form).Error; err != nil {
		return nil, fmt.Errorf("failed to create verification form: %w", err)
	}

	return &form, nil
}

// StepInput is one saved step of the application
type StepInput struct {
	Step          string
	Answers       models.JSON
	TermsAccepted bool
}

// formSteps is the set of steps an applicant can save
var formSteps = map[string]bool{
	models.FormStepPersonalInfo:    true,
	models.FormStepProjectRegistry: true,
	models.FormStepProjectContacts: true,
	models.FormStepMilestones:      true,
	models.FormStepManagingFunds:   true,
	models.FormStepTermsAndConds:   true,
}

// SaveStep stores the answers of one application step on a draft form. The
// answers are keyed by step so earlier steps survive later saves.
func (s *Service) SaveStep(ctx context.Context, formID uuid.UUID, input StepInput) (*models.VerificationForm, error) {
	if !formSteps[input.Step] {
		return nil, errs.NewValidation("step", fmt.Sprintf("unknown form step %q", input.Step))
	}

	form, err := s.getForm(formID)
	if err != nil {
		return nil, err
	}

	if form.Status != models.FormStatusDraft {
		return nil, errs.GuardViolationf("form %s cannot be edited from status %s", formID, form.Status)
	}

	if form.Answers == nil {
		form.Answers = models.JSON{}
	}
	form.Answers[input.Step] = map[string]interface{}(input.Answers)
	form.LastStep = input.Step
	if input.Step == models.FormStepTermsAndConds {
		form.IsTermsAccepted = input.TermsAccepted
	}

	if err := s.db.Save(form).Error; err != nil {
		return nil, fmt.Errorf("failed to save form step: %w", err)
	}

	return form, nil
}

// Submit moves a draft form to submitted. Section completeness and terms
// acceptance are validated upstream.
func (s *Service) Submit(ctx context.Context, formID uuid.UUID) (*models.VerificationForm, error) {
	form, err := s.getForm(formID)
	if err != nil {
		return nil, err
	}

	if form.Status != models.FormStatusDraft {
		return nil, errs.GuardViolationf("form %s cannot be submitted from status %s", formID, form.Status)
	}

	form.Status = models.FormStatusSubmitted
	form.LastStep = models.FormStepSubmit
	if err := s.db.Save(form).Error; err != nil {
		return nil, fmt.Errorf("failed to submit form: %w", err)
	}

	return form, nil
}

// Verify approves a form and marks its project verified in one transaction.
// Allowed only from Submitted or Rejected.
func (s *Service) Verify(ctx context.Context, formID, adminID uuid.UUID) (*models.VerificationForm, error) {
	form, err := s.getForm(formID)
	if err != nil {
		return nil, err
	}

	if form.Status != models.FormStatusSubmitted && form.Status != models.FormStatusRejected {
		return nil, errs.GuardViolationf("form %s cannot be verified from status %s", formID, form.Status)
	}

	var project models.Project
	if err := s.db.First(&project, "id = ?", form.ProjectID).Error; err != nil {
		return nil, fmt.Errorf("failed to load project for form %s: %w", formID, err)
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		form.Status = models.FormStatusVerified
		form.VerifiedAt = &now
		form.ReviewerID = &adminID
		if err := tx.Save(form).Error; err != nil {
			return fmt.Errorf("failed to update form: %w", err)
		}

		if !project.Verified {
			if err := tx.Model(&models.Project{}).Where("id = ?", project.ID).
				Updates(map[string]interface{}{
					"verified":            true,
					"verification_status": nil,
				}).Error; err != nil {
				return fmt.Errorf("failed to mark project verified: %w", err)
			}

			prev := project.StatusID
			if err := history.AppendTx(tx, history.Entry{
				ProjectID:    project.ID,
				StatusID:     project.StatusID,
				PrevStatusID: &prev,
				ActingUserID: &adminID,
				Description:  history.DescChangedToVerified,
			}); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if !project.Verified {
		if err := s.dispatcher.Dispatch(ctx, notification.EventProjectVerified, &project, nil); err != nil {
			log.Printf("Failed to dispatch verified notification for project %s: %v", project.ID, err)
		}
	}

	return form, nil
}

// Reject declines a submitted form. Allowed only from Submitted.
func (s *Service) Reject(ctx context.Context, formID, adminID uuid.UUID) (*models.VerificationForm, error) {
	form, err := s.getForm(formID)
	if err != nil {
		return nil, err
	}

	if form.Status != models.FormStatusSubmitted {
		return nil, errs.GuardViolationf("form %s cannot be rejected from status %s", formID, form.Status)
	}

	form.Status = models.FormStatusRejected
	form.ReviewerID = &adminID
	if err := s.db.Save(form).Error; err != nil {
		return nil, fmt.Errorf("failed to reject form: %w", err)
	}

	return form, nil
}

// MakeDraft sends a submitted or rejected form back to draft. The applicant
// is dropped back to the managing-funds step and must re-accept the terms.
func (s *Service) MakeDraft(ctx context.Context, formID uuid.UUID, adminID *uuid.UUID) (*models.VerificationForm, error) {
	form, err := s.getForm(formID)
	if err != nil {
		return nil, err
	}

	if form.Status != models.FormStatusSubmitted && form.Status != models.FormStatusRejected {
		return nil, errs.GuardViolationf("form %s cannot be drafted from status %s", formID, form.Status)
	}

	if err := forceDraftTx(s.db, form); err != nil {
		return nil, err
	}

	if adminID != nil {
		var project models.Project
		if err := s.db.First(&project, "id = ?", form.ProjectID).Error; err == nil {
			if err := s.dispatcher.Dispatch(ctx, notification.EventProjectGotDraftByAdmin, &project, nil); err != nil {
				log.Printf("Failed to dispatch draft notification for project %s: %v", project.ID, err)
			}
		}
	}

	return form, nil
}

// BulkReview verifies or rejects a batch of submitted forms. The whole batch
// is prechecked first: any form still in draft aborts the operation before
// anything is mutated. The form updates, the paired project updates and the
// history rows are then applied in a single transaction.
func (s *Service) BulkReview(ctx context.Context, formIDs []uuid.UUID, adminID uuid.UUID, approve bool) error {
	var forms []models.VerificationForm
	if err := s.db.Where("id IN ?", formIDs).Find(&forms).Error; err != nil {
		return fmt.Errorf("failed to load forms: %w", err)
	}

	found := make(map[uuid.UUID]bool, len(forms))
	for _, f := range forms {
		found[f.ID] = true
	}
	for _, id := range formIDs {
		if !found[id] {
			return errs.NewNotFound("verification form", id.String())
		}
	}

	// Precheck the entire batch before any mutation
	for _, f := range forms {
		if f.Status == models.FormStatusDraft {
			return errs.GuardViolationf("form %s is still in draft and cannot be reviewed", f.ID)
		}
	}

	var projects []models.Project
	projectIDs := make([]uuid.UUID, 0, len(forms))
	for _, f := range forms {
		projectIDs = append(projectIDs, f.ProjectID)
	}
	if err := s.db.Where("id IN ?", projectIDs).Find(&projects).Error; err != nil {
		return fmt.Errorf("failed to load projects: %w", err)
	}
	projectByID := make(map[uuid.UUID]models.Project, len(projects))
	for _, p := range projects {
		projectByID[p.ID] = p
	}

	now := time.Now()
	var changed []models.Project

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i := range forms {
			form := &forms[i]

			if approve {
				form.Status = models.FormStatusVerified
				form.VerifiedAt = &now
			} else {
				form.Status = models.FormStatusRejected
			}
			form.ReviewerID = &adminID
			if err := tx.Save(form).Error; err != nil {
				return fmt.Errorf("failed to update form %s: %w", form.ID, err)
			}

			project, ok := projectByID[form.ProjectID]
			if !ok || project.Verified == approve {
				// Idempotent: project already at the target badge state
				continue
			}

			updates := map[string]interface{}{"verified": approve}
			if approve {
				updates["verification_status"] = nil
			}
			if err := tx.Model(&models.Project{}).Where("id = ?", project.ID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update project %s: %w", project.ID, err)
			}

			desc := history.DescChangedToVerified
			if !approve {
				desc = history.DescChangedToUnverified
			}
			prev := project.StatusID
			if err := history.AppendTx(tx, history.Entry{
				ProjectID:    project.ID,
				StatusID:     project.StatusID,
				PrevStatusID: &prev,
				ActingUserID: &adminID,
				Description:  desc,
			}); err != nil {
				return err
			}

			changed = append(changed, project)
		}
		return nil
	})
	if err != nil {
		return err
	}

	event := notification.EventProjectVerified
	if !approve {
		event = notification.EventProjectUnverified
	}
	for i := range changed {
		if err := s.dispatcher.Dispatch(ctx, event, &changed[i], nil); err != nil {
			log.Printf("Failed to dispatch %s notification for project %s: %v", event, changed[i].ID, err)
		}
	}

	return nil
}

// GetByProject returns the most recent form for a project
func (s *Service) GetByProject(projectID uuid.UUID) (*models.VerificationForm, error) {
	var form models.VerificationForm
	err := s.db.Where("project_id = ?", projectID).
		Order("created_at desc").
		First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewNotFound("verification form", "project "+projectID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load form: %w", err)
	}
	return &form, nil
}

// MakeVerifiedForProject syncs the paired form to Verified when the project
// gains the badge through a path other than the form-review endpoints. A
// project without a form is a no-op.
func (s *Service) MakeVerifiedForProject(db *gorm.DB, projectID uuid.UUID, reviewerID *uuid.UUID) error {
	return MakeVerifiedTx(db, projectID, reviewerID)
}

// ForceDraftForProject resets the paired form to Draft when the project loses
// the badge (admin unverify or revocation). Unlike MakeDraft this also
// applies to forms currently in Verified. A project without a form is a
// no-op.
func (s *Service) ForceDraftForProject(db *gorm.DB, projectID uuid.UUID) error {
	return ForceDraftTx(db, projectID)
}

// MakeVerifiedTx marks the latest form of a project Verified on the given
// connection
func MakeVerifiedTx(db *gorm.DB, projectID uuid.UUID, reviewerID *uuid.UUID) error {
	var form models.VerificationForm
	err := db.Where("project_id = ?", projectID).
		Order("created_at desc").
		First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load form for project %s: %w", projectID, err)
	}

	now := time.Now()
	form.Status = models.FormStatusVerified
	form.VerifiedAt = &now
	if reviewerID != nil {
		form.ReviewerID = reviewerID
	}
	if err := db.Save(&form).Error; err != nil {
		return fmt.Errorf("failed to sync form %s to verified: %w", form.ID, err)
	}

	return nil
}

// ForceDraftTx resets the latest form of a project to Draft on the given
// connection
func ForceDraftTx(db *gorm.DB, projectID uuid.UUID) error {
	var form models.VerificationForm
	err := db.Where("project_id = ?", projectID).
		Order("created_at desc").
		First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load form for project %s: %w", projectID, err)
	}

	return forceDraftTx(db, &form)
}

// forceDraftTx applies the draft reset: back to the managing-funds step with
// the terms acceptance cleared, so the applicant must re-accept
func forceDraftTx(db *gorm.DB, form *models.VerificationForm) error {
	form.Status = models.FormStatusDraft
	form.LastStep = models.FormStepManagingFunds
	form.IsTermsAccepted = false
	form.VerifiedAt = nil
	if err := db.Save(form).Error; err != nil {
		return fmt.Errorf("failed to reset form %s to draft: %w", form.ID, err)
	}
	return nil
}

// getForm loads a form by id, mapping a missing row to NotFoundError
func (s *Service) getForm(formID uuid.UUID) (*models.VerificationForm, error) {
	var form models.VerificationForm
	err := s.db.First(&form, "id = ?", formID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewNotFound("verification form", formID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load form: %w", err)
	}
	return &form, nil
}
