// Package lifecycle orchestrates project status, verified-badge and listing
// transitions. Every operation takes a pre-update snapshot to skip rows
// already at the target (no history row, no notification for no-ops), issues
// one bulk update, then appends history and dispatches notifications per row
// actually changed.
package lifecycle

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
	"github.com/givehub/backend/internal/services/verification"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the project lifecycle manager
type Service struct {
	db         *gorm.DB
	history    *history.Service
	forms      *verification.Service
	dispatcher notification.Dispatcher
}

// NewService creates a new lifecycle service
func NewService(db *gorm.DB, historySvc *history.Service, formSvc *verification.Service, dispatcher notification.Dispatcher) *Service {
	return &Service{
		db:         db,
		history:    historySvc,
		forms:      formSvc,
		dispatcher: dispatcher,
	}
}

// ApplyStatusChange moves the given projects to the target status. Projects
// already at the target are skipped. Deactivating or cancelling also removes
// the verified badge and de-lists the project in the same bulk update.
func (s *Service) ApplyStatusChange(ctx context.Context, ids []uuid.UUID, targetStatusID int, actorID uuid.UUID, reasonID *int) error {
	var status models.ProjectStatus
	if err := s.db.First(&status, "id = ?", targetStatusID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NewNotFound("project status", fmt.Sprintf("%d", targetStatusID))
		}
		return fmt.Errorf("failed to load target status: %w", err)
	}

	snapshot, err := s.loadProjects(ids)
	if err != nil {
		return err
	}

	var changed []models.Project
	for _, p := range snapshot {
		if p.StatusID != targetStatusID {
			changed = append(changed, p)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	updates := map[string]interface{}{"status_id": targetStatusID}
	if models.IsInactiveStatus(targetStatusID) {
		listed := false
		updates["verified"] = false
		updates["listed"] = &listed
		updates["review_status"] = models.ReviewStatusNotListed
		updates["verification_status"] = nil
	}

	changedIDs := projectIDs(changed)
	if err := s.db.Model(&models.Project{}).Where("id IN ?", changedIDs).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to apply status change: %w", err)
	}

	event := statusChangeEvent(targetStatusID)
	for i := range changed {
		p := changed[i]
		prev := p.StatusID
		if err := s.history.Append(history.Entry{
			ProjectID:    p.ID,
			StatusID:     targetStatusID,
			PrevStatusID: &prev,
			ReasonID:     reasonID,
			ActingUserID: &actorID,
			Description:  fmt.Sprintf("Status changed to %s", status.Symbol),
		}); err != nil {
			log.Printf("Failed to append history for project %s: %v", p.ID, err)
		}

		if event != "" {
			if err := s.dispatcher.Dispatch(ctx, event, &p, nil); err != nil {
				log.Printf("Failed to dispatch %s notification for project %s: %v", event, p.ID, err)
			}
		}
	}

	return nil
}

// ApplyVerification sets or removes the verified badge on the given projects.
// revokeBadge takes priority: it forces verified=false and parks the revoke
// step at Revoked regardless of the verified argument. Projects already at
// the target badge state are skipped. Granting the badge clears the revoke
// step; removing it resets the paired verification form to draft.
func (s *Service) ApplyVerification(ctx context.Context, ids []uuid.UUID, verified bool, revokeBadge bool, actorID uuid.UUID) error {
	if revokeBadge {
		verified = false
	}

	snapshot, err := s.loadProjects(ids)
	if err != nil {
		return err
	}

	var changed []models.Project
	for _, p := range snapshot {
		if p.Verified != verified {
			changed = append(changed, p)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	updates := map[string]interface{}{"verified": verified}
	if verified {
		updates["verification_status"] = nil
	} else if revokeBadge {
		updates["verification_status"] = models.RevokeStepRevoked
	}

	changedIDs := projectIDs(changed)
	if err := s.db.Model(&models.Project{}).Where("id IN ?", changedIDs).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to apply verification change: %w", err)
	}

	desc := history.DescChangedToVerified
	event := notification.EventProjectVerified
	if !verified {
		desc = history.DescChangedToUnverified
		event = notification.EventProjectUnverified
	}
	if revokeBadge {
		event = notification.EventProjectBadgeRevoked
	}

	for i := range changed {
		p := changed[i]
		prev := p.StatusID
		if err := s.history.Append(history.Entry{
			ProjectID:    p.ID,
			StatusID:     p.StatusID,
			PrevStatusID: &prev,
			ActingUserID: &actorID,
			Description:  desc,
		}); err != nil {
			log.Printf("Failed to append history for project %s: %v", p.ID, err)
		}

		// Keep the paired form in lockstep with the badge
		if verified {
			if err := s.forms.MakeVerifiedForProject(s.db, p.ID, &actorID); err != nil {
				log.Printf("Failed to sync form to verified for project %s: %v", p.ID, err)
			}
		} else {
			if err := s.forms.ForceDraftForProject(s.db, p.ID); err != nil {
				log.Printf("Failed to reset form for project %s: %v", p.ID, err)
			}
		}

		if err := s.dispatcher.Dispatch(ctx, event, &p, nil); err != nil {
			log.Printf("Failed to dispatch %s notification for project %s: %v", event, p.ID, err)
		}
	}

	return nil
}

// ApplyListing sets the listing review status of the given projects. The
// legacy listed boolean is written in lockstep. Projects already at the
// target are skipped. NotReviewed is not a valid admin target.
func (s *Service) ApplyListing(ctx context.Context, ids []uuid.UUID, reviewStatus models.ReviewStatus, actorID *uuid.UUID) error {
	if reviewStatus != models.ReviewStatusListed && reviewStatus != models.ReviewStatusNotListed {
		return errs.GuardViolationf("cannot set review status to %s", reviewStatus)
	}

	snapshot, err := s.loadProjects(ids)
	if err != nil {
		return err
	}

	var changed []models.Project
	for _, p := range snapshot {
		if p.ReviewStatus != reviewStatus {
			changed = append(changed, p)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	changedIDs := projectIDs(changed)
	if err := s.db.Model(&models.Project{}).Where("id IN ?", changedIDs).
		Updates(map[string]interface{}{
			"review_status": reviewStatus,
			"listed":        reviewStatus.ListedValue(),
		}).Error; err != nil {
		return fmt.Errorf("failed to apply listing change: %w", err)
	}

	desc := history.DescChangedToListed
	event := notification.EventProjectListed
	if reviewStatus == models.ReviewStatusNotListed {
		desc = history.DescChangedToUnlisted
		event = notification.EventProjectDelisted
	}

	for i := range changed {
		p := changed[i]
		prev := p.StatusID
		if err := s.history.Append(history.Entry{
			ProjectID:    p.ID,
			StatusID:     p.StatusID,
			PrevStatusID: &prev,
			ActingUserID: actorID,
			Description:  desc,
		}); err != nil {
			log.Printf("Failed to append history for project %s: %v", p.ID, err)
		}

		if err := s.dispatcher.Dispatch(ctx, event, &p, nil); err != nil {
			log.Printf("Failed to dispatch %s notification for project %s: %v", event, p.ID, err)
		}
	}

	return nil
}

// TouchProjectActivity records evidence of life on a project: the activity
// timestamp is bumped and the badge-revocation clock restarts from scratch.
// Called by the components that create, edit or remove project updates.
func (s *Service) TouchProjectActivity(projectID uuid.UUID) error {
	result := s.db.Model(&models.Project{}).Where("id = ?", projectID).
		UpdateColumns(map[string]interface{}{
			"updated_at":          time.Now(),
			"verification_status": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to touch project activity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NewNotFound("project", projectID.String())
	}
	return nil
}

// loadProjects fetches a pre-update snapshot of the targeted rows, failing
// with NotFoundError if any id is missing
func (s *Service) loadProjects(ids []uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	if err := s.db.Where("id IN ?", ids).Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	found := make(map[uuid.UUID]bool, len(projects))
	for _, p := range projects {
		found[p.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, errs.NewNotFound("project", id.String())
		}
	}

	return projects, nil
}

// projectIDs collects the ids of the given projects
func projectIDs(projects []models.Project) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	return ids
}

// statusChangeEvent maps a target status to its lifecycle notification.
// Statuses without a notification return the empty event.
func statusChangeEvent(statusID int) notification.Event {
	switch statusID {
	case models.StatusCancelled:
		return notification.EventProjectCancelled
	case models.StatusDeactive:
		return notification.EventProjectDeactivated
	case models.StatusActive:
		return notification.EventProjectReactivated
	default:
		return ""
	}
}
