package notification

import (
	"context"
	"log"

	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/queue"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event identifies a lifecycle notification
type Event string

// Lifecycle notification events. Dispatch is best effort: failures are logged
// by the caller and never propagate as transition failures.
const (
	EventProjectVerified            Event = "projectVerified"
	EventProjectUnverified          Event = "projectUnVerified"
	EventProjectListed              Event = "projectListed"
	EventProjectDelisted            Event = "projectDeListed"
	EventProjectCancelled           Event = "projectCancelled"
	EventProjectDeactivated         Event = "projectDeactivated"
	EventProjectReactivated         Event = "projectReactivated"
	EventProjectBadgeRevoked        Event = "projectBadgeRevoked"
	EventProjectBadgeRevokeReminder Event = "projectBadgeRevokeReminder"
	EventProjectBadgeRevokeWarning  Event = "projectBadgeRevokeWarning"
	EventProjectBadgeRevokeLastWarn Event = "projectBadgeRevokeLastWarning"
	EventProjectBadgeUpForRevoking  Event = "projectBadgeUpForRevoking"
	EventProjectGotDraftByAdmin     Event = "projectGotDraftByAdmin"
)

// fanOutEvents are the events broadcast to donors and reactors in addition to
// the project owner
var fanOutEvents = map[Event]bool{
	EventProjectCancelled:   true,
	EventProjectDeactivated: true,
	EventProjectReactivated: true,
	EventProjectListed:      true,
}

// Dispatcher fans lifecycle events out to the notification transport
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event, project *models.Project, meta map[string]interface{}) error
}

// envelope is the wire format pushed onto the notification queue
type envelope struct {
	Event       Event                  `json:"event"`
	ProjectID   uuid.UUID              `json:"project_id"`
	ProjectSlug string                 `json:"project_slug"`
	RecipientID uuid.UUID              `json:"recipient_id"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
}

// QueueDispatcher publishes events onto the Redis notification queue. For
// fan-out events it enqueues one message per recipient: the project owner
// plus every distinct donor and reactor.
type QueueDispatcher struct {
	db    *gorm.DB
	queue *queue.Queue
}

// NewQueueDispatcher creates a queue-backed dispatcher
func NewQueueDispatcher(db *gorm.DB, q *queue.Queue) *QueueDispatcher {
	return &QueueDispatcher{
		db:    db,
		queue: q,
	}
}

// Dispatch enqueues the event for the project owner and, for fan-out events,
// for every donor and reactor of the project
func (d *QueueDispatcher) Dispatch(ctx context.Context, event Event, project *models.Project, meta map[string]interface{}) error {
	recipients := []uuid.UUID{project.AdminUserID}

	if fanOutEvents[event] {
		audience, err := d.fanOutAudience(project.ID)
		if err != nil {
			// Owner notification still goes out
			log.Printf("Failed to load fan-out audience for project %s: %v", project.ID, err)
		} else {
			recipients = append(recipients, audience...)
		}
	}

	for _, recipient := range recipients {
		env := envelope{
			Event:       event,
			ProjectID:   project.ID,
			ProjectSlug: project.Slug,
			RecipientID: recipient,
			Meta:        meta,
		}
		if _, err := d.queue.Enqueue(ctx, string(event), env); err != nil {
			return err
		}
	}

	return nil
}

// fanOutAudience returns the distinct donors and reactors of a project,
// excluding the owner (already a recipient)
func (d *QueueDispatcher) fanOutAudience(projectID uuid.UUID) ([]uuid.UUID, error) {
	var donorIDs []uuid.UUID
	if err := d.db.Model(&models.Donation{}).
		Distinct("user_id").
		Where("project_id = ?", projectID).
		Pluck("user_id", &donorIDs).Error; err != nil {
		return nil, err
	}

	var reactorIDs []uuid.UUID
	if err := d.db.Model(&models.Reaction{}).
		Distinct("user_id").
		Where("project_id = ?", projectID).
		Pluck("user_id", &reactorIDs).Error; err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool)
	var audience []uuid.UUID
	for _, id := range append(donorIDs, reactorIDs...) {
		if !seen[id] {
			seen[id] = true
			audience = append(audience, id)
		}
	}

	return audience, nil
}
