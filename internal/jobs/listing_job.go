package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/givehub/backend/internal/config"
	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/services/lifecycle"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListingSweep auto-promotes stale unreviewed projects to Listed. Promotion
// goes through the lifecycle manager's ApplyListing primitive, so history and
// notifications behave exactly as for a manual listing action.
type ListingSweep struct {
	db        *gorm.DB
	cfg       config.ListingConfig
	lifecycle *lifecycle.Service
	now       func() time.Time
}

// NewListingSweep creates the listing sweep
func NewListingSweep(db *gorm.DB, cfg config.ListingConfig, lifecycleSvc *lifecycle.Service) *ListingSweep {
	if cfg.MinAgeDays < 1 {
		cfg.MinAgeDays = 21
	}
	return &ListingSweep{
		db:        db,
		cfg:       cfg,
		lifecycle: lifecycleSvc,
		now:       time.Now,
	}
}

// Run executes one sweep tick, promoting every active, not-yet-reviewed
// project older than the configured threshold. Per-project failures are
// logged and skipped.
func (j *ListingSweep) Run(ctx context.Context) error {
	oldest := j.now().Add(-time.Duration(j.cfg.MinAgeDays) * 24 * time.Hour)

	var candidates []models.Project
	if err := j.db.Where("status_id = ? AND review_status = ? AND updated_at < ?",
		models.StatusActive, models.ReviewStatusNotReviewed, oldest).
		Order("id").
		Find(&candidates).Error; err != nil {
		return fmt.Errorf("failed to load listing candidates: %w", err)
	}

	promoted := 0
	for i := range candidates {
		p := candidates[i]
		if err := j.lifecycle.ApplyListing(ctx, []uuid.UUID{p.ID}, models.ReviewStatusListed, nil); err != nil {
			log.Printf("Listing sweep: project %s failed: %v", p.ID, err)
			continue
		}
		promoted++
	}

	log.Printf("Listing sweep finished, %d projects promoted", promoted)
	return nil
}
