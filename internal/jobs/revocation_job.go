package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/givehub/backend/internal/config"
	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/services/history"
	"github.com/givehub/backend/internal/services/notification"
	"github.com/givehub/backend/internal/services/ranking"
	"github.com/givehub/backend/internal/services/verification"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// cutoverGate restricts a revoke rule to projects on one side of the legacy
// cut-over date
type cutoverGate int

const (
	gateAny cutoverGate = iota
	gatePreCutover
	gatePostCutover
)

// revokeRule is one edge of the badge-revocation transition table: a project
// at the from step whose inactivity meets the threshold moves to the to step
type revokeRule struct {
	from      *models.RevokeStep // nil = revoke clock not started
	threshold time.Duration
	to        models.RevokeStep
	gate      cutoverGate
}

// RevocationSweep walks the time-driven badge-revocation state machine over
// all verified, non-imported projects. Rules are evaluated in priority order
// and at most one fires per project per tick: a project advances a single
// step per sweep even when several thresholds are already exceeded, so a
// long-stale project still passes through every warning level.
type RevocationSweep struct {
	db         *gorm.DB
	cfg        config.VerificationConfig
	dispatcher notification.Dispatcher
	refresher  ranking.Refresher
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewRevocationSweep creates the revocation sweep
func NewRevocationSweep(db *gorm.DB, cfg config.VerificationConfig, dispatcher notification.Dispatcher, refresher ranking.Refresher) *RevocationSweep {
	limit := rate.Inf
	if cfg.NotifyDelay > 0 {
		limit = rate.Every(cfg.NotifyDelay)
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 100
	}

	return &RevocationSweep{
		db:         db,
		cfg:        cfg,
		dispatcher: dispatcher,
		refresher:  refresher,
		limiter:    rate.NewLimiter(limit, 1),
		now:        time.Now,
	}
}

// rules returns the transition table in priority order. The cut-over date
// gates the legacy up-for-revoking edge: projects that went stale before the
// revocation feature launched are parked at upForRevoking instead of being
// revoked retroactively.
func (j *RevocationSweep) rules() []revokeRule {
	day := 24 * time.Hour
	return []revokeRule{
		{from: nil, threshold: time.Duration(j.cfg.ReminderDays) * day, to: models.RevokeStepReminder, gate: gateAny},
		{from: models.RevokeStepPtr(models.RevokeStepReminder), threshold: time.Duration(j.cfg.WarningDays) * day, to: models.RevokeStepWarning, gate: gateAny},
		{from: models.RevokeStepPtr(models.RevokeStepWarning), threshold: time.Duration(j.cfg.LastChanceDays) * day, to: models.RevokeStepLastChance, gate: gatePostCutover},
		{from: models.RevokeStepPtr(models.RevokeStepWarning), threshold: time.Duration(j.cfg.LastChanceDays) * day, to: models.RevokeStepUpForRevoking, gate: gatePreCutover},
		{from: models.RevokeStepPtr(models.RevokeStepLastChance), threshold: time.Duration(j.cfg.RevokeDays) * day, to: models.RevokeStepRevoked, gate: gateAny},
		{from: models.RevokeStepPtr(models.RevokeStepUpForRevoking), threshold: time.Duration(j.cfg.RevokeDays) * day, to: models.RevokeStepRevoked, gate: gatePostCutover},
	}
}

// Run executes one sweep tick. Per-project failures are logged and skipped;
// the sweep itself never aborts. Dependent ranking views are refreshed once
// after the whole sweep.
func (j *RevocationSweep) Run(ctx context.Context) error {
	now := j.now()
	oldest := now.Add(-time.Duration(j.cfg.ReminderDays) * 24 * time.Hour)

	log.Println("Starting badge revocation sweep")

	advanced := 0
	var lastID uuid.UUID
	for {
		// Page through candidates rather than loading the whole table
		var batch []models.Project
		query := j.db.Where("verified = ? AND is_imported = ? AND updated_at < ?", true, false, oldest).
			Order("id").Limit(j.cfg.BatchSize)
		if lastID != uuid.Nil {
			query = query.Where("id > ?", lastID)
		}
		if err := query.Find(&batch).Error; err != nil {
			return fmt.Errorf("failed to load revocation candidates: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for i := range batch {
			p := &batch[i]
			lastID = p.ID

			moved, err := j.advance(ctx, p, now)
			if err != nil {
				log.Printf("Revocation sweep: project %s failed: %v", p.ID, err)
				continue
			}
			if moved {
				advanced++
			}
		}

		if len(batch) < j.cfg.BatchSize {
			break
		}
	}

	log.Printf("Badge revocation sweep finished, %d projects advanced", advanced)

	if err := j.refresher.RefreshProjectViews(); err != nil {
		log.Printf("Failed to refresh project views after revocation sweep: %v", err)
	}

	return nil
}

// advance evaluates the transition table for one project and applies the
// first matching rule, if any
func (j *RevocationSweep) advance(ctx context.Context, p *models.Project, now time.Time) (bool, error) {
	elapsed := now.Sub(p.UpdatedAt)

	var matched *revokeRule
	for _, rule := range j.rules() {
		if !p.AtRevokeStep(rule.from) {
			continue
		}
		if elapsed < rule.threshold {
			continue
		}
		switch rule.gate {
		case gatePreCutover:
			if !p.UpdatedAt.Before(j.cfg.CutoverDate) {
				continue
			}
		case gatePostCutover:
			if p.UpdatedAt.Before(j.cfg.CutoverDate) {
				continue
			}
		}
		matched = &rule
		break
	}
	if matched == nil {
		return false, nil
	}

	if matched.to == models.RevokeStepRevoked {
		if err := j.revoke(p); err != nil {
			return false, err
		}
	} else {
		// UpdateColumn so the activity timestamp is not bumped: a sweep step
		// is not evidence of life
		if err := j.db.Model(&models.Project{}).Where("id = ?", p.ID).
			UpdateColumn("verification_status", matched.to).Error; err != nil {
			return false, fmt.Errorf("failed to advance revoke step: %w", err)
		}
	}
	p.VerificationStatus = models.RevokeStepPtr(matched.to)

	// State is committed; notification failure must not fail the transition
	if err := j.dispatcher.Dispatch(ctx, stepEvent(matched.to), p, map[string]interface{}{
		"revoke_step": string(matched.to),
	}); err != nil {
		log.Printf("Failed to dispatch %s notification for project %s: %v", matched.to, p.ID, err)
	}

	// Pace the notification transport between items
	if err := j.limiter.Wait(ctx); err != nil {
		return true, err
	}

	return true, nil
}

// revoke applies the terminal step: the badge is removed, the audit row is
// appended and the paired form is reset to draft, all in one transaction
func (j *RevocationSweep) revoke(p *models.Project) error {
	return j.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Project{}).Where("id = ?", p.ID).
			UpdateColumns(map[string]interface{}{
				"verified":            false,
				"verification_status": models.RevokeStepRevoked,
			}).Error; err != nil {
			return fmt.Errorf("failed to revoke badge: %w", err)
		}

		prev := p.StatusID
		if err := history.AppendTx(tx, history.Entry{
			ProjectID:    p.ID,
			StatusID:     p.StatusID,
			PrevStatusID: &prev,
			Description:  history.DescChangedToUnverifiedByCron,
		}); err != nil {
			return err
		}

		return verification.ForceDraftTx(tx, p.ID)
	})
}

// stepEvent maps a revoke step to its notification event
func stepEvent(step models.RevokeStep) notification.Event {
	switch step {
	case models.RevokeStepReminder:
		return notification.EventProjectBadgeRevokeReminder
	case models.RevokeStepWarning:
		return notification.EventProjectBadgeRevokeWarning
	case models.RevokeStepLastChance:
		return notification.EventProjectBadgeRevokeLastWarn
	case models.RevokeStepUpForRevoking:
		return notification.EventProjectBadgeUpForRevoking
	default:
		return notification.EventProjectBadgeRevoked
	}
}
