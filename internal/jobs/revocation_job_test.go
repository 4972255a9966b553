package jobs

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/givehub/backend/internal/config"
	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/services/history"
	"github.com/givehub/backend/internal/services/notification"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recorderDispatcher records dispatched events for assertions
type recorderDispatcher struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Event     notification.Event
	ProjectID uuid.UUID
}

func (r *recorderDispatcher) Dispatch(ctx context.Context, event notification.Event, project *models.Project, meta map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Event: event, ProjectID: project.ID})
	return nil
}

func (r *recorderDispatcher) count(event notification.Event, projectID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Event == event && e.ProjectID == projectID {
			n++
		}
	}
	return n
}

func (r *recorderDispatcher) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// stubRefresher counts ranking view refreshes
type stubRefresher struct {
	calls int
}

func (s *stubRefresher) RefreshProjectViews() error {
	s.calls++
	return nil
}

// setupTestDB creates an in-memory database with the lifecycle schema
func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.ProjectStatus{},
		&models.ProjectStatusReason{},
		&models.Project{},
		&models.ProjectStatusHistory{},
		&models.ProjectUpdate{},
		&models.VerificationForm{},
		&models.Donation{},
		&models.Reaction{},
	)
	require.NoError(t, err)

	statuses := []models.ProjectStatus{
		{ID: models.StatusActive, Symbol: models.StatusSymbolActive, Name: "Active"},
		{ID: models.StatusDeactive, Symbol: models.StatusSymbolDeactive, Name: "Deactivated"},
		{ID: models.StatusCancelled, Symbol: models.StatusSymbolCancelled, Name: "Cancelled"},
		{ID: models.StatusDrafted, Symbol: models.StatusSymbolDrafted, Name: "Draft"},
	}
	for _, s := range statuses {
		require.NoError(t, db.Create(&s).Error)
	}

	return db
}

func sweepConfig() config.VerificationConfig {
	return config.VerificationConfig{
		ReminderDays:   30,
		WarningDays:    60,
		LastChanceDays: 90,
		RevokeDays:     104,
		CutoverDate:    time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC),
		BatchSize:      100,
		NotifyDelay:    0,
	}
}

// makeStaleProject inserts a verified project whose activity timestamp is
// stale by the given number of days, sitting at the given revoke step
func makeStaleProject(t *testing.T, db *gorm.DB, now time.Time, staleDays int, step *models.RevokeStep) *models.Project {
	p := models.Project{
		Title:        "Stale Project " + uuid.NewString()[:8],
		Slug:         "stale-project-" + uuid.NewString()[:8],
		AdminUserID:  uuid.New(),
		StatusID:     models.StatusActive,
		Verified:     true,
		ReviewStatus: models.ReviewStatusListed,
	}
	require.NoError(t, db.Create(&p).Error)

	updates := map[string]interface{}{
		"updated_at": now.Add(-time.Duration(staleDays) * 24 * time.Hour),
	}
	if step != nil {
		updates["verification_status"] = *step
	}
	require.NoError(t, db.Model(&p).UpdateColumns(updates).Error)
	require.NoError(t, db.First(&p, "id = ?", p.ID).Error)
	return &p
}

func reload(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Project {
	var p models.Project
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return &p
}

func TestSweepStartsRevokeClock(t *testing.T) {
	db := setupTestDB(t)
	rec := &recorderDispatcher{}
	refresher := &stubRefresher{}
	sweep := NewRevocationSweep(db, sweepConfig(), rec, refresher)
	now := sweep.now()

	p := makeStaleProject(t, db, now, 31, nil)

	require.NoError(t, sweep.Run(context.Background()))

	fresh := reload(t, db, p.ID)
	require.NotNil(t, fresh.VerificationStatus)
	assert.Equal(t, models.RevokeStepReminder, *fresh.VerificationStatus)
	assert.True(t, fresh.Verified)

	assert.Equal(t, 1, rec.count(notification.EventProjectBadgeRevokeReminder, p.ID))
	assert.Equal(t, 1, refresher.calls)
}

func TestSweepAdvancesSingleStepPerTick(t *testing.T) {
	db := setupTestDB(t)
	rec := &recorderDispatcher{}
	sweep := NewRevocationSweep(db, sweepConfig(), rec, &stubRefresher{})
	now := sweep.now()

	// 200 days exceeds every threshold, but a tick moves one step only
	p := makeStaleProject(t, db, now, 200, models.RevokeStepPtr(models.RevokeStepWarning))

	require.NoError(t, sweep.Run(context.Background()))

	fresh := reload(t, db, p.ID)
	require.NotNil(t, fresh.VerificationStatus)
	assert.Equal(t, models.RevokeStepLastChance, *fresh.VerificationStatus)
	assert.True(t, fresh.Verified)

	assert.Equal(t, 1, rec.count(notification.EventProjectBadgeRevokeLastWarn, p.ID))
	assert.Equal(t, 1, rec.total())
}

func TestSweepHoldsBelowRevokeThreshold(t *testing.T) {
	db := setupTestDB(t)
	rec := &recorderDispatcher{}
	sweep := NewRevocationSweep(db, sweepConfig(), rec, &stubRefresher{})
	now := sweep.now()

	// At lastChance with 91 days of inactivity the project keeps the badge
	// until day 104
	p := makeStaleProject(t, db, now, 91, models.RevokeStepPtr(models.RevokeStepLastChance))

	require.NoError(t, sweep.Run(context.Background()))

	fresh := reload(t, db, p.ID)
	require.NotNil(t, fresh.VerificationStatus)
	assert.Equal(t, models.RevokeStepLastChance, *fresh.VerificationStatus)
	assert.True(t, fresh.Verified)
	assert.Zero(t, rec.total())
}

func TestSweepRevokesBadge(t *testing.T) {
	db := setupTestDB(t)
	rec := &recorderDispatcher{}
	sweep := NewRevocationSweep(db, sweepConfig(), rec, &stubRefresher{})
	now := sweep.now()

	p := makeStaleProject(t, db, now, 105, models.RevokeStepPtr(models.RevokeStepLastChance))
	staleAt := p.UpdatedAt

	// A verified form paired with the badge
	form := models.VerificationForm{
		ProjectID:       p.ID,
		UserID:          p.AdminUserID,
		Status:          models.FormStatusVerified,
		LastStep:        models.FormStepSubmit,
		IsTermsAccepted: true,
	}
	require.NoError(t, db.Create(&form).Error)

	require.NoError(t, sweep.Run(context.Background()))

	fresh := reload(t, db, p.ID)
	assert.False(t, fresh.Verified)
	require.NotNil(t, fresh.VerificationStatus)
	assert.Equal(t, models.RevokeStepRevoked, *fresh.VerificationStatus)

	// The revoke step is not evidence of life
	assert.WithinDuration(t, staleAt, fresh.UpdatedAt, time.Second)

	var rows []models.ProjectStatusHistory
	require.NoError(t, db.Where("project_id = ?", p.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, history.DescChangedToUnverifiedByCron, rows[0].Description)

	var freshForm models.VerificationForm
	require.NoError(t, db.First(&freshForm, "id = ?", form.ID).Error)
	assert.Equal(t, models.FormStatusDraft, freshForm.Status)
	assert.Equal(t, models.FormStepManagingFunds, freshForm.LastStep)
	assert.False(t, freshForm.IsTermsAccepted)
	assert.Nil(t, freshForm.VerifiedAt)

	assert.Equal(t, 1, rec.count(notification.EventProjectBadgeRevoked, p.ID))
}

func TestSweepParksLegacyProjects(t *testing.T) {
	db := setupTestDB(t)
	rec := &recorderDispatcher{}
	cfg := sweepConfig()
	sweep := NewRevocationSweep(db, cfg, rec, &stubRefresher{})
	now := sweep.now()

	// Last activity predates the cut-over: the project parks at upForRevoking
	// and is never revoked retroactively
	legacyDays := int(now.Sub(cfg.CutoverDate.Add(-180*24*time.Hour)).Hours() / 24)
	p := makeStaleProject(t, db, now, legacyDays, models.RevokeStepPtr(models.RevokeStepWarning))

	require.NoError(t, sweep.Run(context.Background()))

	fresh := reload(t, db, p.ID)
	require.NotNil(t, fresh.VerificationStatus)
	assert.Equal(t, models.RevokeStepUpForRevoking, *fresh.VerificationStatus)
	assert.True(t, fresh.Verified)
	assert.Equal(t, 1, rec.count(notification.EventProjectBadgeUpForRevoking, p.ID))

	// Subsequent ticks leave parked legacy projects alone
	require.NoError(t, sweep.Run(context.Background()))

	fresh = reload(t, db, p.ID)
	assert.Equal(t, models.RevokeStepUpForRevoking, *fresh.VerificationStatus)
	assert.True(t, fresh.Verified)
	assert.Equal(t, 1, rec.total())
}

func TestSweepSkipsImportedAndUnverified(t *testing.T) {
	db := setupTestDB(t)
	rec := &recorderDispatcher{}
	sweep := NewRevocationSweep(db, sweepConfig(), rec, &stubRefresher{})
	now := sweep.now()

	imported := makeStaleProject(t, db, now, 200, nil)
	require.NoError(t, db.Model(imported).UpdateColumn("is_imported", true).Error)

	unverified := makeStaleProject(t, db, now, 200, nil)
	require.NoError(t, db.Model(unverified).UpdateColumn("verified", false).Error)

	require.NoError(t, sweep.Run(context.Background()))

	assert.Nil(t, reload(t, db, imported.ID).VerificationStatus)
	assert.Nil(t, reload(t, db, unverified.ID).VerificationStatus)
	assert.Zero(t, rec.total())
}

func TestSweepPagesThroughCandidates(t *testing.T) {
	db := setupTestDB(t)
	rec := &recorderDispatcher{}
	cfg := sweepConfig()
	cfg.BatchSize = 1
	sweep := NewRevocationSweep(db, cfg, rec, &stubRefresher{})
	now := sweep.now()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		p := makeStaleProject(t, db, now, 31, nil)
		ids = append(ids, p.ID)
	}

	require.NoError(t, sweep.Run(context.Background()))

	for _, id := range ids {
		fresh := reload(t, db, id)
		require.NotNil(t, fresh.VerificationStatus)
		assert.Equal(t, models.RevokeStepReminder, *fresh.VerificationStatus)
	}
	assert.Equal(t, 3, rec.total())
}

func TestActivityResetsRevokeClock(t *testing.T) {
	db := setupTestDB(t)
	rec := &recorderDispatcher{}
	sweep := NewRevocationSweep(db, sweepConfig(), rec, &stubRefresher{})
	now := sweep.now()

	p := makeStaleProject(t, db, now, 40, models.RevokeStepPtr(models.RevokeStepReminder))

	// New activity restarts the clock from scratch
	lifecycleSvc := newLifecycleService(t, db, rec)
	require.NoError(t, lifecycleSvc.TouchProjectActivity(p.ID))

	require.NoError(t, sweep.Run(context.Background()))

	fresh := reload(t, db, p.ID)
	assert.Nil(t, fresh.VerificationStatus)
	assert.True(t, fresh.Verified)
	assert.Zero(t, rec.total())
}

func TestRevokedProjectCanBeReverified(t *testing.T) {
	db := setupTestDB(t)
	rec := &recorderDispatcher{}
	sweep := NewRevocationSweep(db, sweepConfig(), rec, &stubRefresher{})
	now := sweep.now()

	p := makeStaleProject(t, db, now, 105, models.RevokeStepPtr(models.RevokeStepLastChance))

	require.NoError(t, sweep.Run(context.Background()))
	assert.False(t, reload(t, db, p.ID).Verified)

	// Re-verifying clears the revoke step so the clock starts over
	lifecycleSvc := newLifecycleService(t, db, rec)
	require.NoError(t, lifecycleSvc.ApplyVerification(context.Background(), []uuid.UUID{p.ID}, true, false, uuid.New()))

	fresh := reload(t, db, p.ID)
	assert.True(t, fresh.Verified)
	assert.Nil(t, fresh.VerificationStatus)
}
