package notification

import (
	"fmt"
	"strings"
	"testing"

	"github.com/givehub/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.ProjectStatus{},
		&models.Project{},
		&models.Donation{},
		&models.Reaction{},
	))
	return db
}

func TestFanOutAudienceDistinct(t *testing.T) {
	db := setupTestDB(t)
	d := NewQueueDispatcher(db, nil)

	projectID := uuid.New()
	donor := uuid.New()
	reactor := uuid.New()
	both := uuid.New()

	donations := []models.Donation{
		{ProjectID: projectID, UserID: donor, Amount: 10, Currency: "ETH"},
		{ProjectID: projectID, UserID: donor, Amount: 5, Currency: "ETH"},
		{ProjectID: projectID, UserID: both, Amount: 1, Currency: "ETH"},
	}
	for _, donation := range donations {
		require.NoError(t, db.Create(&donation).Error)
	}
	reactions := []models.Reaction{
		{ProjectID: projectID, UserID: reactor},
		{ProjectID: projectID, UserID: both},
		{ProjectID: uuid.New(), UserID: uuid.New()},
	}
	for _, reaction := range reactions {
		require.NoError(t, db.Create(&reaction).Error)
	}

	audience, err := d.fanOutAudience(projectID)
	require.NoError(t, err)

	// Repeat donors and donor-reactors appear once; other projects' users not
	// at all
	assert.ElementsMatch(t, []uuid.UUID{donor, reactor, both}, audience)
}

func TestFanOutEventSelection(t *testing.T) {
	assert.True(t, fanOutEvents[EventProjectCancelled])
	assert.True(t, fanOutEvents[EventProjectListed])
	assert.False(t, fanOutEvents[EventProjectVerified])
	assert.False(t, fanOutEvents[EventProjectBadgeRevokeReminder])
}
