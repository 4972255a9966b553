package database

import (
	"fmt"
	"time"

	"github.com/givehub/backend/internal/config"
	"github.com/givehub/backend/internal/database/migrations"
	"github.com/givehub/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB initializes the database connection with configuration
func InitDB(dbConfig config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}

	db, err := gorm.Open(postgres.Open(dbConfig.URL), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdle)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Run migrations
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Migrate runs schema auto-migration followed by data migrations
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// Users
		&models.User{},

		// Projects and lifecycle
		&models.ProjectStatus{},
		&models.ProjectStatusReason{},
		&models.Project{},
		&models.ProjectStatusHistory{},
		&models.ProjectUpdate{},

		// Verification
		&models.VerificationForm{},

		// Donations and reactions (fan-out audience)
		&models.Donation{},
		&models.Reaction{},
	); err != nil {
		return err
	}

	return migrations.RunMigrations(db)
}
